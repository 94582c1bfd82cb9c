package redis

const (
	// KeyPrefixSession is the prefix for session keys
	KeyPrefixSession = "smartmarks:session:"
	// KeyPrefixAuthChannel is the prefix for per-session auth event channels
	KeyPrefixAuthChannel = "smartmarks:channel:auth:"
	// KeyPrefixChangeChannel is the prefix for per-owner row change channels
	KeyPrefixChangeChannel = "smartmarks:channel:changes:"
)

// SessionKey returns the Redis key for a session token
func SessionKey(token string) string {
	return KeyPrefixSession + token
}

// AuthChannel returns the pub/sub channel carrying auth events for a session
func AuthChannel(token string) string {
	return KeyPrefixAuthChannel + token
}

// ChangeChannel returns the pub/sub channel carrying row changes of table for owner
// Example: ChangeChannel("bookmarks", "42") -> "smartmarks:channel:changes:bookmarks:42"
func ChangeChannel(table, owner string) string {
	return KeyPrefixChangeChannel + table + ":" + owner
}
