package redis

import "testing"

func TestKeys(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{name: "session", got: SessionKey("abc"), expected: "smartmarks:session:abc"},
		{name: "auth channel", got: AuthChannel("abc"), expected: "smartmarks:channel:auth:abc"},
		{name: "change channel", got: ChangeChannel("bookmarks", "u1"), expected: "smartmarks:channel:changes:bookmarks:u1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}

func TestChannelsAreDistinctPerOwner(t *testing.T) {
	if ChangeChannel("bookmarks", "a") == ChangeChannel("bookmarks", "b") {
		t.Error("owners must not share a change channel")
	}
	if AuthChannel("t1") == SessionKey("t1") {
		t.Error("auth channel must not collide with the session key")
	}
}
