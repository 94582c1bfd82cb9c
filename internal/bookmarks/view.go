// Package bookmarks implements the bookmark list of one open browser tab:
// its local state, the add and delete actions, and the merge of realtime
// changes pushed on the owner's channel.
//
// A local update and the realtime echo of the same change arrive in no
// particular order. Inserts are de-duplicated on id and deletes are
// idempotent; nothing else orders them.
package bookmarks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

// ErrIncomplete is returned by Add when title or url is blank. Nothing is
// sent and nothing changes.
var ErrIncomplete = errors.New("title and url are required")

var ErrClosed = errors.New("view closed")

// Table is the owner-scoped bookmark storage.
type Table interface {
	ListBookmarks(ctx context.Context, owner string) ([]domain.Bookmark, error)
	InsertBookmark(ctx context.Context, draft domain.Draft) (domain.Bookmark, error)
	DeleteBookmark(ctx context.Context, owner, id string) error
}

// Channels opens push subscriptions.
type Channels interface {
	Subscribe(ctx context.Context, filter domain.ChannelFilter, handler func(domain.Change)) (domain.Subscription, error)
}

type Visibility string

const (
	Visible Visibility = "visible"
	Hidden  Visibility = "hidden"
)

// View is one mounted bookmark list owned by one user.
type View struct {
	id       string
	userID   string
	table    Table
	channels Channels
	log      logger.Logger
	now      func() time.Time

	mu       sync.Mutex
	items    []domain.Bookmark
	sub      domain.Subscription
	streams  int
	lastSeen time.Time
	closed   bool

	changed chan struct{}
	done    chan struct{}
}

func NewView(userID string, table Table, channels Channels, log logger.Logger) *View {
	id := uuid.NewString()
	return &View{
		id:       id,
		userID:   userID,
		table:    table,
		channels: channels,
		log:      log.With(logger.String("view_id", id), logger.String("user_id", userID)),
		now:      time.Now,
		items:    []domain.Bookmark{},
		lastSeen: time.Now(),
		changed:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (v *View) ID() string     { return v.id }
func (v *View) UserID() string { return v.userID }

// Items returns a copy of the list, newest first.
func (v *View) Items() []domain.Bookmark {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]domain.Bookmark, len(v.items))
	copy(out, v.items)
	return out
}

// Load replaces the list with the owner's bookmarks. A fetch error is
// logged and leaves the list untouched.
func (v *View) Load(ctx context.Context) {
	list, err := v.table.ListBookmarks(ctx, v.userID)
	if err != nil {
		v.log.Error("error fetching bookmarks", logger.Error(err))
		return
	}

	v.mu.Lock()
	v.items = list
	v.mu.Unlock()
	v.notify()
}

// Add inserts draft for the view's owner and prepends the stored row. It
// returns the draft to show next: cleared on success, unchanged otherwise.
func (v *View) Add(ctx context.Context, draft domain.Draft) (domain.Draft, error) {
	if !draft.Complete() {
		return draft, ErrIncomplete
	}

	d := draft.Trimmed()
	d.UserID = v.userID
	d.URL = domain.NormalizeURL(d.URL)

	b, err := v.table.InsertBookmark(ctx, d)
	if err != nil {
		v.log.Error("error adding bookmark", logger.Error(err))
		return draft, err
	}

	v.mu.Lock()
	added := v.prependLocked(b)
	v.mu.Unlock()
	if added {
		v.notify()
	}

	return domain.Draft{UserID: v.userID}, nil
}

// Delete removes id for the view's owner, then drops it from the list.
func (v *View) Delete(ctx context.Context, id string) error {
	if err := v.table.DeleteBookmark(ctx, v.userID, id); err != nil {
		v.log.Error("error deleting bookmark", logger.String("bookmark_id", id), logger.Error(err))
		return err
	}

	v.mu.Lock()
	removed := v.removeLocked(id)
	v.mu.Unlock()
	if removed {
		v.notify()
	}
	return nil
}

// Apply merges a pushed change and reports whether the list changed.
// Inserts owned by someone else, duplicates, and any other event type are
// ignored.
func (v *View) Apply(c domain.Change) bool {
	v.mu.Lock()
	var changed bool
	switch c.Type {
	case domain.EventInsert:
		if c.New != nil && c.New.UserID == v.userID {
			changed = v.prependLocked(*c.New)
		}
	case domain.EventDelete:
		if c.Old != nil {
			changed = v.removeLocked(c.Old.ID)
		}
	}
	v.mu.Unlock()

	if changed {
		v.notify()
	}
	return changed
}

// OnVisibilityChange refetches once when the tab comes back to the
// foreground.
func (v *View) OnVisibilityChange(ctx context.Context, state Visibility) {
	v.Touch()
	if state != Visible {
		return
	}
	v.Load(ctx)
}

func (v *View) prependLocked(b domain.Bookmark) bool {
	if domain.IndexOf(v.items, b.ID) != -1 {
		return false
	}
	items := make([]domain.Bookmark, 0, len(v.items)+1)
	items = append(items, b)
	v.items = append(items, v.items...)
	return true
}

func (v *View) removeLocked(id string) bool {
	i := domain.IndexOf(v.items, id)
	if i == -1 {
		return false
	}
	v.items = append(v.items[:i:i], v.items[i+1:]...)
	return true
}

// Mount opens the view's single realtime subscription on its owner's
// channel. Calling it again is a no-op.
func (v *View) Mount(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	if v.sub != nil {
		v.mu.Unlock()
		return nil
	}
	v.mu.Unlock()

	sub, err := v.channels.Subscribe(ctx, domain.ChannelFilter{
		Table:  domain.TableBookmarks,
		Owner:  v.userID,
		Events: []domain.EventType{domain.EventAll},
	}, func(c domain.Change) { v.Apply(c) })
	if err != nil {
		v.log.Error("failed to open realtime channel", logger.Error(err))
		return err
	}

	v.mu.Lock()
	if v.closed || v.sub != nil {
		v.mu.Unlock()
		sub.Unsubscribe()
		return nil
	}
	v.sub = sub
	v.mu.Unlock()

	v.log.Debug("view mounted")
	return nil
}

// Close releases the realtime subscription and wakes attached streams.
// Idempotent.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	sub := v.sub
	v.sub = nil
	v.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	close(v.done)
	v.log.Debug("view closed")
}

// Done is closed once the view is closed.
func (v *View) Done() <-chan struct{} { return v.done }

// Changed fires after the list changed. Bursts coalesce into one signal.
func (v *View) Changed() <-chan struct{} { return v.changed }

func (v *View) notify() {
	select {
	case v.changed <- struct{}{}:
	default:
	}
}

// Attach records a live stream on the view. The returned func detaches it.
func (v *View) Attach() (detach func()) {
	v.mu.Lock()
	v.streams++
	v.lastSeen = v.now()
	v.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			v.streams--
			v.lastSeen = v.now()
			v.mu.Unlock()
		})
	}
}

// Touch marks the view as used now.
func (v *View) Touch() {
	v.mu.Lock()
	v.lastSeen = v.now()
	v.mu.Unlock()
}

// IdleSince returns when the view was last used. ok is false while a
// stream is attached.
func (v *View) IdleSince() (since time.Time, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.streams > 0 {
		return time.Time{}, false
	}
	return v.lastSeen, true
}
