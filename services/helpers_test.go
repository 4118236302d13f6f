package services

import (
	"sync"
	"time"

	"github.com/bellapacxx/guba-backend/cache"
	"github.com/bellapacxx/guba-backend/store/memory"
)

type recordingNotifier struct {
	mu        sync.Mutex
	user      map[string][]Event
	broadcast []Event
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{user: make(map[string][]Event)}
}

func (n *recordingNotifier) NotifyUser(userID string, ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.user[userID] = append(n.user[userID], ev)
}

func (n *recordingNotifier) Broadcast(ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.broadcast = append(n.broadcast, ev)
}

func (n *recordingNotifier) userEvents(userID string) []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Event(nil), n.user[userID]...)
}

func (n *recordingNotifier) broadcasts() []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Event(nil), n.broadcast...)
}

type fixture struct {
	store    *memory.Store
	cache    *cache.Memory
	notifier *recordingNotifier
	auth     *AuthService
	users    *UserService
	wallet   *WalletService
	posts    *PostService
	support  *SupportService
	now      time.Time
}

func newFixture() *fixture {
	st := memory.New()
	c := cache.NewMemory()
	n := newRecordingNotifier()
	idem := NewIdempotency(c, time.Hour)
	auth := NewAuthService(st, NewTokenManager("test-secret-0123456789", time.Hour), c)

	f := &fixture{
		store:    st,
		cache:    c,
		notifier: n,
		auth:     auth,
		users:    NewUserService(st, auth),
		wallet:   NewWalletService(st, n, idem),
		posts:    NewPostService(st, st, c, time.Minute, n, idem),
		support:  NewSupportService(st, st),
		now:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	f.wallet.now = clock
	f.posts.now = clock
	f.support.now = clock
	return f
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
