package notifications

import (
	"slices"
	"sync"
	"time"

	"restaurant-pos-api/internal/cache"
	"restaurant-pos-api/internal/models"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Policy decides where a pushed notification lands in an already loaded list.
type Policy string

const (
	// PolicyRecentFirst prepends pushed notifications regardless of priority.
	PolicyRecentFirst Policy = "recent"
	// PolicyPriority inserts pushed notifications at their priority position.
	PolicyPriority Policy = "priority"
)

const (
	DefaultDisplayLimit  = 10
	DefaultToastDuration = 5 * time.Second
)

// Notification is the dashboard's view of one notification.
type Notification struct {
	ID        string          `json:"_id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Priority  models.Priority `json:"priority"`
	Read      bool            `json:"read"`
	Data      map[string]any  `json:"data,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Toast is a short-lived popup for a pushed notification. Closing or expiring
// it leaves the notification's read flag alone.
type Toast struct {
	ID             string
	NotificationID string
	Title          string
	Message        string
	Priority       models.Priority
	CreatedAt      time.Time
}

type Options struct {
	Policy       Policy
	DisplayLimit int
	// ToastDuration is how long a toast stays up unless Sticky is set.
	ToastDuration time.Duration
	Sticky        bool
	Now           func() time.Time
}

// Store holds the notification list of one dashboard session.
type Store struct {
	opts Options

	mu     sync.Mutex
	items  []Notification
	toasts cache.Cache[string, Toast]

	listenersMu sync.Mutex
	nextID      uint64
	listeners   map[uint64]func()
}

func NewStore(opts Options) *Store {
	if opts.Policy == "" {
		opts.Policy = PolicyRecentFirst
	}
	if opts.DisplayLimit <= 0 {
		opts.DisplayLimit = DefaultDisplayLimit
	}
	if opts.ToastDuration <= 0 {
		opts.ToastDuration = DefaultToastDuration
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		opts:      opts,
		toasts:    cache.NewSimpleCache[string, Toast](cache.Options{Now: opts.Now}),
		listeners: make(map[uint64]func()),
	}
}

// Load replaces the list with a fetched one, sorted by priority then newest.
// Duplicate ids keep their first occurrence.
func (s *Store) Load(list []Notification) {
	items := lo.UniqBy(list, func(n Notification) string { return n.ID })
	slices.SortStableFunc(items, byPriorityThenNewest)

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	s.changed()
}

// Add inserts a pushed notification and raises a toast for it. It reports
// false when a notification with the same id is already present.
func (s *Store) Add(n Notification) bool {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.opts.Now()
	}

	s.mu.Lock()
	if slices.ContainsFunc(s.items, func(o Notification) bool { return o.ID == n.ID }) {
		s.mu.Unlock()
		return false
	}
	at := 0
	if s.opts.Policy == PolicyPriority {
		at = len(s.items)
		if i := slices.IndexFunc(s.items, func(o Notification) bool { return byPriorityThenNewest(n, o) < 0 }); i >= 0 {
			at = i
		}
	}
	s.items = slices.Insert(s.items, at, n)
	if !n.Read {
		s.raiseToastLocked(n)
	}
	s.mu.Unlock()

	s.changed()
	return true
}

func (s *Store) raiseToastLocked(n Notification) {
	ttl := s.opts.ToastDuration
	if s.opts.Sticky {
		ttl = 0
	}
	t := Toast{
		ID:             uuid.NewString(),
		NotificationID: n.ID,
		Title:          n.Title,
		Message:        n.Message,
		Priority:       n.Priority,
		CreatedAt:      s.opts.Now(),
	}
	s.toasts.Set(t.ID, t, ttl)
}

// MarkAsRead flips the read flag of one notification. Marking an unknown or
// already read notification changes nothing and reports false.
func (s *Store) MarkAsRead(id string) bool {
	s.mu.Lock()
	i := slices.IndexFunc(s.items, func(n Notification) bool { return n.ID == id })
	if i < 0 || s.items[i].Read {
		s.mu.Unlock()
		return false
	}
	s.items[i].Read = true
	s.mu.Unlock()

	s.changed()
	return true
}

// MarkAllAsRead returns how many notifications were flipped.
func (s *Store) MarkAllAsRead() int {
	s.mu.Lock()
	flipped := 0
	for i := range s.items {
		if !s.items[i].Read {
			s.items[i].Read = true
			flipped++
		}
	}
	s.mu.Unlock()

	if flipped > 0 {
		s.changed()
	}
	return flipped
}

// UnreadCount counts the whole list, not only the displayed part.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.CountBy(s.items, func(n Notification) bool { return !n.Read })
}

// Visible returns the part of the list a dashboard renders.
func (s *Store) Visible() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items[:min(len(s.items), s.opts.DisplayLimit)])
}

func (s *Store) All() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// Toasts returns the live toasts, newest first.
func (s *Store) Toasts() []Toast {
	s.mu.Lock()
	var out []Toast
	s.toasts.Range(func(_ string, t Toast) bool {
		out = append(out, t)
		return true
	})
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b Toast) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out
}

func (s *Store) CloseToast(id string) bool {
	s.mu.Lock()
	ok := s.toasts.Has(id)
	s.toasts.Delete(id)
	s.mu.Unlock()

	if ok {
		s.changed()
	}
	return ok
}

// ExpireToasts drops toasts past their duration and returns how many went.
func (s *Store) ExpireToasts() int {
	s.mu.Lock()
	n := len(s.toasts.PurgeExpired())
	s.mu.Unlock()

	if n > 0 {
		s.changed()
	}
	return n
}

// OnChange registers fn to run after every mutation. The returned func unregisters it.
func (s *Store) OnChange(fn func()) func() {
	s.listenersMu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

func (s *Store) changed() {
	s.listenersMu.Lock()
	fns := lo.Values(s.listeners)
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func byPriorityThenNewest(a, b Notification) int {
	if d := b.Priority.Rank() - a.Priority.Rank(); d != 0 {
		return d
	}
	return b.CreatedAt.Compare(a.CreatedAt)
}
