package realtime

import (
	"time"

	"restaurant-pos-api/internal/cache"
)

// Connection is the registry's view of one live transport connection.
type Connection struct {
	ID            string
	UserID        string
	RestaurantID  string // empty until the connection joins
	ConnectedAt   time.Time
	LastHeartbeat time.Time
}

// Registry maps connection ids to restaurant ids. It is used for membership
// counting and stale-connection cleanup only; delivery goes through the hub rooms.
// Entries expire staleAfter past their last heartbeat.
type Registry struct {
	entries    cache.Cache[string, Connection]
	staleAfter time.Duration
	now        func() time.Time
}

// NewRegistry builds a registry. A staleAfter <= 0 disables expiry; a nil now uses time.Now.
func NewRegistry(staleAfter time.Duration, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		entries: cache.NewSimpleCache[string, Connection](cache.Options{
			ConcurrencySafe: true,
			Now:             now,
		}),
		staleAfter: staleAfter,
		now:        now,
	}
}

// Track records a freshly handshaken connection.
func (r *Registry) Track(id, userID string) {
	ts := r.now()
	r.entries.Set(id, Connection{
		ID:            id,
		UserID:        userID,
		ConnectedAt:   ts,
		LastHeartbeat: ts,
	}, r.staleAfter)
}

// Assign sets the restaurant of a tracked connection, tracking it first if needed.
func (r *Registry) Assign(id, userID, restaurantID string) {
	ts := r.now()
	ok := r.entries.Update(id, r.staleAfter, func(c Connection) Connection {
		c.RestaurantID = restaurantID
		c.LastHeartbeat = ts
		return c
	})
	if !ok {
		r.entries.Set(id, Connection{
			ID:            id,
			UserID:        userID,
			RestaurantID:  restaurantID,
			ConnectedAt:   ts,
			LastHeartbeat: ts,
		}, r.staleAfter)
	}
}

// Touch refreshes the last heartbeat. It reports false for unknown or already stale ids.
func (r *Registry) Touch(id string) bool {
	ts := r.now()
	return r.entries.Update(id, r.staleAfter, func(c Connection) Connection {
		c.LastHeartbeat = ts
		return c
	})
}

// Restore re-arms an entry that went stale or was swept while its connection
// stayed open.
func (r *Registry) Restore(id, userID, restaurantID string) {
	ts := r.now()
	r.entries.Set(id, Connection{
		ID:            id,
		UserID:        userID,
		RestaurantID:  restaurantID,
		ConnectedAt:   ts,
		LastHeartbeat: ts,
	}, r.staleAfter)
}

func (r *Registry) Remove(id string) {
	r.entries.Delete(id)
}

func (r *Registry) Get(id string) (Connection, bool) {
	return r.entries.Get(id)
}

// Count returns the number of live connections joined to restaurantID.
func (r *Registry) Count(restaurantID string) int {
	n := 0
	r.entries.Range(func(_ string, c Connection) bool {
		if c.RestaurantID == restaurantID {
			n++
		}
		return true
	})
	return n
}

// Len returns the number of live connections, joined or not.
func (r *Registry) Len() int {
	return r.entries.Len()
}

// Stale removes and returns the ids whose heartbeat is older than the stale threshold.
func (r *Registry) Stale() []string {
	return r.entries.PurgeExpired()
}
