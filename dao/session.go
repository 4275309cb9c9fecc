package dao

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/OpenTollGate/tollgate-captive-portal-site/models"
)

// SessionDAO handles in-memory session storage. Sessions expire after the
// configured TTL; eviction tears the session down so no retry poller or
// timer outlives its session.
type SessionDAO struct {
	c *cache.Cache
}

func NewSessionDAO(ttl time.Duration) *SessionDAO {
	c := cache.New(ttl, ttl)
	c.OnEvicted(func(_ string, v interface{}) {
		if s, ok := v.(*models.Session); ok {
			s.Teardown()
		}
	})
	return &SessionDAO{c: c}
}

// SaveSession stores or refreshes a session.
func (d *SessionDAO) SaveSession(s *models.Session) {
	d.c.Set(s.ID.String(), s, cache.DefaultExpiration)
}

// GetSession retrieves a session by ID.
func (d *SessionDAO) GetSession(id string) (*models.Session, bool) {
	v, ok := d.c.Get(id)
	if !ok {
		return nil, false
	}
	s, ok := v.(*models.Session)
	return s, ok
}

// DeleteSession removes a session; the eviction hook runs its teardown.
func (d *SessionDAO) DeleteSession(id string) {
	d.c.Delete(id)
}
