package storage

import (
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/clawcombat/arena/internal/cache"
	"github.com/clawcombat/arena/internal/game"
)

// CachedAgentStore front-ends hot agent reads (status polling, key auth)
// with a TTL cache. Concurrent misses for the same agent collapse into a
// single database query.
type CachedAgentStore struct {
	repo     Repository
	byUUID   *cache.Cache[string, game.Agent]
	byDigest *cache.Cache[string, string]
	group    singleflight.Group
}

func NewCachedAgentStore(repo Repository, ttl time.Duration) *CachedAgentStore {
	return &CachedAgentStore{
		repo:     repo,
		byUUID:   cache.New[string, game.Agent](ttl),
		byDigest: cache.New[string, string](ttl),
	}
}

func (s *CachedAgentStore) GetByUUID(agentUUID string) (*game.Agent, error) {
	if a, ok := s.byUUID.Get(agentUUID); ok {
		return copyAgent(&a), nil
	}
	v, err, _ := s.group.Do("agent:"+agentUUID, func() (any, error) {
		a, err := s.repo.GetAgentByUUID(agentUUID)
		if err != nil {
			return nil, err
		}
		s.byUUID.Set(agentUUID, *a)
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return copyAgent(v.(*game.Agent)), nil
}

func (s *CachedAgentStore) GetByKeyDigest(digest string) (*game.Agent, error) {
	if agentUUID, ok := s.byDigest.Get(digest); ok {
		if a, ok := s.byUUID.Get(agentUUID); ok {
			return copyAgent(&a), nil
		}
	}
	v, err, _ := s.group.Do("digest:"+digest, func() (any, error) {
		a, err := s.repo.GetAgentByKeyDigest(digest)
		if err != nil {
			return nil, err
		}
		s.byDigest.Set(digest, a.AgentUUID)
		s.byUUID.Set(a.AgentUUID, *a)
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return copyAgent(v.(*game.Agent)), nil
}

// Invalidate drops the cached profile so the next read sees fresh wins,
// losses and level. Call it after any write to the agent.
func (s *CachedAgentStore) Invalidate(agentUUID string) {
	s.byUUID.Delete(agentUUID)
}

// Stats sums hits and misses across both indexes.
func (s *CachedAgentStore) Stats() (hits, misses uint64) {
	h1, m1 := s.byUUID.Stats()
	h2, m2 := s.byDigest.Stats()
	return h1 + h2, m1 + m2
}

// copyAgent detaches the caller from the cached value so later mutations
// cannot leak back into the cache.
func copyAgent(a *game.Agent) *game.Agent {
	cp := *a
	cp.Moves = append([]string(nil), a.Moves...)
	cp.MoveSlots = append([]game.MoveSlot(nil), a.MoveSlots...)
	return &cp
}
