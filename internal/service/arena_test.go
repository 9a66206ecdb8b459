package service

import (
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/clawcombat/arena/internal/config"
	"github.com/clawcombat/arena/internal/game"
	"github.com/clawcombat/arena/internal/metrics"
	"github.com/clawcombat/arena/internal/storage"
)

// mockRepo is an in-memory storage.Repository with the same observable
// behavior as the SQLite implementation.
type mockRepo struct {
	mu      sync.Mutex
	nextID  uint
	agents  map[string]*game.Agent
	battles map[string]*game.Battle
	queue   map[string]*game.QueueEntry
	prog    config.ProgressionSettings

	battleUpdates int
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		agents:  make(map[string]*game.Agent),
		battles: make(map[string]*game.Battle),
		queue:   make(map[string]*game.QueueEntry),
	}
}

func cloneAgent(a *game.Agent) *game.Agent {
	cp := *a
	cp.MoveSlots = append([]game.MoveSlot(nil), a.MoveSlots...)
	cp.Moves = append([]string(nil), a.Moves...)
	return &cp
}

func (m *mockRepo) CreateAgent(a *game.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a.ID = m.nextID
	m.agents[a.AgentUUID] = cloneAgent(a)
	return nil
}

func (m *mockRepo) GetAgentByUUID(agentUUID string) (*game.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[agentUUID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := cloneAgent(a)
	out.Moves = out.MoveKeys()
	return out, nil
}

func (m *mockRepo) GetAgentByName(name string) (*game.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.agents {
		if strings.EqualFold(a.Name, name) {
			return cloneAgent(a), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRepo) GetAgentByKeyDigest(digest string) (*game.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.agents {
		if a.APIKeyDigest == digest {
			out := cloneAgent(a)
			out.Moves = out.MoveKeys()
			return out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRepo) SaveAgent(a *game.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents[a.AgentUUID] = cloneAgent(a)
	return nil
}

func (m *mockRepo) GetTopAgents(limit int) ([]game.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]game.Agent, 0, len(m.agents))
	for _, a := range m.agents {
		out = append(out, *cloneAgent(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		if out[i].Draws != out[j].Draws {
			return out[i].Draws > out[j].Draws
		}
		return out[i].Losses < out[j].Losses
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockRepo) CreateBattle(b *game.Battle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	b.ID = m.nextID
	m.battles[b.BattleUUID] = b.Clone()
	return nil
}

func (m *mockRepo) GetBattleByUUID(battleUUID string) (*game.Battle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.battles[battleUUID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return b.Clone(), nil
}

func (m *mockRepo) UpdateBattle(b *game.Battle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.battleUpdates++
	m.battles[b.BattleUUID] = b.Clone()
	return nil
}

func (m *mockRepo) ListActiveBattles() ([]game.Battle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]game.Battle, 0)
	for _, b := range m.battles {
		if b.Status == game.BattleActive {
			out = append(out, *b.Clone())
		}
	}
	return out, nil
}

func (m *mockRepo) ClaimTimedOutBattles(now time.Time, limit int, claimFor time.Duration, workerID string) ([]game.Battle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]game.Battle, 0)
	for _, b := range m.battles {
		if len(out) >= limit {
			break
		}
		if b.Status != game.BattleActive || b.TurnDeadline.IsZero() || b.TurnDeadline.After(now) {
			continue
		}
		if b.ClaimedBy != "" && b.ClaimedAt != nil && b.ClaimedAt.After(now.Add(-claimFor)) {
			continue
		}
		b.ClaimedBy = workerID
		t := now
		b.ClaimedAt = &t
		out = append(out, *b.Clone())
	}
	return out, nil
}

func (m *mockRepo) ApplyBattleResult(battleUUID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.battles[battleUUID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if !b.Status.Terminal() || b.ResultApplied {
		return nil
	}
	if b.Status != game.BattleAborted {
		for i := range b.Participants {
			a := m.agents[b.Participants[i].AgentUUID]
			if a == nil {
				continue
			}
			switch {
			case b.Draw:
				a.Draws++
				a.Experience += m.prog.DrawExperience
			case b.WinnerUUID == a.AgentUUID:
				a.Wins++
				a.Experience += m.prog.WinExperience
			default:
				a.Losses++
				a.Experience += m.prog.LossExperience
			}
			a.Level = game.LevelForExperience(m.prog.StartingLevel, a.Experience, m.prog.ExperiencePerLevel)
		}
	}
	b.ResultApplied = true
	return nil
}

func (m *mockRepo) PruneTerminalBattles(olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, b := range m.battles {
		if b.Status.Terminal() && b.CompletedAt != nil && !b.CompletedAt.After(olderThan) {
			delete(m.battles, id)
			n++
		}
	}
	return n, nil
}

// SaveQueueEntry mirrors the upsert-on-agent semantics of the sqlite
// repository: a leftover row for the same agent is replaced.
func (m *mockRepo) SaveQueueEntry(e *game.QueueEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, old := range m.queue {
		if old.AgentUUID == e.AgentUUID {
			delete(m.queue, token)
		}
	}
	cp := *e
	m.queue[e.Token] = &cp
	return nil
}

func (m *mockRepo) DeleteQueueEntryByToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.queue, token)
	return nil
}

func (m *mockRepo) DeleteQueueEntryByAgent(agentUUID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, e := range m.queue {
		if e.AgentUUID == agentUUID {
			delete(m.queue, token)
		}
	}
	return nil
}

func (m *mockRepo) ListQueueEntries() ([]game.QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]game.QueueEntry, 0, len(m.queue))
	for _, e := range m.queue {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnqueuedAt.Before(out[j].EnqueuedAt) })
	return out, nil
}

func (m *mockRepo) DeleteQueueEntriesBefore(cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for token, e := range m.queue {
		if e.EnqueuedAt.Before(cutoff) {
			delete(m.queue, token)
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) queuedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

func (m *mockRepo) storedBattle(t *testing.T, battleUUID string) *game.Battle {
	t.Helper()
	b, err := m.GetBattleByUUID(battleUUID)
	if err != nil {
		t.Fatalf("stored battle %s: %v", battleUUID, err)
	}
	return b
}

func testLoadedConfig() *config.LoadedConfig {
	return &config.LoadedConfig{
		ServerAddress: ":0",
		Battle: config.BattleSettings{
			MaxTurns:           10,
			TurnTimeout:        30 * time.Second,
			QueueBandWidth:     10,
			QueueStaleAfter:    10 * time.Minute,
			CompletedRetention: 24 * time.Hour,
		},
		Progression: config.ProgressionSettings{
			StartingLevel:      5,
			ExperiencePerLevel: 100,
			WinExperience:      60,
			DrawExperience:     30,
			LossExperience:     15,
			MoveSlots:          4,
		},
		TypeChart: []game.TypeMatchup{
			{Attacking: game.Fire, Defending: game.Water, Multiplier: 0.5},
			{Attacking: game.Water, Defending: game.Fire, Multiplier: 2},
		},
		Moves: []game.Move{
			{Key: "ember", Name: "Ember", Type: game.Fire, Category: game.CategoryPhysical, Power: 40, Accuracy: 100},
			{Key: "flame_burst", Name: "Flame Burst", Type: game.Fire, Category: game.CategorySpecial, Power: 70, Accuracy: 100},
			{Key: "bubble", Name: "Bubble", Type: game.Water, Category: game.CategorySpecial, Power: 40, Accuracy: 100},
			{Key: "aqua_jet", Name: "Aqua Jet", Type: game.Water, Category: game.CategoryPhysical, Power: 40, Accuracy: 100, Priority: 1},
			{Key: "tackle", Name: "Tackle", Type: game.Normal, Category: game.CategoryPhysical, Power: 40, Accuracy: 100},
		},
		StatPresets: map[game.ElementType]game.BaseStats{
			game.Fire:   {HitPoints: 78, Attack: 84, Defense: 78, SpecialAttack: 109, SpecialDefense: 85, Speed: 100},
			game.Water:  {HitPoints: 79, Attack: 83, Defense: 100, SpecialAttack: 85, SpecialDefense: 105, Speed: 78},
			game.Normal: {HitPoints: 85, Attack: 80, Defense: 80, SpecialAttack: 75, SpecialDefense: 75, Speed: 90},
		},
	}
}

// newArenaOver builds an Arena on an existing repository, as a restarted
// process would.
func newArenaOver(t *testing.T, repo *mockRepo, cfg *config.LoadedConfig) *Arena {
	t.Helper()
	return NewArena(repo, storage.NewCachedAgentStore(repo, time.Minute), cfg, metrics.NewCollector(prometheus.NewRegistry()))
}

// newTestArena builds an Arena on a fresh mock repository with a
// controllable clock. Advance the clock through *clock.
func newTestArena(t *testing.T) (*Arena, *mockRepo, *time.Time) {
	t.Helper()
	repo := newMockRepo()
	cfg := testLoadedConfig()
	repo.prog = cfg.Progression
	a := newArenaOver(t, repo, cfg)
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return clock }
	a.seedFn = func() int64 { return 7 }
	return a, repo, &clock
}

// registerPair registers two agents and returns them. The fire agent is
// faster, the water agent hits harder into fire.
func registerPair(t *testing.T, a *Arena) (fire, water *game.Agent) {
	t.Helper()
	fire, _, err := a.RegisterAgent("Cinder Proxy", "fire", "")
	if err != nil {
		t.Fatalf("register fire agent: %v", err)
	}
	water, _, err = a.RegisterAgent("Tide Daemon", "water", "")
	if err != nil {
		t.Fatalf("register water agent: %v", err)
	}
	return fire, water
}

// pairUp queues both agents and returns the started battle's ID.
func pairUp(t *testing.T, a *Arena, fire, water *game.Agent) string {
	t.Helper()
	if _, err := a.JoinQueue(fire.AgentUUID); err != nil {
		t.Fatalf("fire join: %v", err)
	}
	ticket, err := a.JoinQueue(water.AgentUUID)
	if err != nil {
		t.Fatalf("water join: %v", err)
	}
	if ticket.BattleID == "" {
		t.Fatal("expected second join to complete a pair")
	}
	return ticket.BattleID
}
