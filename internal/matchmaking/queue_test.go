package matchmaking

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tickClock hands out strictly increasing instants so queue order is
// deterministic in tests.
type tickClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTickClock() *tickClock {
	return &tickClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestQueue(bandWidth int) *Queue {
	return NewQueue(bandWidth, newTickClock().Now)
}

func TestJoinAssignsTicketAndBand(t *testing.T) {
	q := newTestQueue(10)

	e1, err := q.Join("agent-1", 1)
	require.NoError(t, err)
	e2, err := q.Join("agent-2", 10)
	require.NoError(t, err)
	e3, err := q.Join("agent-3", 11)
	require.NoError(t, err)

	assert.NotEmpty(t, e1.Token)
	assert.NotEqual(t, e1.Token, e2.Token)
	assert.Equal(t, 0, e1.Band, "level 1 sits in the first band")
	assert.Equal(t, 0, e2.Band, "level 10 still sits in the first band")
	assert.Equal(t, 1, e3.Band, "level 11 opens the second band")
	assert.Equal(t, 3, q.Len())
}

func TestJoinRejectsDoubleEntry(t *testing.T) {
	q := newTestQueue(10)

	_, err := q.Join("agent-1", 5)
	require.NoError(t, err)
	_, err = q.Join("agent-1", 5)
	assert.ErrorIs(t, err, ErrAlreadyQueued)
	assert.Equal(t, 1, q.Len())
}

func TestTryPairIsFIFOWithinBand(t *testing.T) {
	q := newTestQueue(10)
	for _, a := range []string{"first", "second", "third"} {
		_, err := q.Join(a, 5)
		require.NoError(t, err)
	}

	pair, ok := q.TryPair()
	require.True(t, ok)
	assert.Equal(t, "first", pair.A.AgentUUID)
	assert.Equal(t, "second", pair.B.AgentUUID)
	assert.Equal(t, 1, q.Len())
}

func TestTryPairAllowsAdjacentBandsOnly(t *testing.T) {
	q := newTestQueue(10)
	_, err := q.Join("low", 10) // band 0
	require.NoError(t, err)
	_, err = q.Join("high", 25) // band 2
	require.NoError(t, err)

	_, ok := q.TryPair()
	assert.False(t, ok, "bands 0 and 2 must not meet")

	_, err = q.Join("mid", 11) // band 1
	require.NoError(t, err)

	pair, ok := q.TryPair()
	require.True(t, ok)
	assert.Equal(t, "low", pair.A.AgentUUID, "the oldest entry pairs first")
	assert.Equal(t, "mid", pair.B.AgentUUID)
}

func TestTryPairSkipsOverIncompatibleEntries(t *testing.T) {
	q := newTestQueue(10)
	_, err := q.Join("rookie-a", 3) // band 0
	require.NoError(t, err)
	_, err = q.Join("veteran", 95) // band 9
	require.NoError(t, err)
	_, err = q.Join("rookie-b", 7) // band 0
	require.NoError(t, err)

	pair, ok := q.TryPair()
	require.True(t, ok)
	assert.Equal(t, "rookie-a", pair.A.AgentUUID)
	assert.Equal(t, "rookie-b", pair.B.AgentUUID)
	assert.Equal(t, 1, q.Len(), "the veteran keeps waiting")
}

func TestTryPairNeedsTwoEntries(t *testing.T) {
	q := newTestQueue(10)

	_, ok := q.TryPair()
	assert.False(t, ok)

	_, err := q.Join("alone", 5)
	require.NoError(t, err)
	_, ok = q.TryPair()
	assert.False(t, ok)
	assert.Equal(t, 1, q.Len())
}

func TestCancelRemovesEntry(t *testing.T) {
	q := newTestQueue(10)
	e, err := q.Join("agent-1", 5)
	require.NoError(t, err)

	got, err := q.Cancel(e.Token)
	require.NoError(t, err)
	assert.Equal(t, "agent-1", got.AgentUUID)
	assert.Equal(t, 0, q.Len())

	_, err = q.Cancel(e.Token)
	assert.ErrorIs(t, err, ErrNotQueued)
}

func TestCancelLosesRaceAgainstPairing(t *testing.T) {
	q := newTestQueue(10)
	e1, err := q.Join("agent-1", 5)
	require.NoError(t, err)
	_, err = q.Join("agent-2", 5)
	require.NoError(t, err)

	_, ok := q.TryPair()
	require.True(t, ok)

	_, err = q.Cancel(e1.Token)
	assert.ErrorIs(t, err, ErrNotQueued, "a consumed ticket cancels nothing")
}

func TestRequeueKeepsPlaceInLine(t *testing.T) {
	q := newTestQueue(10)
	_, err := q.Join("early", 5)
	require.NoError(t, err)
	_, err = q.Join("middle", 5)
	require.NoError(t, err)
	_, err = q.Join("late", 5)
	require.NoError(t, err)

	pair, ok := q.TryPair()
	require.True(t, ok)
	require.Equal(t, "early", pair.A.AgentUUID)

	q.Requeue(pair.A)

	next, ok := q.TryPair()
	require.True(t, ok)
	assert.Equal(t, "early", next.A.AgentUUID, "the rolled-back entry goes before later arrivals")
	assert.Equal(t, "late", next.B.AgentUUID)
}

func TestRestoreOrdersByEnqueueTimeAndSkipsDuplicates(t *testing.T) {
	q := newTestQueue(10)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_, err := q.Join("resident", 5)
	require.NoError(t, err)

	q.Restore([]Entry{
		{Token: "t-new", AgentUUID: "newer", Level: 6, EnqueuedAt: base.Add(2 * time.Hour)},
		{Token: "t-old", AgentUUID: "older", Level: 4, EnqueuedAt: base.Add(-2 * time.Hour)},
		{Token: "t-dup", AgentUUID: "resident", Level: 5, EnqueuedAt: base.Add(-3 * time.Hour)},
	})

	waiting := q.Waiting()
	require.Len(t, waiting, 3)
	assert.Equal(t, "older", waiting[0].AgentUUID)
	assert.Equal(t, "resident", waiting[1].AgentUUID)
	assert.Equal(t, "newer", waiting[2].AgentUUID)
}

func TestConcurrentJoinGrantsOneSlot(t *testing.T) {
	q := NewQueue(10, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := q.Join("contended", 5)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	okCount, dupCount := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			okCount++
		default:
			require.ErrorIs(t, err, ErrAlreadyQueued)
			dupCount++
		}
	}
	assert.Equal(t, 1, okCount)
	assert.Equal(t, 15, dupCount)
	assert.Equal(t, 1, q.Len())
}

func TestConcurrentTryPairNeverSplitsAnEntry(t *testing.T) {
	q := NewQueue(10, nil)
	const agents = 20
	for i := 0; i < agents; i++ {
		_, err := q.Join(fmt.Sprintf("agent-%02d", i), 5)
		require.NoError(t, err)
	}

	pairs := make(chan Pair, agents)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				p, ok := q.TryPair()
				if !ok {
					return
				}
				pairs <- p
			}
		}()
	}
	wg.Wait()
	close(pairs)

	seen := make(map[string]bool)
	for p := range pairs {
		for _, a := range []string{p.A.AgentUUID, p.B.AgentUUID} {
			require.False(t, seen[a], "agent %s was paired twice", a)
			seen[a] = true
		}
	}
	assert.Len(t, seen, agents)
	assert.Equal(t, 0, q.Len())
}

func TestLedgerSingleEngagement(t *testing.T) {
	l := NewLedger()

	require.NoError(t, l.Engage("agent-1", Engagement{Kind: EngagementQueued, Ref: "ticket-1"}))
	err := l.Engage("agent-1", Engagement{Kind: EngagementQueued, Ref: "ticket-2"})
	assert.ErrorIs(t, err, ErrAlreadyEngaged)

	l.Shift("agent-1", Engagement{Kind: EngagementBattle, Ref: "battle-1"})
	e, ok := l.Lookup("agent-1")
	require.True(t, ok)
	assert.Equal(t, EngagementBattle, e.Kind)
	assert.Equal(t, "battle-1", e.Ref)

	err = l.Engage("agent-1", Engagement{Kind: EngagementQueued, Ref: "ticket-3"})
	assert.ErrorIs(t, err, ErrAlreadyEngaged, "fighting agents cannot re-enter the queue")

	l.Release("agent-1")
	_, ok = l.Lookup("agent-1")
	assert.False(t, ok)
	assert.NoError(t, l.Engage("agent-1", Engagement{Kind: EngagementQueued, Ref: "ticket-4"}))
}

func TestLedgerConcurrentEngageGrantsOneWinner(t *testing.T) {
	l := NewLedger()

	var wg sync.WaitGroup
	errs := make(chan error, 12)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- l.Engage("contended", Engagement{Kind: EngagementQueued, Ref: fmt.Sprintf("ticket-%d", i)})
		}(i)
	}
	wg.Wait()
	close(errs)

	winners := 0
	for err := range errs {
		if err == nil {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}
