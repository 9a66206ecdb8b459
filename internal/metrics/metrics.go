// Package metrics exposes the arena's operational counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Battle outcome labels for the finished-battles counter.
const (
	OutcomeWin     = "win"
	OutcomeDraw    = "draw"
	OutcomeAborted = "aborted"
)

// Collector owns every arena metric. Construct it once per process; tests
// pass their own registry so parallel constructions never collide.
type Collector struct {
	reg prometheus.Registerer

	agentsRegistered prometheus.Counter
	queueJoins       prometheus.Counter
	queueCancels     prometheus.Counter
	pairings         prometheus.Counter
	movesSubmitted   prometheus.Counter
	movesSubstituted prometheus.Counter
	turnsResolved    prometheus.Counter
	battlesFinished  *prometheus.CounterVec

	queueDepth  prometheus.Gauge
	liveBattles prometheus.Gauge
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		reg: reg,
		agentsRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_agents_registered_total",
			Help: "Total number of agents registered",
		}),
		queueJoins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_queue_joins_total",
			Help: "Total number of matchmaking queue joins",
		}),
		queueCancels: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_queue_cancels_total",
			Help: "Total number of matchmaking queue cancellations",
		}),
		pairings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_pairings_total",
			Help: "Total number of battles created by pairing",
		}),
		movesSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_moves_submitted_total",
			Help: "Total number of moves accepted from agents",
		}),
		movesSubstituted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_moves_substituted_total",
			Help: "Total number of default moves substituted on timeout",
		}),
		turnsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_turns_resolved_total",
			Help: "Total number of battle turns resolved",
		}),
		battlesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_battles_finished_total",
			Help: "Total number of battles reaching a terminal state",
		}, []string{"outcome"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arena_queue_depth",
			Help: "Current number of agents waiting in the queue",
		}),
		liveBattles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arena_live_battles",
			Help: "Current number of active battles",
		}),
	}

	reg.MustRegister(
		c.agentsRegistered,
		c.queueJoins,
		c.queueCancels,
		c.pairings,
		c.movesSubmitted,
		c.movesSubstituted,
		c.turnsResolved,
		c.battlesFinished,
		c.queueDepth,
		c.liveBattles,
	)
	return c
}

func (c *Collector) RecordRegistration() { c.agentsRegistered.Inc() }

func (c *Collector) RecordQueueJoin() { c.queueJoins.Inc() }

func (c *Collector) RecordQueueCancel() { c.queueCancels.Inc() }

func (c *Collector) RecordPairing() { c.pairings.Inc() }

// RecordMove counts an accepted move; substituted marks a timeout default.
func (c *Collector) RecordMove(substituted bool) {
	c.movesSubmitted.Inc()
	if substituted {
		c.movesSubstituted.Inc()
	}
}

func (c *Collector) RecordTurn() { c.turnsResolved.Inc() }

func (c *Collector) RecordBattleFinished(outcome string) {
	c.battlesFinished.WithLabelValues(outcome).Inc()
}

func (c *Collector) SetQueueDepth(n int) { c.queueDepth.Set(float64(n)) }

func (c *Collector) SetLiveBattles(n int) { c.liveBattles.Set(float64(n)) }

// RegisterCacheStats exposes a cache's cumulative hit/miss counters under
// the given cache label. stats must be safe for concurrent use; it is
// called at scrape time.
func (c *Collector) RegisterCacheStats(name string, stats func() (hits, misses uint64)) {
	labels := prometheus.Labels{"cache": name}
	c.reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name:        "arena_cache_hits_total",
		Help:        "Total cache lookups served from memory",
		ConstLabels: labels,
	}, func() float64 {
		h, _ := stats()
		return float64(h)
	}))
	c.reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name:        "arena_cache_misses_total",
		Help:        "Total cache lookups that fell through",
		ConstLabels: labels,
	}, func() float64 {
		_, m := stats()
		return float64(m)
	}))
}

// Handler serves the default Prometheus registry over HTTP.
func Handler() http.Handler {
	return promhttp.Handler()
}
