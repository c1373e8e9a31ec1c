package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seniority_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// CacheResults counts cache-aside lookups by key family and outcome.
	CacheResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seniority_cache_results_total",
		Help: "Cache-aside lookups by key family and outcome (hit, miss)",
	}, []string{"family", "result"})

	// GameMoves counts move submissions by game and outcome.
	GameMoves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seniority_game_moves_total",
		Help: "Move submissions by game and result (accepted or rejection reason)",
	}, []string{"game", "result"})

	// GameSessionsFinished counts finished sessions by game and how they ended.
	GameSessionsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seniority_game_sessions_finished_total",
		Help: "Finished game sessions by game and outcome (win, draw, forfeit, expired)",
	}, []string{"game", "outcome"})

	// StaleMoveConflicts counts conditional writes that lost against a concurrent update.
	StaleMoveConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seniority_game_stale_conflicts_total",
		Help: "Moves rejected because the session changed between read and write",
	})

	// FeedRankDuration records how long ranking a feed working set takes.
	FeedRankDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "seniority_feed_rank_duration_seconds",
		Help:    "Feed assembly latency in seconds by tab",
		Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"tab"})

	// SweeperRuns counts idle session sweeps by result.
	SweeperRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seniority_sweeper_runs_total",
		Help: "Idle game session sweeps by result",
	}, []string{"result"})

	// WebSocketConnectionsTotal is the gauge of active WebSocket connections per hub.
	WebSocketConnectionsTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "seniority_websocket_connections",
		Help: "Number of active WebSocket connections by hub",
	}, []string{"hub"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seniority_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)
