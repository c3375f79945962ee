package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for one node over a time window.
// Counters are deltas over the window; Live, Fill and the lifetime
// distribution are sampled at window end.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`
	Node            string  `csv:"node"`

	// Population at window end
	Live     int     `csv:"live"`
	Capacity int     `csv:"capacity"`
	Fill     float64 `csv:"fill"` // live / capacity

	// Events during window
	Spawned       uint64  `csv:"spawned"`
	Overflow      uint64  `csv:"overflow"`
	Evicted       uint64  `csv:"evicted"`
	Removed       uint64  `csv:"removed"`
	Expired       uint64  `csv:"expired"`
	Exploded      uint64  `csv:"exploded"`
	Collided      uint64  `csv:"collided"`
	ParentMissing uint64  `csv:"parent_missing"`
	SpawnRate     float64 `csv:"spawn_rate"` // spawns per simulated second

	// Lifetime distribution of live particles
	LifetimeMean float64 `csv:"lifetime_mean"`
	LifetimeStd  float64 `csv:"lifetime_std"`
	LifetimeP10  float64 `csv:"lifetime_p10"`
	LifetimeP50  float64 `csv:"lifetime_p50"`
	LifetimeP90  float64 `csv:"lifetime_p90"`

	// Trails
	Trails          int    `csv:"trails"`
	DetachedTrails  int    `csv:"detached_trails"`
	TrailsDetached  uint64 `csv:"trails_detached"`
	TrailsDiscarded int    `csv:"trails_discarded"`
}

// Distribution summarizes a sample.
type Distribution struct {
	Mean, Std     float64
	P10, P50, P90 float64
}

// Summarize computes the mean, population standard deviation and
// empirical 10/50/90 quantiles of values. It does not modify values.
func Summarize(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	mean, std := stat.PopMeanStdDev(sorted, nil)
	return Distribution{
		Mean: mean,
		Std:  std,
		P10:  Quantile(sorted, 0.10),
		P50:  Quantile(sorted, 0.50),
		P90:  Quantile(sorted, 0.90),
	}
}

// Quantile returns the empirical p-quantile of a sorted slice.
// p is clamped to [0, 1]. Returns 0 if slice is empty.
func Quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	p = min(max(p, 0), 1)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.String("node", s.Node),
		slog.Int("live", s.Live),
		slog.Float64("fill", s.Fill),
		slog.Uint64("spawned", s.Spawned),
		slog.Uint64("overflow", s.Overflow),
		slog.Uint64("evicted", s.Evicted),
		slog.Uint64("removed", s.Removed),
		slog.Uint64("exploded", s.Exploded),
		slog.Uint64("collided", s.Collided),
		slog.Uint64("parent_missing", s.ParentMissing),
		slog.Float64("spawn_rate", s.SpawnRate),
		slog.Float64("lifetime_mean", s.LifetimeMean),
		slog.Float64("lifetime_p90", s.LifetimeP90),
		slog.Int("trails", s.Trails),
		slog.Int("detached_trails", s.DetachedTrails),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats(log *slog.Logger) {
	log.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"node", s.Node,
		"live", s.Live,
		"capacity", s.Capacity,
		"spawned", s.Spawned,
		"overflow", s.Overflow,
		"evicted", s.Evicted,
		"removed", s.Removed,
		"expired", s.Expired,
		"exploded", s.Exploded,
		"collided", s.Collided,
		"parent_missing", s.ParentMissing,
		"spawn_rate", s.SpawnRate,
		"lifetime_mean", s.LifetimeMean,
		"lifetime_std", s.LifetimeStd,
		"lifetime_p50", s.LifetimeP50,
		"trails", s.Trails,
		"detached_trails", s.DetachedTrails,
		"trails_discarded", s.TrailsDiscarded,
	)
}
