package broker

import (
	"github.com/cyw0ng95/sojourn/pkg/aqm"
	"github.com/cyw0ng95/sojourn/pkg/queue"
)

// Discipline names the AQM strategy a queue runs, matching the flat,
// JSON-tagged configuration style used throughout this codebase.
type Discipline string

const (
	DisciplineNaive        Discipline = "naive"
	DisciplineTimeout      Discipline = "timeout"
	DisciplineCoDel        Discipline = "codel"
	DisciplineCoDelTimeout Discipline = "codel_timeout"
)

// QueueSpec configures one side's (ask or ask_r) managed queue.
type QueueSpec struct {
	Discipline Discipline `json:"discipline"`
	OutMode    string     `json:"out_mode"`  // "fifo" or "lifo"
	DropMode   string     `json:"drop_mode"` // "drop_newest" or "drop_oldest"
	Capacity   int        `json:"capacity"`

	// TimeoutMs is T, used by "timeout" and "codel_timeout".
	TimeoutMs int64 `json:"timeout_ms,omitempty"`
	// TargetMs and IntervalMs configure "codel" and "codel_timeout".
	TargetMs   int64 `json:"target_ms,omitempty"`
	IntervalMs int64 `json:"interval_ms,omitempty"`
}

// Config is the broker's top-level, flat configuration struct.
type Config struct {
	Ask  QueueSpec `json:"ask"`
	AskR QueueSpec `json:"ask_r"`

	// TickIntervalMs is how often the broker's periodic timer fires
	// on_timeout for both sides.
	TickIntervalMs int64 `json:"tick_interval_ms"`
	// ShutdownTimeoutMs is not read by the broker itself: Shutdown's wait
	// is bounded by the ctx passed to it. cmd/sojournd uses this value as
	// the deadline for its HTTP server and broker shutdown.
	ShutdownTimeoutMs int64 `json:"shutdown_timeout_ms"`
	// AsyncResultsBuffer sizes the Results() channel.
	AsyncResultsBuffer int `json:"async_results_buffer"`
}

// DefaultConfig returns a Config with naive AQM on both sides, FIFO
// ordering and a generous capacity, suitable as a starting point for
// embedders that only care about one side's tuning.
func DefaultConfig() Config {
	spec := QueueSpec{
		Discipline: DisciplineNaive,
		OutMode:    "fifo",
		DropMode:   "drop_oldest",
		Capacity:   1024,
	}
	return Config{
		Ask:                spec,
		AskR:               spec,
		TickIntervalMs:     50,
		ShutdownTimeoutMs:  5000,
		AsyncResultsBuffer: 256,
	}
}

// Validate checks every rule this system's one error class actually
// enforces: all of it is invalid-configuration-at-startup.
func (c Config) Validate() *StandardizedError {
	if c.TickIntervalMs <= 0 {
		return configError(ErrCodeConfigInvalidTimeout, "invalid broker configuration",
			"tick_interval_ms must be positive, got %d", c.TickIntervalMs)
	}
	if err := c.Ask.validate("ask"); err != nil {
		return err
	}
	if err := c.AskR.validate("ask_r"); err != nil {
		return err
	}
	return nil
}

func (s QueueSpec) validate(side string) *StandardizedError {
	if s.Capacity <= 0 {
		return configError(ErrCodeConfigInvalidCapacity, "invalid queue capacity",
			"%s.capacity must be positive, got %d", side, s.Capacity)
	}
	switch s.OutMode {
	case "fifo", "lifo":
	default:
		return configError(ErrCodeConfigInvalidDiscipline, "invalid out_mode",
			"%s.out_mode must be \"fifo\" or \"lifo\", got %q", side, s.OutMode)
	}
	switch s.DropMode {
	case "drop_newest", "drop_oldest":
	default:
		return configError(ErrCodeConfigInvalidDiscipline, "invalid drop_mode",
			"%s.drop_mode must be \"drop_newest\" or \"drop_oldest\", got %q", side, s.DropMode)
	}

	switch s.Discipline {
	case DisciplineNaive:
	case DisciplineTimeout:
		if s.TimeoutMs < 1 {
			return configError(ErrCodeConfigInvalidTimeout, "invalid timeout configuration",
				"%s.timeout_ms must be >= 1 for discipline %q, got %d", side, s.Discipline, s.TimeoutMs)
		}
	case DisciplineCoDel:
		if s.TargetMs < 1 || s.IntervalMs < 1 {
			return configError(ErrCodeConfigInvalidCoDel, "invalid codel configuration",
				"%s.target_ms and %s.interval_ms must both be >= 1, got target=%d interval=%d",
				side, side, s.TargetMs, s.IntervalMs)
		}
	case DisciplineCoDelTimeout:
		if s.TargetMs < 1 || s.IntervalMs < 1 {
			return configError(ErrCodeConfigInvalidCoDel, "invalid codel_timeout configuration",
				"%s.target_ms and %s.interval_ms must both be >= 1, got target=%d interval=%d",
				side, side, s.TargetMs, s.IntervalMs)
		}
		if s.TimeoutMs <= s.TargetMs {
			return configError(ErrCodeConfigInvalidTimeout, "invalid codel_timeout configuration",
				"%s.timeout_ms (%d) must be strictly greater than %s.target_ms (%d)",
				side, s.TimeoutMs, side, s.TargetMs)
		}
	default:
		return configError(ErrCodeConfigInvalidDiscipline, "invalid AQM discipline",
			"%s.discipline %q is not one of naive, timeout, codel, codel_timeout", side, s.Discipline)
	}
	return nil
}

func (s QueueSpec) buildAlgorithm() aqm.Algorithm {
	switch s.Discipline {
	case DisciplineTimeout:
		return aqm.NewTimeout(s.TimeoutMs)
	case DisciplineCoDel:
		return aqm.NewCoDel(s.TargetMs, s.IntervalMs)
	case DisciplineCoDelTimeout:
		return aqm.NewCoDelTimeout(s.TargetMs, s.IntervalMs, s.TimeoutMs)
	default:
		return aqm.NewNaive()
	}
}

func (s QueueSpec) outModeValue() queue.OutMode {
	if s.OutMode == "lifo" {
		return queue.LIFO
	}
	return queue.FIFO
}

func (s QueueSpec) dropModeValue() queue.DropMode {
	if s.DropMode == "drop_newest" {
		return queue.DropNewest
	}
	return queue.DropOldest
}
