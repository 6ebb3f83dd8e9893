package interrupt

// Default sizing, matching the smallest supported targets.
const (
	DefaultTraceDepth = 32
	DefaultFaultQueue = 16
)

// Config describes one CPU core's interrupt topology plus controller options.
// The topology fields come from the chip's register definitions.
type Config struct {
	Core int

	// Lines holds the routable CPU lines. Line 0 is always excluded.
	Lines LineMask

	// Reserved lines can be bound explicitly but are skipped by Allocate.
	Reserved LineMask

	MaxPriority Priority

	// Sources is the number of valid peripheral sources, IDs 0..Sources-1.
	Sources int

	// Acks holds the acknowledge policy of each source, indexed by Source.
	// Missing entries default to AckAfterHandler.
	Acks []AckPolicy

	TraceDepth int // 0 selects DefaultTraceDepth, negative disables tracing
	FaultQueue int // 0 selects DefaultFaultQueue

	Debug  DebugWriter
	Faults FaultSink

	// Fatal is called after a mask discipline violation. It must not
	// return into the violating code; the default panics.
	Fatal func(error)
}

// applyDefaults fills in missing configuration values
func applyDefaults(cfg *Config) {
	if cfg.MaxPriority == PriorityNone || cfg.MaxPriority > MaxPriorityLevels {
		cfg.MaxPriority = MaxPriorityLevels
	}
	if cfg.Lines == 0 {
		cfg.Lines = ^LineMask(0)
	}
	cfg.Lines = cfg.Lines.Without(0)
	if cfg.Sources <= 0 || cfg.Sources > MaxSources {
		cfg.Sources = MaxSources
	}
	if cfg.TraceDepth == 0 {
		cfg.TraceDepth = DefaultTraceDepth
	}
	if cfg.FaultQueue <= 0 {
		cfg.FaultQueue = DefaultFaultQueue
	}
	if cfg.Fatal == nil {
		cfg.Fatal = func(err error) { panic(err) }
	}
}

func (cfg *Config) ackPolicy(src Source) AckPolicy {
	if int(src) < len(cfg.Acks) {
		return cfg.Acks[src]
	}
	return AckAfterHandler
}
