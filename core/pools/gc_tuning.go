package pools

import "runtime/debug"

// GCConfig holds GC tuning parameters, adapted from the teacher's
// core/pools/gc_tuning.go.
type GCConfig struct {
	// GOGC sets the garbage collection target percentage; the runtime
	// default is 100. Higher values trade memory for fewer GC pauses.
	GOGC int
}

// DefaultGCConfig favors throughput over memory footprint, matching the
// teacher's OptimizeForHighThroughput default.
func DefaultGCConfig() GCConfig {
	return GCConfig{GOGC: 200}
}

// Apply sets the process's GC target percentage.
func (c GCConfig) Apply() {
	if c.GOGC > 0 {
		debug.SetGCPercent(c.GOGC)
	}
}
