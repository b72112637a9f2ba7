package task

import "time"

// CascadeConfig holds the run-level knobs every task document carries.
type CascadeConfig struct {
	DefaultTZ     *time.Location
	Log           bool
	SolverTimeout int // seconds; 0 means "use the pipeline default" (120s)
}
