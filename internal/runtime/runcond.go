package runtime

import "github.com/ysingh7/lava/pkg/token"

// RunCondition selects how many steps Start advances
// the network and whether the call blocks until they finish.
type RunCondition struct {
	steps      int64
	continuous bool
	blocking   bool
}

// Stepped runs exactly steps cycles. If blocking is true, Start does not
// return until they complete (or the run is paused/stopped early).
func Stepped(steps int64, blocking bool) RunCondition {
	return RunCondition{steps: steps, blocking: blocking}
}

// Continuous runs until explicitly paused or stopped. It is always
// non-blocking: Start returns immediately and the caller drives the run
// with Wait, Pause, or Stop.
func Continuous() RunCondition {
	return RunCondition{continuous: true}
}

func (rc RunCondition) stepWord() token.Word {
	if rc.continuous {
		return token.MaxSteps
	}
	return token.Word(rc.steps)
}
