package calculator

import "sync"

// Outcome is a finished macro step with the phase it belongs to.
type Outcome struct {
	Phase  string
	Result StepResult
}

// CalcHub connects a running scenario with its listeners.
type CalcHub struct {
	// closed to stop the scenario after the current macro step
	Stop chan struct{}
	// every finished step, when somebody listens
	Results chan Outcome
	// receives the scenario error, nil on success
	Done chan error

	stopOnce *sync.Once
}

func NewCalcHub() *CalcHub {
	return &CalcHub{
		Stop:     make(chan struct{}),
		Results:  make(chan Outcome, 16),
		Done:     make(chan error, 1),
		stopOnce: &sync.Once{},
	}
}

// StartSignal rearms the hub. Call it before the scenario goroutine starts.
func (ch *CalcHub) StartSignal() {
	ch.Stop = make(chan struct{})
	ch.stopOnce = &sync.Once{}
}

// StopSignal may be called more than once.
func (ch *CalcHub) StopSignal() {
	ch.stopOnce.Do(func() { close(ch.Stop) })
}

func (ch *CalcHub) Stopped() bool {
	select {
	case <-ch.Stop:
		return true
	default:
		return false
	}
}

// Push hands a step to the listener. It gives up when the hub is stopped.
func (ch *CalcHub) Push(o Outcome) bool {
	select {
	case ch.Results <- o:
		return true
	case <-ch.Stop:
		return false
	}
}

// Finish reports the end of a scenario without blocking.
func (ch *CalcHub) Finish(err error) {
	select {
	case ch.Done <- err:
	default:
	}
}
