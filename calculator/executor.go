package calculator

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

var ErrStopped = errors.New("scenario stopped")

// Sink consumes a finished step on the goroutine that called Run. An error
// aborts the run.
type Sink func(o Outcome) error

// Executor runs the macro steps of a scenario on a worker goroutine. The
// worker owns the tank state; every result handed out carries a copy.
type Executor struct {
	sim *Simulator
	hub *CalcHub

	start  chan Plan
	finish chan stepDone
}

type stepDone struct {
	outcome Outcome
	err     error
	elapsed time.Duration
}

func NewExecutor(sim *Simulator, hub *CalcHub) *Executor {
	if hub == nil {
		hub = NewCalcHub()
	}
	return &Executor{
		sim:    sim,
		hub:    hub,
		start:  make(chan Plan, 1),
		finish: make(chan stepDone, 1),
	}
}

func (e *Executor) Hub() *CalcHub {
	return e.hub
}

// Run steps through plans starting from st. It stops between steps when ctx
// is cancelled or the hub is stopped, and at the first failing step or sink.
// The state after the last completed step is returned either way.
func (e *Executor) Run(ctx context.Context, plans []Plan, st State, sinks ...Sink) (State, error) {
	done := make(chan struct{})
	defer close(done)
	go e.run(st.Clone(), done)

	entry := e.sim.log.WithField("steps", len(plans))
	entry.Info("scenario started")
	var total time.Duration
	for i, p := range plans {
		select {
		case <-ctx.Done():
			entry.WithField("step", i).Warn("scenario cancelled")
			return st, ctx.Err()
		case <-e.hub.Stop:
			entry.WithField("step", i).Warn("scenario stopped")
			return st, ErrStopped
		default:
		}

		d := e.dispatch(p)
		total += d.elapsed
		if d.err != nil {
			entry.WithFields(log.Fields{"step": i, "t": p.Input.T}).WithError(d.err).Error("step failed")
			return st, fmt.Errorf("step %d at t = %v h: %w", i, p.Input.T, d.err)
		}
		st = d.outcome.Result.State
		for _, sink := range sinks {
			if err := sink(d.outcome); err != nil {
				return st, fmt.Errorf("step %d at t = %v h: %w", i, p.Input.T, err)
			}
		}
	}
	entry.WithField("elapsed", total).Info("scenario finished")
	return st, nil
}

func (e *Executor) dispatch(p Plan) stepDone {
	e.start <- p
	return <-e.finish
}

func (e *Executor) run(st State, done <-chan struct{}) {
	for {
		select {
		case p := <-e.start:
			begin := time.Now()
			r, err := e.sim.Step(st, p.Input)
			if err == nil {
				st = r.State
				r.State = st.Clone()
			}
			e.finish <- stepDone{
				outcome: Outcome{Phase: p.Phase, Result: r},
				err:     err,
				elapsed: time.Since(begin),
			}
			if err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// Publish forwards every step to the hub's listener. It fails with
// ErrStopped once the hub is stopped.
func (e *Executor) Publish(o Outcome) error {
	if !e.hub.Push(o) {
		return ErrStopped
	}
	return nil
}
