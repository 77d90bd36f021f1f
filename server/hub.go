package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"freettes/calculator"
	"freettes/model"
	"freettes/store"
)

// Hub serves one websocket client: it keeps the scenario the client set,
// runs it on request and streams every step back.
type Hub struct {
	sim     *calculator.Simulator
	conn    *websocket.Conn
	history *store.History // optional
	files   *store.FileStore
	log     *log.Entry

	scenario calculator.Scenario
	running  atomic.Bool
	runID    atomic.Value

	calc *calculator.CalcHub
	// request
	msg chan model.Msg
	// response
	send chan model.Msg
}

func NewHub(sim *calculator.Simulator) *Hub {
	return &Hub{
		sim:      sim,
		scenario: calculator.ExampleScenario(),
		calc:     calculator.NewCalcHub(),
		msg:      make(chan model.Msg, 10),
		send:     make(chan model.Msg, 10),
		log:      log.WithField("component", "hub"),
	}
}

func (h *Hub) handleResponse(ctx context.Context) {
	for {
		select {
		case reply := <-h.send:
			h.write(reply)
		case o := <-h.calc.Results:
			h.writeStep(o)
		case err := <-h.calc.Done:
			h.drain()
			h.write(doneMsg(err))
		case <-ctx.Done():
			return
		}
	}
}

// drain writes the steps still queued when a run ends.
func (h *Hub) drain() {
	for {
		select {
		case o := <-h.calc.Results:
			h.writeStep(o)
		default:
			return
		}
	}
}

func (h *Hub) handleRequest(ctx context.Context) {
	for {
		select {
		case msg := <-h.msg:
			switch msg.Type {
			case model.MsgEnv:
				h.send <- h.setEnv(msg.Content)
			case model.MsgStart:
				h.send <- h.start(ctx)
			case model.MsgStop:
				h.calc.StopSignal()
				h.send <- model.Msg{Type: model.MsgStopped, Content: "stopped"}
			default:
				h.log.WithField("type", msg.Type).Warn("no such message type")
				h.send <- model.Msg{Type: model.MsgError, Content: fmt.Sprintf("no such type %q", msg.Type)}
			}
		case <-ctx.Done():
			h.calc.StopSignal()
			return
		}
	}
}

func (h *Hub) setEnv(content string) model.Msg {
	if h.running.Load() {
		return model.Msg{Type: model.MsgError, Content: "scenario is running"}
	}
	var env model.Env
	if err := json.Unmarshal([]byte(content), &env); err != nil {
		return model.Msg{Type: model.MsgError, Content: fmt.Sprintf("invalid env: %v", err)}
	}
	sc, err := calculator.ScenarioFromEnv(env)
	if err != nil {
		return model.Msg{Type: model.MsgError, Content: err.Error()}
	}
	h.scenario = sc
	h.log.WithFields(log.Fields{"phases": len(sc.Phases), "step": sc.Step}).Info("env set")
	return model.Msg{Type: model.MsgEnvSet, Content: "env is set"}
}

func (h *Hub) start(ctx context.Context) model.Msg {
	if !h.running.CompareAndSwap(false, true) {
		return model.Msg{Type: model.MsgError, Content: "scenario is running"}
	}
	h.calc.StartSignal()

	runID := uuid.NewString()
	if h.history != nil {
		id, err := h.history.StartRun(h.sim.Config(), h.scenario)
		if err != nil {
			h.running.Store(false)
			return model.Msg{Type: model.MsgError, Content: err.Error()}
		}
		runID = id
	}
	h.runID.Store(runID)
	sim := h.sim.WithRun(runID)
	var rec *store.Recorder
	if h.history != nil || h.files != nil {
		rec = store.NewRecorder(sim.Config(), runID, h.files, h.history, 8)
	}

	exec := calculator.NewExecutor(sim, h.calc)
	sinks := []calculator.Sink{exec.Publish}
	if rec != nil {
		sinks = append([]calculator.Sink{rec.Record}, sinks...)
	}
	plans := h.scenario.Plans()
	go func() {
		defer h.running.Store(false)
		st, err := exec.Run(ctx, plans, calculator.State{}, sinks...)
		if rec != nil {
			if cerr := rec.Close(st, status(err)); cerr != nil {
				h.log.WithError(cerr).Error("failed to close run")
			}
		}
		h.calc.Finish(err)
	}()

	content, _ := json.Marshal(map[string]any{"run_id": runID, "steps": len(plans)})
	return model.Msg{Type: model.MsgStarted, Content: string(content)}
}

func (h *Hub) writeStep(o calculator.Outcome) {
	id, _ := h.runID.Load().(string)
	data, err := json.Marshal(o.Report(h.sim.Config(), id, true))
	if err != nil {
		h.log.WithError(err).Error("failed to encode step")
		return
	}
	h.write(model.Msg{Type: model.MsgStep, Content: string(data)})
}

func (h *Hub) write(reply model.Msg) {
	if err := h.conn.WriteJSON(&reply); err != nil {
		h.log.WithError(err).WithField("type", reply.Type).Warn("failed to write message")
	}
}

func doneMsg(err error) model.Msg {
	switch {
	case err == nil:
		return model.Msg{Type: model.MsgDone, Content: "done"}
	case errors.Is(err, calculator.ErrStopped), errors.Is(err, context.Canceled):
		return model.Msg{Type: model.MsgDone, Content: "stopped"}
	}
	return model.Msg{Type: model.MsgError, Content: err.Error()}
}

func status(err error) string {
	switch {
	case err == nil:
		return "done"
	case errors.Is(err, calculator.ErrStopped), errors.Is(err, context.Canceled):
		return "stopped"
	}
	return "failed"
}
