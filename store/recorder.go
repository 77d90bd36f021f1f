package store

import (
	"math"

	log "github.com/sirupsen/logrus"

	"freettes/calculator"
	"freettes/deque"
	"freettes/model"
)

// Recorder collects the outputs of one run: a window of recent profiles in
// memory, profile files every Every hours and a history row per step.
type Recorder struct {
	Files    *FileStore
	History  *History // optional
	Profiles deque.Deque
	Every    float64 // h, 0 disables the profile files

	cfg   *calculator.Config
	runID string
}

func NewRecorder(cfg *calculator.Config, runID string, files *FileStore, history *History, window int) *Recorder {
	return &Recorder{
		Files:    files,
		History:  history,
		Profiles: deque.NewArrDeque(window),
		cfg:      cfg,
		runID:    runID,
	}
}

// Record is a calculator.Sink.
func (r *Recorder) Record(o calculator.Outcome) error {
	res := o.Result
	g := res.State.Storage
	heights, temps, err := Resample(g, r.cfg.ShellHeight, ProfileStep)
	if err != nil {
		return err
	}
	r.Profiles.Push(model.Snapshot{T: res.T, Heights: heights, Temps: temps})

	if r.Files != nil && r.Every > 0 && isMultiple(res.T, r.Every) {
		if err := r.Files.WriteProfile(res.T, g); err != nil {
			return err
		}
		if err := r.Files.WriteSnapshot(res.T, g); err != nil {
			return err
		}
	}
	if r.History != nil {
		if err := r.History.RecordStep(o.Report(r.cfg, r.runID, false)); err != nil {
			return err
		}
	}
	return nil
}

// Close saves the final state for a restart and marks the run with status.
func (r *Recorder) Close(st calculator.State, status string) error {
	entry := log.WithFields(log.Fields{"run": r.runID, "status": status})
	if r.Files != nil && len(st.Storage) > 0 {
		if err := r.Files.Save(st); err != nil {
			return err
		}
	}
	if r.History != nil {
		if err := r.History.FinishRun(r.runID, status); err != nil {
			return err
		}
	}
	entry.Info("run recorded")
	return nil
}

func isMultiple(t, every float64) bool {
	q := t / every
	return math.Abs(q-math.Round(q)) < 1e-9
}
