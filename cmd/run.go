package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"freettes/calculator"
	"freettes/store"
)

var (
	// scenarioFile holds the [scenario] section; the config file by default.
	scenarioFile string

	// restart continues from the state saved by the previous run.
	restart bool

	// example ignores the configured scenario and runs the year long example.
	example bool
)

func init() {
	RootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&scenarioFile, "scenario", "", "scenario file, defaults to the config file")
	runCmd.Flags().BoolVar(&restart, "restart", false,
		"Continue from the state saved in the store directory. The scenario start must be after 0 h.")
	runCmd.Flags().BoolVar(&example, "example", false, "Run the built-in example year.")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario",
	Long: "Run the phases of the configured scenario and write profiles, " +
		"the restart state and the run history to the store directory.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		sc, err := loadScenario()
		if err != nil {
			return err
		}
		return Run(ctx, sc, restart)
	},
}

func loadScenario() (calculator.Scenario, error) {
	if example {
		return calculator.ExampleScenario(), nil
	}
	path := scenarioFile
	if path == "" {
		path = configFile
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.WithField("path", path).Warn("scenario file not found, running the example")
		return calculator.ExampleScenario(), nil
	}
	return calculator.LoadScenario(path)
}

// Run executes sc with the global configuration.
func Run(ctx context.Context, sc calculator.Scenario, restart bool) error {
	files, err := store.NewFileStore(App.StoreDir, Config.ShellHeight)
	if err != nil {
		return err
	}
	var st calculator.State
	if restart {
		if sc.Start == 0 {
			return fmt.Errorf("restart needs a scenario start after 0 h")
		}
		if st, err = files.Load(); err != nil {
			return fmt.Errorf("failed to load restart state: %w", err)
		}
	}

	var history *store.History
	runID := uuid.NewString()
	if App.HistoryPath != "" {
		if history, err = store.OpenHistory(App.HistoryPath); err != nil {
			return err
		}
		defer history.Close()
		if runID, err = history.StartRun(Config, sc); err != nil {
			return err
		}
	}

	rec := store.NewRecorder(Config, runID, files, history, App.Window)
	rec.Every = App.ProfileEvery
	sim := calculator.NewSimulator(Config).WithRun(runID)
	exec := calculator.NewExecutor(sim, nil)

	final, err := exec.Run(ctx, sc.Plans(), st, rec.Record, logProgress(len(sc.Phases)))
	status := "done"
	switch {
	case errors.Is(err, context.Canceled):
		status = "stopped"
	case err != nil:
		status = "failed"
	}
	if cerr := rec.Close(final, status); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// logProgress logs each change of phase.
func logProgress(phases int) calculator.Sink {
	current, n := "", 0
	return func(o calculator.Outcome) error {
		if o.Phase == current && n > 0 {
			return nil
		}
		current = o.Phase
		n++
		log.WithFields(log.Fields{
			"phase":  current,
			"index":  n,
			"phases": phases,
			"t":      o.Result.T,
			"usable": o.Result.UsableEnergy,
		}).Info("phase started")
		return nil
	}
}
