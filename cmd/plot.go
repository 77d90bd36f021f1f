package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"freettes/model"
	"freettes/store"
)

var (
	plotRun string
	plotOut string
)

func init() {
	RootCmd.AddCommand(plotCmd)

	plotCmd.Flags().StringVar(&plotRun, "run", "", "run id whose energy history is plotted")
	plotCmd.Flags().StringVar(&plotOut, "out", "plots", "output directory")
}

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Plot the saved profile and a run history",
	Long: "Plot the temperature profile of the saved restart state and, " +
		"with --run, the energy content of that run over time.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(plotOut, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", plotOut, err)
		}
		files, err := store.NewFileStore(App.StoreDir, Config.ShellHeight)
		if err != nil {
			return err
		}
		st, err := files.Load()
		if err != nil {
			return err
		}
		heights, temps, err := store.Resample(st.Storage, Config.ShellHeight, store.ProfileStep)
		if err != nil {
			return err
		}
		profile := filepath.Join(plotOut, "profile.png")
		if err := store.PlotProfile(profile, model.Snapshot{Heights: heights, Temps: temps}); err != nil {
			return err
		}
		log.WithField("file", profile).Info("profile plotted")

		if plotRun == "" {
			return nil
		}
		h, err := store.OpenHistory(App.HistoryPath)
		if err != nil {
			return err
		}
		defer h.Close()
		steps, err := h.Steps(plotRun)
		if err != nil {
			return err
		}
		out := filepath.Join(plotOut, "run_"+plotRun+".png")
		if err := store.PlotHistory(out, steps); err != nil {
			return err
		}
		log.WithFields(log.Fields{"file": out, "steps": len(steps)}).Info("history plotted")
		return nil
	},
}
