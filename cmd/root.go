// Package cmd is the command line of the tank simulator.
package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"freettes/calculator"
)

// Version is set at build time.
var Version = "0.1.0"

var (
	configFile string

	// Config holds the tank parameters of this invocation.
	Config *calculator.Config
	// App holds the settings of the outer surfaces.
	App *AppConfig
)

// RootCmd is the main command.
var RootCmd = &cobra.Command{
	Use:   "freettes",
	Short: "A stratified hot water storage tank simulator.",
	Long: `Simulates the temperature stratification of a large atmospheric
hot water storage tank driven by charge and discharge flows.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return Startup(configFile)
	},
}

// Startup reads the configuration file and sets up logging.
func Startup(path string) error {
	var err error
	if App, err = ReadAppConfig(path); err != nil {
		return err
	}
	if err := App.setupLogging(); err != nil {
		return err
	}
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		log.WithField("path", path).Warn("config file not found, using defaults")
		Config = calculator.DefaultConfig()
		return nil
	}
	Config, err = calculator.LoadConfig(path)
	return err
}

func init() {
	RootCmd.AddCommand(versionCmd)

	RootCmd.PersistentFlags().StringVar(&configFile, "config", "./conf/config.ini", "configuration file location")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "freettes v%s\n", Version)
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}
