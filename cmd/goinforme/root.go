package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/brunobiangulo/goinforme"
)

var (
	configPath string
	dataDir    string
	verbose    bool
)

var (
	okMark   = color.New(color.FgGreen, color.Bold).SprintFunc()
	warnMark = color.New(color.FgYellow, color.Bold).SprintFunc()
	errMark  = color.New(color.FgRed, color.Bold).SprintFunc()
	label    = color.New(color.FgCyan).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:           "goinforme",
	Short:         "Extract visit dates, wells and background from inspection reports",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// newEngine is replaced in tests.
var newEngine = func(cfg goinforme.Config) (goinforme.Engine, error) {
	return goinforme.New(cfg)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (JSON or YAML)")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "", "directory holding txts/ and jsons/")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func loadConfig() (goinforme.Config, error) {
	cfg := goinforme.DefaultConfig()
	if configPath != "" {
		loaded, err := goinforme.LoadConfig(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv(os.LookupEnv)
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, nil
}

func openEngine() (goinforme.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newEngine(cfg)
}

// describe turns pipeline errors into one line for the terminal.
func describe(err error) string {
	switch {
	case goinforme.IsInputError(err):
		return fmt.Sprintf("%s %v", warnMark("invalid input:"), err)
	case goinforme.IsExtractionEmpty(err):
		return fmt.Sprintf("%s %v", warnMark("nothing to extract:"), err)
	default:
		return fmt.Sprintf("%s %v", errMark("error:"), err)
	}
}
