// Package main is the iftaa CLI entry point.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/iftaa/internal/config"
	"github.com/hyperjump/iftaa/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/iftaa/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	debug      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "iftaa",
		Short: "Bilingual Arabic/English fatwa search",
		Long: `iftaa indexes fatwas and answers Arabic or English queries with a
layered retrieval pipeline: exact phrase, all-terms, semantic and
keyword fallback, merged in priority order and ranked by relevance.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.SetVersionTemplate("iftaa version {{.Version}}\n")
	cmd.PersistentFlags().StringVar(&g.configPath, "config", defaultConfigPath, "config file path")
	cmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		newServerCmd(g),
		newSearchCmd(g),
		newImportCmd(g),
		newDeleteCmd(g),
		newReindexCmd(g),
		newStatusCmd(g),
		newDetectCmd(),
		newNormalizeCmd(),
		newExpandCmd(g),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "iftaa version %s\n", version)
		},
	}
}

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory wins if present. Returns the config and the path
// that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// setup loads config and builds the logger for a command.
func (g *globalOptions) setup() (*config.Config, string, *zap.Logger, error) {
	cfg, resolved, err := loadConfig(g.configPath)
	if err != nil {
		return nil, "", nil, fmt.Errorf("load config: %w", err)
	}
	debug := cfg.Debug || g.debug
	cfg.Debug = debug
	logger, err := utils.NewLogger(debug)
	if err != nil {
		return nil, "", nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, resolved, logger, nil
}
