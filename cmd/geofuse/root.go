// Root command for the geofuse CLI.
package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meridianworks/geofuse/internal/fusion"
	"github.com/meridianworks/geofuse/internal/geopackage"
	"github.com/meridianworks/geofuse/internal/logger"
	"github.com/meridianworks/geofuse/internal/paths"
	"github.com/meridianworks/geofuse/internal/reproject"
	"github.com/meridianworks/geofuse/pkg/geofuse"
)

// Exit codes: 0 success, 1 user error (bad input, bad mapping), 2 system
// error (I/O, container failures).
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Global flag values.
var (
	flagConfigDir string
	flagLogLevel  string
	flagJSON      bool
)

// Shared state initialized by PersistentPreRunE.
var (
	cfg  *viper.Viper
	log  zerolog.Logger
	orch *fusion.Orchestrator
)

var rootCmd = &cobra.Command{
	Use:     "geofuse",
	Short:   "Geofuse merges geospatial feature containers",
	Version: geofuse.Version,
	Long: `Geofuse merges geospatial feature containers: concatenate containers
that share a schema, fuse differently-structured containers through a
field mapping, and generate mapping templates for review.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := paths.ResolveConfigDir(flagConfigDir)
		if err != nil {
			return err
		}
		cfg, err = loadConfig(configDir)
		if err != nil {
			return err
		}

		level := flagLogLevel
		if level == "" {
			level = cfg.GetString(cfgKeyLogLevel)
		}
		log = logger.Build(logger.Config{
			Level:     level,
			Console:   cfg.GetBool(cfgKeyLogConsole),
			Component: "geofuse",
		}, nil)

		orch = fusion.New(geopackage.NewReader(), geopackage.NewWriter(), reproject.New(), log)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: platform config dir)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error (default: config log_level)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(fuseCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(inspectCmd)
}
