package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/FilterCam/internal/config"
	"github.com/bryanchriswhite/FilterCam/internal/logger"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "filtercam",
		Short: "FilterCam - still capture through a cycling image filter",
		Long: `FilterCam captures still images from a camera, the X11 screen or image
files and pushes each one through the currently selected filter.

Filters cycle in a fixed order:
  NONE → DIFFERENCE → RESOLUTION_BOOST → ENHANCE → BLUR → OUTLINES → LAPLACIAN → UNSHARP

Features:
  • Camera capture via V4L2 or the desktop camera portal (PipeWire)
  • X11 screen and region capture
  • In-memory gallery of processed captures
  • MJPEG stream with the active filter name drawn on top
  • REST and WebSocket API for filter control`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/filtercam/config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "server port (default is 8080)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-pretty", true, "human-readable console logs")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// loadConfig opens the config manager, lets the global flags override it
// and initialises logging from the result.
func loadConfig(cmd *cobra.Command) (*config.Manager, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	for key, name := range map[string]string{
		"server_port": "port",
		"log_level":   "log-level",
		"log_pretty":  "log-pretty",
	} {
		if err := configMgr.BindFlag(key, flags.Lookup(name)); err != nil {
			return nil, err
		}
	}

	cfg := configMgr.Get()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Init(cfg.LogLevel, cfg.LogPretty)
	return configMgr, nil
}
