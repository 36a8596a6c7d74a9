package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/FilterCam/internal/api"
	"github.com/bryanchriswhite/FilterCam/internal/capture"
	"github.com/bryanchriswhite/FilterCam/internal/config"
	"github.com/bryanchriswhite/FilterCam/internal/display"
	"github.com/bryanchriswhite/FilterCam/internal/imaging"
	"github.com/bryanchriswhite/FilterCam/internal/logger"
	"github.com/bryanchriswhite/FilterCam/internal/output"
	"github.com/bryanchriswhite/FilterCam/internal/overlay"
	"github.com/bryanchriswhite/FilterCam/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the FilterCam server",
	Long: `Start the FilterCam HTTP server with a capture source attached.

Each capture (POST /api/capture, or every capture.interval when set) runs
through the selected filter and is pushed to the MJPEG stream, the optional
display window and the in-memory gallery.`,
	Example: `  # Start server on default port (8080)
  filtercam serve

  # Start server on custom port
  filtercam serve --port 9090

  # Capture from a directory of images instead of a camera
  FILTERCAM_CAPTURE_BACKEND=file FILTERCAM_CAPTURE_PATH=~/Pictures filtercam serve

  # Start with debug logging
  filtercam serve --log-level debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg := configMgr.Get()
	log := logger.WithComponent("serve")

	log.Info().
		Str("config", configMgr.GetConfigPath()).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")

	imaging.SetWorkers(cfg.Filters.Workers)

	label := overlay.NewLabel()
	applyLabelConfig(label, cfg)

	gallery := output.NewGallery(cfg.Output.GalleryLimit)

	outCfg := output.Config{
		Width:       cfg.Output.Width,
		Height:      cfg.Output.Height,
		FPS:         cfg.Output.FPS,
		JPEGQuality: cfg.Output.JPEGQuality,
	}
	mjpegOut := output.NewMJPEGOutput(outCfg)
	if err := mjpegOut.Start(); err != nil {
		return fmt.Errorf("failed to start MJPEG output: %w", err)
	}
	defer mjpegOut.Stop()

	outputs := []output.Output{mjpegOut}
	if cfg.Output.Display {
		win := display.NewWindow(display.Config{
			Width:  cfg.Output.Width,
			Height: cfg.Output.Height,
			Title:  "FilterCam",
		})
		if err := win.Start(); err != nil {
			log.Warn().Err(err).Msg("Display window unavailable, continuing without it")
		} else {
			defer win.Stop()
			outputs = append(outputs, win)
		}
	}

	opts := []session.Option{
		session.WithOutputs(outputs...),
		session.WithGallery(gallery),
		session.WithLabel(label),
	}

	router, err := newRouter(cfg)
	if err != nil {
		return err
	}
	if err := router.Start(); err != nil {
		log.Warn().Err(err).Msg("No capture source started, only /api/process will work")
	} else {
		defer router.Stop()
		opts = append(opts, session.WithSource(router))
		log.Info().Str("source", router.Name()).Msg("Capture source ready")
	}

	sess := newSession(cfg, opts...)

	configMgr.Watch(func(c *config.Config) {
		applyLabelConfig(label, c)
		if err := router.SetRotation(c.Capture.Rotation); err != nil {
			log.Warn().Err(err).Msg("Rotation not applied")
		}
		logger.Init(c.LogLevel, c.LogPretty)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Capture.Interval > 0 && sess.Source() != nil {
		go sess.Run(ctx, cfg.Capture.Interval)
		log.Info().Dur("interval", cfg.Capture.Interval).Msg("Periodic capture enabled")
	}

	server := api.NewServer(sess, mjpegOut, configMgr)

	log.Info().
		Int("port", cfg.ServerPort).
		Str("viewer", fmt.Sprintf("http://localhost:%d", cfg.ServerPort)).
		Str("api", fmt.Sprintf("http://localhost:%d/api", cfg.ServerPort)).
		Msg("FilterCam is running, press Ctrl+C to stop")

	if err := server.Start(ctx, cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info().Msg("Shutting down gracefully")
	if dir := cfg.Output.ExportDir; dir != "" && gallery.Len() > 0 {
		if _, err := gallery.Export(afero.NewOsFs(), dir); err != nil {
			log.Error().Err(err).Str("dir", dir).Msg("Gallery export failed")
		}
	}
	return nil
}

func newRouter(cfg *config.Config) (*capture.Router, error) {
	return capture.NewRouter(capture.Options{
		Backend:   cfg.Capture.Backend,
		Path:      cfg.Capture.Path,
		Device:    cfg.Capture.Device,
		UsePortal: cfg.Capture.Portal,
		Width:     cfg.Capture.Width,
		Height:    cfg.Capture.Height,
		Rotation:  cfg.Capture.Rotation,
		Region:    cfg.Capture.Region,
		Fs:        afero.NewOsFs(),
	})
}

func applyLabelConfig(label *overlay.Label, cfg *config.Config) {
	label.SetEnabled(cfg.Output.Label)
	if pos, err := overlay.ParsePosition(cfg.Output.LabelPosition); err == nil {
		label.SetPosition(pos)
	}
}

// newSession builds the capture session. Bad filter parameters do not stop
// the server: the session passes captures through unfiltered and the
// failure is logged here once.
func newSession(cfg *config.Config, opts ...session.Option) *session.Session {
	sess := session.New(cfg.Filters.Params(), opts...)
	if err := sess.InitErr(); err != nil {
		logger.WithComponent("serve").Error().Err(err).
			Msg("Filter pipeline failed to initialise, serving unfiltered captures")
	}
	return sess
}
