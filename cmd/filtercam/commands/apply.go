package commands

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/FilterCam/internal/capture"
	"github.com/bryanchriswhite/FilterCam/internal/filter"
	"github.com/bryanchriswhite/FilterCam/internal/imaging"
	"github.com/bryanchriswhite/FilterCam/internal/logger"
	"github.com/bryanchriswhite/FilterCam/internal/output"
)

var applyCmd = &cobra.Command{
	Use:   "apply INPUT [OUTPUT]",
	Short: "Apply a filter to an image file",
	Long: `Decode INPUT, run it through a filter and write the result as PNG.

With --all every filter in the cycle is applied and the results are written
to OUTPUT as a directory, one file per filter.`,
	Example: `  # Outline a photo
  filtercam apply photo.jpg outlines.png --filter outlines

  # Rotate a sideways capture before filtering
  filtercam apply photo.jpg out.png --filter enhance --rotation 90

  # Write every filter's output into ./out
  filtercam apply photo.jpg out --all`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runApply,
}

var (
	applyFilter   string
	applyAll      bool
	applyRotation int
	applyFs       afero.Fs = afero.NewOsFs()
)

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().StringVarP(&applyFilter, "filter", "F", "none", "filter name")
	applyCmd.Flags().BoolVarP(&applyAll, "all", "a", false, "apply every filter")
	applyCmd.Flags().IntVarP(&applyRotation, "rotation", "r", 0, "rotate clockwise by degrees before filtering")
}

func runApply(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg := configMgr.Get()
	imaging.SetWorkers(cfg.Filters.Workers)

	input := args[0]
	dest := ""
	if len(args) > 1 {
		dest = args[1]
	}

	frame, err := readFrame(input, applyRotation)
	if err != nil {
		return err
	}

	pipeline, err := filter.New(cfg.Filters.Params())
	if err != nil {
		return err
	}

	ids := filter.All()
	if !applyAll {
		id, err := filter.Parse(applyFilter)
		if err != nil {
			return err
		}
		ids = []filter.ID{id}
	}

	if applyAll {
		if dest == "" {
			dest = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + "-filters"
		}
		if err := applyFs.MkdirAll(dest, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	} else if dest == "" {
		dest = defaultOutputName(input, ids[0])
	}

	for _, id := range ids {
		start := time.Now()
		out, err := pipeline.Apply(id, frame.Buffer)
		if err != nil {
			return err
		}
		took := time.Since(start)

		path := dest
		if applyAll {
			path = filepath.Join(dest, fmt.Sprintf("%d-%s.png", int(id), strings.ToLower(id.String())))
		}
		if err := writePNG(path, out); err != nil {
			return err
		}
		logger.WithComponent("apply").Info().
			Str("filter", id.String()).
			Str("path", path).
			Dur("took", took).
			Msg("Wrote filtered image")
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}

func readFrame(path string, rotation int) (*capture.Frame, error) {
	f, err := applyFs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, format, err := capture.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return capture.NewFrame(buf, format, rotation)
}

func writePNG(path string, buf *imaging.Buffer) error {
	var b bytes.Buffer
	if err := output.EncodePNG(&b, buf); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return afero.WriteFile(applyFs, path, b.Bytes(), 0o644)
}

func defaultOutputName(input string, id filter.ID) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return fmt.Sprintf("%s-%s.png", base, strings.ToLower(id.String()))
}
