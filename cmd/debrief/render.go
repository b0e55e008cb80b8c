package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/tarkov-debrief/debrief/internal/asset"
	"github.com/tarkov-debrief/debrief/internal/script"
	"github.com/tarkov-debrief/debrief/internal/session"
	"github.com/tarkov-debrief/debrief/internal/typeid"
)

var (
	renderOutput     string
	renderAssetDir   string
	renderWidth      int
	renderHeight     int
	renderMultiplier int
)

var renderCmd = &cobra.Command{
	Use:   "render [script.json]",
	Short: "Replay an annotation script and write the exported PNG",
	Long: `Replay a JSON list of input steps (map, tool, down/move/up, marker, undo,
save, ...) against a fresh session. Reads the script from stdin when no file
is given or the file is "-".`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "output file (default: the export filename)")
	renderCmd.Flags().StringVar(&renderAssetDir, "assets", "", "asset directory (default: ASSET_DIR)")
	renderCmd.Flags().IntVar(&renderWidth, "width", 0, "viewport width (default: VIEWPORT_WIDTH)")
	renderCmd.Flags().IntVar(&renderHeight, "height", 0, "viewport height (default: VIEWPORT_HEIGHT)")
	renderCmd.Flags().IntVar(&renderMultiplier, "multiplier", 0, "export multiplier (default: EXPORT_MULTIPLIER)")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	var in io.Reader = os.Stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open script: %w", err)
		}
		defer f.Close()
		in = f
	}

	steps, err := script.Parse(in)
	if err != nil {
		return err
	}

	if renderAssetDir != "" {
		cfg.AssetDir = renderAssetDir
	}
	scfg := session.ConfigFrom(cfg)
	if renderWidth > 0 {
		scfg.Width = renderWidth
	}
	if renderHeight > 0 {
		scfg.Height = renderHeight
	}
	if renderMultiplier > 0 {
		scfg.ExportMultiplier = renderMultiplier
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	s, err := session.New(typeid.NewSessionID(), scfg, asset.NewLoader(cfg.AssetDir, nil), nil, slog.Default())
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	defer s.Close()

	e, err := script.Run(ctx, s, steps)
	if err != nil {
		return err
	}

	out := renderOutput
	if out == "" {
		out = e.Filename
	}
	if err := os.WriteFile(out, e.PNG, 0644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	st := s.State()
	fmt.Printf("Wrote %s (%dx%d, %d objects, %d steps)\n", out, e.Width, e.Height, st.Objects, len(steps))
	return nil
}
