// Package main runs a configuration headless and dumps the encoded rows of
// every ref to CSV.
package main

import (
	"flag"
	"io"
	"log/slog"
	"os"

	"github.com/pthm-cable/sparks/config"
	"github.com/pthm-cable/sparks/game"
	"github.com/pthm-cable/sparks/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	frames := flag.Int("frames", 120, "Number of frames to simulate")
	every := flag.Int("every", 0, "Dump every N frames (0 = last frame only)")
	bakes := flag.Bool("bakes", false, "Also dump baked populations as frame 0")
	seed := flag.Int64("seed", 1, "Seed added to every node seed")
	output := flag.String("output", "rows.csv", "Output CSV path")
	verbose := flag.Bool("v", false, "Log simulation events")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	if *verbose {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	slog.SetDefault(logger)

	if err := run(*configPath, *output, *frames, *every, *bakes, *seed, logger); err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("rowdump failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, output string, frames, every int, bakes bool, seed int64, log *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	// rows are written here, not streamed
	cfg.Stream.Address = ""
	cfg.Telemetry.OutputDir = ""

	g, err := game.NewGame(cfg, game.Options{
		Seed:       seed,
		Headless:   true,
		EncodeRows: true,
		Logger:     log,
	})
	if err != nil {
		return err
	}
	defer g.Unload()

	out, err := telemetry.CreateCSV(output)
	if err != nil {
		return err
	}
	defer out.Close()

	var records []RowRecord
	if bakes {
		for _, name := range g.BakeNames() {
			rows, _ := g.Rows(name)
			records = appendRecords(records, 0, name, rows)
		}
		if err := telemetry.WriteRecords(out, records); err != nil {
			return err
		}
	}

	for frame := 1; frame <= frames; frame++ {
		g.UpdateHeadless()
		if err := g.Err(); err != nil {
			return err
		}
		if !shouldDump(frame, frames, every) {
			continue
		}
		records = records[:0]
		for _, name := range g.RefNames() {
			rows, _ := g.Rows(name)
			records = appendRecords(records, g.Tick(), name, rows)
		}
		if err := telemetry.WriteRecords(out, records); err != nil {
			return err
		}
	}

	log.Info("rows written", "path", output, "frames", frames)
	return out.Close()
}
