// Package main is the entry point for the model edge exporter.
//
// Usage:
//
//	edgeexport [flags] <input> [output-dir]
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/modeledge/internal/config"
	"github.com/Faultbox/modeledge/internal/logger"
	"github.com/Faultbox/modeledge/internal/pipeline"
	"github.com/Faultbox/modeledge/pkg/container"
	"github.com/Faultbox/modeledge/pkg/encoding"
	"github.com/Faultbox/modeledge/pkg/modeldb"
	"github.com/Faultbox/modeledge/pkg/scene"
)

const version = "1.0.0"

// errNoEntities is returned when an input yields nothing to write.
var errNoEntities = errors.New("no wireframe data found")

func main() {
	os.Exit(run())
}

func run() int {
	config.ParseFlags()

	if config.ShowVersion() {
		fmt.Printf("edgeexport v%s\n", version)
		return 0
	}

	args := config.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: edgeexport [flags] <input> [output-dir]")
		config.Usage()
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		return 1
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	logger.Sugar.Debugf("Config: %+v", cfg)

	input, err := filepath.Abs(args[0])
	if err != nil {
		logger.Error("invalid input path", zap.Error(err))
		return 1
	}
	if _, err := os.Stat(input); err != nil {
		logger.Error("input file does not exist", zap.String("path", input))
		return 1
	}

	outDir := cfg.Output.Dir
	if len(args) > 1 {
		outDir = args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	outFile, err := export(ctx, cfg, input, outDir)
	if err != nil {
		logger.Error("export failed", zap.String("input", input), zap.Error(err))
		return 1
	}

	logger.Info("export complete",
		zap.String("output", outFile),
		zap.Duration("elapsed", time.Since(start)))
	return 0
}

// export converts one container file and returns the written output path.
func export(ctx context.Context, cfg *config.Config, input, outDir string) (string, error) {
	enc, err := scene.ForFormat(cfg.Export.Format)
	if err != nil {
		return "", err
	}
	text, err := encoding.NewDecoder(cfg.Input.TextEncoding)
	if err != nil {
		return "", err
	}

	logger.Info("processing model data", zap.String("input", input))
	c, err := container.Open(input, container.Options{Encrypted: cfg.Input.Encrypted})
	if err != nil {
		return "", err
	}
	logger.Debug("container decoded",
		zap.Stringer("kind", c.Kind),
		zap.Int("compressed", c.CompressedSize),
		zap.Int("size", len(c.Data)))

	db, err := modeldb.Open(c.Data)
	if err != nil {
		return "", err
	}
	defer db.Close()
	db.Text = text

	res, err := pipeline.Run(ctx, pipeline.Options{
		ThresholdDeg:        cfg.Export.AngleThreshold,
		PartitionIndexLimit: cfg.Export.PartitionIndexLimit,
		GroupIndexLimit:     cfg.Export.GroupIndexLimit,
		Workers:             cfg.Export.Workers,
	}, db)
	if err != nil {
		return "", err
	}
	if n := res.Stats.Failed + res.Stats.Omitted; n > 0 {
		logger.Warn("meshes left out of the export",
			zap.Int("failed", res.Stats.Failed),
			zap.Int("omitted", res.Stats.Omitted))
	}
	if res.Stats.Assemble.Missing > 0 {
		logger.Warn("objects reference unknown meshes", zap.Int("count", res.Stats.Assemble.Missing))
	}
	if len(res.Entities) == 0 {
		return "", errNoEntities
	}
	logger.Info("wireframes found", zap.Int("count", len(res.Entities)))

	outFile, err := outputPath(input, outDir, cfg.Output.Extension)
	if err != nil {
		return "", err
	}
	if err := writeScene(outFile, enc, res); err != nil {
		return "", err
	}
	return outFile, nil
}

// outputPath returns <outDir>/<input name without extension><ext>, creating
// outDir if needed. An empty outDir means the input's directory.
func outputPath(input, outDir, ext string) (string, error) {
	if outDir == "" {
		outDir = filepath.Dir(input)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	base := filepath.Base(input)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outDir, name+ext), nil
}

func writeScene(path string, enc scene.Encoder, res *pipeline.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	if err := enc.Encode(f, res.Entities); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
