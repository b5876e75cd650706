// Package main is the object counting CLI.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/nvr-ai/go-count/config"
	"github.com/nvr-ai/go-count/detector"
	"github.com/nvr-ai/go-count/logging"
	"github.com/nvr-ai/go-count/profiler"
)

const (
	// Flags.
	flagConfig   = "config"
	flagEnvFile  = "env-file"
	flagLogLevel = "log-level"
	flagTimings  = "timings"
	flagVideo    = "video"
	flagDevice   = "device"
	flagFrames   = "max-frames"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "count",
		Usage: "count discrete objects in photos and live video",
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.PathFlag{
				Name:  flagEnvFile,
				Value: ".env",
				Usage: "load environment overrides from `FILE` when it exists",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "override the configured log level (debug, info, warn, error)",
			},
			&cli.BoolFlag{
				Name:  flagTimings,
				Usage: "log per-stage timings on exit",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "photo",
				Usage:     "count the objects in image files",
				ArgsUsage: "<file|directory>...",
				Action:    PhotoAction,
			},
			{
				Name:  "stream",
				Usage: "count the objects in a video file or camera feed with a stabilized count",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:  flagVideo,
						Usage: "read frames from video `FILE` instead of a camera",
					},
					&cli.IntFlag{
						Name:  flagDevice,
						Usage: "camera device id",
					},
					&cli.IntFlag{
						Name:  flagFrames,
						Usage: "stop after counting this many frames; 0 runs until the input ends",
					},
				},
				Action: StreamAction,
			},
		},
	}
}

// env is the state shared by every command.
type env struct {
	cfg      config.Config
	logger   logging.Logger
	timer    *profiler.StageTimer
	pipeline *detector.Pipeline
}

func setup(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.Path(flagConfig), c.Path(flagEnvFile))
	if err != nil {
		return nil, err
	}
	if level := c.String(flagLogLevel); level != "" {
		cfg.LogLevel = level
	}

	logger, err := logging.New("count", cfg.LogLevel)
	if err != nil {
		return nil, errors.Wrap(err, "create logger")
	}

	var timer *profiler.StageTimer
	if c.Bool(flagTimings) {
		timer = profiler.NewStageTimer()
	}

	p, err := detector.New(cfg, detector.WithLogger(logger), detector.WithTimer(timer))
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, timer: timer, pipeline: p}, nil
}

func (e *env) close() {
	e.timer.Report(e.logger)
	_ = e.logger.Sync()
}

func writeJSON(c *cli.Context, v any) error {
	return json.NewEncoder(c.App.Writer).Encode(v)
}
