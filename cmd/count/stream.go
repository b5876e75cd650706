package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/nvr-ai/go-count/capture"
	"github.com/nvr-ai/go-count/detector"
	"github.com/nvr-ai/go-count/images"
)

// StreamFrame is one output line of the stream command.
type StreamFrame struct {
	Frame int64 `json:"frame"`
	detector.Result
}

// StreamAction counts a live feed. The capture runs in its own goroutine and keeps only the
// newest frame; frames arriving while one is counted are dropped.
func StreamAction(c *cli.Context) error {
	input, err := capture.ParseInput(c.Path(flagVideo), c.Int(flagDevice))
	if err != nil {
		return err
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	src, err := capture.Open(input, e.logger)
	if err != nil {
		return err
	}
	defer src.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := capture.NewFrameMailbox()
	captureErr := make(chan error, 1)
	go func() {
		captureErr <- src.Run(ctx, frames)
	}()

	stream := detector.NewStream(e.pipeline)
	stream.Start()
	defer stream.Stop()

	emit := func(f StreamFrame) error { return writeJSON(c, f) }
	counted, err := countFrames(ctx, frames.Take, stream, int64(c.Int(flagFrames)), emit)
	if err != nil {
		return err
	}

	cancel()
	err = <-captureErr
	frames.Drain()

	stats := stream.Stats()
	e.logger.Infow("stream done",
		"read", src.Frames(),
		"processed", stats.Frames,
		"counted", counted,
		"dropped", frames.Dropped(),
		"errors", stats.Errors,
		"fps", stats.FPS,
		"count", stream.Snapshot().Count,
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// countFrames processes frames from take until take fails or limit frames were counted; a
// limit <= 0 means no limit. Frames the stream rejects are skipped and do not take a number.
//
// Returns:
//   - int64: The number of frames counted.
//   - error: The first emit failure.
func countFrames(ctx context.Context, take func(context.Context) (*images.Buffer, error), stream *detector.Stream,
	limit int64, emit func(StreamFrame) error) (int64, error) {
	var counted int64
	for limit <= 0 || counted < limit {
		buf, err := take(ctx)
		if err != nil {
			break
		}
		res, err := stream.Process(buf)
		_ = buf.Close()
		if err != nil {
			continue
		}
		counted++
		if err := emit(StreamFrame{Frame: counted, Result: res}); err != nil {
			return counted, errors.Wrap(err, "write result")
		}
	}
	return counted, nil
}
