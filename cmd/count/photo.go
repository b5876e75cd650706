package main

import (
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/nvr-ai/go-count/detector"
	"github.com/nvr-ai/go-count/util"
)

// PhotoResult is one output line of the photo command.
type PhotoResult struct {
	Path  string `json:"path"`
	Frame int    `json:"frame,omitempty"`
	detector.Result
	Error string `json:"error,omitempty"`
}

// PhotoAction counts every image given as an argument, one JSON line per image. Images that
// cannot be decoded are reported in their line and do not stop the batch.
func PhotoAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("photo needs at least one image file or directory")
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	files, err := util.LoadImagePaths(c.Args().Slice()...)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no image files found")
	}

	failed := 0
	for _, f := range files {
		out := PhotoResult{Path: f.Path, Frame: max(f.Frame, 0)}
		res, err := e.pipeline.DetectEncoded(f.Data)
		if err != nil {
			failed++
			out.Error = err.Error()
			e.logger.Warnw("image skipped", "path", f.Path, "error", err)
		} else {
			out.Result = res
		}
		if err := writeJSON(c, out); err != nil {
			return errors.Wrap(err, "write result")
		}
	}

	e.logger.Infow("photo batch done", "images", len(files), "failed", failed)
	if failed == len(files) {
		return errors.Errorf("none of the %d images could be counted", failed)
	}
	return nil
}
