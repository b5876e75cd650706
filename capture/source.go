package capture

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/nvr-ai/go-count/images"
	"github.com/nvr-ai/go-count/logging"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// SupportedVideoExtensions lists the video file extensions a Source accepts.
var SupportedVideoExtensions = []string{".mp4", ".avi", ".mov", ".mkv"}

// InputType represents the kind of device a Source reads from.
type InputType int

const (
	// InputCamera is a local capture device.
	InputCamera InputType = iota
	// InputVideo is a video file.
	InputVideo
)

// String returns the input type name.
func (t InputType) String() string {
	switch t {
	case InputCamera:
		return "camera"
	case InputVideo:
		return "video"
	default:
		return "unknown"
	}
}

// InputConfig identifies the device a Source reads from.
type InputConfig struct {
	Type     InputType
	Path     string
	DeviceID int
}

// ParseInput builds the input configuration: the camera deviceID when videoPath is empty, the
// video file otherwise.
//
// Arguments:
//   - videoPath: An optional video file path.
//   - deviceID: The camera device used when no video is given.
//
// Returns:
//   - InputConfig: The input configuration.
//   - error: An error if the video file is missing or has an unsupported extension.
func ParseInput(videoPath string, deviceID int) (InputConfig, error) {
	if videoPath == "" {
		return InputConfig{Type: InputCamera, DeviceID: deviceID}, nil
	}
	if err := validateFile(videoPath, SupportedVideoExtensions); err != nil {
		return InputConfig{}, errors.Wrap(err, "video validation")
	}
	return InputConfig{Type: InputVideo, Path: videoPath}, nil
}

// validateFile checks that the file exists and has a supported extension.
func validateFile(filePath string, supportedExtensions []string) error {
	if _, err := os.Stat(filePath); err != nil {
		return errors.Wrapf(err, "file not found: %s", filePath)
	}
	ext := strings.ToLower(filepath.Ext(filePath))
	if !slices.Contains(supportedExtensions, ext) {
		return errors.Errorf("unsupported file extension: %s. Supported extensions: %v", ext, supportedExtensions)
	}
	return nil
}

// Source reads BGR frames from a gocv.VideoCapture.
type Source struct {
	cfg     InputConfig
	capture *gocv.VideoCapture
	logger  logging.Logger
	frames  atomic.Int64
}

// Open opens the configured device.
func Open(cfg InputConfig, logger logging.Logger) (*Source, error) {
	var (
		vc  *gocv.VideoCapture
		err error
	)
	switch cfg.Type {
	case InputCamera:
		vc, err = gocv.OpenVideoCapture(cfg.DeviceID)
		if err != nil {
			return nil, errors.Wrapf(err, "open capture device %d", cfg.DeviceID)
		}
	case InputVideo:
		vc, err = gocv.OpenVideoCapture(cfg.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "open video file %s", cfg.Path)
		}
	default:
		return nil, errors.Errorf("unknown input type %d", cfg.Type)
	}
	logger.Infow("capture opened", "type", cfg.Type.String(), "path", cfg.Path, "device", cfg.DeviceID)
	return &Source{cfg: cfg, capture: vc, logger: logger}, nil
}

// Run reads frames into out until ctx is cancelled or the device runs dry, then closes out.
// Frames replaced in out before they are taken are released by out's drop hook.
//
// Returns:
//   - error: ctx.Err() on cancellation; nil at the end of a video or when the device closes.
func (s *Source) Run(ctx context.Context, out *Latest[*images.Buffer]) error {
	defer out.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		mat := gocv.NewMat()
		if ok := s.capture.Read(&mat); !ok {
			mat.Close()
			if s.cfg.Type == InputVideo {
				s.logger.Infow("end of video file", "path", s.cfg.Path, "frames", s.frames.Load())
			} else {
				s.logger.Infow("capture device closed", "device", s.cfg.DeviceID, "frames", s.frames.Load())
			}
			return nil
		}
		if mat.Empty() {
			mat.Close()
			continue
		}

		buf, err := images.NewBuffer(mat)
		if err != nil {
			s.logger.Warnw("frame rejected", "error", err)
			continue
		}
		s.frames.Add(1)
		out.Offer(buf)
	}
}

// Frames returns the number of frames read.
func (s *Source) Frames() int64 {
	return s.frames.Load()
}

// Close releases the capture device.
func (s *Source) Close() error {
	return s.capture.Close()
}

// NewFrameMailbox returns a Latest mailbox that closes the buffers it drops.
func NewFrameMailbox() *Latest[*images.Buffer] {
	return NewLatest(func(b *images.Buffer) {
		_ = b.Close()
	})
}
