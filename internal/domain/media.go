package domain

import (
	"math"
	"strconv"
	"strings"
)

const (
	// MinDuration is the floor applied to probed durations so that
	// frame-count arithmetic never divides by zero.
	MinDuration = 0.001

	// DefaultFrameRate is assumed when the source frame rate cannot be
	// determined.
	DefaultFrameRate = 30

	// MinOutputDimension is the smallest width or height the remote API
	// accepts for an output resolution.
	MinOutputDimension = 2
)

// AudioMode selects how the source audio track is carried into the
// enhanced output.
type AudioMode string

const (
	AudioModeConvert AudioMode = "convert"
	AudioModeCopy    AudioMode = "copy"
	AudioModeNone    AudioMode = "none"
)

// SourceMetadata describes a probed media file.
type SourceMetadata struct {
	Container  string
	SizeBytes  int64
	Duration   float64
	FrameRate  float64
	FrameCount int
	Width      int
	Height     int
	HasAudio   bool
}

// OutputSpec describes the requested enhancement output.
type OutputSpec struct {
	Container   string
	Width       int
	Height      int
	FrameRate   float64 // 0 means inherit from the source
	Model       string
	ModelOption string
	Sharpen     int
	Denoise     int
	Recover     int
	Grain       int
	AudioMode   AudioMode
	Compression int
}

// Normalize clamps effect strengths, enforces the minimum output
// resolution and fills the audio mode from detected audio presence.
func (o *OutputSpec) Normalize(src SourceMetadata) {
	o.Sharpen = ClampEffect(o.Sharpen)
	o.Denoise = ClampEffect(o.Denoise)
	o.Recover = ClampEffect(o.Recover)
	o.Grain = ClampEffect(o.Grain)
	if o.Width < MinOutputDimension {
		o.Width = MinOutputDimension
	}
	if o.Height < MinOutputDimension {
		o.Height = MinOutputDimension
	}
	if o.AudioMode == "" {
		if src.HasAudio {
			o.AudioMode = AudioModeConvert
		} else {
			o.AudioMode = AudioModeNone
		}
	}
}

// ClampEffect limits a per-effect strength to the accepted 0..100 range.
func ClampEffect(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ParseScale turns a UI scale selection such as "2x" or "4" into a
// numeric factor, defaulting to 2 when unparsable.
func ParseScale(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(strings.ToLower(s)), "x")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 2
	}
	return f
}

// ScaleResolution applies a scale factor to source dimensions. Each
// output dimension is floored at MinOutputDimension, even for
// degenerate sources whose dimensions could not be probed.
func ScaleResolution(width, height int, factor float64) (int, int) {
	w := int(math.Round(float64(width) * factor))
	h := int(math.Round(float64(height) * factor))
	if w < MinOutputDimension {
		w = MinOutputDimension
	}
	if h < MinOutputDimension {
		h = MinOutputDimension
	}
	return w, h
}

// DeriveFrameCount computes the frame count from duration and frame
// rate, never returning less than one frame.
func DeriveFrameCount(duration, frameRate float64) int {
	if duration < MinDuration {
		duration = MinDuration
	}
	n := int(math.Round(duration * frameRate))
	if n < 1 {
		return 1
	}
	return n
}
