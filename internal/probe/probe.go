// Package probe extracts container and stream metadata from local media
// files using ffprobe, without decoding them.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"mediaboost/internal/domain"
	"mediaboost/internal/infra"
)

// Prober shells out to ffprobe. Probe failures are fatal to the request
// that triggered them; callers must not retry.
type Prober struct {
	bin    string
	logger infra.Logger
}

func New(bin string, logger infra.Logger) *Prober {
	if bin == "" {
		bin = "ffprobe"
	}
	return &Prober{bin: bin, logger: logger}
}

type report struct {
	Streams []stream `json:"streams"`
	Format  format   `json:"format"`
}

type stream struct {
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Duration     string `json:"duration"`
	AvgFrameRate string `json:"avg_frame_rate"`
	RFrameRate   string `json:"r_frame_rate"`
}

type format struct {
	FormatName   string `json:"format_name"`
	Duration     string `json:"duration"`
	Size         string `json:"size"`
	AvgFrameRate string `json:"avg_frame_rate"`
}

// Probe inspects the file at path and derives the source metadata the
// remote job-creation call needs. originalName is the client-supplied
// filename, used to pick the container label before falling back to the
// probed format name.
func (p *Prober) Probe(ctx context.Context, path, originalName string) (domain.SourceMetadata, error) {
	var meta domain.SourceMetadata

	cmd := exec.CommandContext(ctx, p.bin,
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return meta, fmt.Errorf("probe: %s: %w", strings.TrimSpace(string(exitErr.Stderr)), domain.ErrProbeFailure)
		}
		return meta, fmt.Errorf("probe: run ffprobe: %w", err)
	}

	var rep report
	if err := json.Unmarshal(out, &rep); err != nil {
		return meta, fmt.Errorf("probe: decode ffprobe output: %w", err)
	}

	video, audio := pickStreams(rep.Streams)
	if video == nil {
		return meta, fmt.Errorf("probe: no video stream found: %w", domain.ErrProbeFailure)
	}

	meta.Width = video.Width
	meta.Height = video.Height
	meta.HasAudio = audio != nil
	meta.Container = containerLabel(originalName, rep.Format.FormatName)
	meta.FrameRate = parseFrameRate(firstNonEmpty(video.AvgFrameRate, video.RFrameRate, rep.Format.AvgFrameRate))
	meta.Duration = parseDuration(rep.Format.Duration, video.Duration)
	meta.FrameCount = domain.DeriveFrameCount(meta.Duration, meta.FrameRate)

	meta.SizeBytes = parseSize(rep.Format.Size)
	if meta.SizeBytes <= 0 {
		if st, err := os.Stat(path); err == nil {
			meta.SizeBytes = st.Size()
		}
	}

	p.logger.Debug().
		Str("container", meta.Container).
		Int64("size", meta.SizeBytes).
		Float64("duration", meta.Duration).
		Float64("frame_rate", meta.FrameRate).
		Int("frame_count", meta.FrameCount).
		Bool("has_audio", meta.HasAudio).
		Msg("probe: source metadata")

	return meta, nil
}

func pickStreams(streams []stream) (video, audio *stream) {
	for i := range streams {
		switch streams[i].CodecType {
		case "video":
			if video == nil {
				video = &streams[i]
			}
		case "audio":
			if audio == nil {
				audio = &streams[i]
			}
		}
	}
	return video, audio
}

// parseFrameRate understands both rational expressions ("24000/1001")
// and plain numbers. Anything unparsable yields the default of 30.
func parseFrameRate(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.DefaultFrameRate
	}
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, errN := strconv.ParseFloat(strings.TrimSpace(num), 64)
		d, errD := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if errN != nil {
			return domain.DefaultFrameRate
		}
		if errD != nil || d == 0 {
			if n > 0 {
				return n
			}
			return domain.DefaultFrameRate
		}
		if rate := n / d; rate > 0 {
			return rate
		}
		return domain.DefaultFrameRate
	}
	if rate, err := strconv.ParseFloat(s, 64); err == nil && rate > 0 {
		return rate
	}
	return domain.DefaultFrameRate
}

// parseDuration prefers container-level duration, then stream-level,
// flooring the result so downstream arithmetic never divides by zero.
func parseDuration(formatDur, streamDur string) float64 {
	for _, raw := range []string{formatDur, streamDur} {
		if raw == "" {
			continue
		}
		if d, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil && d > 0 {
			if d < domain.MinDuration {
				return domain.MinDuration
			}
			return d
		}
	}
	return domain.MinDuration
}

func parseSize(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// containerLabel approximates the container from the original filename
// extension, falling back to the first token of ffprobe's format_name.
func containerLabel(originalName, formatName string) string {
	if ext := strings.TrimPrefix(filepath.Ext(originalName), "."); ext != "" {
		return strings.ToLower(ext)
	}
	if formatName != "" {
		return strings.SplitN(formatName, ",", 2)[0]
	}
	return "mp4"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
