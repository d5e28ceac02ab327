package topaz

import (
	"mediaboost/internal/domain"
)

// Source identifies the local file backing a submission, together with
// its probed metadata. The file at Path must stay readable until
// Submit returns; the caller owns its cleanup.
type Source struct {
	Path string
	Name string
	Meta domain.SourceMetadata
}

// JobRequest carries the requested output specification.
type JobRequest struct {
	Output domain.OutputSpec
}

// Submission is the normalized result of a successful job submission.
type Submission struct {
	JobID string
}

type resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type createSource struct {
	Container  string     `json:"container"`
	Size       int64      `json:"size"`
	Duration   float64    `json:"duration"`
	FrameCount int        `json:"frameCount"`
	FrameRate  float64    `json:"frameRate"`
	Resolution resolution `json:"resolution"`
}

// createOutput must carry frameRate, audioMode and compression on every
// call; the remote API rejects creation payloads that omit them.
type createOutput struct {
	Container   string     `json:"container"`
	Resolution  resolution `json:"resolution"`
	FrameRate   float64    `json:"frameRate"`
	AudioMode   string     `json:"audioMode"`
	Compression int        `json:"compression"`
}

type filterSpec struct {
	Model   string `json:"model"`
	Sharpen int    `json:"sharpen,omitempty"`
	Denoise int    `json:"denoise,omitempty"`
	Recover int    `json:"recover,omitempty"`
	Grain   int    `json:"grain,omitempty"`
}

type createRequest struct {
	Source  createSource `json:"source"`
	Output  createOutput `json:"output"`
	Filters []filterSpec `json:"filters"`
}

type createResponse struct {
	RequestID string `json:"requestId"`
	ID        string `json:"id"`
	UploadURL string `json:"uploadUrl"`
}

type acceptResponse struct {
	UploadID string   `json:"uploadId"`
	URLs     []string `json:"urls"`
}

type completeRequest struct {
	UploadResults []domain.PartResult `json:"uploadResults"`
}

func buildCreateRequest(meta domain.SourceMetadata, out domain.OutputSpec) createRequest {
	frameRate := out.FrameRate
	if frameRate <= 0 {
		frameRate = meta.FrameRate
	}
	model := out.ModelOption
	if model == "" {
		model = out.Model
	}
	return createRequest{
		Source: createSource{
			Container:  meta.Container,
			Size:       meta.SizeBytes,
			Duration:   meta.Duration,
			FrameCount: meta.FrameCount,
			FrameRate:  meta.FrameRate,
			Resolution: resolution{Width: meta.Width, Height: meta.Height},
		},
		Output: createOutput{
			Container:   out.Container,
			Resolution:  resolution{Width: out.Width, Height: out.Height},
			FrameRate:   frameRate,
			AudioMode:   string(out.AudioMode),
			Compression: out.Compression,
		},
		Filters: []filterSpec{{
			Model:   model,
			Sharpen: out.Sharpen,
			Denoise: out.Denoise,
			Recover: out.Recover,
			Grain:   out.Grain,
		}},
	}
}
