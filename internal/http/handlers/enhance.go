package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"mediaboost/internal/domain"
	"mediaboost/internal/metrics"
	"mediaboost/internal/topaz"
)

// multipartMemoryLimit bounds how much of the form is buffered in
// memory; the file part itself spills to disk beyond this.
const multipartMemoryLimit = 32 << 20

type submitResponse struct {
	ProcessID string `json:"processId"`
}

// EnhanceVideo stages the upload, probes it, and submits the
// enhancement job through the configured protocol variant. The response
// carries only the remote job id; progress is the client's business.
func (a *App) EnhanceVideo(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	path, name, err := a.stageUpload(r)
	if err != nil {
		a.error(w, http.StatusBadRequest, err.Error())
		return
	}
	defer a.Scratch.Remove(path)

	kind, err := mimetype.DetectFile(path)
	if err != nil {
		a.error(w, http.StatusBadRequest, "could not inspect uploaded file")
		return
	}
	if !strings.HasPrefix(kind.String(), "video/") {
		a.error(w, http.StatusBadRequest, fmt.Errorf("%w: expected a video, got %s", domain.ErrUnsupportedMedia, kind.String()).Error())
		return
	}

	out, err := videoSpecFromForm(r)
	if err != nil {
		a.error(w, http.StatusBadRequest, err.Error())
		return
	}

	meta, err := a.Prober.Probe(r.Context(), path, name)
	if err != nil {
		metrics.JobFailures.WithLabelValues("probe").Inc()
		a.Logger.Error().Err(err).Str("file", name).Msg("probe failed")
		a.error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	out.Width, out.Height = domain.ScaleResolution(meta.Width, meta.Height, domain.ParseScale(r.FormValue("scale")))
	out.Normalize(meta)

	metrics.JobsSubmitted.WithLabelValues("video").Inc()
	sub, err := a.Enhancer.SubmitAndUpload(r.Context(), topaz.Source{Path: path, Name: name, Meta: meta}, topaz.JobRequest{Output: out})
	if err != nil {
		metrics.JobFailures.WithLabelValues("submit").Inc()
		a.Logger.Error().Err(err).Str("file", name).Msg("video submission failed")
		a.error(w, http.StatusBadGateway, err.Error())
		return
	}
	metrics.SubmitDuration.Observe(time.Since(start).Seconds())

	a.Logger.Info().
		Str("job_id", sub.JobID).
		Str("model", out.Model).
		Int64("size", meta.SizeBytes).
		Msg("video job submitted")
	a.json(w, http.StatusOK, submitResponse{ProcessID: sub.JobID})
}

// EnhanceImage is the synchronous passthrough: the enhanced image comes
// back in this very response.
func (a *App) EnhanceImage(w http.ResponseWriter, r *http.Request) {
	path, name, err := a.stageUpload(r)
	if err != nil {
		a.error(w, http.StatusBadRequest, err.Error())
		return
	}
	defer a.Scratch.Remove(path)

	kind, err := mimetype.DetectFile(path)
	if err != nil {
		a.error(w, http.StatusBadRequest, "could not inspect uploaded file")
		return
	}
	if !strings.HasPrefix(kind.String(), "image/") {
		a.error(w, http.StatusBadRequest, fmt.Errorf("%w: expected an image, got %s", domain.ErrUnsupportedMedia, kind.String()).Error())
		return
	}

	model := r.FormValue("model")
	if model == "" {
		model = "Standard V2"
	}
	if !topaz.ValidImageModel(model) {
		a.error(w, http.StatusBadRequest, fmt.Sprintf("unknown image model %q", model))
		return
	}
	params := topaz.ImageParams{
		Model:        model,
		OutputFormat: r.FormValue("output_format"),
		Scale:        domain.ParseScale(r.FormValue("scale")),
	}

	metrics.JobsSubmitted.WithLabelValues("image").Inc()
	data, contentType, err := a.Enhancer.EnhanceImage(r.Context(), topaz.Source{Path: path, Name: name}, params)
	if err != nil {
		metrics.JobFailures.WithLabelValues("image").Inc()
		a.Logger.Error().Err(err).Str("file", name).Msg("image enhancement failed")
		a.error(w, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", attachmentFor("enhanced-"+name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// stageUpload copies the multipart file part to scratch and returns its
// path with the client-supplied name.
func (a *App) stageUpload(r *http.Request) (string, string, error) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		return "", "", errors.New("request is not a valid multipart form")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", "", domain.ErrNoFile
	}
	defer file.Close()

	path, n, err := a.Scratch.Save(file, safeName(header))
	if err != nil {
		return "", "", errors.New("could not stage uploaded file")
	}
	if n == 0 {
		a.Scratch.Remove(path)
		return "", "", domain.ErrNoFile
	}
	return path, safeName(header), nil
}

func safeName(header *multipart.FileHeader) string {
	name := strings.TrimSpace(header.Filename)
	if name == "" {
		return "upload"
	}
	return name
}

func videoSpecFromForm(r *http.Request) (domain.OutputSpec, error) {
	model := r.FormValue("model")
	if model == "" {
		model = "Proteus"
	}
	family, ok := topaz.FindVideoModel(model)
	if !ok {
		return domain.OutputSpec{}, fmt.Errorf("unknown video model %q", model)
	}

	option := r.FormValue("model_option")
	if option == "" && len(family.Options) > 0 {
		option = family.Options[0]
	}

	out := domain.OutputSpec{
		Container:   firstNonEmpty(r.FormValue("format"), "mp4"),
		Model:       model,
		ModelOption: option,
		Sharpen:     formInt(r, "sharpen", 0),
		Denoise:     formInt(r, "denoise", 0),
		Recover:     formInt(r, "recover", 0),
		Grain:       formInt(r, "grain", 0),
		Compression: formInt(r, "compression", 2),
	}

	// Only frame interpolation families honor an explicit target rate.
	if fps := r.FormValue("fps_target"); fps != "" && topaz.SupportsFrameRateTarget(model) {
		v, err := strconv.ParseFloat(fps, 64)
		if err != nil || v <= 0 {
			return domain.OutputSpec{}, fmt.Errorf("invalid fps_target %q", fps)
		}
		out.FrameRate = v
	}
	return out, nil
}

func formInt(r *http.Request, field string, fallback int) int {
	raw := r.FormValue(field)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func attachmentFor(name string) string {
	return fmt.Sprintf("attachment; filename=%q", strings.ReplaceAll(name, `"`, ""))
}
