package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"mediaboost/internal/domain"
	"mediaboost/internal/infra"
	"mediaboost/internal/storage"
	"mediaboost/internal/topaz"
)

// mp4Header is enough of an ISO base media file for content sniffing.
var mp4Header = []byte{
	0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm',
	0x00, 0x00, 0x02, 0x00, 'i', 's', 'o', 'm', 'i', 's', 'o', '2',
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

type stubProber struct {
	meta domain.SourceMetadata
	err  error
}

func (s *stubProber) Probe(_ context.Context, _, _ string) (domain.SourceMetadata, error) {
	return s.meta, s.err
}

type stubEnhancer struct {
	submitted  *topaz.JobRequest
	sourcePath string
	submitErr  error

	imageData []byte
	imageType string
	imageErr  error

	status    *topaz.JobStatus
	statusErr error

	download     io.ReadCloser
	downloadType string
	downloadLen  int64
	downloadErr  error
}

func (s *stubEnhancer) SubmitAndUpload(_ context.Context, src topaz.Source, job topaz.JobRequest) (*topaz.Submission, error) {
	s.submitted = &job
	s.sourcePath = src.Path
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	if _, err := os.Stat(src.Path); err != nil {
		return nil, errors.New("staged file missing during submit")
	}
	return &topaz.Submission{JobID: "job-1"}, nil
}

func (s *stubEnhancer) EnhanceImage(_ context.Context, _ topaz.Source, _ topaz.ImageParams) ([]byte, string, error) {
	return s.imageData, s.imageType, s.imageErr
}

func (s *stubEnhancer) Status(_ context.Context, _ string) (*topaz.JobStatus, error) {
	return s.status, s.statusErr
}

func (s *stubEnhancer) Download(_ context.Context, _ string) (io.ReadCloser, string, int64, error) {
	return s.download, s.downloadType, s.downloadLen, s.downloadErr
}

func newTestApp(t *testing.T, prober Prober, enhancer Enhancer) (*App, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "scratch")
	logger := infra.Logger(zerolog.New(io.Discard))
	scratch, err := storage.NewScratch(dir, logger)
	if err != nil {
		t.Fatalf("NewScratch: %v", err)
	}
	return NewApp(logger, infra.Config{}, prober, enhancer, scratch), dir
}

func multipartBody(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := form.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if filename != "" {
		part, err := form.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create file part: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if err := form.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}
	return &buf, form.FormDataContentType()
}

func TestEnhanceVideoSubmitsJob(t *testing.T) {
	prober := &stubProber{meta: domain.SourceMetadata{
		Container: "mp4", SizeBytes: int64(len(mp4Header)), Duration: 10,
		FrameRate: 30, FrameCount: 300, Width: 100, Height: 50, HasAudio: true,
	}}
	enhancer := &stubEnhancer{}
	app, scratchDir := newTestApp(t, prober, enhancer)

	body, contentType := multipartBody(t, "clip.mp4", mp4Header, map[string]string{
		"model":   "Proteus",
		"scale":   "2x",
		"sharpen": "150",
	})
	req := httptest.NewRequest(http.MethodPost, "/enhance/video", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	app.EnhanceVideo(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp submitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ProcessID != "job-1" {
		t.Fatalf("processId = %q", resp.ProcessID)
	}

	out := enhancer.submitted.Output
	if out.Width != 200 || out.Height != 100 {
		t.Fatalf("resolution = %dx%d, want 200x100", out.Width, out.Height)
	}
	if out.Sharpen != 100 {
		t.Fatalf("sharpen = %d, want clamp to 100", out.Sharpen)
	}
	if out.AudioMode != domain.AudioModeConvert {
		t.Fatalf("audio mode = %q", out.AudioMode)
	}
	if out.ModelOption != "prob-4" {
		t.Fatalf("model option = %q, want family default", out.ModelOption)
	}

	entries, err := os.ReadDir(scratchDir)
	if err != nil {
		t.Fatalf("read scratch dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("scratch file leaked: %v", entries)
	}
}

func TestEnhanceVideoRejectsNonVideoUpload(t *testing.T) {
	enhancer := &stubEnhancer{}
	app, _ := newTestApp(t, &stubProber{}, enhancer)

	body, contentType := multipartBody(t, "notes.txt", []byte("plain text, not a video"), nil)
	req := httptest.NewRequest(http.MethodPost, "/enhance/video", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	app.EnhanceVideo(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if enhancer.submitted != nil {
		t.Fatalf("no remote call should happen for invalid input")
	}
}

func TestEnhanceVideoRequiresFile(t *testing.T) {
	app, _ := newTestApp(t, &stubProber{}, &stubEnhancer{})

	body, contentType := multipartBody(t, "", nil, map[string]string{"model": "Proteus"})
	req := httptest.NewRequest(http.MethodPost, "/enhance/video", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	app.EnhanceVideo(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestEnhanceVideoRejectsUnknownModel(t *testing.T) {
	enhancer := &stubEnhancer{}
	app, _ := newTestApp(t, &stubProber{}, enhancer)

	body, contentType := multipartBody(t, "clip.mp4", mp4Header, map[string]string{"model": "Megalodon"})
	req := httptest.NewRequest(http.MethodPost, "/enhance/video", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	app.EnhanceVideo(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if enhancer.submitted != nil {
		t.Fatalf("unknown model must fail before submission")
	}
}

func TestEnhanceVideoSubmitFailureIsBadGateway(t *testing.T) {
	prober := &stubProber{meta: domain.SourceMetadata{Width: 10, Height: 10, Duration: 1, FrameRate: 30}}
	app, scratchDir := newTestApp(t, prober, &stubEnhancer{submitErr: errors.New("remote rejected the job")})

	body, contentType := multipartBody(t, "clip.mp4", mp4Header, nil)
	req := httptest.NewRequest(http.MethodPost, "/enhance/video", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	app.EnhanceVideo(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var resp map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["error"] == "" {
		t.Fatalf("error body missing: %s", rec.Body)
	}
	entries, _ := os.ReadDir(scratchDir)
	if len(entries) != 0 {
		t.Fatalf("scratch file leaked on failure: %v", entries)
	}
}

func TestEnhanceImagePassthrough(t *testing.T) {
	enhancer := &stubEnhancer{imageData: []byte("enhanced-png"), imageType: "image/png"}
	app, _ := newTestApp(t, &stubProber{}, enhancer)

	body, contentType := multipartBody(t, "photo.png", pngHeader, map[string]string{"model": "Standard V2", "scale": "4x"})
	req := httptest.NewRequest(http.MethodPost, "/enhance/image", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	app.EnhanceImage(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Fatalf("content type = %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="enhanced-photo.png"` {
		t.Fatalf("content disposition = %q", got)
	}
	if rec.Body.String() != "enhanced-png" {
		t.Fatalf("body = %q", rec.Body)
	}
}

func TestEnhanceImageRejectsUnknownModel(t *testing.T) {
	app, _ := newTestApp(t, &stubProber{}, &stubEnhancer{})

	body, contentType := multipartBody(t, "photo.png", pngHeader, map[string]string{"model": "Sketchy"})
	req := httptest.NewRequest(http.MethodPost, "/enhance/image", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	app.EnhanceImage(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func statusRequest(app *App, handler http.HandlerFunc, id string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Get("/x/{id}", handler)
	req := httptest.NewRequest(http.MethodGet, "/x/"+id, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestStatusProxiesNormalizedState(t *testing.T) {
	enhancer := &stubEnhancer{status: &topaz.JobStatus{Status: "processing", Progress: 61}}
	app, _ := newTestApp(t, &stubProber{}, enhancer)

	rec := statusRequest(app, app.Status, "job-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var st topaz.JobStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Status != "processing" || st.Progress != 61 {
		t.Fatalf("st = %+v", st)
	}
}

func TestDownloadNotReadyIsTooEarly(t *testing.T) {
	enhancer := &stubEnhancer{downloadErr: domain.ErrNotReady}
	app, _ := newTestApp(t, &stubProber{}, enhancer)

	rec := statusRequest(app, app.DownloadVideo, "job-1")
	if rec.Code != http.StatusTooEarly {
		t.Fatalf("status = %d, want 425", rec.Code)
	}
}

func TestDownloadStreamsResult(t *testing.T) {
	enhancer := &stubEnhancer{
		download:     io.NopCloser(bytes.NewReader([]byte("final-video"))),
		downloadType: "video/mp4",
		downloadLen:  11,
	}
	app, _ := newTestApp(t, &stubProber{}, enhancer)

	rec := statusRequest(app, app.DownloadVideo, "job-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "final-video" {
		t.Fatalf("body = %q", rec.Body)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="enhanced-job-1.mp4"` {
		t.Fatalf("content disposition = %q", got)
	}
}

func TestModelsListsCatalog(t *testing.T) {
	app, _ := newTestApp(t, &stubProber{}, &stubEnhancer{})

	req := httptest.NewRequest(http.MethodGet, "/models", nil)
	rec := httptest.NewRecorder()
	app.Models(rec, req)

	var catalog struct {
		Video []topaz.VideoModel `json:"video"`
		Image []string           `json:"image"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &catalog); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(catalog.Video) == 0 || len(catalog.Image) == 0 {
		t.Fatalf("catalog empty: %+v", catalog)
	}
	if catalog.Video[0].Name != "Proteus" {
		t.Fatalf("first video model = %q", catalog.Video[0].Name)
	}
}
