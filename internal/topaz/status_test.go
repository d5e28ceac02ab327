package topaz

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mediaboost/internal/domain"
	"mediaboost/internal/infra"
)

func statusServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/status") {
			t.Errorf("unexpected call: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
}

func TestStatusNormalization(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"explicit completed", `{"status":"completed"}`, "completed"},
		{"success alias", `{"state":"SUCCESS"}`, "completed"},
		{"download handle implies completed", `{"status":"","download":{"url":"https://cdn.example/out.mp4"}}`, "completed"},
		{"flat download url", `{"downloadUrl":"https://cdn.example/out.mp4"}`, "completed"},
		{"running maps to processing", `{"status":"running","progress":42}`, "processing"},
		{"failed", `{"status":"failed","error":"model crashed"}`, "failed"},
		{"unknown defaults to queued", `{"status":"pending"}`, "queued"},
		{"empty body fields default to queued", `{}`, "queued"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := statusServer(t, tc.body)
			defer srv.Close()

			client := newTestClient(t, srv.URL, infra.ProtocolMultipart)
			st, err := client.Status(context.Background(), "job-s")
			if err != nil {
				t.Fatalf("Status: %v", err)
			}
			if st.Status != tc.want {
				t.Fatalf("status = %q, want %q", st.Status, tc.want)
			}
		})
	}
}

func TestStatusCarriesProgressAndError(t *testing.T) {
	srv := statusServer(t, `{"status":"running","progress":"73.5","message":"still crunching"}`)
	defer srv.Close()

	client := newTestClient(t, srv.URL, infra.ProtocolMultipart)
	st, err := client.Status(context.Background(), "job-p")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Progress != 73.5 {
		t.Fatalf("progress = %v, want 73.5", st.Progress)
	}
	if st.Error != "still crunching" {
		t.Fatalf("error = %q", st.Error)
	}
}

func TestDownloadNotReady(t *testing.T) {
	srv := statusServer(t, `{"status":"processing"}`)
	defer srv.Close()

	client := newTestClient(t, srv.URL, infra.ProtocolMultipart)
	_, _, _, err := client.Download(context.Background(), "job-n")
	if !errors.Is(err, domain.ErrNotReady) {
		t.Fatalf("err = %v, want ErrNotReady", err)
	}
}

func TestDownloadFailedJob(t *testing.T) {
	srv := statusServer(t, `{"status":"failed","error":"source corrupt"}`)
	defer srv.Close()

	client := newTestClient(t, srv.URL, infra.ProtocolMultipart)
	_, _, _, err := client.Download(context.Background(), "job-x")
	if !errors.Is(err, domain.ErrJobFailed) {
		t.Fatalf("err = %v, want ErrJobFailed", err)
	}
	if !strings.Contains(err.Error(), "source corrupt") {
		t.Fatalf("error should carry the remote detail, got %v", err)
	}
}

func TestDownloadStreamsCompletedResult(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/status"):
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"status":"completed","download":{"url":"`+srv.URL+`/result"}}`)
		case r.URL.Path == "/result":
			if r.Header.Get("X-API-Key") != "" {
				t.Errorf("api key must not travel to the presigned download url")
			}
			w.Header().Set("Content-Type", "video/mp4")
			_, _ = w.Write([]byte("enhanced-bytes"))
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, infra.ProtocolMultipart)
	body, contentType, _, err := client.Download(context.Background(), "job-ok")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if string(data) != "enhanced-bytes" {
		t.Fatalf("body = %q", data)
	}
	if contentType != "video/mp4" {
		t.Fatalf("content type = %q", contentType)
	}
}

func TestAPIErrorNormalization(t *testing.T) {
	cases := []struct {
		name        string
		status      int
		body        string
		contentType string
		wantSubstr  string
	}{
		{"json error field", 400, `{"error":"invalid model"}`, "application/json", "invalid model"},
		{"json message field", 422, `{"message":"duration too long"}`, "application/json", "duration too long"},
		{"plain text body", 500, "backend exploded", "text/plain", "backend exploded"},
		{"binary body suppressed", 502, "\xff\xfe\x00binary", "application/octet-stream", "status 502"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tc.contentType)
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			client := newTestClient(t, srv.URL, infra.ProtocolMultipart)
			_, err := client.Status(context.Background(), "job-err")
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantSubstr) {
				t.Fatalf("error %q does not mention %q", err, tc.wantSubstr)
			}
			if tc.name == "binary body suppressed" && strings.ContainsRune(err.Error(), 0xff) {
				t.Fatalf("binary body leaked into error: %q", err)
			}
		})
	}
}
