package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Upload protocol generations supported by the remote enhancement API.
// The multipart flow is the system of record; the older generations are
// kept selectable for accounts still pinned to them.
const (
	ProtocolMultipart = "multipart"
	ProtocolDirect    = "direct"
	ProtocolForm      = "form"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	TopazAPIKey        string
	TopazBaseURL       string
	UploadProtocol     string
	UploadConcurrency  int
	FFprobeBin         string
	ScratchDir         string
	PublicDir          string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		TopazAPIKey:       os.Getenv("TOPAZ_API_KEY"),
		TopazBaseURL:      getEnv("TOPAZ_BASE_URL", "https://api.topazlabs.com"),
		UploadProtocol:    getEnv("TOPAZ_UPLOAD_PROTOCOL", ProtocolMultipart),
		UploadConcurrency: getEnvInt("UPLOAD_CONCURRENCY", 6),
		FFprobeBin:        getEnv("FFPROBE_BIN", "ffprobe"),
		ScratchDir:        getEnv("SCRATCH_DIR", filepath.Join(os.TempDir(), "mediaboost")),
		PublicDir:         getEnv("PUBLIC_DIR", "public"),
		// Video submissions hold the request open while every part
		// transfers, so the read/write timeouts are generous.
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 900)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 900)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.TopazAPIKey == "" {
		return nil, fmt.Errorf("TOPAZ_API_KEY is required")
	}

	switch cfg.UploadProtocol {
	case ProtocolMultipart, ProtocolDirect, ProtocolForm:
	default:
		return nil, fmt.Errorf("unknown TOPAZ_UPLOAD_PROTOCOL %q", cfg.UploadProtocol)
	}

	if cfg.UploadConcurrency < 1 {
		cfg.UploadConcurrency = 1
	}

	if raw := os.Getenv("CORS_ALLOWED_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
			}
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
