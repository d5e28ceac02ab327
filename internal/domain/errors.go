package domain

import "errors"

var (
	ErrNoFile           = errors.New("no file provided")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrProbeFailure     = errors.New("media probe failed")
	ErrNoJobID          = errors.New("remote did not return a job id")
	ErrNotReady         = errors.New("result not ready")
	ErrJobFailed        = errors.New("remote processing failed")
)
