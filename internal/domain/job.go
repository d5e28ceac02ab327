package domain

// JobKind enumerates supported enhancement job categories.
type JobKind string

const (
	KindImage JobKind = "image"
	KindVideo JobKind = "video"
)

// JobStatus enumerates upload job lifecycle states. Transitions are
// monotonic: a job never moves back to an earlier state.
type JobStatus string

const (
	StatusCreated    JobStatus = "created"
	StatusAccepted   JobStatus = "accepted"
	StatusUploading  JobStatus = "uploading"
	StatusUploaded   JobStatus = "completed-upload"
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusError      JobStatus = "error"
)

var statusRank = map[JobStatus]int{
	StatusCreated:    0,
	StatusAccepted:   1,
	StatusUploading:  2,
	StatusUploaded:   3,
	StatusQueued:     4,
	StatusProcessing: 5,
	StatusCompleted:  6,
	StatusFailed:     6,
	StatusError:      6,
}

// Terminal reports whether no further transitions are possible.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusError
}

// CanAdvance reports whether moving from s to next respects the
// monotonic lifecycle ordering.
func (s JobStatus) CanAdvance(next JobStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to >= from
}

// Part is one contiguous byte range of the source file, uploaded
// independently during multipart transfer. Numbers are 1-based.
type Part struct {
	Number int
	Offset int64
	Length int64
}

// End returns the inclusive end offset of the part.
func (p Part) End() int64 {
	return p.Offset + p.Length - 1
}

// PartResult is the acknowledgement for one uploaded part. ETag is an
// opaque token with surrounding quotes already stripped; it may be
// empty when the destination did not return one.
type PartResult struct {
	Number int    `json:"partNum"`
	ETag   string `json:"eTag"`
}

// UploadJob tracks one in-flight video enhancement request from
// submission through remote processing.
type UploadJob struct {
	ID          string
	Kind        JobKind
	Source      SourceMetadata
	Output      OutputSpec
	Plan        []Part
	Results     []PartResult
	Status      JobStatus
	DownloadURL string
}

// Advance moves the job to next if the transition is legal and reports
// whether the status changed.
func (j *UploadJob) Advance(next JobStatus) bool {
	if !j.Status.CanAdvance(next) {
		return false
	}
	j.Status = next
	return true
}
