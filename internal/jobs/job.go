package jobs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a dubbing job.
type Status string

const (
	StatusQueued   Status = "queued"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// IsTerminal reports whether no further mutation of the job will occur.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusError
}

// Stage is the informational sub-state reported while a job runs.
type Stage string

const (
	StageQueued     Stage = "queued"
	StageInit       Stage = "init"
	StageDownload   Stage = "download"
	StageTranscribe Stage = "transcribe"
	StageChunk      Stage = "chunk"
	StageTranslate  Stage = "translate"
	StageTTS        Stage = "tts"
	StageRender     Stage = "render"
	StageDone       Stage = "done"
)

// stageOrder defines the only legal forward progression.
var stageOrder = []Stage{
	StageQueued,
	StageInit,
	StageDownload,
	StageTranscribe,
	StageChunk,
	StageTranslate,
	StageTTS,
	StageRender,
	StageDone,
}

func stageIndex(s Stage) int {
	for i, candidate := range stageOrder {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Stages returns the ordered list of pipeline stages.
func Stages() []Stage {
	cp := make([]Stage, len(stageOrder))
	copy(cp, stageOrder)
	return cp
}

// Params are the immutable request parameters captured at job creation.
type Params struct {
	URL      string `json:"url"`
	Lang     string `json:"lang"`
	Gender   string `json:"gender"`
	GPU      bool   `json:"gpu"`
	Subtitle bool   `json:"subtitle"`
}

// Gender values accepted for synthesis voice selection.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// ValidGender reports whether the value names a supported voice gender.
func ValidGender(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case GenderMale, GenderFemale:
		return true
	}
	return false
}

// Job is one dubbing request and its observable progress.
type Job struct {
	ID         string    `json:"job_id"`
	Status     Status    `json:"status"`
	Stage      Stage     `json:"stage"`
	Progress   int       `json:"progress"`
	Message    string    `json:"message"`
	Error      string    `json:"error,omitempty"`
	OutputFile string    `json:"output_file,omitempty"`
	Device     string    `json:"device,omitempty"`
	URL        string    `json:"url"`
	Lang       string    `json:"lang"`
	Gender     string    `json:"gender"`
	GPU        bool      `json:"gpu"`
	Subtitle   bool      `json:"subtitle"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SetProgress updates stage, progress, and message together. Use this instead
// of touching the fields individually so snapshots stay coherent.
func (j *Job) SetProgress(stage Stage, progress int, message string) {
	j.Stage = stage
	j.Progress = progress
	j.Message = message
}

// Fail marks the job failed with the given error message.
func (j *Job) Fail(message string) {
	j.Status = StatusError
	j.Error = message
	j.Message = message
}

// Complete marks the job done with the final artifact path.
func (j *Job) Complete(outputFile, message string) {
	j.Status = StatusComplete
	j.Stage = StageDone
	j.Progress = 100
	j.OutputFile = outputFile
	j.Message = message
}
