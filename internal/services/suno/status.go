package suno

import "strings"

// Status is the normalized lifecycle state of a generation job. Successful
// jobs progress linearly queued -> partial -> ready -> complete; Rejected
// and Failed are absorbing.
type Status string

const (
	// StatusQueued means the job is accepted but no output exists yet.
	StatusQueued Status = "queued"
	// StatusPartial means lyric/structure generation finished but no audio
	// is playable yet.
	StatusPartial Status = "partial"
	// StatusReady means at least one playable stream exists but the final
	// render is still in progress.
	StatusReady Status = "ready"
	// StatusComplete means all outputs are rendered and downloadable.
	StatusComplete Status = "complete"
	// StatusRejected is a permanent failure, typically a content policy
	// violation. Never retried.
	StatusRejected Status = "rejected"
	// StatusFailed is a transient-looking failure such as a server-side
	// render error. Re-polled within the same job before escalation.
	StatusFailed Status = "failed"
	// StatusUnknown is returned for wire values this client does not know.
	StatusUnknown Status = "unknown"
)

// Terminal reports whether no further transition can occur.
func (s Status) Terminal() bool {
	switch s {
	case StatusComplete, StatusRejected, StatusFailed:
		return true
	default:
		return false
	}
}

// parseWireStatus maps the service's status vocabulary onto the normalized
// lifecycle.
func parseWireStatus(value string) Status {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "PENDING":
		return StatusQueued
	case "TEXT_SUCCESS":
		return StatusPartial
	case "FIRST_SUCCESS":
		return StatusReady
	case "SUCCESS":
		return StatusComplete
	case "SENSITIVE_WORD_ERROR":
		return StatusRejected
	case "CREATE_TASK_FAILED", "GENERATE_AUDIO_FAILED", "CALLBACK_EXCEPTION":
		return StatusFailed
	default:
		return StatusUnknown
	}
}
