// SPDX-License-Identifier: EPL-2.0

package recorder

// Status is the coordinator's busy flag.
type Status int32

const (
	StatusIdle Status = iota
	StatusRecording
	StatusProcessing
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRecording:
		return "recording"
	case StatusProcessing:
		return "processing"
	default:
		return "unknown"
	}
}
