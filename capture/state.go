// SPDX-License-Identifier: EPL-2.0

package capture

// State is the lifecycle stage of a Session.
type State int32

const (
	StateIdle State = iota
	StateRecording
	StateCancelled
	StateFailed
	StateFinalizing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	case StateFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// StopReason tells why the capture loop ended.
type StopReason int

const (
	StopCancelled StopReason = iota + 1
	StopLimit
	StopFault
)

func (r StopReason) String() string {
	switch r {
	case StopCancelled:
		return "cancelled"
	case StopLimit:
		return "limit"
	case StopFault:
		return "fault"
	default:
		return "unknown"
	}
}
