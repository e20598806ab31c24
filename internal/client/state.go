package client

// State is the lifecycle position of a single request. Terminal states are
// Success, FailedNoRetry, RetriedSuccess and RetriedFailed.
type State int

const (
	StateInit State = iota
	StateSent
	StateSuccess
	StateFailedNoRetry
	StateFailedRefreshing
	StateRetriedSuccess
	StateRetriedFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateSent:
		return "SENT"
	case StateSuccess:
		return "SUCCESS"
	case StateFailedNoRetry:
		return "FAILED_NO_RETRY"
	case StateFailedRefreshing:
		return "FAILED_REFRESHING"
	case StateRetriedSuccess:
		return "RETRIED_SUCCESS"
	case StateRetriedFailed:
		return "RETRIED_FAILED"
	default:
		return "UNKNOWN"
	}
}

func (s State) Terminal() bool {
	switch s {
	case StateSuccess, StateFailedNoRetry, StateRetriedSuccess, StateRetriedFailed:
		return true
	default:
		return false
	}
}
