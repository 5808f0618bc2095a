package plugins

import "fmt"

// State is the lifecycle of a Runtime. Transitions are monotonic.
type State int32

const (
	StateUninitialized State = iota
	StateLoading
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}
