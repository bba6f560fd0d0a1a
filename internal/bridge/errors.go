package bridge

import "fmt"

// ResolveError is returned when the callback endpoint cannot be built.
type ResolveError struct {
	Message string
}

func (e *ResolveError) Error() string {
	return e.Message
}

// CallbackError describes a failed callback delivery.
type CallbackError struct {
	URL        string
	StatusCode int // zero for transport failures
	Err        error
}

func (e *CallbackError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("callback %s returned status %d", e.URL, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("callback %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("callback %s failed", e.URL)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}
