package engine

import "fmt"

// AuthenticationError reports that the identity provider rejected the service
// credential or was unreachable. Fatal to the enclosing request, never retried.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// ConnectionError reports a failed session handshake with the remote engine.
type ConnectionError struct {
	Dataset string
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Dataset == "" {
		return fmt.Sprintf("open session: %v", e.Err)
	}
	return fmt.Sprintf("open session for dataset %q: %v", e.Dataset, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// QueryExecutionError carries the engine's diagnostic for a rejected or
// mid-stream-failed query. The message is surfaced to the caller as-is since
// it is expected to contain analytical-language errors meant for the end user.
type QueryExecutionError struct {
	Err error
}

func (e *QueryExecutionError) Error() string {
	return e.Err.Error()
}

func (e *QueryExecutionError) Unwrap() error {
	return e.Err
}
