package ledger

import "fmt"

// RegistrationError reports a failed asset registration. The upstream
// response body is carried verbatim so the caller can reconstruct the
// external failure.
type RegistrationError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *RegistrationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to register asset: %v", e.Err)
	}
	return fmt.Sprintf("failed to register asset: status %d: %s", e.StatusCode, e.Body)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// CommitError reports a failed event commit against an existing asset.
type CommitError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *CommitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to commit event: %v", e.Err)
	}
	return fmt.Sprintf("failed to commit event: status %d: %s", e.StatusCode, e.Body)
}

func (e *CommitError) Unwrap() error { return e.Err }

// HistoryFetchError reports a failed commit-history read.
type HistoryFetchError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *HistoryFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to fetch history: %v", e.Err)
	}
	return fmt.Sprintf("failed to fetch history: status %d: %s", e.StatusCode, e.Body)
}

func (e *HistoryFetchError) Unwrap() error { return e.Err }
