package domain

import "fmt"

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// MalformedLocatorError indicates a contentURI that is not a well-formed
// content-addressed locator.
type MalformedLocatorError struct {
	Locator string
}

func (e MalformedLocatorError) Error() string {
	return fmt.Sprintf("malformed locator: %s", e.Locator)
}

func (e MalformedLocatorError) Is(target error) bool {
	_, ok := target.(MalformedLocatorError)
	if ok {
		return true
	}
	_, ok = target.(*MalformedLocatorError)
	return ok
}

var ErrMalformedLocator = MalformedLocatorError{}

// StoreUnavailableError indicates a transport-level failure reaching the
// content-addressed store.
type StoreUnavailableError struct {
	Op     string
	Detail string
}

func (e StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %s", e.Op, e.Detail)
}

func (e StoreUnavailableError) Is(target error) bool {
	_, ok := target.(StoreUnavailableError)
	if ok {
		return true
	}
	_, ok = target.(*StoreUnavailableError)
	return ok
}

var ErrStoreUnavailable = StoreUnavailableError{}

// StoreRejectedError carries the provider's own error text for a
// non-success pin response. The text is preserved verbatim.
type StoreRejectedError struct {
	Status int
	Detail string
}

func (e StoreRejectedError) Error() string {
	return fmt.Sprintf("store rejected request (%d): %s", e.Status, e.Detail)
}

func (e StoreRejectedError) Is(target error) bool {
	_, ok := target.(StoreRejectedError)
	if ok {
		return true
	}
	_, ok = target.(*StoreRejectedError)
	return ok
}

var ErrStoreRejected = StoreRejectedError{}

// FetchError indicates a non-success gateway response while retrieving
// committed content. Snippet holds up to the first 200 bytes of the body.
type FetchError struct {
	Status  int
	Snippet string
}

func (e FetchError) Error() string {
	return fmt.Sprintf("gateway %d: %s", e.Status, e.Snippet)
}

func (e FetchError) Is(target error) bool {
	_, ok := target.(FetchError)
	if ok {
		return true
	}
	_, ok = target.(*FetchError)
	return ok
}

var ErrFetchFailed = FetchError{}

// HashMismatchError carries both digests so the failure detail itself is
// the audit trail.
type HashMismatchError struct {
	Expected string
	Actual   string
}

func (e HashMismatchError) Error() string {
	return fmt.Sprintf("hash mismatch: on-chain=%s vs fetched=%s", e.Expected, e.Actual)
}

func (e HashMismatchError) Is(target error) bool {
	_, ok := target.(HashMismatchError)
	if ok {
		return true
	}
	_, ok = target.(*HashMismatchError)
	return ok
}

var ErrHashMismatch = HashMismatchError{}

// AlreadyFinalizedError indicates a transition attempted on a record that
// already reached a terminal state.
type AlreadyFinalizedError struct {
	ID     uint64
	Status string
}

func (e AlreadyFinalizedError) Error() string {
	return fmt.Sprintf("request %d is already finalized (%s)", e.ID, e.Status)
}

func (e AlreadyFinalizedError) Is(target error) bool {
	_, ok := target.(AlreadyFinalizedError)
	if ok {
		return true
	}
	_, ok = target.(*AlreadyFinalizedError)
	return ok
}

var ErrAlreadyFinalized = AlreadyFinalizedError{}

// AuthorizationError surfaces a ledger-side authorization revert, distinct
// from a verification failure.
type AuthorizationError struct {
	Detail string
}

func (e AuthorizationError) Error() string {
	return fmt.Sprintf("ledger denied authorization: %s", e.Detail)
}

func (e AuthorizationError) Is(target error) bool {
	_, ok := target.(AuthorizationError)
	if ok {
		return true
	}
	_, ok = target.(*AuthorizationError)
	return ok
}

var ErrAuthorizationDenied = AuthorizationError{}

// UnverifiedContentError refuses a confirm transition whose content did not
// verify. Reason is the full verification detail.
type UnverifiedContentError struct {
	Reason string
}

func (e UnverifiedContentError) Error() string {
	return fmt.Sprintf("content verification failed: %s", e.Reason)
}

func (e UnverifiedContentError) Is(target error) bool {
	_, ok := target.(UnverifiedContentError)
	if ok {
		return true
	}
	_, ok = target.(*UnverifiedContentError)
	return ok
}

var ErrUnverifiedContent = UnverifiedContentError{}
