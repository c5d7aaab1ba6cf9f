package event

import "errors"

// ErrUnknownKind is returned by Build for event types outside the closed set
// of six lifecycle kinds.
var ErrUnknownKind = errors.New("unrecognized event type")
