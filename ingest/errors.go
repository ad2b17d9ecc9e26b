package ingest

import (
	"errors"
	"fmt"

	"gentoostats/orm"
)

// Sentinel causes for the PROTOCOL field checks.
var (
	errNoProtocol     = errors.New("no protocol specified")
	errProtocolNotInt = errors.New("protocol is not an integer")
)

// RejectError terminates a submission with a client-facing reason. Any
// other error type reaching the boundary is internal and must be
// reported to the client only as a generic failure.
type RejectError struct {
	Reason string
	Err    error
}

func (e *RejectError) Error() string {
	return e.Reason
}

func (e *RejectError) Unwrap() error {
	return e.Err
}

func reject(err error, format string, args ...any) *RejectError {
	return &RejectError{Reason: fmt.Sprintf(format, args...), Err: err}
}

// asReject maps entity validation failures to the generic client-facing
// validation message. Anything else passes through untouched and will
// surface as an internal error.
func asReject(err error) error {
	var verr *orm.ValidationError
	if errors.As(err, &verr) {
		return reject(err, "Error: '%s' failed validation.", verr.Value)
	}

	return err
}
