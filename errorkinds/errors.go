package errorkinds

import "errors"

// The different general error types.
var (
	ErrInvalidAddress = errors.New("invalid Bluetooth address")
	ErrInvalidAppID   = errors.New("invalid application ID")

	ErrAdmissionRejected = errors.New("controller rejected accept list admission")
	ErrNotRegistered     = errors.New("no such connection interest")
	ErrAlreadyConnecting = errors.New("direct connection already in progress")
	ErrFixedChannel      = errors.New("fixed channel connection failed")

	ErrLoopStopped = errors.New("main loop is not running")

	ErrScenarioParse = errors.New("error parsing scenario")
	ErrUnknownStep   = errors.New("unknown scenario operation")
	ErrUnexpected    = errors.New("scenario step did not behave as expected")
)

// GenericError represents a standard error message.
type GenericError struct {
	// Errors stores all associated errors.
	Errors error `json:"errors,omitempty"`
}

// Error returns the formatted error as string.
func (e GenericError) Error() string {
	return e.Errors.Error()
}

// Unwrap unwraps all errors associated with this error.
func (e GenericError) Unwrap() error {
	return e.Errors
}
