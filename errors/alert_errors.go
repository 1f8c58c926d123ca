// errors/alert_errors.go
package errors

import "errors"

var (
	ErrAlertNotFound      = errors.New("alert not found")
	ErrAlertAlreadyClosed = errors.New("alert already closed")
	ErrClassifierFailure  = errors.New("risk classifier failure")
)
