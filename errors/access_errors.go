// errors/access_errors.go
package errors

import "errors"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrRequestNotFound  = errors.New("access request not found")
	ErrRequestPending   = errors.New("a pending request already exists for this document")
	ErrRequestDecided   = errors.New("access request already decided")
	ErrAccessDenied     = errors.New("access denied")
)
