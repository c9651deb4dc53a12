package envi

import (
	"errors"
	"fmt"
)

// AuthError reports bad credentials or an authorization rejection that
// survived the single automatic re-authentication. The client never retries
// it; the account needs to be re-authenticated by the caller.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("envi: authentication failed: %s: %v", e.Reason, e.Err)
	}
	return "envi: authentication failed: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

// APIError reports a request the vendor API rejected or that exhausted its
// retries. Permanent marks 400-class rejections (bad payload, field not
// allowed on write) that must not be retried with the same payload.
type APIError struct {
	HTTPStatus int
	Msg        string
	MsgCode    string
	Permanent  bool
	Err        error
}

func (e *APIError) Error() string {
	s := "envi: api error"
	if e.HTTPStatus != 0 {
		s = fmt.Sprintf("%s (HTTP %d)", s, e.HTTPStatus)
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.MsgCode != "" {
		s += " (code: " + e.MsgCode + ")"
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *APIError) Unwrap() error { return e.Err }

// DeviceError wraps a failure scoped to a single device so batch callers can
// isolate it from its siblings.
type DeviceError struct {
	DeviceID string
	Err      error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("envi: device %s: %v", e.DeviceID, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// IsAuthError reports whether err is, or wraps, an authentication failure.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsPermanent reports whether err is a request rejection that must not be
// retried with the same payload.
func IsPermanent(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Permanent
}
