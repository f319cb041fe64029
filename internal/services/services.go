package services

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/desertthunder/vibe/internal/shared"
	"github.com/tidwall/gjson"
)

// UpstreamError is a non-2xx response from the Web API.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v: status %d", shared.ErrUpstreamAPI, e.Status)
	}
	return fmt.Sprintf("%v: status %d: %s", shared.ErrUpstreamAPI, e.Status, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return shared.ErrUpstreamAPI
}

// AuthError is a failed call to the accounts token endpoint.
type AuthError struct {
	// Description is the upstream error_description, safe to show to users.
	Description string
	err         error
}

func (e *AuthError) Error() string {
	return e.err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.err
}

// newUpstreamError reads the Web API error envelope, {"error": {"status": 401, "message": "..."}}.
//
// Some endpoints answer with the accounts-style {"error": "...", "error_description": "..."} instead.
func newUpstreamError(status int, body []byte) *UpstreamError {
	msg := ""
	if gjson.ValidBytes(body) {
		res := gjson.ParseBytes(body)
		switch {
		case res.Get("error.message").Exists():
			msg = res.Get("error.message").String()
		case res.Get("error_description").Exists():
			msg = res.Get("error_description").String()
		case res.Get("error").Type == gjson.String:
			msg = res.Get("error").String()
		}
	}
	return &UpstreamError{Status: status, Message: msg}
}

// classify maps transport failures to [shared.ErrUpstreamTimeout] or [shared.ErrUpstreamAPI].
func classify(err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %v", shared.ErrUpstreamTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: request failed: %v", shared.ErrUpstreamAPI, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// ErrorDescription extracts a user-facing description from an upstream failure, if one is available.
func ErrorDescription(err error) string {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Description
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Message
	}
	return ""
}
