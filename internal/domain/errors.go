package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures that cross the service/handler boundary.
type ErrorKind string

const (
	KindAuthRequired         ErrorKind = "auth_required"
	KindInvalidCredential    ErrorKind = "invalid_credential"
	KindExpiredCredential    ErrorKind = "expired_credential"
	KindPrincipalNotFound    ErrorKind = "principal_not_found"
	KindNotOwner             ErrorKind = "not_owner"
	KindResourceNotFound     ErrorKind = "resource_not_found"
	KindValidationFailed     ErrorKind = "validation_failed"
	KindConflict             ErrorKind = "conflict"
	KindWrongPassword        ErrorKind = "wrong_password"
	KindUpstreamMediaFailure ErrorKind = "upstream_media_failure"
	KindInternalFailure      ErrorKind = "internal_failure"
)

// Stable machine-readable codes sent to clients as {"message": code}.
const (
	CodeAccessTokenMissing    = "ACCESS_TOKEN_MISSING"
	CodeRefreshTokenMissing   = "REFRESH_TOKEN_MISSING"
	CodeInvalidAccessToken    = "INVALID_ACCESS_TOKEN"
	CodeInvalidRefreshToken   = "INVALID_REFRESH_TOKEN"
	CodeExpiredAccessToken    = "EXPIRED_ACCESS_TOKEN"
	CodeExpiredRefreshToken   = "EXPIRED_REFRESH_TOKEN"
	CodeAccessTokenUserAbsent = "ACCESS_TOKEN_USER_NOT_FOUND"
	CodeNotOwner              = "NOT_THE_OWNER"
	CodePostNotFound          = "POST_NOT_FOUND"
	CodeUserNotFound          = "USER_NOT_FOUND"
	CodeChannelNotFound       = "CHANNEL_NOT_FOUND"
	CodeMissingFields         = "MISSING_FIELDS"
	CodeInvalidPostID         = "POSTID_MISSING_OR_INVALID"
	CodeInvalidChannelID      = "CHANNELID_MISSING_OR_INVALID"
	CodeMissingAvatar         = "MISSING_AVATAR"
	CodeMissingCoverImage     = "MISSING_COVERIMAGE"
	CodeMissingPostImage      = "MISSING_POSTIMAGE"
	CodeWeakPassword          = "WEAK_PASSWORD"
	CodeUserExists            = "USER_ALREADY_EXISTS"
	CodeWrongCredentials      = "WRONG_CREDENTIALS"
	CodeMediaHostFailure      = "MEDIA_HOST_FAILURE"
	CodeInternal              = "INTERNAL_ERROR"
)

var defaultCodes = map[ErrorKind]string{
	KindAuthRequired:         CodeAccessTokenMissing,
	KindInvalidCredential:    CodeInvalidAccessToken,
	KindExpiredCredential:    CodeExpiredAccessToken,
	KindPrincipalNotFound:    CodeAccessTokenUserAbsent,
	KindNotOwner:             CodeNotOwner,
	KindResourceNotFound:     CodePostNotFound,
	KindValidationFailed:     CodeMissingFields,
	KindConflict:             CodeUserExists,
	KindWrongPassword:        CodeWrongCredentials,
	KindUpstreamMediaFailure: CodeMediaHostFailure,
	KindInternalFailure:      CodeInternal,
}

// ErrNotFound is returned by repositories when a document does not exist.
var ErrNotFound = errors.New("not found")

// Error is the explicit result carried by every expected failure.
type Error struct {
	Kind ErrorKind
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an Error of the given kind. An empty code falls back to the
// kind's default code.
func NewError(kind ErrorKind, code string, err error) *Error {
	if code == "" {
		code = defaultCodes[kind]
	}
	return &Error{Kind: kind, Code: code, Err: err}
}

func Internal(err error) *Error {
	return NewError(KindInternalFailure, "", err)
}

// AsError extracts a *Error from err. Any other error is reported as an
// internal failure.
func AsError(err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return Internal(err)
}

// KindOf returns the kind of err, or "" when err is nil.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	return AsError(err).Kind
}
