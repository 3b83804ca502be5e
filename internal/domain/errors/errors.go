package errors

import (
	"net/http"

	"authgate/internal/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	RespCode() int     // Numeric envelope code written to head.code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
	Terminal() bool    // Whether backend fallback must stop on this error
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	respCode  int
	errorCode string
	message   string
	details   string
	terminal  bool
}

// NewBaseError creates a new base error
func NewBaseError(httpCode, respCode int, errorCode, message string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		respCode:  respCode,
		errorCode: errorCode,
		message:   message,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.details != "" {
		return e.message + ": " + e.details
	}

	return e.message
}

// Is matches any BaseError carrying the same business error code,
// so copies made by WithDetails still compare equal to the predefined value.
func (e *BaseError) Is(target error) bool {
	t, ok := target.(*BaseError)

	return ok && t.errorCode == e.errorCode
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// RespCode returns the envelope response code
func (e *BaseError) RespCode() int {
	return e.respCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// Terminal reports whether dispatch must abort on this error
func (e *BaseError) Terminal() bool {
	return e.terminal
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	clone := *e
	clone.details = details

	return &clone
}

func (e *BaseError) asTerminal() *BaseError {
	e.terminal = true

	return e
}

// Envelope codes. Success is not an error and is defined by the protocol package.
const (
	CodeUnknown         = -1
	CodeFailure         = -2
	CodeHeadMissing     = 100
	CodeVersion         = 110
	CodeVersionUpdate   = 111
	CodeChannelEmpty    = 120
	CodeChannelNotFound = 121
	CodeChannelDisabled = 122
	CodeTokenInvalid    = 140
	CodeTokenExpired    = 141
	CodeRefreshInvalid  = 142
	CodeTimeExpired     = 150
	CodeTimeInvalid     = 151
	CodeSignEmpty       = 160
	CodeSignature       = 161
	CodeAuthFailure     = 400
	CodeValidCode       = 401
	CodeAccountBlank    = 410
	CodeAccountNotFound = 411
	CodeAccountDisabled = 412
	CodePasswordBlank   = 420
	CodePasswordWrong   = 421
	CodeServer          = 500
	CodeProtocolVerify  = 501
)

// Predefined error types
var (
	ErrUnknown = NewBaseError(http.StatusInternalServerError, CodeUnknown, "UNKNOWN", "未知錯誤")
	ErrFailure = NewBaseError(http.StatusBadRequest, CodeFailure, "FAILURE", "操作失敗")

	// Envelope verification errors
	ErrHeadMissing     = NewBaseError(http.StatusBadRequest, CodeHeadMissing, "HEAD_MISSING", "請求標頭不得為空")
	ErrVersion         = NewBaseError(http.StatusBadRequest, CodeVersion, "VERSION_INVALID", "版本號錯誤")
	ErrVersionUpdate   = NewBaseError(http.StatusBadRequest, CodeVersionUpdate, "VERSION_UPDATE_REQUIRED", "請更新至最新版本")
	ErrChannelEmpty    = NewBaseError(http.StatusBadRequest, CodeChannelEmpty, "CHANNEL_EMPTY", "渠道不得為空")
	ErrChannelNotFound = NewBaseError(http.StatusBadRequest, CodeChannelNotFound, "CHANNEL_NOT_FOUND", "渠道不存在")
	ErrChannelDisabled = NewBaseError(http.StatusForbidden, CodeChannelDisabled, "CHANNEL_DISABLED", "渠道已停用")
	ErrTimeExpired     = NewBaseError(http.StatusBadRequest, CodeTimeExpired, "TIME_EXPIRED", "請求已逾時")
	ErrTimeInvalid     = NewBaseError(http.StatusBadRequest, CodeTimeInvalid, "TIME_INVALID", "請求時間錯誤")
	ErrSignEmpty       = NewBaseError(http.StatusBadRequest, CodeSignEmpty, "SIGN_EMPTY", "簽章不得為空")
	ErrSignature       = NewBaseError(http.StatusBadRequest, CodeSignature, "SIGN_MISMATCH", "簽章驗證失敗")
	ErrProtocolVerify  = NewBaseError(http.StatusBadRequest, CodeProtocolVerify, "PROTOCOL_VERIFY", "協定驗證失敗")

	// Token lifecycle errors abort backend fallback
	ErrTokenInvalid        = NewBaseError(http.StatusUnauthorized, CodeTokenInvalid, "TOKEN_INVALID", "無效的權杖").asTerminal()
	ErrTokenExpired        = NewBaseError(http.StatusUnauthorized, CodeTokenExpired, "TOKEN_EXPIRED", "權杖已過期").asTerminal()
	ErrRefreshTokenInvalid = NewBaseError(http.StatusUnauthorized, CodeRefreshInvalid, "REFRESH_TOKEN_INVALID", "無效的重新整理權杖").asTerminal()

	// Authentication errors
	ErrAuthFailure          = NewBaseError(http.StatusUnauthorized, CodeAuthFailure, "AUTH_FAILURE", "認證失敗")
	ErrValidCode            = NewBaseError(http.StatusUnauthorized, CodeValidCode, "VALID_CODE_INVALID", "驗證碼錯誤")
	ErrAccountBlank         = NewBaseError(http.StatusBadRequest, CodeAccountBlank, "ACCOUNT_BLANK", "帳號不得為空")
	ErrAccountNotFound      = NewBaseError(http.StatusUnauthorized, CodeAccountNotFound, "ACCOUNT_NOT_FOUND", "帳號不存在")
	ErrAccountDisabled      = NewBaseError(http.StatusForbidden, CodeAccountDisabled, "ACCOUNT_DISABLED", "帳號已停用")
	ErrPasswordBlank        = NewBaseError(http.StatusBadRequest, CodePasswordBlank, "PASSWORD_BLANK", "密碼不得為空")
	ErrPasswordWrong        = NewBaseError(http.StatusUnauthorized, CodePasswordWrong, "PASSWORD_WRONG", "密碼錯誤")
	ErrPasswordHash         = NewBaseError(http.StatusInternalServerError, CodeServer, "PASSWORD_HASH_FAILED", "密碼處理錯誤")
	ErrBackendNotApplicable = NewBaseError(http.StatusUnauthorized, CodeAuthFailure, "BACKEND_NOT_APPLICABLE", "此認證方式不適用")
	ErrPermissionDenied     = NewBaseError(http.StatusForbidden, CodeAuthFailure, "PERMISSION_DENIED", "無權限操作其他使用者")

	// Configuration and infrastructure errors
	ErrNoBackends       = NewBaseError(http.StatusInternalServerError, CodeServer, "NO_AUTH_BACKENDS", "渠道未設定認證方式")
	ErrLockUnavailable  = NewBaseError(http.StatusServiceUnavailable, CodeServer, "LOCK_UNAVAILABLE", "系統忙碌中，請稍後再試")
	ErrValidationFailed = NewBaseError(http.StatusBadRequest, CodeFailure, "VALIDATION_FAILED", "輸入資料驗證失敗")
	ErrInternalError    = NewBaseError(http.StatusInternalServerError, CodeServer, "INTERNAL_ERROR", "系統內部錯誤")
)

// DatabaseExecuteError represents a database execution error, implementing the AppError interface
type DatabaseExecuteError struct {
	err     error
	details string
}

// NewDatabaseExecuteError creates a database-related error
func NewDatabaseExecuteError(err error, details string) AppError {
	return &DatabaseExecuteError{
		err:     err,
		details: details,
	}
}

// Error implements the error interface
func (e *DatabaseExecuteError) Error() string {
	return errors.Wrap(e.err, "database execution failed").Error()
}

// Unwrap exposes the driver error
func (e *DatabaseExecuteError) Unwrap() error {
	return e.err
}

// HTTPCode returns the HTTP status code
func (e *DatabaseExecuteError) HTTPCode() int {
	return http.StatusInternalServerError
}

// ErrorCode returns the business error code
func (e *DatabaseExecuteError) ErrorCode() string {
	return "DATABASE_EXECUTE_FAILED"
}

// RespCode returns the envelope response code
func (e *DatabaseExecuteError) RespCode() int {
	return CodeServer
}

// Message returns the user-friendly error message
func (e *DatabaseExecuteError) Message() string {
	return "資料庫執行失敗"
}

// Details returns detailed error information
func (e *DatabaseExecuteError) Details() string {
	return e.details
}

// Terminal reports whether dispatch must abort on this error
func (e *DatabaseExecuteError) Terminal() bool {
	return false
}

// AsAppError returns the first AppError in err's chain.
func AsAppError(err error) (AppError, bool) {
	return errors.AsType[AppError](err)
}

// IsTerminal reports whether err carries an AppError that aborts backend fallback.
func IsTerminal(err error) bool {
	appErr, ok := AsAppError(err)

	return ok && appErr.Terminal()
}

// Resolve maps any error to the AppError rendered to clients.
// Errors outside the domain table become ErrInternalError.
func Resolve(err error) AppError {
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}

	return ErrInternalError
}
