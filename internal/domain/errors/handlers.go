package errors

// ErrorInfo contains detailed error information for logs and the optional debug payload
type ErrorInfo struct {
	Code      int    `json:"code"`              // Envelope response code
	ErrorCode string `json:"errorCode"`         // Business error code, e.g., "TOKEN_EXPIRED"
	Message   string `json:"message"`           // User-friendly error message
	Details   any    `json:"details,omitempty"` // Detailed error information (optional)
}

// NewErrorInfo builds an ErrorInfo from an AppError
func NewErrorInfo(err AppError) *ErrorInfo {
	info := &ErrorInfo{
		Code:      err.RespCode(),
		ErrorCode: err.ErrorCode(),
		Message:   err.Message(),
	}
	if details := err.Details(); details != "" {
		info.Details = details
	}

	return info
}
