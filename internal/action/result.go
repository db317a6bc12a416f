package action

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Result is the {success, error?} shape every mutating action returns. It
// doubles as the JSON envelope written by the HTTP handlers.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// OK builds a successful result.
func OK(data any) Result {
	return Result{Success: true, Data: data}
}

// Fail translates err into a failed result.
func Fail(err error) Result {
	return Result{Success: false, Error: Message(err), Code: Code(err)}
}

// Status maps the result to an HTTP status code.
func (r Result) Status() int {
	if r.Success {
		return http.StatusOK
	}
	switch r.Code {
	case "UNAUTHORIZED":
		return http.StatusUnauthorized
	case "VALIDATION_ERROR":
		return http.StatusBadRequest
	case "NOT_FOUND":
		return http.StatusNotFound
	case "NOT_CONFIGURED":
		return http.StatusServiceUnavailable
	case "PARTIAL_FAILURE":
		return http.StatusMultiStatus
	default:
		return http.StatusInternalServerError
	}
}

// Run executes fn and converts its outcome, including a panic, into a
// Result. Nothing escapes to the caller.
func Run(logger *zap.Logger, name string, fn func() (any, error)) (res Result) {
	if logger == nil {
		logger = zap.NewNop()
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("action panicked", zap.String("action", name), zap.Any("panic", r))
			res = Fail(fmt.Errorf("%s: internal error", name))
		}
	}()
	data, err := fn()
	if err != nil {
		logger.Warn("action failed", zap.String("action", name), zap.String("code", Code(err)), zap.Error(err))
		return Fail(err)
	}
	return OK(data)
}
