package caerrors

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// IException provides interface for
//   - user facing error message with status code
//   - raw error for tracking them
type IException interface {
	ExceptionBody() map[string]interface{}
	ExceptionStatusCode() int
	RawException() error
}

type Error struct {
	IException
	Code       int
	Message    string
	StatusCode int
	RawError   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v (Code = %v)", e.Message, e.Code)
}

func (e *Error) ExceptionBody() map[string]interface{} {
	return map[string]interface{}{"code": e.Code, "message": e.Message}
}

func (e *Error) ExceptionStatusCode() int {
	return e.StatusCode
}

func (e *Error) RawException() error {
	return e.RawError
}

// WithMsg modify user visible message
func (e Error) WithMsg(msg string) *Error {
	e.Message = msg
	return &e
}

// WithError returns raw error struct which is not exposed to user.
// It is used for internal error tracking.
func (e Error) WithError(err error) *Error {
	e.RawError = err
	return &e
}

func New(code int, message string, statusCode int) *Error {
	return &Error{Code: code, Message: message, StatusCode: statusCode}
}

func NewInternalServerError(code int, message string) *Error {
	return New(code, message, http.StatusInternalServerError)
}

func NewUnprocessableEntity(code int, message string) *Error {
	return New(code, message, http.StatusUnprocessableEntity)
}

func NewNotFound(code int, message string) *Error {
	return New(code, message, http.StatusNotFound)
}

func NewConflict(code int, message string) *Error {
	return New(code, message, http.StatusConflict)
}

func NewNotImplemented(code int, message string) *Error {
	return New(code, message, http.StatusNotImplemented)
}

func Format(err error) string {
	var errmsg string
	if caerr, ok := err.(IException); ok {
		if caerr.RawException() != nil {
			errmsg = fmt.Sprintf("%v : %v", err.Error(), caerr.RawException().Error())
		} else {
			errmsg = fmt.Sprintf("%v", err.Error())
		}
	} else {
		errmsg = fmt.Sprintf("%v", err.Error())
	}
	return errmsg
}

func hasCode(err error, code int) bool {
	return strings.Contains(err.Error(), strconv.Itoa(code))
}

func IsNotFound(err error) bool {
	return hasCode(err, NotFound.Code)
}

// IsConflict identifies lifecycle state errors (already applied,
// already reversed, cancelled). Callers may treat these as no-ops.
func IsConflict(err error) bool {
	return hasCode(err, Conflict.Code)
}

// IsNotSupported distinguishes "not yet implemented" action types
// from invalid input.
func IsNotSupported(err error) bool {
	return hasCode(err, NotSupported.Code)
}

func IsInvalidRequestParam(err error) bool {
	return hasCode(err, InvalidRequestParam.Code)
}

// code convention is http_status_code:custom_code where custom code starts from 10000
var (
	// 422
	InvalidRequestParam = NewUnprocessableEntity(42210000, "request parameters are invalid")

	// 404
	NotFound = NewNotFound(40410000, "resource not found")

	// 409
	Conflict = NewConflict(40910000, "resource conflict")

	// 501
	NotSupported = NewNotImplemented(50110000, "corporate action type is not supported")

	// 500
	InternalServerError = NewInternalServerError(50010000, "internal server error occurred")
)
