package hafas

import (
	"errors"
	"fmt"
)

// Semantic error codes, independent of the upstream's own codes.
const (
	CodeAccessDenied   = "ACCESS_DENIED"
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeNotFound       = "NOT_FOUND"
	CodeServerError    = "SERVER_ERROR"
)

var (
	// ErrValidation marks bad caller input, detected before any request is sent.
	ErrValidation = errors.New("invalid argument")
	// ErrUnsupported marks an operation the profile does not offer.
	ErrUnsupported = errors.New("operation not supported by profile")
	// ErrInvalidResponse marks a response that lacks the data the operation needs.
	ErrInvalidResponse = errors.New("invalid response")
)

// Error is a semantic failure reported by the upstream.
type Error struct {
	Code string
	// HafasCode is the upstream code, e.g. "H890".
	HafasCode    string
	Message      string
	IsHafasError bool
	// Retryable is set when the upstream hints the request may succeed later.
	Retryable bool
}

func (e *Error) Error() string {
	if e.HafasCode != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.HafasCode)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type errorInfo struct {
	code    string
	message string
}

var errorsByHafasCode = map[string]errorInfo{
	"H_UNKNOWN": {CodeServerError, "unknown internal error"},
	"AUTH":      {CodeAccessDenied, "invalid or missing authentication data"},
	"R0001":     {CodeInvalidRequest, "unknown method"},
	"R0002":     {CodeInvalidRequest, "invalid or missing request parameters"},
	"R0007":     {CodeServerError, "internal communication error"},
	"R5000":     {CodeAccessDenied, "access denied"},
	"S1":        {CodeServerError, "journeys search: a connection to the backend server couldn't be established"},
	"LOCATION":  {CodeInvalidRequest, "location/stop not found"},
	"H390":      {CodeInvalidRequest, "journeys search: departure/arrival station replaced"},
	"H410":      {CodeServerError, "journeys search: incomplete response due to timetable change"},
	"H455":      {CodeInvalidRequest, "journeys search: prolonged stop"},
	"H460":      {CodeInvalidRequest, "journeys search: stop(s) passed multiple times"},
	"H500":      {CodeInvalidRequest, "journeys search: too many trains, connection is not complete"},
	"H890":      {CodeNotFound, "journeys search unsuccessful"},
	"H891":      {CodeNotFound, "journeys search: no route found, try with an intermediate stations"},
	"H892":      {CodeInvalidRequest, "journeys search: query too complex, try less intermediate stations"},
	"H895":      {CodeInvalidRequest, "journeys search: departure & arrival are too near"},
	"H899":      {CodeServerError, "journeys search unsuccessful or incomplete due to timetable change"},
	"H900":      {CodeServerError, "journeys search unsuccessful or incomplete due to timetable change"},
	"H9220":     {CodeNotFound, "journeys search: no stations found close to the address"},
	"H9230":     {CodeServerError, "journeys search: an internal error occured"},
	"H9240":     {CodeNotFound, "journeys search unsuccessful"},
	"H9250":     {CodeServerError, "journeys search: leg query interrupted"},
	"H9260":     {CodeInvalidRequest, "journeys search: unknown departure station"},
	"H9280":     {CodeInvalidRequest, "journeys search: unknown intermediate station"},
	"H9300":     {CodeInvalidRequest, "journeys search: unknown arrival station"},
	"H9320":     {CodeInvalidRequest, "journeys search: the input is incorrect or incomplete"},
	"H9360":     {CodeInvalidRequest, "journeys search: error in a data field"},
	"H9380":     {CodeInvalidRequest, "journeys search: departure/arrival/intermediate station defined more than once"},
	"SQ001":     {CodeServerError, "no departures/arrivals data available"},
	"SQ005":     {CodeNotFound, "no trips found"},
	"TI001":     {CodeServerError, "no trip info available"},
}

// retryableCodes are upstream codes that indicate a transient failure.
var retryableCodes = map[string]bool{
	"H9250": true,
	"R0007": true,
	"S1":    true,
}

// NewError maps an upstream error code to a semantic Error. Unknown codes
// become SERVER_ERROR and keep the upstream text when there is one.
func NewError(hafasCode, text string) *Error {
	e := &Error{HafasCode: hafasCode, IsHafasError: true, Retryable: retryableCodes[hafasCode]}
	if info, ok := errorsByHafasCode[hafasCode]; ok {
		e.Code = info.code
		e.Message = info.message
	} else {
		e.Code = CodeServerError
		e.Message = "upstream error"
	}
	if text != "" {
		e.Message = text
	}
	return e
}

// NotFound builds a semantic NOT_FOUND error that did not come from the upstream.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// IsRetryable reports whether err carries the upstream's retry hint.
func IsRetryable(err error) bool {
	var he *Error
	return errors.As(err, &he) && he.Retryable
}
