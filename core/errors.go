package core

import (
	"errors"
	"fmt"
	"strings"
)

const (
	KindValidation ErrorKind = "validation"
	KindGeneration ErrorKind = "generation"
	KindAuth       ErrorKind = "auth"
	KindTransport  ErrorKind = "transport"
)

// AuthFailureSignature is the message fragment the generation service returns when the
// selected credential is invalid. Matching on message text is brittle but it is the only
// signal the service exposes.
const AuthFailureSignature = "Requested entity was not found."

var ErrNotFound = errors.New("not found")

type (
	ErrorKind string

	// Error is a classified failure surfaced to the user as an inline message.
	Error struct {
		Kind    ErrorKind `json:"kind"`
		Message string    `json:"message"`
		Err     error     `json:"-"`
	}
)

func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Generation(msg string) *Error {
	return &Error{Kind: KindGeneration, Message: msg}
}

func Auth(msg string, err error) *Error {
	return &Error{Kind: KindAuth, Message: msg, Err: err}
}

func Transport(err error) *Error {
	msg := "An unknown error occurred."
	if err != nil {
		msg = err.Error()
	}
	return &Error{Kind: KindTransport, Message: msg, Err: err}
}

// Classify returns err itself when it is already classified, and a transport failure
// otherwise.
func Classify(err error) *Error {
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}
	return Transport(err)
}

// ClassifySubmit converts a submission failure into an auth failure when the error text
// carries AuthFailureSignature, and classifies it like Classify otherwise.
func ClassifySubmit(err error) *Error {
	if err != nil && strings.Contains(err.Error(), AuthFailureSignature) {
		return Auth("API Key error. Please select your key again.", err)
	}
	return Classify(err)
}

// KindOf returns the classification of err, or "" if err is not a classified error.
func KindOf(err error) ErrorKind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return ""
}
