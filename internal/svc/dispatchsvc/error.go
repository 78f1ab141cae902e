package dispatchsvc

import (
	"fmt"
	"strings"
)

// ValidationIssue points to one invalid field of one recipient.
type ValidationIssue struct {
	Index   int
	Field   string
	Message string
}

// ValidationError rejects the input as a whole, before anything is sent.
type ValidationError struct {
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("recipient #%d %s: %s", issue.Index, issue.Field, issue.Message))
	}

	return "validation error: " + strings.Join(parts, "; ")
}

// NotFoundError no document matches the given identifiers.
type NotFoundError struct {
	PAN  string
	PAN1 string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("No PDFs found for PAN: %s or PAN1: %s", e.PAN, e.PAN1)
}

// UnexpectedError is a runtime fault which is not a negative answer from mail server, i.e: filesystem error.
type UnexpectedError struct {
	Err error
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected error: %s", e.Err)
}

func (e *UnexpectedError) Unwrap() error {
	return e.Err
}
