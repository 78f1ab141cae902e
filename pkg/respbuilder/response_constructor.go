package respbuilder

import (
	"context"
)

func Error(ctx context.Context, reasonKind ErrKind, err error) HTTPError {
	trace := Extract(ctx)

	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}

	reason, ok := ReasonMap[reasonKind]
	if !ok {
		return HTTPError{
			Err: ErrorEntity{
				Code:    "XX",
				Message: "unknown error kind",
				Debug:   "", // don't show message if unknown type, to prevent security breach
				TraceID: trace.TraceID,
			},
		}
	}

	return HTTPError{
		Err: ErrorEntity{
			Code:    reason.Code,
			Message: reason.Message,
			Debug:   errMsg,
			TraceID: trace.TraceID,
		},
	}
}

func Success(ctx context.Context, data interface{}) HTTPSuccess {
	trace := Extract(ctx)

	return HTTPSuccess{
		TraceID: trace.TraceID,
		Data:    data,
	}
}

// Message returns flat message body without status field.
func Message(ctx context.Context, msg string) HTTPMessage {
	return HTTPMessage{
		Message: msg,
		TraceID: Extract(ctx).TraceID,
	}
}

// StatusMessage returns flat message body with boolean status, i.e: {"status": true, "message": "Email Sent"}.
func StatusMessage(ctx context.Context, status bool, msg string) HTTPMessage {
	return HTTPMessage{
		Status:  &status,
		Message: msg,
		TraceID: Extract(ctx).TraceID,
	}
}
