package log

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Codes of the fatal conditions of the one-sided engine.
const (
	CodeTransportRejected = "ERR_TRANSPORT_REJECTED"
	CodeUnexpectedEvent   = "ERR_UNEXPECTED_EVENT"
	CodeRemoteFailure     = "ERR_REMOTE_FAILURE"
	CodeNotSymmetric      = "ERR_NOT_SYMMETRIC"
	CodeTransportWait     = "ERR_TRANSPORT_WAIT"
)

// Fatal conditions. None of them can be recovered from without risking silent corruption of
// remote memory, so the engine terminates the process when it meets one.
var (
	ErrTransportRejected = newFatalError(CodeTransportRejected, "transport rejected %s: %v")
	ErrUnexpectedEvent   = newFatalError(CodeUnexpectedEvent, "expected %s event, received %s")
	ErrRemoteFailure     = newFatalError(CodeRemoteFailure, "%s failed at the target: %v")
	ErrNotSymmetric      = newFatalError(CodeNotSymmetric, "%s: %v")
	ErrTransportWait     = newFatalError(CodeTransportWait, "waiting for %s: %v")
)

// FatalError describes a condition the engine aborts on.
type FatalError struct {
	Code string
	Text string
	Args []any
}

func newFatalError(code, text string) func(args ...any) *FatalError {
	return func(args ...any) *FatalError {
		return &FatalError{
			Code: code,
			Text: text,
			Args: args,
		}
	}
}

func (fe *FatalError) Error() string {
	return fmt.Sprintf(fe.Text, fe.Args...)
}

// Unwrap returns the errors among the arguments.
func (fe *FatalError) Unwrap() []error {
	var errs []error
	for _, arg := range fe.Args {
		if err, ok := arg.(error); ok {
			errs = append(errs, err)
		}
	}
	return errs
}

// Field returns fe as a structured log field.
func (fe *FatalError) Field() zap.Field {
	return zap.Object("fatal", fe)
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (fe *FatalError) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddString("code", fe.Code)
	encoder.AddString("error", fe.Error())
	if err := encoder.AddArray("args", arrayMarshaler(fe.Args)); err != nil {
		return fmt.Errorf("add array: %w", err)
	}
	return nil
}

type arrayMarshaler []any

func (args arrayMarshaler) MarshalLogArray(encoder zapcore.ArrayEncoder) error {
	for _, arg := range args {
		if err, ok := arg.(error); ok {
			arg = err.Error()
		}
		if err := encoder.AppendReflected(arg); err != nil {
			return fmt.Errorf("append reflected: %w", err)
		}
	}
	return nil
}

// FatalCode returns the code of the FatalError in the chain of err.
func FatalCode(err error) (string, bool) {
	var fe *FatalError
	if errors.As(err, &fe) {
		return fe.Code, true
	}
	return "", false
}
