package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrIncompleteAssessment     = errors.New("incomplete assessment")
	ErrInvalidQuestionReference = errors.New("invalid question reference")
	ErrUnresolvedTie            = errors.New("unresolved tie")
	ErrInsufficientData         = errors.New("insufficient data")
	ErrSessionClosed            = errors.New("session closed")
	ErrAccessDenied             = errors.New("access denied")
	ErrNotFound                 = errors.New("not found")
	ErrInvalidTransition        = errors.New("invalid transition")
	ErrConcurrentModification   = errors.New("concurrent modification")
	ErrInvalidInput             = errors.New("invalid input")
)

// AssessmentError adds session context to one of the sentinel kinds above.
// errors.Is(err, ErrX) matches on Kind.
type AssessmentError struct {
	Kind      error
	SessionID string
	Stage     Stage
	Dimension Dimension
	Detail    string
}

func (e *AssessmentError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	} else {
		b.WriteString("assessment error")
	}
	if e.SessionID != "" {
		fmt.Fprintf(&b, " (session=%s", e.SessionID)
		if e.Stage != "" {
			fmt.Fprintf(&b, " stage=%s", e.Stage)
		}
		b.WriteString(")")
	} else if e.Stage != "" {
		fmt.Fprintf(&b, " (stage=%s)", e.Stage)
	}
	if e.Dimension != "" {
		fmt.Fprintf(&b, " dimension=%s", e.Dimension)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *AssessmentError) Unwrap() error { return e.Kind }

// WithSession fills in session context on an AssessmentError found in err's
// chain, or wraps a bare sentinel so the caller still gets the context.
func WithSession(err error, sessionID string, stage Stage) error {
	if err == nil {
		return nil
	}
	var ae *AssessmentError
	if errors.As(err, &ae) {
		if ae.SessionID == "" {
			ae.SessionID = sessionID
		}
		if ae.Stage == "" {
			ae.Stage = stage
		}
		return err
	}
	for _, kind := range []error{
		ErrIncompleteAssessment, ErrInvalidQuestionReference, ErrUnresolvedTie, ErrInsufficientData,
		ErrSessionClosed, ErrAccessDenied, ErrNotFound, ErrInvalidTransition, ErrConcurrentModification,
		ErrInvalidInput,
	} {
		if errors.Is(err, kind) {
			detail := strings.TrimPrefix(strings.TrimPrefix(err.Error(), kind.Error()), ": ")
			return &AssessmentError{Kind: kind, SessionID: sessionID, Stage: stage, Detail: detail}
		}
	}
	return err
}
