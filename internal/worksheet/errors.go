package worksheet

import (
	"errors"
	"fmt"
)

var (
	// ErrNoQuestions is reported when generated content has an empty question list.
	ErrNoQuestions = errors.New("worksheet has no questions")
	// ErrUnknownQuestion is returned for a question id not in the session.
	ErrUnknownQuestion = errors.New("unknown question")
	// ErrEmptyAnswer is returned when confirming a blank free-text answer.
	ErrEmptyAnswer = errors.New("answer is empty")
	// ErrUnknownView is returned for a view id that was closed, expired or never existed.
	ErrUnknownView = errors.New("unknown worksheet view")
	// ErrNotGraded is returned when a grading action targets a view without a session.
	ErrNotGraded = errors.New("view has no graded worksheet")
	// ErrAlreadySaved is returned when a view's worksheet was already saved.
	ErrAlreadySaved = errors.New("worksheet already saved")
	// ErrEmptyContent is returned when a library entry has neither questions nor a document.
	ErrEmptyContent = errors.New("worksheet content is empty")
)

// FailureReason classifies a GenerationError for user messaging.
type FailureReason string

const (
	ReasonUnavailable FailureReason = "unavailable"
	ReasonTimeout     FailureReason = "timeout"
	ReasonBlocked     FailureReason = "blocked"
	ReasonMalformed   FailureReason = "malformed"
	ReasonEmpty       FailureReason = "empty"
)

// GenerationError reports that a worksheet could not be produced. No partial
// worksheet accompanies it.
type GenerationError struct {
	Reason FailureReason
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generate worksheet (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("generate worksheet (%s)", e.Reason)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func malformed(format string, args ...any) *GenerationError {
	return &GenerationError{Reason: ReasonMalformed, Err: fmt.Errorf(format, args...)}
}
