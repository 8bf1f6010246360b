package worksheet

import (
	"fmt"
	"strings"

	"github.com/pavelanni/mathpro/internal/grading"
	"github.com/pavelanni/mathpro/internal/model"
)

// Verdict is the grading outcome of one question.
type Verdict int

const (
	VerdictUngraded Verdict = iota
	VerdictCorrect
	VerdictWrong
)

func (v Verdict) String() string {
	switch v {
	case VerdictCorrect:
		return "correct"
	case VerdictWrong:
		return "wrong"
	}
	return "ungraded"
}

// MarshalText encodes the verdict by name.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText decodes a verdict name.
func (v *Verdict) UnmarshalText(text []byte) error {
	switch string(text) {
	case "ungraded":
		*v = VerdictUngraded
	case "correct":
		*v = VerdictCorrect
	case "wrong":
		*v = VerdictWrong
	default:
		return fmt.Errorf("unknown verdict %q", text)
	}
	return nil
}

// SubmissionPolicy says when an answer is graded.
type SubmissionPolicy int

const (
	// PolicyImmediate grades on selection.
	PolicyImmediate SubmissionPolicy = iota
	// PolicyConfirm keeps a draft until the learner confirms it.
	PolicyConfirm
)

func (p SubmissionPolicy) String() string {
	if p == PolicyConfirm {
		return "confirm"
	}
	return "immediate"
}

// MarshalText encodes the policy by name.
func (p SubmissionPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a policy name.
func (p *SubmissionPolicy) UnmarshalText(text []byte) error {
	switch string(text) {
	case "immediate":
		*p = PolicyImmediate
	case "confirm":
		*p = PolicyConfirm
	default:
		return fmt.Errorf("unknown submission policy %q", text)
	}
	return nil
}

// PolicyFor returns the submission policy for a question type.
func PolicyFor(t model.QuestionType) SubmissionPolicy {
	if t.FreeText() {
		return PolicyConfirm
	}
	return PolicyImmediate
}

// PointsPerQuestion is 0.5 for worksheets of 20 or more questions, else 1.
func PointsPerQuestion(total int) float64 {
	if total >= 20 {
		return 0.5
	}
	return 1
}

// QuestionState is the per-question part of a session.
type QuestionState struct {
	Value     string  `json:"value,omitempty"`
	Submitted bool    `json:"submitted"`
	Draft     string  `json:"draft,omitempty"`
	Locked    bool    `json:"locked"`
	Verdict   Verdict `json:"verdict"`
}

// Snapshot summarizes a session.
type Snapshot struct {
	Total             int     `json:"total"`
	Answered          int     `json:"answered"`
	Correct           int     `json:"correct"`
	Wrong             int     `json:"wrong"`
	Score             float64 `json:"score"`
	MaxScore          float64 `json:"max_score"`
	PointsPerQuestion float64 `json:"points_per_question"`
	Completed         bool    `json:"completed"`
}

// Session tracks one attempt at a structured worksheet. It is not safe for
// concurrent use; the Driver serializes access per view.
type Session struct {
	questions []model.Question
	index     map[model.QuestionID]int
	states    []QuestionState
	correct   int
	wrong     int
	matcher   *grading.Matcher
}

// NewSession starts a fresh attempt over questions.
func NewSession(questions []model.Question) *Session {
	s := &Session{
		questions: append([]model.Question(nil), questions...),
		index:     make(map[model.QuestionID]int, len(questions)),
		states:    make([]QuestionState, len(questions)),
		matcher:   grading.NewMatcher(),
	}
	for i, q := range s.questions {
		s.index[q.ID] = i
	}
	return s
}

// Questions returns the session's questions in order.
func (s *Session) Questions() []model.Question {
	return s.questions
}

// State returns the current state of one question.
func (s *Session) State(id model.QuestionID) (QuestionState, error) {
	i, ok := s.index[id]
	if !ok {
		return QuestionState{}, ErrUnknownQuestion
	}
	return s.states[i], nil
}

// Submit grades value for the question and locks it. Submitting to a locked
// question changes nothing and returns its existing state.
func (s *Session) Submit(id model.QuestionID, value string) (QuestionState, error) {
	i, ok := s.index[id]
	if !ok {
		return QuestionState{}, ErrUnknownQuestion
	}
	st := &s.states[i]
	if st.Locked {
		return *st, nil
	}

	q := s.questions[i]
	correct, _ := s.matcher.Match(value, q.CorrectAnswer, q.Type, q.Options)

	st.Value = value
	st.Submitted = true
	st.Draft = ""
	st.Locked = true
	if correct {
		st.Verdict = VerdictCorrect
		s.correct++
	} else {
		st.Verdict = VerdictWrong
		s.wrong++
	}
	return *st, nil
}

// Answer applies the question's submission policy: immediate questions are
// graded now, confirm questions only record a draft.
func (s *Session) Answer(id model.QuestionID, value string) (QuestionState, error) {
	i, ok := s.index[id]
	if !ok {
		return QuestionState{}, ErrUnknownQuestion
	}
	if PolicyFor(s.questions[i].Type) == PolicyImmediate {
		return s.Submit(id, value)
	}
	st := &s.states[i]
	if !st.Locked {
		st.Draft = value
	}
	return *st, nil
}

// Confirm grades the draft of a confirm-policy question. Immediate
// questions are left as they are.
func (s *Session) Confirm(id model.QuestionID) (QuestionState, error) {
	i, ok := s.index[id]
	if !ok {
		return QuestionState{}, ErrUnknownQuestion
	}
	st := s.states[i]
	if st.Locked || PolicyFor(s.questions[i].Type) == PolicyImmediate {
		return st, nil
	}
	if strings.TrimSpace(st.Draft) == "" {
		return st, ErrEmptyAnswer
	}
	return s.Submit(id, st.Draft)
}

// Reset discards every answer and aggregate.
func (s *Session) Reset() {
	s.states = make([]QuestionState, len(s.questions))
	s.correct = 0
	s.wrong = 0
}

// PointsPerQuestion returns the value of one correct answer.
func (s *Session) PointsPerQuestion() float64 {
	return PointsPerQuestion(len(s.questions))
}

// Score returns the points earned so far.
func (s *Session) Score() float64 {
	return float64(s.correct) * s.PointsPerQuestion()
}

// Snapshot returns the session aggregates.
func (s *Session) Snapshot() Snapshot {
	ppq := s.PointsPerQuestion()
	total := len(s.questions)
	answered := s.correct + s.wrong
	return Snapshot{
		Total:             total,
		Answered:          answered,
		Correct:           s.correct,
		Wrong:             s.wrong,
		Score:             s.Score(),
		MaxScore:          float64(total) * ppq,
		PointsPerQuestion: ppq,
		Completed:         total > 0 && answered == total,
	}
}
