package grading

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/pavelanni/mathpro/internal/model"
)

// Answer is the input to a matching strategy. User and Correct are already
// normalized; Options keep the author's raw option texts.
type Answer struct {
	User    string
	Correct string
	Options []string
}

// Strategy is one named rule in a matcher's fallback chain.
type Strategy struct {
	Name  string
	Match func(a Answer) bool
}

// Strategy names, reported by Matcher.Match.
const (
	StrategyDirect  = "direct"
	StrategyPrefix  = "prefix"
	StrategyContent = "content"
	StrategySynonym = "synonym"
	StrategyExact   = "exact"
	StrategyNoMatch = ""
)

var (
	trueWords  = []string{"dung", "true", "t", "đúng"}
	falseWords = []string{"sai", "false", "f"}
)

// Matcher routes by question type to an ordered list of strategies. The
// first strategy that matches decides the answer is correct; falling through
// every strategy means wrong.
type Matcher struct {
	chains   map[model.QuestionType][]Strategy
	fallback []Strategy
}

// NewMatcher installs the built-in strategy chains.
func NewMatcher() *Matcher {
	exact := []Strategy{{Name: StrategyExact, Match: directMatch}}
	return &Matcher{
		chains: map[model.QuestionType][]Strategy{
			model.QuestionMultipleChoice: {
				{Name: StrategyDirect, Match: directMatch},
				{Name: StrategyPrefix, Match: prefixMatch},
				{Name: StrategyContent, Match: contentMatch},
			},
			model.QuestionTrueFalse: {
				{Name: StrategyDirect, Match: directMatch},
				{Name: StrategySynonym, Match: synonymMatch},
			},
			model.QuestionShortAnswer: exact,
			model.QuestionApplication: exact,
		},
		fallback: exact,
	}
}

// Chain returns the strategies applied to questions of type t, in order.
func (m *Matcher) Chain(t model.QuestionType) []Strategy {
	if chain, ok := m.chains[t]; ok {
		return chain
	}
	return m.fallback
}

// Match grades userValue against correctAnswer and returns the verdict
// together with the name of the strategy that accepted it.
func (m *Matcher) Match(userValue, correctAnswer string, t model.QuestionType, options []string) (bool, string) {
	a := Answer{
		User:    Normalize(userValue),
		Correct: Normalize(correctAnswer),
		Options: options,
	}
	if a.User == "" {
		return false, StrategyNoMatch
	}
	for _, s := range m.Chain(t) {
		if s.Match(a) {
			slog.Debug("answer matched", "type", t, "strategy", s.Name)
			return true, s.Name
		}
	}
	return false, StrategyNoMatch
}

var defaultMatcher = NewMatcher()

// IsCorrect reports whether userValue is a correct answer for a question of
// type t. It never panics; anything it cannot confirm is wrong.
func IsCorrect(userValue, correctAnswer string, t model.QuestionType, options []string) bool {
	ok, _ := defaultMatcher.Match(userValue, correctAnswer, t, options)
	return ok
}

func directMatch(a Answer) bool {
	return a.User == a.Correct
}

// prefixMatch accepts a letter label when the declared answer starts with
// it, e.g. "a" against "A. 50km".
func prefixMatch(a Answer) bool {
	if _, ok := letterIndex(a.User); !ok {
		return false
	}
	return strings.HasPrefix(a.Correct, a.User)
}

// contentMatch handles authors that stored the option text instead of its
// letter: the chosen option's text and the declared answer must contain one
// another.
func contentMatch(a Answer) bool {
	idx, ok := letterIndex(a.User)
	if !ok || idx >= len(a.Options) {
		return false
	}
	option := Normalize(a.Options[idx])
	if option == "" || a.Correct == "" {
		return false
	}
	return strings.Contains(option, a.Correct) || strings.Contains(a.Correct, option)
}

func synonymMatch(a Answer) bool {
	for _, class := range [][]string{trueWords, falseWords} {
		if slices.Contains(class, a.User) && slices.Contains(class, a.Correct) {
			return true
		}
	}
	return false
}

// letterIndex maps a single-letter label to its 0-based option index.
func letterIndex(s string) (int, bool) {
	if len(s) != 1 || s[0] < 'a' || s[0] > 'z' {
		return 0, false
	}
	return int(s[0] - 'a'), true
}
