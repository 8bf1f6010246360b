package worksheet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/mathpro/internal/llm"
	"github.com/pavelanni/mathpro/internal/model"
)

func newMockGenerator(t *testing.T, responses ...llm.MockResponse) (*Generator, *llm.MockProvider) {
	t.Helper()
	mock := llm.NewMockProvider(responses...)
	author, err := llm.NewAuthor(mock)
	require.NoError(t, err)
	return NewGenerator(author, time.Second), mock
}

func TestGeneratorSuccess(t *testing.T) {
	gen, mock := newMockGenerator(t, llm.MockResponse{Text: "```json\n" + validWorksheet + "\n```"})

	content, err := gen.Generate(context.Background(), llm.WorksheetRequest{
		LessonName: "Số thập phân",
		Grade:      "6",
		Category:   model.CategoryPractice,
	})
	require.NoError(t, err)
	assert.Len(t, content.Questions, 3)
	assert.Equal(t, 1, mock.CallCount())
}

func TestGeneratorFillsLessonName(t *testing.T) {
	raw := `{"questions":[{"id":1,"type":"short_answer","question":"q","correctAnswer":"1"}]}`
	gen, _ := newMockGenerator(t, llm.MockResponse{Text: raw})

	content, err := gen.Generate(context.Background(), llm.WorksheetRequest{LessonName: " Góc ", Category: model.CategoryEssay})
	require.NoError(t, err)
	assert.Equal(t, "Góc", content.LessonName)
}

func TestGeneratorFailures(t *testing.T) {
	tests := []struct {
		name   string
		resp   llm.MockResponse
		reason FailureReason
	}{
		{"provider down", llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("503")}}, ReasonUnavailable},
		{"blocked", llm.MockResponse{Err: &llm.ErrBlocked{Reason: "SAFETY"}}, ReasonBlocked},
		{"deadline", llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: context.DeadlineExceeded}}, ReasonTimeout},
		{"invalid", llm.MockResponse{Err: &llm.ErrInvalidResponse{Err: errors.New("empty")}}, ReasonMalformed},
		{"garbage", llm.MockResponse{Text: "not json"}, ReasonMalformed},
		{"no questions", llm.MockResponse{Text: `{"lessonName":"x","questions":[]}`}, ReasonEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, mock := newMockGenerator(t, tt.resp)
			_, err := gen.Generate(context.Background(), llm.WorksheetRequest{Category: model.CategoryPractice})

			var genErr *GenerationError
			require.True(t, errors.As(err, &genErr), "want *GenerationError, got %T", err)
			assert.Equal(t, tt.reason, genErr.Reason)
			// Failures are not retried.
			assert.Equal(t, 1, mock.CallCount())
		})
	}
}
