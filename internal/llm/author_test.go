package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/mathpro/internal/model"
)

const sampleWorksheet = `{"lessonName":"Phân số","questions":[{"id":1,"type":"short_answer","level":"Vận dụng","question":"1/2 + 1/2 = ?","correctAnswer":"1","explanation":"..."}]}`

func TestGenerateWorksheet(t *testing.T) {
	mock := NewMockProvider(MockResponse{Text: sampleWorksheet})
	author, err := NewAuthor(mock)
	require.NoError(t, err)

	raw, err := author.GenerateWorksheet(context.Background(), WorksheetRequest{
		LessonName: "Phân số",
		Grade:      "6",
		Category:   model.CategoryPractice,
	})
	require.NoError(t, err)
	assert.Equal(t, sampleWorksheet, raw)

	call, ok := mock.LastCall()
	require.True(t, ok)
	assert.Same(t, WorksheetSchema, call.Schema)
	require.Len(t, call.Parts, 1)
	assert.Contains(t, call.Parts[0].Text, "Phân số")
	assert.Contains(t, call.Parts[0].Text, "lớp 6")
}

func TestGenerateWorksheetAttachments(t *testing.T) {
	tests := []struct {
		name       string
		mime       string
		data       []byte
		wantInline bool
		wantMIME   string
		wantText   string
	}{
		{"pdf inline", "application/pdf", []byte("%PDF-1.4"), true, "application/pdf", ""},
		{"image inline", "image/png", []byte{0x89, 0x50}, true, "image/png", ""},
		{"html as text", "text/html", []byte("<p>Câu 1</p>"), false, "", "<p>Câu 1</p>"},
		{"plain text", "text/plain", []byte("Câu 2"), false, "", "Câu 2"},
		{"unreadable text", "text/plain", []byte{0xff, 0xfe}, false, "", "không đọc được"},
		{"docx as pdf", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", []byte("PK"), true, "application/pdf", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(MockResponse{Text: sampleWorksheet})
			author, err := NewAuthor(mock)
			require.NoError(t, err)

			_, err = author.GenerateWorksheet(context.Background(), WorksheetRequest{
				LessonName: "Đề kiểm tra",
				Grade:      "7",
				Category:   model.CategoryPractice,
				Attachment: &Attachment{Name: "de.bin", MIMEType: tt.mime, Data: tt.data},
			})
			require.NoError(t, err)

			call, _ := mock.LastCall()
			require.Len(t, call.Parts, 2)
			first := call.Parts[0]
			assert.Equal(t, tt.wantInline, first.IsInline())
			if tt.wantInline {
				assert.Equal(t, tt.wantMIME, first.MIMEType)
			} else {
				assert.Contains(t, first.Text, tt.wantText)
			}
			assert.Contains(t, call.Parts[1].Text, "đính kèm")
		})
	}
}

func TestGenerateWorksheetProviderError(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrBlocked{Reason: "SAFETY"}})
	author, err := NewAuthor(mock)
	require.NoError(t, err)

	_, err = author.GenerateWorksheet(context.Background(), WorksheetRequest{Category: model.CategoryEssay})
	var blocked *ErrBlocked
	assert.True(t, errors.As(err, &blocked))
}

func TestAsk(t *testing.T) {
	mock := NewMockProvider(MockResponse{Text: "  Đáp số là $x = 2$.  "})
	author, err := NewAuthor(mock)
	require.NoError(t, err)

	answer, err := author.Ask(context.Background(), "Giải 2x = 4", &Attachment{Data: []byte{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, "Đáp số là $x = 2$.", answer)

	call, _ := mock.LastCall()
	require.Len(t, call.Parts, 2)
	assert.Equal(t, "image/jpeg", call.Parts[1].MIMEType)
	assert.Nil(t, call.Schema)
}

func TestAskEmptyAnswer(t *testing.T) {
	author, err := NewAuthor(NewMockProvider(MockResponse{Text: "   "}))
	require.NoError(t, err)

	_, err = author.Ask(context.Background(), "?", nil)
	var invalid *ErrInvalidResponse
	assert.True(t, errors.As(err, &invalid))
}

func TestMockProviderEmptyQueue(t *testing.T) {
	mock := NewMockProvider()
	_, err := mock.Generate(context.Background(), Request{})
	var unavailable *ErrProviderUnavailable
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, 1, mock.CallCount())
}

func TestMockProviderCanceled(t *testing.T) {
	mock := NewMockProvider(MockResponse{Text: "x"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := mock.Generate(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Provider: "mock"})
	require.NoError(t, err)
	assert.Equal(t, "mock", p.ModelID())

	_, err = NewProvider(context.Background(), Config{Provider: "openai"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	p, err = NewProvider(context.Background(), Config{Provider: "Ollama", OpenAI: OpenAIConfig{APIKey: "ollama", BaseURL: "http://localhost:11434/v1"}})
	require.NoError(t, err)
	assert.Equal(t, defaultOpenAIModel, p.ModelID())

	_, err = NewProvider(context.Background(), Config{Provider: "claude"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unknown AI provider"))
}
