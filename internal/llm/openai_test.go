package llm

import (
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestBuildOpenAIMessagesTextOnly(t *testing.T) {
	msgs := buildOpenAIMessages(Request{
		System: "be helpful",
		Parts:  []Part{TextPart("first"), TextPart("second")},
	})
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != openai.ChatMessageRoleSystem || msgs[0].Content != "be helpful" {
		t.Errorf("unexpected system message: %+v", msgs[0])
	}
	if msgs[1].Content != "first\n\nsecond" {
		t.Errorf("user content = %q", msgs[1].Content)
	}
	if msgs[1].MultiContent != nil {
		t.Error("text-only request should not use multi-content")
	}
}

func TestBuildOpenAIMessagesWithImage(t *testing.T) {
	msgs := buildOpenAIMessages(Request{
		Parts: []Part{
			TextPart("what is wrong?"),
			{MIMEType: "image/png", Data: []byte{0x89, 0x50}},
			{MIMEType: "application/pdf", Data: []byte("%PDF")},
		},
	})
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	parts := msgs[0].MultiContent
	if len(parts) != 2 {
		t.Fatalf("expected text and image parts, got %d", len(parts))
	}
	if parts[1].Type != openai.ChatMessagePartTypeImageURL {
		t.Errorf("second part type = %s", parts[1].Type)
	}
	if !strings.HasPrefix(parts[1].ImageURL.URL, "data:image/png;base64,") {
		t.Errorf("unexpected image url %q", parts[1].ImageURL.URL)
	}
}

func TestMapOpenAIError(t *testing.T) {
	err := mapOpenAIError(&openai.APIError{HTTPStatusCode: 429, Message: "slow down"})
	if _, ok := err.(*ErrRateLimit); !ok {
		t.Errorf("expected *ErrRateLimit, got %T", err)
	}
	err = mapOpenAIError(&openai.APIError{HTTPStatusCode: 503})
	if _, ok := err.(*ErrProviderUnavailable); !ok {
		t.Errorf("expected *ErrProviderUnavailable, got %T", err)
	}
}
