package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/study-extract/internal/config"
	"github.com/sells-group/study-extract/internal/resilience"
	"github.com/sells-group/study-extract/pkg/anthropic"
)

type mockAnthropic struct {
	mock.Mock
}

func (m *mockAnthropic) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func writeDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "smith_2020.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o644))
	return path
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 10, OutputTokens: 5},
	}
}

func newTestAPIClient(mc anthropic.Client) *APIClient {
	c := NewAPIClient(mc, config.AnthropicConfig{Model: "claude-sonnet-4-5-20250929", MaxTokens: 1024}, 0, WithDocumentCheck(noCheck))
	c.retry.InitialBackoff = time.Millisecond
	c.retry.MaxBackoff = time.Millisecond
	return c
}

func TestAPIClient_Interact(t *testing.T) {
	doc := writeDoc(t)
	mc := new(mockAnthropic)
	mc.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return len(req.Messages) == 1 &&
			req.Messages[0].Content == "extract" &&
			len(req.Messages[0].Documents) == 1 &&
			string(req.Messages[0].Documents[0]) == "%PDF-1.4 fake" &&
			req.MaxTokens == 1024
	})).Return(textResponse("```json\n{\"Country\": \"Kenya\"}\n```"), nil)

	res, err := newTestAPIClient(mc).Interact(context.Background(), doc, "extract")
	require.NoError(t, err)
	assert.Equal(t, "smith_2020.pdf", res.SourceID)
	assert.Equal(t, "Kenya", res.Data["Country"])
	mc.AssertExpectations(t)
}

func TestAPIClient_RetriesTransient(t *testing.T) {
	doc := writeDoc(t)
	mc := new(mockAnthropic)
	mc.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, resilience.NewTransientError(errors.New("overloaded"), 529)).Once()
	mc.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(`{"status": "PASS", "discrepancies": []}`), nil).Once()

	res, err := newTestAPIClient(mc).Interact(context.Background(), doc, "verify")
	require.NoError(t, err)
	assert.Equal(t, "PASS", res.Data["status"])
	mc.AssertNumberOfCalls(t, "CreateMessage", 2)
}

func TestAPIClient_PermanentError(t *testing.T) {
	doc := writeDoc(t)
	mc := new(mockAnthropic)
	mc.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("invalid x-api-key"))

	_, err := newTestAPIClient(mc).Interact(context.Background(), doc, "verify")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindSessionFailed))
	mc.AssertNumberOfCalls(t, "CreateMessage", 1)
}

func TestAPIClient_MalformedReply(t *testing.T) {
	doc := writeDoc(t)
	mc := new(mockAnthropic)
	mc.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse("I cannot read this file."), nil)

	res, err := newTestAPIClient(mc).Interact(context.Background(), doc, "verify")
	assert.True(t, IsKind(err, KindNoJSONFound))
	assert.Equal(t, "I cannot read this file.", res.Raw)
}

func TestAPIClient_MissingDocument(t *testing.T) {
	mc := new(mockAnthropic)
	c := newTestAPIClient(mc)

	_, err := c.Interact(context.Background(), filepath.Join(t.TempDir(), "gone.pdf"), "extract")
	assert.True(t, IsKind(err, KindDocumentInvalid))
	mc.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}
