package anthropic

import (
	"errors"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSDKMessage(t *testing.T) {
	sdkMsg := &sdk.Message{
		ID:         "msg_test_123",
		Model:      "claude-sonnet-4-5-20250929",
		StopReason: "end_turn",
		Content: []sdk.ContentBlockUnion{
			{Type: "text", Text: "Hello world"},
		},
		Usage: sdk.Usage{InputTokens: 100, OutputTokens: 50},
	}

	resp := fromSDKMessage(sdkMsg)
	require.NotNil(t, resp)
	assert.Equal(t, "msg_test_123", resp.ID)
	assert.Equal(t, "end_turn", resp.StopReason)
	require.Len(t, resp.Content, 1)
	assert.Equal(t, "Hello world", resp.Content[0].Text)
	assert.Equal(t, int64(100), resp.Usage.InputTokens)
	assert.Equal(t, int64(50), resp.Usage.OutputTokens)
}

func TestFromSDKMessage_EmptyContent(t *testing.T) {
	resp := fromSDKMessage(&sdk.Message{ID: "msg_empty", StopReason: "max_tokens"})
	assert.Empty(t, resp.Content)
	assert.Equal(t, "", resp.Text())
}

func TestToSDKMessages_Roles(t *testing.T) {
	msgs := toSDKMessages([]Message{
		{Role: "user", Content: "a"},
		{Role: "assistant", Content: "b"},
		{Role: "system", Content: "c"},
	})
	require.Len(t, msgs, 3)
	assert.Equal(t, sdk.MessageParamRoleUser, msgs[0].Role)
	assert.Equal(t, sdk.MessageParamRoleAssistant, msgs[1].Role)
	assert.Equal(t, sdk.MessageParamRoleUser, msgs[2].Role)
}

func TestToSDKMessages_DocumentsFirst(t *testing.T) {
	msgs := toSDKMessages([]Message{{
		Role:      "user",
		Content:   "Extract",
		Documents: [][]byte{[]byte("one"), []byte("two")},
	}})
	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].Content, 3)
	assert.NotNil(t, msgs[0].Content[0].OfDocument)
	assert.NotNil(t, msgs[0].Content[1].OfDocument)
	require.NotNil(t, msgs[0].Content[2].OfText)
	assert.Equal(t, "Extract", msgs[0].Content[2].OfText.Text)
}

func TestStatusCode_NonAPIError(t *testing.T) {
	assert.Equal(t, 0, StatusCode(errors.New("dial tcp: connection refused")))
	assert.Equal(t, 0, StatusCode(nil))
}

func TestNewClient_ReturnsNonNil(t *testing.T) {
	var client Client = NewClient("test-api-key")
	require.NotNil(t, client)
}
