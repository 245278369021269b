package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient creates an sdkClient pointing at a local test server.
func newTestClient(baseURL string) *sdkClient {
	return &sdkClient{
		client: sdk.NewClient(
			option.WithAPIKey("test-key"),
			option.WithBaseURL(baseURL),
			option.WithMaxRetries(0),
		),
	}
}

func writeMessage(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
		"id":   "msg_test_001",
		"type": "message",
		"role": "assistant",
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
		"model":       "claude-sonnet-4-20250514",
		"stop_reason": "end_turn",
		"usage": map[string]any{
			"input_tokens":                1200,
			"output_tokens":               300,
			"cache_creation_input_tokens": 0,
			"cache_read_input_tokens":     900,
		},
	})
}

func TestSDKClient_CreateMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")
		writeMessage(w, "Hello from test")
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)
	resp, err := client.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-sonnet-4-20250514",
		MaxTokens: 1500,
		Messages:  []Message{{Role: "user", Content: "Hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_test_001", resp.ID)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, "Hello from test", resp.Text())
	assert.Equal(t, int64(900), resp.Usage.CacheReadInputTokens)
}

func TestSDKClient_CreateMessage_ImageBlocks(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		writeMessage(w, `{"cuisine_type":"pizza"}`)
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)
	_, err := client.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-sonnet-4-20250514",
		MaxTokens: 1500,
		System:    BuildCachedSystemBlocks("catalog prompt"),
		Messages: []Message{{
			Role:    "user",
			Content: "Restaurant name: Joe's Pizza",
			Images:  []Image{{MediaType: "image/jpeg", Data: "aGVsbG8="}},
		}},
	})
	require.NoError(t, err)

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 1)
	content := msgs[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)

	img := content[0].(map[string]any)
	assert.Equal(t, "image", img["type"])
	src := img["source"].(map[string]any)
	assert.Equal(t, "base64", src["type"])
	assert.Equal(t, "image/jpeg", src["media_type"])
	assert.Equal(t, "aGVsbG8=", src["data"])

	txt := content[1].(map[string]any)
	assert.Equal(t, "text", txt["type"])
	assert.Equal(t, "Restaurant name: Joe's Pizza", txt["text"])

	system := body["system"].([]any)
	require.Len(t, system, 1)
	cc := system[0].(map[string]any)["cache_control"].(map[string]any)
	assert.Equal(t, "ephemeral", cc["type"])
	assert.Equal(t, "1h", cc["ttl"])
}

func TestSDKClient_CreateMessage_APIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad image"}}`)) //nolint:errcheck
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)
	resp, err := client.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-sonnet-4-20250514",
		MaxTokens: 10,
		Messages:  []Message{{Role: "user", Content: "x"}},
	})
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: create message")
}

func TestToSDKMessages_Roles(t *testing.T) {
	msgs := toSDKMessages([]Message{
		{Role: "user", Content: "a"},
		{Role: "assistant", Content: "b"},
		{Role: "other", Content: "c"},
	})
	require.Len(t, msgs, 3)
	assert.Equal(t, sdk.MessageParamRoleUser, msgs[0].Role)
	assert.Equal(t, sdk.MessageParamRoleAssistant, msgs[1].Role)
	assert.Equal(t, sdk.MessageParamRoleUser, msgs[2].Role)
}

func TestToSDKSystemBlocks(t *testing.T) {
	blocks := toSDKSystemBlocks([]SystemBlock{
		{Text: "plain"},
		{Text: "cached", CacheControl: &CacheControl{TTL: "1h"}},
	})
	require.Len(t, blocks, 2)
	assert.Equal(t, "plain", blocks[0].Text)
	assert.Equal(t, sdk.CacheControlEphemeralTTL("1h"), blocks[1].CacheControl.TTL)
}

func TestBuildCachedSystemBlocks(t *testing.T) {
	blocks := BuildCachedSystemBlocks("catalog")
	require.Len(t, blocks, 1)
	assert.Equal(t, "catalog", blocks[0].Text)
	require.NotNil(t, blocks[0].CacheControl)
	assert.Equal(t, "1h", blocks[0].CacheControl.TTL)
}

func TestMessageResponse_Text(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: "a"},
		{Type: "tool_use", Text: "ignored"},
		{Type: "text", Text: "b"},
	}}
	assert.Equal(t, "ab", resp.Text())
}

func TestEstimateCost(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.InDelta(t, 18.0, u.EstimateCost("claude-sonnet-4-20250514"), 0.001)
	assert.InDelta(t, 0.0, u.EstimateCost("unknown-model"), 0.001)

	cached := TokenUsage{CacheReadInputTokens: 1_000_000}
	assert.InDelta(t, 0.30, cached.EstimateCost("claude-sonnet-4-20250514"), 0.001)
}

func TestLogCost_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		TokenUsage{InputTokens: 10}.LogCost("claude-sonnet-4-20250514", "vision")
	})
}
