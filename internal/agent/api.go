package agent

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/study-extract/internal/config"
	"github.com/sells-group/study-extract/internal/resilience"
	"github.com/sells-group/study-extract/pkg/anthropic"
)

const apiSystemPrompt = "You are reading the attached research article. Answer with a single JSON object and nothing else."

// APIClient runs turns through the Anthropic Messages API, attaching the
// PDF as a document block. Replies are parsed exactly like browser replies.
type APIClient struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	check     func(path string) error
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
}

// NewAPIClient returns an APIClient for cfg. minInterval spaces turns.
func NewAPIClient(client anthropic.Client, cfg config.AnthropicConfig, minInterval time.Duration, options ...Option) *APIClient {
	s := defaultSettings()
	for _, o := range options {
		o(&s)
	}

	retry := resilience.DefaultRetryConfig()
	retry.ShouldRetry = func(err error) bool {
		if code := anthropic.StatusCode(err); code != 0 {
			return resilience.IsTransientHTTPStatus(code)
		}
		return resilience.IsTransient(err)
	}
	retry.OnRetry = resilience.RetryLogger("anthropic", "create_message")

	return &APIClient{
		client:    client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		check:     s.check,
		limiter:   newLimiter(minInterval),
		retry:     retry,
	}
}

// Interact sends the document and prompt in one message and parses the
// reply. Every failure is a *TurnError.
func (a *APIClient) Interact(ctx context.Context, docPath, prompt string) (Result, error) {
	file := filepath.Base(docPath)

	if err := a.check(docPath); err != nil {
		return Result{}, newTurnError(KindDocumentInvalid, "check", err)
	}
	pdf, err := os.ReadFile(docPath)
	if err != nil {
		return Result{}, newTurnError(KindDocumentInvalid, "read", err)
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return Result{}, newTurnError(KindSessionFailed, "pace", err)
	}

	req := anthropic.MessageRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    apiSystemPrompt,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt, Documents: [][]byte{pdf}}},
	}
	resp, err := resilience.DoVal(ctx, a.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return a.client.CreateMessage(ctx, req)
	})
	if err != nil {
		return Result{}, newTurnError(KindSessionFailed, "create_message", err)
	}
	resp.Usage.LogCost(a.model, file)
	if resp.StopReason == "max_tokens" {
		zap.L().Warn("reply truncated at max_tokens", zap.String("file", file), zap.Int64("max_tokens", a.maxTokens))
	}

	text := resp.Text()
	data, err := ParseReply(text)
	if err != nil {
		return Result{SourceID: file, Raw: text}, err
	}
	return Result{SourceID: file, Data: data, Raw: text}, nil
}
