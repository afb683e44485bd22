package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"autodub/internal/config"
	"autodub/internal/logging"
	"autodub/internal/services"
)

// Client translates chunk text through a gtx-style HTTP endpoint.
type Client struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpClient *http.Client
	policy     services.RetryPolicy
}

// Result carries the translated texts in input order. Texts that failed
// after retries keep their source form and are counted as fallbacks.
type Result struct {
	Texts     []string
	Fallbacks int
}

func New(cfg *config.Config, logger *slog.Logger) *Client {
	timeout := time.Duration(cfg.Translate.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "translate"),
		httpClient: &http.Client{Timeout: timeout},
		policy:     services.DefaultRetryPolicy(),
	}
	if cfg.Translate.Retries > 0 {
		c.policy.Attempts = cfg.Translate.Retries
	}
	return c
}

// TranslateBatch translates texts to targetLang one request at a time.
// Individual failures fall back to the source text so a flaky endpoint
// degrades the dub instead of killing the job; only context cancellation
// aborts the batch.
func (c *Client) TranslateBatch(ctx context.Context, texts []string, targetLang string) (Result, error) {
	targetLang = strings.TrimSpace(targetLang)
	if targetLang == "" {
		return Result{}, services.Wrap(services.ErrValidation, "translate", "prepare", "Missing target language", nil)
	}
	if strings.TrimSpace(c.cfg.Translate.BaseURL) == "" {
		return Result{}, services.Wrap(services.ErrConfiguration, "translate", "prepare", "Translation endpoint not configured", nil)
	}

	result := Result{Texts: make([]string, len(texts))}
	for i, text := range texts {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, services.Wrap(services.ErrCanceled, "translate", "batch", "Translation interrupted", ctxErr)
		}

		var translated string
		err := services.Retry(ctx, c.policy, func() error {
			var reqErr error
			translated, reqErr = c.translateOne(ctx, text, targetLang)
			return reqErr
		})
		if err != nil {
			logging.WithContext(ctx, c.logger).Warn("translation fell back to source text",
				logging.Int("index", i),
				logging.Error(err),
				logging.String(logging.FieldEventType, "translate_fallback"),
			)
			result.Texts[i] = text
			result.Fallbacks++
			continue
		}
		result.Texts[i] = translated
	}
	return result, nil
}

func (c *Client) translateOne(ctx context.Context, text, targetLang string) (string, error) {
	query := url.Values{}
	query.Set("client", "gtx")
	query.Set("sl", "auto")
	query.Set("tl", targetLang)
	query.Set("dt", "t")
	query.Set("q", text)

	endpoint := strings.TrimRight(c.cfg.Translate.BaseURL, "?&") + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if key := strings.TrimSpace(c.cfg.Translate.APIKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return parseResponse(body)
}

// parseResponse extracts the translation from the gtx nested-array payload:
// the first element is a list of sentence tuples whose first field is the
// translated text.
func parseResponse(body []byte) (string, error) {
	var payload []any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("parse translation: %w", err)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("empty translation payload")
	}
	sentences, ok := payload[0].([]any)
	if !ok {
		return "", fmt.Errorf("unexpected translation payload shape")
	}

	var builder strings.Builder
	for _, raw := range sentences {
		tuple, ok := raw.([]any)
		if !ok || len(tuple) == 0 {
			continue
		}
		if fragment, ok := tuple[0].(string); ok {
			builder.WriteString(fragment)
		}
	}
	translated := strings.TrimSpace(builder.String())
	if translated == "" {
		return "", fmt.Errorf("translation payload had no text")
	}
	return translated, nil
}
