package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	aiplatform "google.golang.org/api/aiplatform/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	DefaultGeminiModel   = "gemini-1.5-flash-latest"
	DefaultGeminiTimeout = 60 * time.Second

	publisherModelPrefix = "publishers/google/models/"
)

type GeminiOptions struct {
	APIKey   string
	Model    string
	Endpoint string
	Timeout  time.Duration

	// HTTPClient replaces the API-key transport. Used by tests.
	HTTPClient *http.Client
}

// Gemini is a Generator backed by the Vertex AI publisher models endpoint,
// authenticated with an API key.
type Gemini struct {
	models  *aiplatform.PublishersModelsService
	model   string
	timeout time.Duration
}

func NewGemini(ctx context.Context, opts GeminiOptions) (*Gemini, error) {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultGeminiModel
	}
	if !strings.HasPrefix(model, "publishers/") && !strings.HasPrefix(model, "projects/") {
		model = publisherModelPrefix + strings.TrimPrefix(model, "models/")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultGeminiTimeout
	}

	var clientOpts []option.ClientOption
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
	} else {
		key := strings.TrimSpace(opts.APIKey)
		if key == "" {
			return nil, fmt.Errorf("gemini api key is required")
		}
		clientOpts = append(clientOpts, option.WithAPIKey(key))
	}
	if endpoint := strings.TrimSpace(opts.Endpoint); endpoint != "" {
		if !strings.HasSuffix(endpoint, "/") {
			endpoint += "/"
		}
		clientOpts = append(clientOpts, option.WithEndpoint(endpoint))
	}

	svc, err := aiplatform.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{
		models:  svc.Publishers.Models,
		model:   model,
		timeout: timeout,
	}, nil
}

func (g *Gemini) Model() string {
	if g == nil {
		return ""
	}
	return strings.TrimPrefix(g.model, publisherModelPrefix)
}

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.models == nil {
		return "", fmt.Errorf("gemini client is not initialized")
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("prompt is required")
	}
	reqCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.models.GenerateContent(g.model, &aiplatform.GoogleCloudAiplatformV1GenerateContentRequest{
		Contents: []*aiplatform.GoogleCloudAiplatformV1Content{{
			Role:  "user",
			Parts: []*aiplatform.GoogleCloudAiplatformV1Part{{Text: prompt}},
		}},
	}).Context(reqCtx).Do()
	if err != nil {
		if isRateLimit(err) {
			return "", fmt.Errorf("gemini generate: %w: %v", ErrRateLimited, err)
		}
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return responseText(resp)
}

func responseText(resp *aiplatform.GoogleCloudAiplatformV1GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", ErrEmptyResponse
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil {
				b.WriteString(part.Text)
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	text := strings.TrimSpace(b.String())
	if text != "" {
		return text, nil
	}
	if resp.PromptFeedback != nil && strings.TrimSpace(resp.PromptFeedback.BlockReason) != "" {
		return "", fmt.Errorf("prompt blocked: %s", strings.TrimSpace(resp.PromptFeedback.BlockReason))
	}
	return "", ErrEmptyResponse
}

func isRateLimit(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests {
			return true
		}
		if strings.Contains(apiErr.Message, "RESOURCE_EXHAUSTED") || strings.Contains(apiErr.Body, "RESOURCE_EXHAUSTED") {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "resource_exhausted") || strings.Contains(msg, "rate limit")
}
