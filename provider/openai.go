package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ZaguanLabs/honyaku"
	"github.com/ZaguanLabs/honyaku/analysis"
	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements AIProvider and TextExtractor using an
// OpenAI-compatible chat completion API.
type OpenAIProvider struct {
	client          *openai.Client
	model           string
	ocrModel        string
	temperature     float32
	reasoningEffort string
	timeout         time.Duration
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey          string        // API key
	Model           string        // Model for translation and analysis (default: "gpt-4o-mini")
	OCRModel        string        // Vision-capable model for OCR (default: Model)
	Temperature     float32       // Temperature for generation (default: 0.3, unused with ReasoningEffort)
	ReasoningEffort string        // "low", "medium" or "high" for reasoning models (optional)
	BaseURL         string        // Custom base URL for compatible providers (optional)
	Timeout         time.Duration // Per-call timeout (0 = none)
	HTTPClient      *http.Client  // Custom HTTP client (optional)
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		config.HTTPClient = cfg.HTTPClient
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	ocrModel := cfg.OCRModel
	if ocrModel == "" {
		ocrModel = model
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}
	if cfg.ReasoningEffort != "" {
		temperature = 0
	}

	return &OpenAIProvider{
		client:          openai.NewClientWithConfig(config),
		model:           model,
		ocrModel:        ocrModel,
		temperature:     temperature,
		reasoningEffort: cfg.ReasoningEffort,
		timeout:         cfg.Timeout,
	}
}

// Translate translates req.Text and returns the plain translation.
func (p *OpenAIProvider) Translate(ctx context.Context, req honyaku.TranslateRequest) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", nil
	}

	content, err := p.complete(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.buildTranslatePrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: req.Text},
		},
	})
	if err != nil {
		return "", err
	}

	translation := strings.TrimSpace(content)
	if translation == "" {
		return "", &honyaku.ProviderError{
			Message:   "empty translation from OpenAI",
			Retryable: true,
		}
	}
	return translation, nil
}

// Analyze returns the raw breakdown document for req.Text. The caller is
// responsible for validating it.
func (p *OpenAIProvider) Analyze(ctx context.Context, req honyaku.AnalyzeRequest) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", &honyaku.ProviderError{Message: "nothing to analyze"}
	}

	return p.complete(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.buildAnalyzePrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: req.Text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
}

// ExtractText sends the image to a vision-capable model and returns the
// Japanese text found in it, or "" if there is none.
func (p *OpenAIProvider) ExtractText(ctx context.Context, image []byte, contentType string) (string, error) {
	if len(image) == 0 {
		return "", nil
	}

	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(image)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", &honyaku.InputError{Message: fmt.Sprintf("unsupported upload type %q", contentType)}
	}

	dataURL := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(image)

	content, err := p.complete(ctx, openai.ChatCompletionRequest{
		Model: p.ocrModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: ocrPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(content)
	if text == noTextMarker {
		return "", nil
	}
	return text, nil
}

// complete runs one chat completion and returns the first choice.
func (p *OpenAIProvider) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if p.reasoningEffort != "" {
		req.ReasoningEffort = p.reasoningEffort
	} else {
		req.Temperature = p.temperature
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", &honyaku.ProviderError{
			Message:   "OpenAI API call failed",
			Cause:     err,
			Retryable: isRetryableError(err),
		}
	}

	if len(resp.Choices) == 0 {
		return "", &honyaku.ProviderError{
			Message:   "no response from OpenAI",
			Retryable: true,
		}
	}

	return resp.Choices[0].Message.Content, nil
}

const noTextMarker = "NO_TEXT"

const ocrPrompt = `# Role
You are a precise OCR engine for Japanese.

# Task
Transcribe all Japanese text visible in the image exactly as written, in reading order.

# Format
- Output only the transcribed text. Do not translate, explain or add anything.
- Keep line breaks where the image has them.
- If the image contains no Japanese text, output exactly: ` + noTextMarker

func (p *OpenAIProvider) buildTranslatePrompt(req honyaku.TranslateRequest) string {
	source, target := languages(req.SourceLang, req.TargetLang)

	return fmt.Sprintf(`# Role
You are an experienced %s to %s translator.

# Task
Translate the user's %s text into natural, idiomatic %s.

# Format
- Output only the translation.
- Do not add any explanation, notes or romanization.
- Preserve line breaks.`, source, target, source, target)
}

func (p *OpenAIProvider) buildAnalyzePrompt(req honyaku.AnalyzeRequest) string {
	source, target := languages(req.SourceLang, req.TargetLang)

	return fmt.Sprintf(`# Role
You are an experienced %s to %s translator and linguist.

# Task
Break down the user's %s text into bunsetsu (phrase units) and do a morphological analysis of each bunsetsu.
For every morpheme give its surface form, base form, part of speech, a short %s explanation and its romaji.
Set create_datetime to the current time in ISO 8601 format.

# Format
Return a valid JSON object that conforms to this JSON Schema:
%s
- Do NOT wrap in Markdown code blocks.
- Do NOT add any text before or after the JSON.`, source, target, source, target, analysis.Schema())
}

func languages(source, target string) (string, string) {
	if source == "" {
		source = honyaku.DefaultSourceLang
	}
	if target == "" {
		target = honyaku.DefaultTargetLang
	}
	return honyaku.GetLanguageName(source), honyaku.GetLanguageName(target)
}

func isRetryableError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// Check for common retryable conditions
	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"rate limit",
		"timeout",
		"connection refused",
		"connection reset",
		"temporary",
		"503",
		"502",
		"429",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// Verify OpenAIProvider implements AIProvider and TextExtractor
var (
	_ AIProvider    = (*OpenAIProvider)(nil)
	_ TextExtractor = (*OpenAIProvider)(nil)
)
