package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/ZaguanLabs/honyaku"
)

// SampleAnalysis is the breakdown MockProvider returns for text it has no
// explicit analysis for.
const SampleAnalysis = `{"create_datetime": "2025-01-01T00:00:00Z", "bunsetsu_breakdown": [{"index": 0, "japanese_phrase": "こんにちは", "english_translation": "hello", "morphological_analysis": [{"token_id": 0, "surface_form": "こんにちは", "base_form": "こんにちは", "POS": "interjection", "english_explanation": "a greeting used during the day", "romaji": "konnichiwa"}]}]}`

// MockProvider is a mock AI provider for testing and offline runs.
type MockProvider struct {
	mu sync.Mutex

	Translations map[string]string // Map of source text to translation
	Analyses     map[string]string // Map of source text to analysis document
	OCRText      string            // Text returned by ExtractText

	TranslateErr error // Returned by Translate when set
	AnalyzeErr   error // Returned by Analyze when set
	ExtractErr   error // Returned by ExtractText when set

	TranslateCalls int // Number of times Translate was called
	AnalyzeCalls   int // Number of times Analyze was called
	ExtractCalls   int // Number of times ExtractText was called

	LastRequest *honyaku.TranslateRequest // Last translate request received
}

// NewMockProvider creates a new mock provider with default translations.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Translations: map[string]string{
			"こんにちは":     "Hello",
			"ありがとう":     "Thank you",
			"今日はいい天気です": "The weather is nice today",
			"日本語を勉強しています": "I am studying Japanese",
		},
		Analyses: map[string]string{},
		OCRText:  "こんにちは",
	}
}

// Translate returns mock translations.
func (m *MockProvider) Translate(ctx context.Context, req honyaku.TranslateRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TranslateCalls++
	m.LastRequest = &req

	if m.TranslateErr != nil {
		return "", m.TranslateErr
	}
	if translation, ok := m.Translations[req.Text]; ok {
		return translation, nil
	}
	// Return bracketed text for unknown translations
	return fmt.Sprintf("[%s]", req.Text), nil
}

// Analyze returns the configured analysis for req.Text, or SampleAnalysis.
func (m *MockProvider) Analyze(ctx context.Context, req honyaku.AnalyzeRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AnalyzeCalls++

	if m.AnalyzeErr != nil {
		return "", m.AnalyzeErr
	}
	if doc, ok := m.Analyses[req.Text]; ok {
		return doc, nil
	}
	return SampleAnalysis, nil
}

// ExtractText returns OCRText regardless of the image.
func (m *MockProvider) ExtractText(ctx context.Context, image []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ExtractCalls++

	if m.ExtractErr != nil {
		return "", m.ExtractErr
	}
	return m.OCRText, nil
}

// Calls returns the translate, analyze and extract call counts.
func (m *MockProvider) Calls() (translate, analyze, extract int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.TranslateCalls, m.AnalyzeCalls, m.ExtractCalls
}

// Reset resets the call counts and last request.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TranslateCalls = 0
	m.AnalyzeCalls = 0
	m.ExtractCalls = 0
	m.LastRequest = nil
}

// Verify MockProvider implements AIProvider and TextExtractor
var (
	_ AIProvider    = (*MockProvider)(nil)
	_ TextExtractor = (*MockProvider)(nil)
)
