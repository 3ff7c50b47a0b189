package honyaku

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZaguanLabs/honyaku/analysis"
	"github.com/ZaguanLabs/honyaku/cache"
)

const testAnalysis = `{"create_datetime": "2025-01-02T03:04:05Z", "bunsetsu_breakdown": [{"index": 0, "japanese_phrase": "こんにちは", "english_translation": "hello", "morphological_analysis": [{"token_id": 0, "surface_form": "こんにちは", "base_form": "こんにちは", "POS": "interjection", "english_explanation": "greeting", "romaji": "konnichiwa"}]}]}`

// mockProvider is a simple mock for testing
type mockProvider struct {
	mu             sync.Mutex
	translations   map[string]string
	analysis       string
	translateErr   error
	analyzeErr     error
	translateCalls int
	analyzeCalls   int
	delay          time.Duration
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		translations: map[string]string{
			"こんにちは":     "Hello",
			"今日はいい天気です": "Nice weather today",
		},
		analysis: testAnalysis,
	}
}

func (m *mockProvider) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	time.Sleep(m.delay)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.translateCalls++
	if m.translateErr != nil {
		return "", m.translateErr
	}
	if translation, ok := m.translations[req.Text]; ok {
		return translation, nil
	}
	return "[" + req.Text + "]", nil
}

func (m *mockProvider) Analyze(ctx context.Context, req AnalyzeRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyzeCalls++
	if m.analyzeErr != nil {
		return "", m.analyzeErr
	}
	return m.analysis, nil
}

func (m *mockProvider) calls() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.translateCalls, m.analyzeCalls
}

// mockExtractor returns fixed OCR output
type mockExtractor struct {
	text string
	err  error
}

func (e *mockExtractor) ExtractText(ctx context.Context, image []byte, contentType string) (string, error) {
	return e.text, e.err
}

func TestService_Translate(t *testing.T) {
	provider := newMockProvider()
	svc := NewService(provider)

	res, err := svc.Translate(context.Background(), "こんにちは")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if res.Translation != "Hello" {
		t.Errorf("Expected 'Hello', got %q", res.Translation)
	}
	if res.Cached {
		t.Error("First call should not be cached")
	}
	if res.Key != cache.DeriveKey("こんにちは") {
		t.Errorf("Unexpected key %q", res.Key)
	}
	if got := svc.Cache().Translation(res.Key); got != "Hello" {
		t.Errorf("Cache should hold translation, got %q", got)
	}
}

func TestService_TranslateCacheHit(t *testing.T) {
	provider := newMockProvider()
	svc := NewService(provider, WithCache(cache.NewStore(10)))

	if _, err := svc.Translate(context.Background(), "今日はいい天気です"); err != nil {
		t.Fatalf("First Translate failed: %v", err)
	}

	res, err := svc.Translate(context.Background(), "今日はいい天気です")
	if err != nil {
		t.Fatalf("Second Translate failed: %v", err)
	}

	if !res.Cached {
		t.Error("Second call should be served from cache")
	}
	if res.Elapsed != 0 {
		t.Errorf("Cached result should report zero elapsed, got %v", res.Elapsed)
	}

	if calls, _ := provider.calls(); calls != 1 {
		t.Errorf("Provider should be called once, was called %d times", calls)
	}
}

func TestService_TranslateEmptyInput(t *testing.T) {
	provider := newMockProvider()
	svc := NewService(provider)

	_, err := svc.Translate(context.Background(), "   ")

	var inputErr *InputError
	if !errors.As(err, &inputErr) {
		t.Errorf("Expected InputError, got %T", err)
	}
	if calls, _ := provider.calls(); calls != 0 {
		t.Error("Provider should not be called for empty input")
	}
}

func TestService_TranslateFailureIsRetried(t *testing.T) {
	provider := newMockProvider()
	provider.translateErr = &ProviderError{Message: "boom"}
	store := cache.NewStore(10)
	svc := NewService(provider, WithCache(store))

	_, err := svc.Translate(context.Background(), "こんにちは")
	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("Expected ProviderError, got %v", err)
	}
	var translationErr *TranslationError
	if !errors.As(err, &translationErr) {
		t.Fatalf("Expected TranslationError, got %T", err)
	}
	if !errors.Is(err, provider.translateErr) {
		t.Error("TranslationError should unwrap to the provider error")
	}

	// The failure was stored as an empty value, which reads as absent.
	key := cache.DeriveKey("こんにちは")
	if store.HasTranslation(key) {
		t.Error("Failed translation should not be visible in cache")
	}
	if store.Len() != 1 {
		t.Errorf("Failed translation should still occupy a slot, Len = %d", store.Len())
	}

	provider.mu.Lock()
	provider.translateErr = nil
	provider.mu.Unlock()

	res, err := svc.Translate(context.Background(), "こんにちは")
	if err != nil {
		t.Fatalf("Retry should succeed, got %v", err)
	}
	if res.Cached || res.Translation != "Hello" {
		t.Errorf("Unexpected result after retry: %+v", res)
	}
}

func TestService_TranslateEmptyResult(t *testing.T) {
	provider := newMockProvider()
	provider.translations["空"] = ""
	svc := NewService(provider)

	_, err := svc.Translate(context.Background(), "空")
	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("Expected ProviderError for empty translation, got %v", err)
	}
}

func TestService_TranslateCoalescesConcurrentMisses(t *testing.T) {
	provider := newMockProvider()
	provider.delay = 50 * time.Millisecond
	svc := NewService(provider)

	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Translate(context.Background(), "こんにちは")
			if err != nil || res.Translation != "Hello" {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	if failures.Load() != 0 {
		t.Errorf("%d concurrent translations failed", failures.Load())
	}
	if calls, _ := provider.calls(); calls != 1 {
		t.Errorf("Concurrent misses should share one provider call, got %d", calls)
	}
}

func TestService_Analyze(t *testing.T) {
	provider := newMockProvider()
	provider.analysis = "```json\n" + testAnalysis + "\n```"
	svc := NewService(provider)

	res, err := svc.Translate(context.Background(), "こんにちは")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	doc, err := svc.Analyze(context.Background(), res.Key)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if doc != testAnalysis {
		t.Errorf("Expected fenced document to be cleaned, got %q", doc)
	}
	if !svc.Cache().HasAnalysis(res.Key) {
		t.Error("Valid analysis should be cached")
	}

	// Second call is a cache hit
	if _, err := svc.Analyze(context.Background(), res.Key); err != nil {
		t.Fatalf("Second Analyze failed: %v", err)
	}
	if _, calls := provider.calls(); calls != 1 {
		t.Errorf("Provider Analyze should be called once, got %d", calls)
	}
}

func TestService_AnalyzeInvalidDocument(t *testing.T) {
	provider := newMockProvider()
	provider.analysis = `{"not": "an analysis"}`
	svc := NewService(provider)

	res, _ := svc.Translate(context.Background(), "こんにちは")
	doc, err := svc.Analyze(context.Background(), res.Key)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if doc != analysis.Empty {
		t.Errorf("Expected empty document fallback, got %q", doc)
	}
	if svc.Cache().HasAnalysis(res.Key) {
		t.Error("Invalid analysis must not be cached")
	}
}

func TestService_AnalyzeProviderFailure(t *testing.T) {
	provider := newMockProvider()
	provider.analyzeErr = &ProviderError{Message: "timeout", Retryable: true}
	svc := NewService(provider)

	res, _ := svc.Translate(context.Background(), "こんにちは")
	doc, err := svc.Analyze(context.Background(), res.Key)

	if err == nil {
		t.Fatal("Expected error")
	}
	if doc != analysis.Empty {
		t.Errorf("Expected empty document fallback, got %q", doc)
	}
}

func TestService_AnalyzeUnknownKey(t *testing.T) {
	provider := newMockProvider()
	svc := NewService(provider)

	doc, err := svc.Analyze(context.Background(), "does-not-exist")

	if !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Expected ErrUnknownKey, got %v", err)
	}
	if doc != analysis.Empty {
		t.Errorf("Expected empty document, got %q", doc)
	}
	if _, calls := provider.calls(); calls != 0 {
		t.Error("Provider should not be called for unknown key")
	}
}

func TestService_AnalyzeCustomValidator(t *testing.T) {
	provider := newMockProvider()
	provider.analysis = `{"foo":1}`
	svc := NewService(provider, WithValidator(func(string) error { return nil }))

	res, _ := svc.Translate(context.Background(), "こんにちは")
	doc, err := svc.Analyze(context.Background(), res.Key)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if doc != `{"foo":1}` {
		t.Errorf("Unexpected document %q", doc)
	}
}

func TestService_ExtractText(t *testing.T) {
	svc := NewService(newMockProvider(), WithExtractor(&mockExtractor{text: "  今日はいい天気です\n"}))

	text, err := svc.ExtractText(context.Background(), []byte{0x89, 'P', 'N', 'G'}, "image/png")
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	if text != "今日はいい天気です" {
		t.Errorf("Expected trimmed text, got %q", text)
	}
}

func TestService_ExtractTextNoText(t *testing.T) {
	tests := []struct {
		name  string
		image []byte
		text  string
	}{
		{"empty image", nil, "ignored"},
		{"blank result", []byte("img"), "  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(newMockProvider(), WithExtractor(&mockExtractor{text: tt.text}))
			_, err := svc.ExtractText(context.Background(), tt.image, "image/png")
			if !errors.Is(err, ErrNoTextFound) {
				t.Errorf("Expected ErrNoTextFound, got %v", err)
			}
		})
	}
}

func TestService_ExtractTextNoExtractor(t *testing.T) {
	svc := NewService(newMockProvider())

	_, err := svc.ExtractText(context.Background(), []byte("img"), "image/png")
	var inputErr *InputError
	if !errors.As(err, &inputErr) {
		t.Errorf("Expected InputError, got %v", err)
	}
}

func TestService_CheckInput(t *testing.T) {
	svc := NewService(newMockProvider(), WithMaxTextLength(5))

	tests := []struct {
		text  string
		valid bool
	}{
		{"こんにちは", true},
		{"こんにちは!", false}, // 6 characters
		{"hello", false},
		{"", false},
	}

	for _, tt := range tests {
		err := svc.CheckInput(tt.text)
		if (err == nil) != tt.valid {
			t.Errorf("CheckInput(%q) error = %v, want valid=%v", tt.text, err, tt.valid)
		}
	}
}

func TestService_Truncate(t *testing.T) {
	svc := NewService(newMockProvider(), WithMaxTextLength(3))

	text, truncated := svc.Truncate("あいうえお")
	if !truncated || text != "あいう" {
		t.Errorf("Truncate = %q, %v; want あいう, true", text, truncated)
	}

	text, truncated = svc.Truncate("あい")
	if truncated || text != "あい" {
		t.Errorf("Truncate = %q, %v; want あい, false", text, truncated)
	}
}

func TestService_Options(t *testing.T) {
	svc := NewService(newMockProvider(),
		WithSourceLang("ja"),
		WithTargetLang("en_GB"),
		WithMaxTextLength(42),
	)

	if svc.SourceLang() != "ja" {
		t.Errorf("Expected source lang 'ja', got %q", svc.SourceLang())
	}
	if svc.TargetLang() != "en_GB" {
		t.Errorf("Expected target lang 'en_GB', got %q", svc.TargetLang())
	}
	if svc.MaxTextLength() != 42 {
		t.Errorf("Expected max length 42, got %d", svc.MaxTextLength())
	}
	if !strings.HasPrefix(DefaultSourceLang, "ja") {
		t.Errorf("Default source should be Japanese, got %q", DefaultSourceLang)
	}
}

// countingMetrics tallies store events.
type countingMetrics struct {
	mu     sync.Mutex
	hits   map[cache.Kind]int
	misses map[cache.Kind]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{hits: map[cache.Kind]int{}, misses: map[cache.Kind]int{}}
}

func (m *countingMetrics) Hit(k cache.Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits[k]++
}

func (m *countingMetrics) Miss(k cache.Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.misses[k]++
}

func (m *countingMetrics) Evict()   {}
func (m *countingMetrics) Size(int) {}

func (m *countingMetrics) counts(k cache.Kind) (hits, misses int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits[k], m.misses[k]
}

func TestService_RecordsOneEventPerRequest(t *testing.T) {
	metrics := newCountingMetrics()
	store := cache.NewStore(10, cache.WithMetrics(metrics))
	svc := NewService(newMockProvider(), WithCache(store))
	ctx := context.Background()

	res, err := svc.Translate(ctx, "こんにちは")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if _, err := svc.Analyze(ctx, res.Key); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if hits, misses := metrics.counts(cache.KindTranslation); hits != 0 || misses != 1 {
		t.Errorf("translation: expected 0 hits and 1 miss, got %d and %d", hits, misses)
	}
	if hits, misses := metrics.counts(cache.KindAnalysis); hits != 0 || misses != 1 {
		t.Errorf("analysis: expected 0 hits and 1 miss, got %d and %d", hits, misses)
	}

	svc.Translate(ctx, "こんにちは")
	svc.Analyze(ctx, res.Key)

	if hits, misses := metrics.counts(cache.KindTranslation); hits != 1 || misses != 1 {
		t.Errorf("translation: expected 1 hit and 1 miss, got %d and %d", hits, misses)
	}
	if hits, misses := metrics.counts(cache.KindAnalysis); hits != 1 || misses != 1 {
		t.Errorf("analysis: expected 1 hit and 1 miss, got %d and %d", hits, misses)
	}
}

// blockingProvider parks each call until release is closed.
type blockingProvider struct {
	*mockProvider
	started chan struct{}
	release chan struct{}
}

func newBlockingProvider() *blockingProvider {
	return &blockingProvider{
		mockProvider: newMockProvider(),
		started:      make(chan struct{}, 1),
		release:      make(chan struct{}),
	}
}

func (p *blockingProvider) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	p.started <- struct{}{}
	<-p.release
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.mockProvider.Translate(ctx, req)
}

func (p *blockingProvider) Analyze(ctx context.Context, req AnalyzeRequest) (string, error) {
	p.started <- struct{}{}
	<-p.release
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.mockProvider.Analyze(ctx, req)
}

func TestService_AnalyzeAfterEvictionStaysBounded(t *testing.T) {
	store := cache.NewStore(1)
	seed := NewService(newMockProvider(), WithCache(store))
	provider := newBlockingProvider()
	svc := NewService(provider, WithCache(store))
	ctx := context.Background()

	res, err := seed.Translate(ctx, "一")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	type outcome struct {
		doc string
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		doc, err := svc.Analyze(ctx, res.Key)
		done <- outcome{doc, err}
	}()

	<-provider.started
	seed.Translate(ctx, "二") // evicts 一 while its analysis is in flight
	close(provider.release)

	out := <-done
	if out.err != nil {
		t.Fatalf("Analyze failed: %v", out.err)
	}
	if out.doc != testAnalysis {
		t.Errorf("Expected the provider document to be returned, got %q", out.doc)
	}
	if store.HasAnalysis(res.Key) {
		t.Error("Analysis for an evicted key should not be stored")
	}

	for i := 0; i < 5; i++ {
		seed.Translate(ctx, strings.Repeat("三", i+1))
	}
	if n := len(store.Snapshot().Entries); n > store.Capacity() {
		t.Errorf("Store holds %d entries with capacity %d", n, store.Capacity())
	}
}

func TestService_TranslateSurvivesCallerCancel(t *testing.T) {
	provider := newBlockingProvider()
	store := cache.NewStore(10)
	svc := NewService(provider, WithCache(store))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := svc.Translate(ctx, "こんにちは")
		done <- err
	}()

	<-provider.started
	cancel()
	close(provider.release)

	if err := <-done; err != nil {
		t.Fatalf("Shared translation should not see the caller's cancellation: %v", err)
	}
	if got := store.Translation(cache.DeriveKey("こんにちは")); got != "Hello" {
		t.Errorf("Expected cached translation, got %q", got)
	}
}
