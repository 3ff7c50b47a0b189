package honyaku

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ZaguanLabs/honyaku/analysis"
	"github.com/ZaguanLabs/honyaku/cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// AIProvider is the interface for language-model backends.
type AIProvider interface {
	// Translate returns the translation of req.Text.
	Translate(ctx context.Context, req TranslateRequest) (string, error)

	// Analyze returns a raw breakdown document for req.Text.
	Analyze(ctx context.Context, req AnalyzeRequest) (string, error)
}

// TextExtractor extracts text from an image (OCR).
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte, contentType string) (string, error)
}

// Cache is the store the service reads and fills.
type Cache = cache.Cache

// Service runs the translate and analyze flows over a shared cache.
type Service struct {
	provider      AIProvider
	extractor     TextExtractor
	cache         Cache
	validate      func(string) error
	logger        zerolog.Logger
	sourceLang    string
	targetLang    string
	maxTextLength int
	flights       singleflight.Group
}

// ServiceOption is a functional option for configuring the Service.
type ServiceOption func(*Service)

// WithCache sets the cache. Without it the service uses a store of
// cache.DefaultCapacity entries.
func WithCache(c Cache) ServiceOption {
	return func(s *Service) {
		s.cache = c
	}
}

// WithExtractor sets the OCR backend.
func WithExtractor(e TextExtractor) ServiceOption {
	return func(s *Service) {
		s.extractor = e
	}
}

// WithValidator replaces the analysis document validator.
func WithValidator(fn func(string) error) ServiceOption {
	return func(s *Service) {
		s.validate = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// WithSourceLang sets the source language.
func WithSourceLang(lang string) ServiceOption {
	return func(s *Service) {
		s.sourceLang = lang
	}
}

// WithTargetLang sets the target language.
func WithTargetLang(lang string) ServiceOption {
	return func(s *Service) {
		s.targetLang = lang
	}
}

// WithMaxTextLength sets the maximum input length in characters.
func WithMaxTextLength(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxTextLength = n
		}
	}
}

// NewService creates a Service backed by provider.
func NewService(provider AIProvider, opts ...ServiceOption) *Service {
	s := &Service{
		provider:      provider,
		validate:      analysis.Validate,
		logger:        zerolog.Nop(),
		sourceLang:    DefaultSourceLang,
		targetLang:    DefaultTargetLang,
		maxTextLength: DefaultMaxTextLength,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cache == nil {
		s.cache = cache.NewStore(cache.DefaultCapacity)
	}

	return s
}

// Translate returns the translation of text, from the cache when possible.
//
// On a miss the provider is called and whatever it returns is stored, even
// an empty result: empty values read as absent, so the next request for
// the same text retries instead of being served a failure. Concurrent
// misses for the same text share one provider call, which keeps running
// if the caller that started it goes away.
func (s *Service) Translate(ctx context.Context, text string) (*TranslationResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &InputError{Message: "text is empty"}
	}

	key := s.cache.DeriveKey(text)
	if s.cache.HasTranslation(key) {
		// Read once: the key can be evicted between the two calls.
		if cached := s.cache.Translation(key); cached != "" {
			s.logger.Debug().Str("key", key).Msg("translation cache hit")
			return &TranslationResult{
				Key:         key,
				Source:      text,
				Translation: cached,
				Cached:      true,
			}, nil
		}
	}

	v, err, shared := s.flights.Do("translate:"+key, func() (interface{}, error) {
		// A flight that finished just before this one may have filled the key.
		if cached := s.cache.Translation(key); cached != "" {
			return &TranslationResult{Key: key, Source: text, Translation: cached, Cached: true}, nil
		}

		start := time.Now()
		translated, err := s.provider.Translate(context.WithoutCancel(ctx), TranslateRequest{
			Text:       text,
			SourceLang: s.sourceLang,
			TargetLang: s.targetLang,
		})
		elapsed := time.Since(start)

		if err != nil {
			translated = ""
		}
		s.cache.PutTranslation(text, translated)

		if err != nil {
			return nil, &TranslationError{Message: "translate", Cause: err}
		}
		if strings.TrimSpace(translated) == "" {
			return nil, &TranslationError{
				Message: "translate",
				Cause:   &ProviderError{Message: "empty translation", Retryable: true},
			}
		}

		return &TranslationResult{Key: key, Source: text, Translation: translated, Elapsed: elapsed}, nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("translation failed")
		return nil, err
	}

	res := *v.(*TranslationResult)
	res.Source = text
	s.logger.Debug().
		Str("key", key).
		Bool("shared", shared).
		Dur("elapsed", res.Elapsed).
		Msg("translation cache miss")
	return &res, nil
}

// Analyze returns the breakdown document for the text stored under key.
//
// A document that fails validation is not cached; callers receive
// analysis.Empty together with the error so they can serve it as-is.
// A valid document for a key evicted during the provider call is returned
// but not stored.
func (s *Service) Analyze(ctx context.Context, key string) (string, error) {
	if s.cache.HasAnalysis(key) {
		if cached := s.cache.Analysis(key); cached != "" {
			s.logger.Debug().Str("key", key).Msg("analysis cache hit")
			return cached, nil
		}
	}

	text := s.cache.OriginalText(key)
	if text == "" {
		return analysis.Empty, ErrUnknownKey
	}

	v, err, _ := s.flights.Do("analyze:"+key, func() (interface{}, error) {
		if cached := s.cache.Analysis(key); cached != "" {
			return cached, nil
		}

		raw, err := s.provider.Analyze(context.WithoutCancel(ctx), AnalyzeRequest{
			Text:       text,
			SourceLang: s.sourceLang,
			TargetLang: s.targetLang,
		})
		if err != nil {
			return nil, err
		}

		doc := analysis.Clean(raw)
		if err := s.validate(doc); err != nil {
			return nil, &ValidationError{Document: doc, Cause: err}
		}

		if !s.cache.AttachAnalysis(key, doc) {
			s.logger.Debug().Str("key", key).Msg("translation evicted during analysis, not caching")
		}
		return doc, nil
	})
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			s.logger.Warn().Err(err).Str("key", key).Str("document", verr.Document).Msg("analysis rejected")
		} else {
			s.logger.Warn().Err(err).Str("key", key).Msg("analysis failed")
		}
		return analysis.Empty, err
	}

	return v.(string), nil
}

// ExtractText runs OCR on an uploaded image.
func (s *Service) ExtractText(ctx context.Context, image []byte, contentType string) (string, error) {
	if s.extractor == nil {
		return "", &InputError{Message: "image input is not supported"}
	}
	if len(image) == 0 {
		return "", ErrNoTextFound
	}

	start := time.Now()
	text, err := s.extractor.ExtractText(ctx, image, contentType)
	if err != nil {
		s.logger.Warn().Err(err).Msg("text extraction failed")
		return "", err
	}
	s.logger.Debug().Dur("elapsed", time.Since(start)).Int("chars", utf8.RuneCountInString(text)).Msg("text extracted")

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoTextFound
	}
	return text, nil
}

// CheckInput validates typed text: it must be non-empty, within the
// length limit and predominantly Japanese.
func (s *Service) CheckInput(text string) error {
	if strings.TrimSpace(text) == "" {
		return &InputError{Message: "text is empty"}
	}
	if utf8.RuneCountInString(text) > s.maxTextLength {
		return &InputError{Message: "text exceeds the maximum length"}
	}
	if !IsJapanese(text) {
		return &InputError{Message: "text is not Japanese"}
	}
	return nil
}

// Truncate cuts text to the maximum length and reports whether it did.
// OCR output goes through here instead of CheckInput.
func (s *Service) Truncate(text string) (string, bool) {
	if utf8.RuneCountInString(text) <= s.maxTextLength {
		return text, false
	}
	runes := []rune(text)
	return string(runes[:s.maxTextLength]), true
}

// Cache returns the underlying cache.
func (s *Service) Cache() Cache {
	return s.cache
}

// MaxTextLength returns the maximum input length in characters.
func (s *Service) MaxTextLength() int {
	return s.maxTextLength
}

// SourceLang returns the source language.
func (s *Service) SourceLang() string {
	return s.sourceLang
}

// TargetLang returns the target language.
func (s *Service) TargetLang() string {
	return s.targetLang
}
