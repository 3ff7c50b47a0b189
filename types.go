package honyaku

import "time"

// Default languages and limits.
const (
	DefaultSourceLang    = "ja_JP"
	DefaultTargetLang    = "en_US"
	DefaultMaxTextLength = 500
)

// TranslateRequest contains the parameters for a translation request.
type TranslateRequest struct {
	Text       string
	SourceLang string
	TargetLang string
}

// AnalyzeRequest contains the parameters for a morphological breakdown.
type AnalyzeRequest struct {
	Text       string
	SourceLang string
	TargetLang string
}

// TranslationResult is the outcome of Service.Translate.
type TranslationResult struct {
	Key         string        // Cache key of the source text
	Source      string        // Source text as submitted
	Translation string        // Translated text
	Cached      bool          // True when served from the cache
	Elapsed     time.Duration // Time spent calling the provider (0 on a hit)
}
