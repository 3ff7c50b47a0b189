// Package cache provides the bounded translation/analysis store.
//
// A Store keeps at most N translations. Each translation is admitted in
// FIFO order; once the admission queue is full the oldest translation is
// evicted together with any analysis stored under the same key. Analysis
// documents never occupy capacity of their own.
package cache

// Cache is the store contract consumed by the request-handling layer.
//
// Query methods never fail: a missing key and a key whose stored value is
// empty are indistinguishable.
type Cache interface {
	// DeriveKey returns the key PutTranslation would use for text.
	DeriveKey(text string) string

	// PutTranslation stores a translation and returns its key.
	PutTranslation(source, translated string) string

	// PutAnalysis stores an analysis document under key and returns key.
	PutAnalysis(key, document string) string

	// AttachAnalysis stores an analysis document only if key still has
	// source text, and reports whether it did.
	AttachAnalysis(key, document string) bool

	// HasTranslation and HasAnalysis record a hit or miss on every call.
	HasTranslation(key string) bool
	HasAnalysis(key string) bool

	// Translation returns the translated text, or "" if absent.
	Translation(key string) string

	// OriginalText returns the source text, or "" if absent.
	OriginalText(key string) string

	// Analysis returns the analysis document, or "" if absent.
	Analysis(key string) string
}
