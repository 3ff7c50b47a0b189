package honyaku

import (
	"strings"
	"unicode"
)

// LanguageNames maps locale codes to human-readable names for AI prompts.
var LanguageNames = map[string]string{
	"ja_JP": "Japanese",
	"en_US": "English (United States)",
	"en_GB": "English (United Kingdom)",
	"de_DE": "German (Germany)",
	"es_ES": "Spanish (Spain)",
	"fr_FR": "French (France)",
	"ko_KR": "Korean (South Korea)",
	"zh_CN": "Chinese (Simplified)",
	"zh_TW": "Chinese (Traditional)",
}

// ShortCodeToLocale maps short language codes to full locale codes.
var ShortCodeToLocale = map[string]string{
	"ja": "ja_JP",
	"en": "en_US",
	"de": "de_DE",
	"es": "es_ES",
	"fr": "fr_FR",
	"ko": "ko_KR",
	"zh": "zh_CN",
}

// GetLanguageName returns the human-readable name for a language code.
// Falls back to the code itself if not found.
func GetLanguageName(langCode string) string {
	langCode = NormalizeLocale(langCode)
	if name, ok := LanguageNames[langCode]; ok {
		return name
	}
	if locale, ok := ShortCodeToLocale[langCode]; ok {
		if name, ok := LanguageNames[locale]; ok {
			return name
		}
	}
	return langCode
}

// NormalizeLocale converts a language code to the standard format (e.g., "ja-JP" → "ja_JP").
func NormalizeLocale(langCode string) string {
	return strings.ReplaceAll(langCode, "-", "_")
}

// ToHTMLLang converts a locale code to HTML lang attribute format (e.g., "ja_JP" → "ja-JP").
func ToHTMLLang(langCode string) string {
	return strings.ReplaceAll(langCode, "_", "-")
}

// japaneseRatio is the minimum share of Japanese characters among
// letters, digits and punctuation for text to count as Japanese.
const japaneseRatio = 0.3

var japaneseRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x3000, Hi: 0x303F, Stride: 1}, // CJK punctuation
		{Lo: 0x3040, Hi: 0x309F, Stride: 1}, // Hiragana
		{Lo: 0x30A0, Hi: 0x30FF, Stride: 1}, // Katakana
		{Lo: 0x4E00, Hi: 0x9FFF, Stride: 1}, // Kanji
		{Lo: 0xFF00, Hi: 0xFFEF, Stride: 1}, // Full-width forms
	},
}

// IsJapanese reports whether text is predominantly Japanese. Mixed text
// such as "iPhone 15を買った" passes; plain English does not.
func IsJapanese(text string) bool {
	var japanese, meaningful int
	for _, r := range text {
		if unicode.Is(japaneseRanges, r) {
			japanese++
		}
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsPunct(r) {
			meaningful++
		}
	}
	if meaningful == 0 {
		return false
	}
	return float64(japanese)/float64(meaningful) >= japaneseRatio
}
