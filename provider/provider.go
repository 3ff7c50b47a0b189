// Package provider defines the AI provider interface and implementations.
package provider

import "github.com/ZaguanLabs/honyaku"

// AIProvider is the interface for AI translation backends.
// This is an alias to the main package interface for convenience.
type AIProvider = honyaku.AIProvider

// TextExtractor is an alias to the main package OCR interface.
type TextExtractor = honyaku.TextExtractor

// TranslateRequest is an alias to the main package type.
type TranslateRequest = honyaku.TranslateRequest

// AnalyzeRequest is an alias to the main package type.
type AnalyzeRequest = honyaku.AnalyzeRequest
