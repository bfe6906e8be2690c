package embedder

import (
	"context"
	"errors"
	"fmt"
)

// Common errors
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrProviderFailed    = errors.New("embedding provider failed")
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrNoProviderEnabled = errors.New("no embedding provider configured")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Provider generates embedding vectors for text. Implementations must return
// one vector per input text, in input order.
type Provider interface {
	// Embed generates embeddings for the given texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the width of vectors this provider produces.
	Dimension() int

	// Model returns the model identifier, used for cache invalidation.
	Model() string

	// Close releases any resources held by the provider.
	Close() error
}

// validateTexts rejects empty batches and empty elements before they reach a
// provider API.
func validateTexts(texts []string) error {
	if len(texts) == 0 {
		return fmt.Errorf("%w: no texts provided", ErrInvalidInput)
	}
	for i, text := range texts {
		if text == "" {
			return fmt.Errorf("%w: text at index %d: %v", ErrInvalidInput, i, ErrEmptyText)
		}
	}
	return nil
}
