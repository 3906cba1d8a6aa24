// Package capability defines the contracts for the external model
// capabilities the pipeline depends on. The orchestration core only ever sees
// these interfaces; which model sits behind them is a single run-wide setting.
package capability

import (
	"context"

	"github.com/hiresense/hiresense/internal/table"
)

// Embedder turns text into a vector for similarity scoring.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// ExtractResult holds named entities plus the noun phrases of a text.
type ExtractResult struct {
	Entities    []table.Entity
	NounPhrases []string
}

// EntityExtractor performs named-entity and noun-phrase extraction.
type EntityExtractor interface {
	ExtractEntities(ctx context.Context, text string) (*ExtractResult, error)
}

// Sentiment is a classification outcome with a confidence score in [0,1].
type Sentiment struct {
	Label string
	Score float64
}

// LabelPositive is the label persona scoring keys on.
const LabelPositive = "POSITIVE"

// SentimentClassifier classifies the overall sentiment of a text.
type SentimentClassifier interface {
	ClassifySentiment(ctx context.Context, text string) (*Sentiment, error)
}

// Rephraser rewrites text into a simpler form.
type Rephraser interface {
	Rephrase(ctx context.Context, text string) (string, error)
}

// Attributor fits a model of the target over the feature matrix and returns
// per-sample additive feature contributions.
type Attributor interface {
	Attribute(features [][]float64, target []float64) ([][]float64, error)
}

// Set bundles one implementation of every capability for a run.
type Set struct {
	Embedder   Embedder
	Extractor  EntityExtractor
	Sentiment  SentimentClassifier
	Rephraser  Rephraser
	Attributor Attributor
}
