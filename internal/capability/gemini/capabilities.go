package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hiresense/hiresense/internal/capability"
	"github.com/hiresense/hiresense/internal/capability/linear"
	"github.com/hiresense/hiresense/internal/table"
)

// Set assembles the Gemini-backed capability set around one client.
func Set(client *Client) *capability.Set {
	return &capability.Set{
		Embedder:   &Embedder{client: client},
		Extractor:  &Extractor{gen: client},
		Sentiment:  &Sentiment{gen: client},
		Rephraser:  &Rephraser{gen: client},
		Attributor: linear.New(),
	}
}

// Embedder delegates to the Gemini embedding endpoint.
type Embedder struct {
	client *Client
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return e.client.EmbedText(ctx, text)
}

const extractPrompt = `Extract named entities and noun phrases from the text below.
Respond with JSON only, no prose, matching exactly:
{"entities": [{"text": "...", "label": "PERSON|ORG|GPE|DATE|SKILL"}], "noun_phrases": ["..."]}

Text:
%s`

// Extractor prompts for entities and noun phrases as JSON.
type Extractor struct {
	gen ContentGenerator
}

func (x *Extractor) ExtractEntities(ctx context.Context, text string) (*capability.ExtractResult, error) {
	raw, err := x.gen.GenerateContent(ctx, fmt.Sprintf(extractPrompt, text))
	if err != nil {
		return nil, fmt.Errorf("extract entities: %w", err)
	}

	var payload struct {
		Entities    []table.Entity `json:"entities"`
		NounPhrases []string       `json:"noun_phrases"`
	}
	if err := decodeJSON(raw, &payload); err != nil {
		return nil, fmt.Errorf("parse entity response: %w", err)
	}

	return &capability.ExtractResult{
		Entities:    payload.Entities,
		NounPhrases: payload.NounPhrases,
	}, nil
}

const sentimentPrompt = `Classify the overall sentiment of the text below.
Respond with JSON only, no prose, matching exactly:
{"label": "POSITIVE|NEGATIVE|NEUTRAL", "score": 0.0}
where score is the confidence in the label between 0 and 1.

Text:
%s`

// Sentiment prompts for a sentiment label and confidence.
type Sentiment struct {
	gen ContentGenerator
}

func (s *Sentiment) ClassifySentiment(ctx context.Context, text string) (*capability.Sentiment, error) {
	raw, err := s.gen.GenerateContent(ctx, fmt.Sprintf(sentimentPrompt, text))
	if err != nil {
		return nil, fmt.Errorf("classify sentiment: %w", err)
	}

	var payload struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	}
	if err := decodeJSON(raw, &payload); err != nil {
		return nil, fmt.Errorf("parse sentiment response: %w", err)
	}

	return &capability.Sentiment{
		Label: strings.ToUpper(strings.TrimSpace(payload.Label)),
		Score: payload.Score,
	}, nil
}

const rephrasePrompt = `Rewrite the following job description in plain language at roughly
a 10th-grade reading level. Keep every requirement, keep the meaning, and
respond with the rewritten text only:

%s`

// Rephraser prompts for a simplified rewrite.
type Rephraser struct {
	gen ContentGenerator
}

func (r *Rephraser) Rephrase(ctx context.Context, text string) (string, error) {
	raw, err := r.gen.GenerateContent(ctx, fmt.Sprintf(rephrasePrompt, text))
	if err != nil {
		return "", fmt.Errorf("rephrase: %w", err)
	}
	return strings.TrimSpace(raw), nil
}

// decodeJSON parses a model response that may arrive wrapped in a markdown
// code fence.
func decodeJSON(raw string, target any) error {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if err := json.Unmarshal([]byte(cleaned), target); err != nil {
		return fmt.Errorf("unmarshal model response: %w", err)
	}
	return nil
}
