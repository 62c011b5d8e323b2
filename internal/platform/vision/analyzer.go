// Package vision analyzes circuit diagram images with Google's Gemini
// multimodal API. Each analysis is a single model call; failures are
// reported to the caller, who treats them as data rather than retrying.
package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// Analyzer identifies electric circuit components in a diagram image.
type Analyzer interface {
	// Analyze runs one model call over the image and returns the
	// structured result. It does not retry on failure.
	Analyze(ctx context.Context, imageData []byte, mimeType string) (*Analysis, error)
}

const analysisPrompt = `You are an expert in middle school physics. Identify the
electric circuit components in this diagram. Respond with ONLY a JSON object:
{"elements": [{"type": "<battery|resistor|lamp|switch|ammeter|voltmeter|rheostat>",
"label": "<label in diagram, if any>", "count": <number>}],
"confidence": <0.0-1.0>, "assumptions": ["<anything you had to assume>"],
"summary": "<one sentence describing the circuit>"}`

// GeminiAnalyzer implements Analyzer using the Gemini API.
type GeminiAnalyzer struct {
	logger *slog.Logger
	client *genai.Client
	model  string
}

// Ensure GeminiAnalyzer implements Analyzer interface
var _ Analyzer = (*GeminiAnalyzer)(nil)

// NewGeminiAnalyzer creates a new analyzer backed by the Gemini API.
func NewGeminiAnalyzer(ctx context.Context, logger *slog.Logger, apiKey, model string) (*GeminiAnalyzer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}
	if model == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrInvalidConfig, err)
	}

	return &GeminiAnalyzer{
		logger: logger.With(slog.String("component", "vision")),
		client: client,
		model:  model,
	}, nil
}

// Analyze implements the Analyzer interface with a single Gemini call.
func (a *GeminiAnalyzer) Analyze(ctx context.Context, imageData []byte, mimeType string) (*Analysis, error) {
	if len(imageData) == 0 {
		return nil, ErrEmptyImage
	}
	if mimeType == "" {
		mimeType = "image/png"
	}

	a.logger.InfoContext(ctx, "making Gemini vision call",
		"model", a.model,
		"image_bytes", len(imageData))

	contents := []*genai.Content{{
		Parts: []*genai.Part{
			genai.NewPartFromText(analysisPrompt),
			genai.NewPartFromBytes(imageData, mimeType),
		},
	}}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, contents, nil)
	if err != nil {
		a.logger.ErrorContext(ctx, "Gemini vision call failed", "error", err)
		return nil, fmt.Errorf("vision model call failed: %w", err)
	}

	text, err := extractText(resp)
	if err != nil {
		a.logger.WarnContext(ctx, "unusable Gemini response", "error", err)
		return nil, err
	}

	analysis, err := parseAnalysis(text)
	if err != nil {
		a.logger.WarnContext(ctx, "failed to parse model output",
			"error", err,
			"text_length", len(text))
		return nil, err
	}

	a.logger.InfoContext(ctx, "Gemini vision call successful",
		"elements", len(analysis.Elements),
		"confidence", analysis.Confidence)
	return analysis, nil
}

// extractText pulls the text parts out of a model response.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", ErrContentBlocked
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: no text in response", ErrInvalidResponse)
	}
	return sb.String(), nil
}

// parseAnalysis extracts the JSON object from model text and normalizes it.
// Models sometimes wrap JSON in markdown fences or prose, so we take the
// outermost brace-delimited object.
func parseAnalysis(text string) (*Analysis, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in model text", ErrInvalidResponse)
	}

	var parsed responseSchema
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON: %v", ErrInvalidResponse, err)
	}

	analysis := &Analysis{
		Confidence:  clampConfidence(parsed.Confidence),
		Assumptions: parsed.Assumptions,
		Summary:     parsed.Summary,
		Elements:    make([]Element, 0, len(parsed.Elements)),
	}

	for _, e := range parsed.Elements {
		elemType := ElementType(strings.ToLower(strings.TrimSpace(e.Type)))
		if !allowedElementTypes[elemType] {
			continue
		}
		count := e.Count
		if count < 1 {
			count = 1
		}
		analysis.Elements = append(analysis.Elements, Element{
			Type:  elemType,
			Label: e.Label,
			Count: count,
		})
	}

	return analysis, nil
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
