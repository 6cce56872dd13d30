package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/regpipe/regpipe/app/convert"
)

// AnalysisError signals that compliance analysis could not produce a result.
// The pipeline records it but never lets it fail an already-stored document.
type AnalysisError struct {
	Err error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed: %v", e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// Requirement is one obligation extracted from a regulatory document.
type Requirement struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Deadline      string `json:"deadline,omitempty"`
	Severity      string `json:"severity,omitempty"`
	Applicability string `json:"applicability,omitempty"`
}

// Result is the structured output of one document analysis.
type Result struct {
	Summary      string        `json:"summary"`
	Requirements []Requirement `json:"requirements"`
	DocumentType string        `json:"document_type,omitempty"`
}

// maxInputChars caps the text sent per request. Long circulars are truncated
// rather than chunked; the leading pages carry the obligations.
const maxInputChars = 120000

const systemPrompt = `You are a compliance analyst for financial regulators.
Given the text of a regulatory document, extract the compliance requirements
it imposes on regulated entities. Respond with JSON only, in this shape:
{
  "summary": "...",
  "document_type": "...",
  "requirements": [
    {"title": "...", "description": "...", "deadline": "...", "severity": "...", "applicability": "..."}
  ]
}
Omit deadline, severity or applicability when the document does not state
them. An informational document with no obligations has an empty
requirements array.`

// Analyzer extracts compliance requirements from document HTML using the
// Gemini API.
type Analyzer struct {
	client *genai.Client
	model  string
}

// NewAnalyzer creates a new analyzer.
func NewAnalyzer(ctx context.Context, apiKey, model string) (*Analyzer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Analyzer{
		client: client,
		model:  model,
	}, nil
}

// AnalyzeHTML reduces the document HTML to readable text and runs requirement
// extraction over it. Readability extraction drops page chrome around the
// document body; pages without an identifiable article fall back to a plain
// markup strip.
func (a *Analyzer) AnalyzeHTML(ctx context.Context, html string) (*Result, error) {
	return a.AnalyzeText(ctx, convert.ReadableText(html))
}

// AnalyzeText runs requirement extraction over plain document text.
func (a *Analyzer) AnalyzeText(ctx context.Context, text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &AnalysisError{Err: fmt.Errorf("document has no analyzable text")}
	}
	if runes := []rune(text); len(runes) > maxInputChars {
		text = string(runes[:maxInputChars])
	}

	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, contents,
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			Temperature:       genai.Ptr[float32](0.1),
		})
	if err != nil {
		return nil, &AnalysisError{Err: fmt.Errorf("GenAI request failed: %w", err)}
	}

	raw := resp.Text()
	if raw == "" {
		return nil, &AnalysisError{Err: fmt.Errorf("empty model response")}
	}

	result, err := ParseResult(raw)
	if err != nil {
		return nil, &AnalysisError{Err: err}
	}
	return result, nil
}

// ParseResult decodes a model response into a Result. Code fences around the
// JSON are tolerated.
func ParseResult(raw string) (*Result, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("failed to decode analysis response: %w", err)
	}
	return &result, nil
}
