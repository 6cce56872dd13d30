package analyzer

import (
	"context"
	"errors"
	"testing"
)

func TestParseResult(t *testing.T) {
	raw := `{
		"summary": "Circular on outsourcing arrangements",
		"document_type": "circular",
		"requirements": [
			{"title": "Board approval", "description": "Outsourcing requires board approval", "severity": "high"},
			{"title": "Notification", "description": "Notify the regulator within 30 days", "deadline": "30 days"}
		]
	}`

	result, err := ParseResult(raw)
	if err != nil {
		t.Fatalf("Unexpected parse error: %v", err)
	}

	if result.Summary != "Circular on outsourcing arrangements" {
		t.Errorf("Expected summary 'Circular on outsourcing arrangements', got '%s'", result.Summary)
	}
	if result.DocumentType != "circular" {
		t.Errorf("Expected document type 'circular', got '%s'", result.DocumentType)
	}
	if len(result.Requirements) != 2 {
		t.Fatalf("Expected 2 requirements, got %d", len(result.Requirements))
	}
	if result.Requirements[0].Severity != "high" {
		t.Errorf("Expected severity 'high', got '%s'", result.Requirements[0].Severity)
	}
	if result.Requirements[1].Deadline != "30 days" {
		t.Errorf("Expected deadline '30 days', got '%s'", result.Requirements[1].Deadline)
	}
}

func TestParseResultWithCodeFences(t *testing.T) {
	raw := "```json\n{\"summary\": \"fenced\", \"requirements\": []}\n```"

	result, err := ParseResult(raw)
	if err != nil {
		t.Fatalf("Unexpected parse error: %v", err)
	}
	if result.Summary != "fenced" {
		t.Errorf("Expected summary 'fenced', got '%s'", result.Summary)
	}
	if len(result.Requirements) != 0 {
		t.Errorf("Expected no requirements, got %d", len(result.Requirements))
	}
}

func TestParseResultInvalidJSON(t *testing.T) {
	if _, err := ParseResult("not json at all"); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestAnalyzeHTMLRejectsContentlessDocument(t *testing.T) {
	// Readable-text extraction yields nothing here, so the request is
	// rejected before the model is ever called.
	a := &Analyzer{}
	_, err := a.AnalyzeHTML(context.Background(), "<html><body><script>var x = 1;</script></body></html>")
	if err == nil {
		t.Fatal("Expected error for a document with no readable text")
	}

	var analysisErr *AnalysisError
	if !errors.As(err, &analysisErr) {
		t.Errorf("Expected AnalysisError, got %T", err)
	}
}
