package downloader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/regpipe/regpipe/app/crawler"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain title", "Circular 3 of 2025", "Circular 3 of 2025"},
		{"reserved characters", `BPRD Circular: "Letter No. 7" <final>`, "BPRD Circular_ _Letter No. 7_ _final_"},
		{"path separators", "Rules/Regulations\\2025", "Rules_Regulations_2025"},
		{"newlines and tabs", "Line one\r\nLine\ttwo", "Line one Line two"},
		{"whitespace runs", "Too    many   spaces", "Too many spaces"},
		{"empty", "", "document"},
		{"only reserved", "???", "___"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeFilename(tt.input)
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSanitizeFilenameLengthCap(t *testing.T) {
	long := strings.Repeat("a", 300)
	got := SanitizeFilename(long)
	if len([]rune(got)) != 200 {
		t.Errorf("Expected 200 runes, got %d", len([]rune(got)))
	}
}

func TestExtractExtension(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://www.sbp.org.pk/bprd/2025/C3.pdf", "pdf"},
		{"https://example.com/doc.DOCX", "docx"},
		{"https://example.com/page.htm?download=1", "htm"},
		{"https://example.com/no-extension", ""},
	}

	for _, tt := range tests {
		got := extractExtension(tt.url)
		if got != tt.expected {
			t.Errorf("Expected extension %q for %s, got %q", tt.expected, tt.url, got)
		}
	}
}

func TestDownloadBinary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4 fake content"))
	}))
	defer server.Close()

	d, err := NewDownloader(t.TempDir(), server.Client(), nil, "test-agent")
	if err != nil {
		t.Fatalf("Failed to create downloader: %v", err)
	}

	doc := &crawler.Document{
		Title:       "Circular 3 of 2025",
		DocumentURL: server.URL + "/C3.pdf",
	}

	path, hash, err := d.Download(context.Background(), doc)
	if err != nil {
		t.Fatalf("Unexpected download error: %v", err)
	}
	defer os.Remove(path)

	if !strings.HasSuffix(path, "Circular 3 of 2025.pdf") {
		t.Errorf("Expected sanitized pdf filename, got %s", path)
	}
	if hash == "" {
		t.Error("Expected non-empty content hash")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read downloaded file: %v", err)
	}
	if string(data) != "%PDF-1.4 fake content" {
		t.Errorf("Unexpected file content: %s", data)
	}
}

func TestDownloadFallsBackToUrduURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("urdu version"))
	}))
	defer server.Close()

	d, err := NewDownloader(t.TempDir(), server.Client(), nil, "test-agent")
	if err != nil {
		t.Fatalf("Failed to create downloader: %v", err)
	}

	doc := &crawler.Document{
		Title:   "Urdu Circular",
		UrduURL: server.URL + "/urdu.pdf",
	}

	path, _, err := d.Download(context.Background(), doc)
	if err != nil {
		t.Fatalf("Unexpected download error: %v", err)
	}
	defer os.Remove(path)
}

func TestDownloadRejectsJavascriptURL(t *testing.T) {
	d, err := NewDownloader(t.TempDir(), http.DefaultClient, nil, "test-agent")
	if err != nil {
		t.Fatalf("Failed to create downloader: %v", err)
	}

	doc := &crawler.Document{
		Title:       "Broken",
		DocumentURL: "javascript:void(0)",
	}

	_, _, err = d.Download(context.Background(), doc)
	if err == nil {
		t.Fatal("Expected error for javascript URL")
	}

	var retrievalErr *RetrievalError
	if !errors.As(err, &retrievalErr) {
		t.Fatalf("Expected RetrievalError, got %T", err)
	}
}

func TestDownloadExhaustsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	d, err := NewDownloader(t.TempDir(), server.Client(), nil, "test-agent")
	if err != nil {
		t.Fatalf("Failed to create downloader: %v", err)
	}
	d.backoff = 0

	doc := &crawler.Document{
		Title:       "Unavailable",
		DocumentURL: server.URL + "/gone.pdf",
	}

	_, _, err = d.Download(context.Background(), doc)
	if err == nil {
		t.Fatal("Expected error after exhausted retries")
	}

	var retrievalErr *RetrievalError
	if !errors.As(err, &retrievalErr) {
		t.Fatalf("Expected RetrievalError, got %T", err)
	}
	if retrievalErr.URL != doc.DocumentURL {
		t.Errorf("Expected failing URL in error, got %s", retrievalErr.URL)
	}
}

func TestDownloadWpdmdlURLTreatedAsBinary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("binary payload"))
	}))
	defer server.Close()

	d, err := NewDownloader(t.TempDir(), server.Client(), nil, "test-agent")
	if err != nil {
		t.Fatalf("Failed to create downloader: %v", err)
	}

	doc := &crawler.Document{
		Title:       "Companies Regulations",
		DocumentURL: server.URL + "/?wpdmdl=12345",
	}

	path, _, err := d.Download(context.Background(), doc)
	if err != nil {
		t.Fatalf("Unexpected download error: %v", err)
	}
	defer os.Remove(path)

	if !strings.HasSuffix(path, ".pdf") {
		t.Errorf("Expected default pdf extension for wpdmdl URL, got %s", path)
	}
}
