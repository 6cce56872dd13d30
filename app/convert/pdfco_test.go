package convert

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTestPDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 test"), 0o644); err != nil {
		t.Fatalf("Failed to write test PDF: %v", err)
	}
	return path
}

func TestPDFToHTMLImmediateResult(t *testing.T) {
	var convertedURL string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/v1/file/upload"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": false, "url": "https://files.example.com/doc.pdf",
			})
		case strings.HasPrefix(r.URL.Path, "/v1/pdf/convert/to/html"):
			if r.URL.Query().Get("ocr") != "true" {
				t.Errorf("Expected ocr=true, got '%s'", r.URL.Query().Get("ocr"))
			}
			if r.URL.Query().Get("lang") != "eng+ara" {
				t.Errorf("Expected lang 'eng+ara', got '%s'", r.URL.Query().Get("lang"))
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": false, "url": convertedURL,
			})
		case r.URL.Path == "/output.html":
			w.Write([]byte("<html><body>converted content</body></html>"))
		default:
			t.Errorf("Unexpected request path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()
	convertedURL = server.URL + "/output.html"

	client := NewClient(server.URL, "test-key", server.Client())

	html, err := client.PDFToHTML(context.Background(), writeTestPDF(t), "eng+ara")
	if err != nil {
		t.Fatalf("Unexpected conversion error: %v", err)
	}
	if !strings.Contains(html, "converted content") {
		t.Errorf("Expected converted content in output, got '%s'", html)
	}
}

func TestPDFToHTMLJobPolling(t *testing.T) {
	checks := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/v1/file/upload"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": false, "url": "https://files.example.com/doc.pdf",
			})
		case strings.HasPrefix(r.URL.Path, "/v1/pdf/convert/to/html"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": false, "jobId": "job-42",
			})
		case strings.HasPrefix(r.URL.Path, "/v1/job/check"):
			if r.URL.Query().Get("jobid") != "job-42" {
				t.Errorf("Expected jobid 'job-42', got '%s'", r.URL.Query().Get("jobid"))
			}
			checks++
			if checks < 3 {
				json.NewEncoder(w).Encode(map[string]interface{}{"status": "working"})
			} else {
				json.NewEncoder(w).Encode(map[string]interface{}{
					"status": "success", "body": "<p>ocr output from job</p>",
				})
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", server.Client())
	client.pollInterval = 10 * time.Millisecond

	html, err := client.PDFToHTML(context.Background(), writeTestPDF(t), "eng")
	if err != nil {
		t.Fatalf("Unexpected conversion error: %v", err)
	}
	if html != "<p>ocr output from job</p>" {
		t.Errorf("Expected job output, got '%s'", html)
	}
	if checks < 3 {
		t.Errorf("Expected at least 3 job checks, got %d", checks)
	}
}

func TestPDFToHTMLJobFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/v1/file/upload"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": false, "url": "https://files.example.com/doc.pdf",
			})
		case strings.HasPrefix(r.URL.Path, "/v1/pdf/convert/to/html"):
			json.NewEncoder(w).Encode(map[string]interface{}{"error": false, "jobId": "job-1"})
		case strings.HasPrefix(r.URL.Path, "/v1/job/check"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "failed", "message": "unreadable document",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", server.Client())
	client.pollInterval = 10 * time.Millisecond

	_, err := client.PDFToHTML(context.Background(), writeTestPDF(t), "eng")
	if err == nil {
		t.Fatal("Expected error for failed job")
	}

	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("Expected ConversionError, got %T", err)
	}
	if convErr.Stage != "poll" {
		t.Errorf("Expected stage 'poll', got '%s'", convErr.Stage)
	}
}

func TestPDFToHTMLMissingAPIKey(t *testing.T) {
	client := NewClient("", "", http.DefaultClient)

	_, err := client.PDFToHTML(context.Background(), "ignored.pdf", "eng")
	if err == nil {
		t.Fatal("Expected error without API key")
	}

	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("Expected ConversionError, got %T", err)
	}
}

func TestPDFToHTMLUploadRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": true, "message": "file too large",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", server.Client())

	_, err := client.PDFToHTML(context.Background(), writeTestPDF(t), "eng")
	if err == nil {
		t.Fatal("Expected error for rejected upload")
	}

	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("Expected ConversionError, got %T", err)
	}
	if convErr.Stage != "upload" {
		t.Errorf("Expected stage 'upload', got '%s'", convErr.Stage)
	}
}
