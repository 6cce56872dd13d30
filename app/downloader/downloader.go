package downloader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/regpipe/regpipe/app/crawler"
	"golang.org/x/text/unicode/norm"
)

// RetrievalError signals that a document could not be obtained after all
// retries. The pipeline treats it as terminal for the affected descriptor.
type RetrievalError struct {
	URL string
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed for %s: %v", e.URL, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// directDownloadExtensions are saved as-is; everything else is rendered to
// PDF through the headless browser.
var directDownloadExtensions = map[string]bool{
	"pdf": true, "doc": true, "docx": true, "xls": true, "xlsx": true,
	"csv": true, "zip": true, "rtf": true, "txt": true,
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespaceRun       = regexp.MustCompile(`\s+`)
)

// Downloader obtains a local copy of a document's underlying file: binary
// URLs are streamed to disk, HTML pages are rendered to PDF.
type Downloader struct {
	downloadDir string
	client      *http.Client
	browser     *crawler.Browser
	userAgent   string
	retries     int
	backoff     time.Duration
}

func NewDownloader(downloadDir string, client *http.Client, browser *crawler.Browser, userAgent string) (*Downloader, error) {
	if err := os.MkdirAll(downloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}
	return &Downloader{
		downloadDir: downloadDir,
		client:      client,
		browser:     browser,
		userAgent:   userAgent,
		retries:     3,
		backoff:     1500 * time.Millisecond,
	}, nil
}

// Download retrieves the document's file and returns its local path plus a
// sha256 content hash. The caller owns the file and is expected to delete it
// once processed.
func (d *Downloader) Download(ctx context.Context, doc *crawler.Document) (string, string, error) {
	docURL := strings.TrimSpace(doc.DocumentURL)
	if docURL == "" {
		docURL = strings.TrimSpace(doc.UrduURL)
	}
	if docURL == "" || strings.HasPrefix(strings.ToLower(docURL), "javascript") {
		return "", "", &RetrievalError{URL: docURL, Err: fmt.Errorf("invalid or unsupported URL")}
	}

	filename := SanitizeFilename(doc.Title)
	ext := extractExtension(docURL)

	// SECP serves binaries behind wpdmdl/download URLs with no extension.
	if strings.Contains(docURL, "wpdmdl") || strings.Contains(strings.ToLower(docURL), "download") {
		if ext == "" {
			ext = "pdf"
		}
		return d.downloadBinary(ctx, docURL, filename, ext)
	}

	if directDownloadExtensions[ext] {
		return d.downloadBinary(ctx, docURL, filename, ext)
	}

	return d.renderToPDF(ctx, docURL, filename)
}

func (d *Downloader) downloadBinary(ctx context.Context, docURL, filename, ext string) (string, string, error) {
	filePath := filepath.Join(d.downloadDir, filename+"."+ext)

	var lastErr error
	for attempt := 1; attempt <= d.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", "", &RetrievalError{URL: docURL, Err: err}
		}

		err := d.fetchToFile(ctx, docURL, filePath)
		if err == nil {
			hash, err := hashFile(filePath)
			if err != nil {
				return "", "", &RetrievalError{URL: docURL, Err: err}
			}
			slog.Debug("Saved binary document", "path", filePath)
			return filePath, hash, nil
		}

		lastErr = err
		slog.Warn("Binary download failed", "url", docURL, "attempt", attempt, "error", err)
		time.Sleep(d.backoff * time.Duration(attempt))
	}

	return "", "", &RetrievalError{URL: docURL, Err: fmt.Errorf("exhausted %d attempts: %w", d.retries, lastErr)}
}

func (d *Downloader) fetchToFile(ctx context.Context, docURL, filePath string) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", docURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	out, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	_, err = io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(filePath)
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// renderToPDF loads the page in the headless browser and prints it to an A4
// PDF, the retrieval path for HTML-only circulars.
func (d *Downloader) renderToPDF(ctx context.Context, docURL, filename string) (string, string, error) {
	filePath := filepath.Join(d.downloadDir, filename+".pdf")

	var lastErr error
	for attempt := 1; attempt <= d.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", "", &RetrievalError{URL: docURL, Err: err}
		}

		err := d.renderOnce(ctx, docURL, filePath)
		if err == nil {
			hash, err := hashFile(filePath)
			if err != nil {
				return "", "", &RetrievalError{URL: docURL, Err: err}
			}
			slog.Debug("Rendered page to PDF", "path", filePath)
			return filePath, hash, nil
		}

		lastErr = err
		slog.Warn("Render to PDF failed", "url", docURL, "attempt", attempt, "error", err)
		time.Sleep(d.backoff * time.Duration(attempt))
	}

	return "", "", &RetrievalError{URL: docURL, Err: fmt.Errorf("exhausted %d attempts: %w", d.retries, lastErr)}
}

func (d *Downloader) renderOnce(ctx context.Context, docURL, filePath string) error {
	page, err := d.browser.OpenPage(ctx, docURL, 200*time.Second)
	if err != nil {
		return err
	}
	defer page.Close()

	a4Width := 8.27
	a4Height := 11.69
	printBackground := true

	reader, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground: printBackground,
		PaperWidth:      &a4Width,
		PaperHeight:     &a4Height,
	})
	if err != nil {
		return fmt.Errorf("failed to print page to PDF: %w", err)
	}

	out, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	_, err = io.Copy(out, reader)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(filePath)
		return fmt.Errorf("failed to write PDF: %w", err)
	}

	return nil
}

// SanitizeFilename normalizes a document title into a safe filename: NFKD
// normalization, control/reserved character replacement, length cap.
func SanitizeFilename(name string) string {
	if name == "" {
		return "document"
	}

	name = norm.NFKD.String(name)
	name = strings.NewReplacer("\r", " ", "\n", " ", "\t", " ").Replace(name)
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.TrimSpace(whitespaceRun.ReplaceAllString(name, " "))

	if name == "" {
		return "document"
	}
	if runes := []rune(name); len(runes) > 200 {
		name = string(runes[:200])
	}
	return name
}

func extractExtension(docURL string) string {
	parsed, err := url.Parse(docURL)
	if err != nil {
		return ""
	}
	path := parsed.Path
	if idx := strings.LastIndex(path, "."); idx >= 0 {
		return strings.ToLower(path[idx+1:])
	}
	return ""
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for hashing: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
