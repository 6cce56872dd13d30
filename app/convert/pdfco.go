package convert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ConversionError signals a conversion-service failure or invalid output.
type ConversionError struct {
	Stage string
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion failed at %s: %v", e.Stage, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Client talks to the PDF.co REST API: upload a file, start a PDF→HTML
// conversion with OCR, and poll the job until it settles. Calls can block
// for minutes on large scanned documents.
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	pollInterval time.Duration
}

// pdfcoResponse covers the overlapping shapes of upload, convert and
// job-check responses.
type pdfcoResponse struct {
	Error   bool     `json:"error"`
	Message string   `json:"message"`
	Status  string   `json:"status"`
	JobID   string   `json:"jobId"`
	URL     string   `json:"url"`
	URLs    []string `json:"urls"`
	HTML    string   `json:"html"`
	Body    string   `json:"body"`
}

func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = "https://api.pdf.co"
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		httpClient:   httpClient,
		pollInterval: 3 * time.Second,
	}
}

// PDFToHTML converts a local PDF (digital or scanned) to HTML. The language
// hint drives OCR, e.g. "eng" or "eng+ara" for bilingual documents.
func (c *Client) PDFToHTML(ctx context.Context, pdfPath, lang string) (string, error) {
	if c.apiKey == "" {
		return "", &ConversionError{Stage: "setup", Err: fmt.Errorf("PDF.co API key is not configured")}
	}

	fileURL, err := c.upload(ctx, pdfPath)
	if err != nil {
		return "", &ConversionError{Stage: "upload", Err: err}
	}

	result, err := c.startConversion(ctx, fileURL, lang)
	if err != nil {
		return "", &ConversionError{Stage: "convert", Err: err}
	}

	// A URL in the immediate response means the conversion already finished.
	if result.URL != "" {
		html, err := c.fetchText(ctx, result.URL)
		if err != nil {
			return "", &ConversionError{Stage: "fetch", Err: err}
		}
		return html, nil
	}

	if result.JobID == "" {
		return "", &ConversionError{Stage: "convert", Err: fmt.Errorf("no jobId in response")}
	}

	final, err := c.pollJob(ctx, result.JobID)
	if err != nil {
		return "", &ConversionError{Stage: "poll", Err: err}
	}

	html, err := c.collectOutput(ctx, final)
	if err != nil {
		return "", &ConversionError{Stage: "fetch", Err: err}
	}
	return html, nil
}

func (c *Client) upload(ctx context.Context, pdfPath string) (string, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(pdfPath))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("failed to read PDF: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/file/upload", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	if resp.Error {
		return "", fmt.Errorf("upload rejected: %s", resp.Message)
	}
	if resp.URL == "" {
		return "", fmt.Errorf("upload returned no file URL")
	}
	return resp.URL, nil
}

func (c *Client) startConversion(ctx context.Context, fileURL, lang string) (*pdfcoResponse, error) {
	params := url.Values{}
	params.Set("url", fileURL)
	params.Set("ocr", "true")
	params.Set("lang", lang)
	params.Set("async", "false")

	req, err := http.NewRequestWithContext(ctx, "POST",
		c.baseURL+"/v1/pdf/convert/to/html?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create convert request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if resp.Error && resp.URL == "" {
		return nil, fmt.Errorf("conversion start failed: %s", resp.Message)
	}
	return resp, nil
}

func (c *Client) pollJob(ctx context.Context, jobID string) (*pdfcoResponse, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		req, err := http.NewRequestWithContext(ctx, "GET",
			c.baseURL+"/v1/job/check?jobid="+url.QueryEscape(jobID), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create job check request: %w", err)
		}

		resp, err := c.do(req)
		if err != nil {
			return nil, err
		}

		slog.Debug("Conversion job status", "job_id", jobID, "status", resp.Status)

		switch resp.Status {
		case "success":
			return resp, nil
		case "failed", "aborted":
			return nil, fmt.Errorf("conversion job %s: %s", resp.Status, resp.Message)
		}
	}
}

// collectOutput handles the response variants: inline html, inline body, a
// single output URL, or one URL per page.
func (c *Client) collectOutput(ctx context.Context, resp *pdfcoResponse) (string, error) {
	if resp.HTML != "" {
		return resp.HTML, nil
	}
	if resp.Body != "" {
		return resp.Body, nil
	}
	if resp.URL != "" {
		return c.fetchText(ctx, resp.URL)
	}
	if len(resp.URLs) > 0 {
		pages := make([]string, 0, len(resp.URLs))
		for _, pageURL := range resp.URLs {
			page, err := c.fetchText(ctx, pageURL)
			if err != nil {
				return "", err
			}
			pages = append(pages, page)
		}
		return strings.Join(pages, "\n"), nil
	}
	return "", fmt.Errorf("no HTML output in job result")
}

func (c *Client) fetchText(ctx context.Context, textURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", textURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create fetch request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch output: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read output: %w", err)
	}
	return string(data), nil
}

func (c *Client) do(req *http.Request) (*pdfcoResponse, error) {
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed pdfcoResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &parsed, nil
}
