package convert

import (
	"strings"
	"testing"
)

func TestHTMLToText(t *testing.T) {
	html := `<html><head><style>body { color: red; }</style></head>
		<body>
			<script>console.log("noise")</script>
			<nav>Menu</nav>
			<p>Banks shall submit returns within 30 days.</p>
			<p>Late submission attracts a penalty.</p>
		</body></html>`

	text, err := HTMLToText(html)
	if err != nil {
		t.Fatalf("Unexpected extraction error: %v", err)
	}

	if !strings.Contains(text, "Banks shall submit returns within 30 days.") {
		t.Errorf("Expected paragraph text in output, got '%s'", text)
	}
	if strings.Contains(text, "console.log") {
		t.Error("Expected script content to be stripped")
	}
	if strings.Contains(text, "Menu") {
		t.Error("Expected nav content to be stripped")
	}
	if strings.Contains(text, "color: red") {
		t.Error("Expected style content to be stripped")
	}
}

func TestCleanTextHyphenBreaks(t *testing.T) {
	got := CleanText("regula-\ntion applies")
	if got != "regulation applies" {
		t.Errorf("Expected 'regulation applies', got '%s'", got)
	}
}

func TestCleanTextPageNumbers(t *testing.T) {
	input := "First clause.\nPage 3 of 12\nSecond clause."
	got := CleanText(input)
	if strings.Contains(got, "Page 3") {
		t.Errorf("Expected page-number line removed, got '%s'", got)
	}
	if !strings.Contains(got, "First clause.") || !strings.Contains(got, "Second clause.") {
		t.Errorf("Expected surrounding text preserved, got '%s'", got)
	}
}

func TestCleanTextCollapsesWhitespace(t *testing.T) {
	got := CleanText("a    b\n\n\n\n\nc")
	if got != "a b\n\nc" {
		t.Errorf("Expected collapsed whitespace, got %q", got)
	}
}

func TestReadableTextFallsBackToStrip(t *testing.T) {
	// Too little structure for readability; the plain strip still works
	got := ReadableText("<div>short notice text</div>")
	if !strings.Contains(got, "short notice text") {
		t.Errorf("Expected fallback extraction, got '%s'", got)
	}
}
