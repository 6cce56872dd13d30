package crawler

import (
	"strings"
	"testing"
)

const samaLawsListingHTML = `<html><body>
	<nav><a href="/en">Home</a> <a href="/en/search">Search</a></nav>
	<div class="boxes">
		<a href="/en/banking-control-law">Banking Control Law</a>
		<a href="/en/finance-companies-control-law">Finance Companies Control Law</a>
		<a href="/en/banking-control-law">Banking Control Law</a>
		<a href="/en/print">Custom Print</a>
		<a href="/en/updates">View Updates</a>
		<a href="/en/ch1">Chapter One: General Provisions</a>
		<a href="https://rulebook.sama.gov.sa/en/payment-services-regulations">Payment Services Regulations</a>
		<a href="/en/x">Go</a>
	</div>
</body></html>`

func TestParseLawLinks(t *testing.T) {
	c := NewSAMALawsCollector(nil, "", 0)

	links, err := c.parseLawLinks(samaLawsListingHTML)
	if err != nil {
		t.Fatalf("Unexpected parse error: %v", err)
	}

	if len(links) != 3 {
		t.Fatalf("Expected 3 law links, got %d", len(links))
	}
	if links[0].title != "Banking Control Law" {
		t.Errorf("Expected 'Banking Control Law', got '%s'", links[0].title)
	}
	if links[0].url != "https://rulebook.sama.gov.sa/en/banking-control-law" {
		t.Errorf("Expected absolute URL, got '%s'", links[0].url)
	}
	if links[2].url != "https://rulebook.sama.gov.sa/en/payment-services-regulations" {
		t.Errorf("Expected absolute URL kept as-is, got '%s'", links[2].url)
	}

	for _, link := range links {
		lower := strings.ToLower(link.title)
		if strings.Contains(lower, "chapter") || strings.Contains(lower, "print") {
			t.Errorf("Expected navigation link filtered out, got '%s'", link.title)
		}
	}
}

const samaLawDetailHTML = `<html><body>
	<div id="viewall-entire-section">
		<table class="info-table"><tr><td>
			No: M/5 Date(g): 12/06/1966 Date(h): 22/02/1386
			<span class="document_status">Status: In-Force</span>
		</td></tr></table>
		<h2 class="page-title">Banking Control Law</h2>
		<p>Article 1: The following terms shall have the meanings assigned.</p>
		<script>trackPage()</script>
	</div>
	<a href="/sites/default/files/banking_control_law.pdf">Download Original PDF</a>
</body></html>`

func TestParseLawDetail(t *testing.T) {
	c := NewSAMALawsCollector(nil, "", 0)

	detail, err := c.parseLawDetail(samaLawDetailHTML)
	if err != nil {
		t.Fatalf("Unexpected parse error: %v", err)
	}

	if detail.referenceNo != "M/5" {
		t.Errorf("Expected reference 'M/5', got '%s'", detail.referenceNo)
	}
	if detail.dateGregorian != "12/06/1966" {
		t.Errorf("Expected gregorian date '12/06/1966', got '%s'", detail.dateGregorian)
	}
	if detail.dateHijri != "22/02/1386" {
		t.Errorf("Expected hijri date '22/02/1386', got '%s'", detail.dateHijri)
	}
	if detail.status != "In-Force" {
		t.Errorf("Expected status 'In-Force', got '%s'", detail.status)
	}
	if detail.pdfLink != "https://rulebook.sama.gov.sa/sites/default/files/banking_control_law.pdf" {
		t.Errorf("Expected absolute PDF link, got '%s'", detail.pdfLink)
	}

	if !strings.Contains(detail.contentHTML, "Article 1") {
		t.Errorf("Expected law text in content HTML, got '%s'", detail.contentHTML)
	}
	if strings.Contains(detail.contentHTML, "info-table") {
		t.Error("Expected info table removed from content HTML")
	}
	if strings.Contains(detail.contentHTML, "page-title") {
		t.Error("Expected title heading removed from content HTML")
	}
	if strings.Contains(detail.contentHTML, "trackPage") {
		t.Error("Expected scripts removed from content HTML")
	}
}

func TestBuildLawDocument(t *testing.T) {
	c := NewSAMALawsCollector(nil, "", 0)

	link := samaLawLink{title: "Banking Control Law", url: "https://rulebook.sama.gov.sa/en/banking-control-law"}
	detail := samaLawDetail{
		referenceNo:   "M/5",
		dateGregorian: "12/06/1966",
		dateHijri:     "22/02/1386",
		status:        "In-Force",
		pdfLink:       "https://rulebook.sama.gov.sa/files/bcl.pdf",
		contentHTML:   "<p>Article 1</p>",
	}

	doc := c.buildDocument(link, detail, "https://rulebook.sama.gov.sa/en/book-category/1361")

	if doc.Regulator != RegulatorSAMA {
		t.Errorf("Expected SAMA regulator, got '%s'", doc.Regulator)
	}
	if doc.Category != "Laws and Implementing Regulations" {
		t.Errorf("Expected laws category, got '%s'", doc.Category)
	}
	if doc.Meta("org_pdf_link") != detail.pdfLink {
		t.Errorf("Expected org_pdf_link meta, got '%s'", doc.Meta("org_pdf_link"))
	}
	if doc.FileType != "PDF" {
		t.Errorf("Expected PDF file type when a PDF link exists, got '%s'", doc.FileType)
	}
	if doc.Year != "1966" {
		t.Errorf("Expected year '1966', got '%s'", doc.Year)
	}

	wantPath := []string{"SAMA", "SAMA RULEBOOK", "Laws and Implementing Regulations", "Banking Control Law"}
	if strings.Join(doc.DocPath, " / ") != strings.Join(wantPath, " / ") {
		t.Errorf("Expected doc path %v, got %v", wantPath, doc.DocPath)
	}
}
