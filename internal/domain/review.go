package domain

import (
	"strings"
	"time"
)

// Review is the target record both pipelines feed. Rows coming out of the
// tabular normalizer are persisted directly; extractions go through a human
// confirmation step first.
type Review struct {
	ID         int64
	OwnerID    int64
	Platform   string
	Business   string
	Content    string
	Author     string
	Rating     int
	ReviewDate time.Time
	Verified   bool
	VerifiedBy string
}

// DuplicateKey identifies a review within one ingestion batch:
// lowercase platform + business + first 50 chars of content.
func (r Review) DuplicateKey() string {
	content := []rune(r.Content)
	if len(content) > 50 {
		content = content[:50]
	}
	return strings.ToLower(r.Platform) + "-" + strings.ToLower(r.Business) + "-" + strings.ToLower(string(content))
}

// IngestionOutcome reports one bulk upload. The error sample slice is capped;
// the counts carry the true totals.
type IngestionOutcome struct {
	TotalRows        int
	ValidRows        int
	Created          int
	Skipped          int
	ValidationErrors int
	ProcessingErrors int
	ErrorSamples     []string
}

// Extraction is the best-effort guess produced from free-form or OCR text.
// Author is always masked (first character plus asterisks) before it leaves
// the extractor.
type Extraction struct {
	Platform   string   `json:"platform"`
	Business   string   `json:"business"`
	Author     string   `json:"author"`
	Rating     int      `json:"rating"`
	Date       string   `json:"date"`
	Content    string   `json:"content"`
	Keywords   []string `json:"keywords,omitempty"`
	Sentiment  string   `json:"sentiment"`
	Confidence float64  `json:"confidence"`
	RawText    string   `json:"rawText"`
}
