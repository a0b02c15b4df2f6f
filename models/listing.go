package models

import "time"

// Source identifies which listing site a URL belongs to.
type Source string

const (
	SourceOikotie Source = "oikotie"
	SourceEtuovi  Source = "etuovi"
	SourceUnknown Source = "unknown"
)

// DisplayName is the human-readable site name used in document headers.
func (s Source) DisplayName() string {
	switch s {
	case SourceOikotie:
		return "Oikotie"
	case SourceEtuovi:
		return "Etuovi"
	default:
		return "Tuntematon lähde"
	}
}

// ListingReference is derived from a URL on every extraction request.
type ListingReference struct {
	Source     Source
	URL        string
	PropertyID string
}

// RawExtractionResult is the outcome of one pipeline run. A retry produces a
// new value; results are never mutated after they are returned.
type RawExtractionResult struct {
	Success bool
	// RawText is the converter output before any reformatting.
	RawText string
	// Document is the canonical markdown built from RawText.
	Document string
	Error    string
	Source   Source
}

// ExtractionResult is what the extraction façade hands to the rest of the application.
type ExtractionResult struct {
	Success  bool
	Markdown string
	Source   Source
	Error    string
}

// Analysis bundles everything persisted for one analysed listing.
type Analysis struct {
	ID          int64
	UserID      int64
	URL         string
	Title       string
	Markdown    string
	Content     string
	Property    PropertyRecord
	Risk        *RiskReport
	CreatedAt   time.Time
	ArchivePath string
}
