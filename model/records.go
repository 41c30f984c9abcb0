// Package model provides domain types shared across packages.
//
// Records fetched from external sources are validated at ingestion via
// their IsValidRecord predicate rather than scattered field checks.
package model

// Company is one row of the companies dataset.
// Immutable once fetched.
type Company struct {
	Ticker      string `json:"ticker"`
	CompanyName string `json:"company_name"`
	CompanyDesc string `json:"company_desc"`
	Industry    string `json:"industry,omitempty"`
}

// IsValidRecord reports whether the company has the required identifying fields.
func (c Company) IsValidRecord() bool {
	return c.Ticker != "" && c.CompanyName != ""
}

// CompanyMatch is a company scored against the identified themes.
// Produced by the Match stage, one per (run, ticker).
type CompanyMatch struct {
	Ticker           string   `json:"ticker"`
	CompanyName      string   `json:"company_name"`
	Score            float64  `json:"score"`
	MatchedThemes    []string `json:"matched_themes"`
	AlignmentFactors []string `json:"alignment_factors"`
	Industry         string   `json:"industry,omitempty"`
}

// IsValidRecord reports whether the match identifies a company.
func (m CompanyMatch) IsValidRecord() bool {
	return m.Ticker != "" && m.CompanyName != ""
}

// PressRelease is one press-release document for a company.
type PressRelease struct {
	Symbol  string `json:"symbol"`
	Date    string `json:"date,omitempty"`
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
	Link    string `json:"link,omitempty"`
}

// IsValidRecord reports whether the release has the required fields.
func (p PressRelease) IsValidRecord() bool {
	return p.Symbol != "" && p.Title != ""
}

// Evidence is one piece of press-release evidence cited by a validation.
type Evidence struct {
	Evidence string `json:"evidence"`
	Title    string `json:"title"`
	Link     string `json:"link,omitempty"`
}

// CompanyValidation is the evidence-based assessment of one company match.
// Produced by the Validate stage, one per (run, ticker).
type CompanyValidation struct {
	Ticker               string     `json:"ticker"`
	SupportsThemes       bool       `json:"supports_themes"`
	ConfidenceAdjustment float64    `json:"confidence_adjustment"`
	AdjustedScore        *float64   `json:"adjusted_score,omitempty"`
	KeyEvidence          []Evidence `json:"key_evidence"`
	Notes                string     `json:"notes,omitempty"`
}

// IsValidRecord reports whether the validation identifies a company and
// carries a sane adjustment (confidence_adjustment in [-1, 1]).
func (v CompanyValidation) IsValidRecord() bool {
	return v.Ticker != "" && v.ConfidenceAdjustment >= -1.0 && v.ConfidenceAdjustment <= 1.0
}

// RankedCompany merges a match with its validation (when present).
// FinalScore is the validation's adjusted score when set, else the match score.
type RankedCompany struct {
	Rank             int        `json:"rank"`
	Ticker           string     `json:"ticker"`
	CompanyName      string     `json:"company_name"`
	FinalScore       float64    `json:"final_score"`
	OriginalScore    float64    `json:"original_score"`
	MatchedThemes    []string   `json:"matched_themes"`
	AlignmentFactors []string   `json:"alignment_factors"`
	Industry         string     `json:"industry,omitempty"`
	Validated        bool       `json:"validated"`
	SupportsThemes   *bool      `json:"supports_themes,omitempty"`
	KeyEvidence      []Evidence `json:"key_evidence,omitempty"`
	Notes            string     `json:"notes,omitempty"`
}
