// Package chem holds the data model shared by every stage of the mixing
// safety pipeline.
package chem

import (
	"strings"
	"time"
)

// Compatibility is the reactivity verdict for one pair of substances.
type Compatibility string

const (
	Compatible   Compatibility = "compatible"
	Incompatible Compatibility = "incompatible"
	Caution      Compatibility = "caution"
	Unknown      Compatibility = "unknown"
)

// ParseCompatibility maps free-form upstream labels onto the closed set.
func ParseCompatibility(s string) Compatibility {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "compatible", "safe":
		return Compatible
	case "incompatible", "dangerous", "danger":
		return Incompatible
	case "caution", "caution required", "may be hazardous":
		return Caution
	default:
		return Unknown
	}
}

// Record is one pairwise reactivity finding. Records are produced by the
// reactivity collaborator and never mutated afterwards.
type Record struct {
	Chemical1 string        `json:"chemical_1" validate:"required"`
	Chemical2 string        `json:"chemical_2" validate:"required"`
	Status    Compatibility `json:"status"`
	Hazards   []string      `json:"hazards"`
	Reference string        `json:"reference,omitempty"`
}

// PairKey identifies the unordered pair regardless of orientation or case.
func (r Record) PairKey() string {
	a := strings.ToLower(strings.TrimSpace(r.Chemical1))
	b := strings.ToLower(strings.TrimSpace(r.Chemical2))
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// RiskLevel grades a classified pair.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
	RiskNone   RiskLevel = "none"
)

// Pair is a Record after classification.
type Pair struct {
	Record
	RiskLevel     RiskLevel `json:"risk_level"`
	SeverityScore int       `json:"severity_score"`
	HazardCount   int       `json:"hazard_count"`
}

// OverallStatus is the verdict for the whole substance set.
type OverallStatus string

const (
	StatusDanger  OverallStatus = "danger"
	StatusCaution OverallStatus = "caution"
	StatusSafe    OverallStatus = "safe"
)

type Summary struct {
	TotalPairs     int           `json:"total_pairs"`
	DangerousCount int           `json:"dangerous_count"`
	CautionCount   int           `json:"caution_count"`
	SafeCount      int           `json:"safe_count"`
	OverallStatus  OverallStatus `json:"overall_status"`
	Message        string        `json:"message"`
}

// Classification partitions a record set into three disjoint buckets.
type Classification struct {
	DangerousPairs  []Pair   `json:"dangerous_pairs"`
	CautionPairs    []Pair   `json:"caution_pairs"`
	SafePairs       []Pair   `json:"safe_pairs"`
	Summary         Summary  `json:"summary"`
	Recommendations []string `json:"recommendations"`
}

// AiStatus reports how far the optional AI stages got.
type AiStatus string

const (
	AiSuccess     AiStatus = "success"
	AiPartial     AiStatus = "partial"
	AiError       AiStatus = "error"
	AiUnavailable AiStatus = "unavailable"
	AiSkipped     AiStatus = "skipped"
)

// Link is a reference registered for a specific substance pair.
type Link struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Source string `json:"source,omitempty"`
	Type   string `json:"type,omitempty"`
}

// SubstanceLink is a generic per-substance reference (an MSDS search).
type SubstanceLink struct {
	Chemical string `json:"chemical"`
	URL      string `json:"url"`
	Title    string `json:"title"`
}

// Resource is a general safety resource included in every bundle.
type Resource struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

type LinkBundle struct {
	SpecificLinks    []Link          `json:"specific_links"`
	MSDSLinks        []SubstanceLink `json:"msds_links"`
	GeneralResources []Resource      `json:"general_resources"`
}

// SimpleResponse is the compact form consumed by thin clients.
type SimpleResponse struct {
	RiskLevel OverallStatus `json:"risk_level"`
	Message   string        `json:"message"`
}

// Result is the cached unit of the hybrid pipeline. A cache hit returns
// exactly the value stored by the run that produced it.
type Result struct {
	AnalysisID       string         `json:"analysis_id"`
	CreatedAt        time.Time      `json:"created_at"`
	Success          bool           `json:"success"`
	Substances       []string       `json:"substances"`
	Classification   Classification `json:"rule_based_analysis"`
	SummaryEnglish   *string        `json:"ai_summary_english"`
	SummaryLocalized *string        `json:"ai_summary_localized"`
	AiStatus         AiStatus       `json:"ai_status"`
	SimpleResponse   SimpleResponse `json:"simple_response"`
	SafetyLinks      LinkBundle     `json:"safety_links"`
}
