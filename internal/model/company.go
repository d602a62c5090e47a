package model

import "context"

// Required input column names.
const (
	ColName           = "Company Name"
	ColFoundedYear    = "Founded Year"
	ColTotalEmployees = "Total Employees"
	ColHeadquarters   = "Headquarters"
	ColIndustry       = "Industry"
	ColDescription    = "Description"
)

// RequiredColumns lists every column the input CSV must carry.
var RequiredColumns = []string{
	ColName,
	ColFoundedYear,
	ColTotalEmployees,
	ColHeadquarters,
	ColIndustry,
	ColDescription,
}

// Optional input columns read when present.
const (
	ColEmployeeLocations = "Employee Locations"
	ColGrowth2Y          = "Employee Growth 2Y (%)"
	ColGrowth1Y          = "Employee Growth 1Y (%)"
	ColGrowth6M          = "Employee Growth 6M (%)"
)

// CompanyRecord is one input row describing a company.
type CompanyRecord struct {
	Line           int // 1-based line in the input file (header is line 1)
	Name           string
	FoundedYear    int
	TotalEmployees int
	Headquarters   string
	Industry       string
	Description    string

	// Optional; empty or nil when the input lacks the column or the cell is blank.
	EmployeeLocations string   // headcount by country, e.g. {'USA': 30, 'Canada': 5}
	Growth2Y          *float64 // headcount growth in percent over the period
	Growth1Y          *float64
	Growth6M          *float64
}

// EnrichmentResult holds the fields derived from one model response.
type EnrichmentResult struct {
	GrowthPotential int      // 1-10
	RiskLevel       int      // 1-10, higher is riskier
	RiskAssessment  string   // free-text rationale following the score
	KeyStrengths    []string // ordered
	Classification  string

	// Optional sections; empty when the model omitted them.
	Concerns             []string
	TargetMarket         string
	CompetitiveAdvantage string
}

// Status is the per-row processing outcome written to the output CSV.
type Status string

const (
	StatusOK          Status = "ok"
	StatusInvalid     Status = "invalid"
	StatusAuthError   Status = "auth_error"
	StatusRateLimited Status = "rate_limited"
	StatusAPIError    Status = "api_error"
	StatusParseError  Status = "parse_error"
	StatusCancelled   Status = "cancelled"
)

// Row is one parsed input line: either a valid record or the reason it is invalid.
// Cells keeps every input value, in header order, for passthrough to the output.
type Row struct {
	Record  CompanyRecord
	Cells   []string
	Invalid *ValidationError
}

// Outcome pairs an input row with its enrichment result or failure.
type Outcome struct {
	Row         Row
	Result      *EnrichmentResult
	Status      Status
	Err         string
	Interesting bool
}

// Classifier turns a company record into an enrichment result.
type Classifier interface {
	Classify(ctx context.Context, rec CompanyRecord) (EnrichmentResult, error)
}

// ResultCache stores successful enrichment results between runs.
type ResultCache interface {
	Get(key string) (*EnrichmentResult, error)
	Put(key string, res EnrichmentResult) error
}

// Notifier delivers the end-of-run summary.
type Notifier interface {
	Notify(summary Summary) error
}

// Screener decides whether an enriched company meets the investment criteria.
type Screener interface {
	Interesting(rec CompanyRecord, res EnrichmentResult) bool
}
