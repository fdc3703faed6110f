package imports

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Bucket is the final classification of one upload row. Every analyzed row
// lands in exactly one bucket.
type Bucket string

const (
	BucketNewValid         Bucket = "new_valid"
	BucketUpdateCandidate  Bucket = "update_candidate"
	BucketInvalidNew       Bucket = "invalid_new"
	BucketInvalidDuplicate Bucket = "invalid_duplicate"
)

// ValidationError describes a single field-level problem on one row.
type ValidationError struct {
	Line     int    `json:"line"`
	Field    string `json:"field"`
	Message  string `json:"message"`
	RawValue string `json:"raw_value,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("line %d: %s %s", e.Line, e.Field, e.Message)
}

// NormalizedRow holds the typed field values of one upload row after
// normalization.
type NormalizedRow struct {
	CaseNo            string    `json:"case_no"`
	OccurredOn        time.Time `json:"occurred_on"`
	TimeOfDay         string    `json:"time_of_day"`
	DayOfWeek         string    `json:"day_of_week"`
	CaseStatus        string    `json:"case_status,omitempty"`
	Proximity         string    `json:"proximity,omitempty"`
	IndoorsOrOutdoors string    `json:"indoors_or_outdoors,omitempty"`

	Building   string `json:"building,omitempty"`
	Street     string `json:"street,omitempty"`
	Block      string `json:"block,omitempty"`
	District   string `json:"district"`
	City       string `json:"city"`
	Province   string `json:"province"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code,omitempty"`

	Category      string `json:"category"`
	CategoryGroup string `json:"category_group"`
}

// RowResult is the ephemeral per-row outcome of one analysis run. It is
// never persisted; the caller echoes the new/update lists back verbatim to
// request confirmation.
type RowResult struct {
	Line       int               `json:"line"`
	Fields     NormalizedRow     `json:"fields"`
	PlaceID    int64             `json:"place_id,omitempty"`
	CategoryID int64             `json:"category_id,omitempty"`
	Errors     []ValidationError `json:"errors,omitempty"`
	Bucket     Bucket            `json:"bucket"`
}

func (r RowResult) Valid() bool {
	return len(r.Errors) == 0
}

// AnalysisReport aggregates every RowResult of one upload. The server keeps
// no copy of it; the caller is the source of truth for what to commit.
type AnalysisReport struct {
	UploadID  uuid.UUID `json:"upload_id"`
	Filename  string    `json:"filename,omitempty"`
	TotalRows int       `json:"total_rows"`

	Counts struct {
		New              int `json:"new"`
		Update           int `json:"update"`
		InvalidNew       int `json:"invalid_new"`
		InvalidDuplicate int `json:"invalid_duplicate"`
	} `json:"counts"`

	NewValid         []RowResult `json:"new_valid"`
	UpdateCandidates []RowResult `json:"update_candidates"`
	InvalidNew       []RowResult `json:"invalid_new_rows"`
	InvalidDuplicate []RowResult `json:"invalid_duplicate_rows"`

	Errors []ValidationError `json:"errors,omitempty"`
}

// MissingColumnsError is the structural rejection for an upload whose header
// lacks required columns. No row is processed when it is returned.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Columns, ", ")
}

// ResolutionError marks a row whose place or category could not be resolved
// even after the single retry. Fatal for the row only.
type ResolutionError struct {
	Entity string
	Key    string
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s %q: %v", e.Entity, e.Key, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Action selects what a confirmation call applies.
type Action string

const (
	ActionImportNewOnly   Action = "import_new_only"
	ActionImportAndUpdate Action = "import_and_update"
)

func ParseAction(raw string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(raw))) {
	case ActionImportNewOnly:
		return ActionImportNewOnly, nil
	case ActionImportAndUpdate:
		return ActionImportAndUpdate, nil
	}
	return "", fmt.Errorf("unknown action %q", raw)
}
