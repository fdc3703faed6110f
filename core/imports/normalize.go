package imports

import (
	"strings"
	"time"
)

var validCaseStatus = map[string]string{
	"ongoing":  "Ongoing",
	"resolved": "Resolved",
	"pending":  "Pending",
}

var validIndoorsOutdoors = map[string]string{
	"indoors":  "Indoors",
	"outdoors": "Outdoors",
}

// Normalizer converts one raw labeled row into typed fields. It performs no
// I/O; the outcome is either a fully normalized row or the list of
// field-level errors found.
type Normalizer struct {
	dateFormat string
}

func NewNormalizer(dateFormat string) *Normalizer {
	if strings.TrimSpace(dateFormat) == "" {
		dateFormat = "2006-01-02"
	}
	return &Normalizer{dateFormat: dateFormat}
}

// Normalize trims and type-checks every field of the row at the given
// 1-based source line. If any required field is absent or blank, only the
// presence errors are reported and format checks are skipped; the row is
// still returned so its line number can be carried forward.
func (n *Normalizer) Normalize(line int, raw map[string]string) (NormalizedRow, []ValidationError) {
	get := func(label string) string {
		return strings.TrimSpace(raw[label])
	}

	row := NormalizedRow{
		CaseNo:        get("case_no"),
		TimeOfDay:     get("time_of_day"),
		DayOfWeek:     get("day_of_week"),
		District:      get("district"),
		City:          get("city"),
		Province:      get("province"),
		Region:        get("region"),
		Category:      get("category"),
		CategoryGroup: get("category_group"),
		Building:      get("building"),
		Street:        get("street"),
		Block:         get("block"),
		PostalCode:    get("postal_code"),
		Proximity:     get("proximity"),
	}

	var errs []ValidationError
	for _, label := range RequiredColumns {
		if get(label) == "" {
			errs = append(errs, ValidationError{Line: line, Field: label, Message: "is required"})
		}
	}
	if len(errs) > 0 {
		return row, errs
	}

	occurredOn, err := time.Parse(n.dateFormat, get("occurred_on"))
	if err != nil {
		errs = append(errs, ValidationError{Line: line, Field: "occurred_on", Message: "is not a valid date", RawValue: get("occurred_on")})
	} else {
		row.OccurredOn = occurredOn.UTC()
	}

	// enum fields are optional; a blank value is allowed, an unknown one is not
	if v := get("case_status"); v != "" {
		canonical, ok := validCaseStatus[strings.ToLower(v)]
		if !ok {
			errs = append(errs, ValidationError{Line: line, Field: "case_status", Message: "is not a recognized status", RawValue: v})
		} else {
			row.CaseStatus = canonical
		}
	}
	if v := get("indoors_or_outdoors"); v != "" {
		canonical, ok := validIndoorsOutdoors[strings.ToLower(v)]
		if !ok {
			errs = append(errs, ValidationError{Line: line, Field: "indoors_or_outdoors", Message: "is not a recognized value", RawValue: v})
		} else {
			row.IndoorsOrOutdoors = canonical
		}
	}
	return row, errs
}
