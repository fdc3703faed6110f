package imports

import "strings"

// Column labels the upload header must declare. The list is versioned with
// the service; renaming a label is a breaking change for operators.
var RequiredColumns = []string{
	"case_no",
	"occurred_on",
	"time_of_day",
	"day_of_week",
	"district",
	"city",
	"province",
	"region",
	"category",
	"category_group",
}

var OptionalColumns = []string{
	"building",
	"street",
	"block",
	"postal_code",
	"case_status",
	"proximity",
	"indoors_or_outdoors",
}

// ValidateSchema checks the header row for every required column label.
// Label comparison is case-insensitive and ignores surrounding whitespace.
func ValidateSchema(header []string) error {
	seen := map[string]struct{}{}
	for _, label := range header {
		seen[normalizeLabel(label)] = struct{}{}
	}
	var missing []string
	for _, required := range RequiredColumns {
		if _, ok := seen[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Columns: missing}
	}
	return nil
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
