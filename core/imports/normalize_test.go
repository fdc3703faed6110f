package imports

import "testing"

func validRaw() map[string]string {
	return map[string]string{
		"case_no":        "C-100",
		"occurred_on":    "2024-05-01",
		"time_of_day":    "21:30",
		"day_of_week":    "Wednesday",
		"district":       "Poblacion",
		"city":           "Davao",
		"province":       "Davao del Sur",
		"region":         "Region XI",
		"category":       "Theft",
		"category_group": "Property",
	}
}

func TestNormalizeValidRow(t *testing.T) {
	n := NewNormalizer("")
	raw := validRaw()
	raw["case_status"] = "ongoing"
	raw["indoors_or_outdoors"] = "OUTDOORS"
	raw["street"] = "  Main St  "

	row, errs := n.Normalize(2, raw)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if row.CaseStatus != "Ongoing" {
		t.Fatalf("expected canonical status, got %q", row.CaseStatus)
	}
	if row.IndoorsOrOutdoors != "Outdoors" {
		t.Fatalf("expected canonical indoors/outdoors, got %q", row.IndoorsOrOutdoors)
	}
	if row.Street != "Main St" {
		t.Fatalf("expected trimmed street, got %q", row.Street)
	}
	if row.OccurredOn.IsZero() {
		t.Fatalf("expected parsed date")
	}
}

func TestNormalizeMissingRequiredStopsFormatChecks(t *testing.T) {
	n := NewNormalizer("")
	raw := validRaw()
	raw["occurred_on"] = "not-a-date"
	delete(raw, "case_no")
	raw["day_of_week"] = "   "

	_, errs := n.Normalize(5, raw)
	if len(errs) != 2 {
		t.Fatalf("expected 2 presence errors only, got %v", errs)
	}
	for _, e := range errs {
		if e.Message != "is required" {
			t.Fatalf("presence pass must not report format errors, got %v", e)
		}
		if e.Line != 5 {
			t.Fatalf("expected line 5, got %d", e.Line)
		}
	}
}

func TestNormalizeBadDate(t *testing.T) {
	n := NewNormalizer("")
	raw := validRaw()
	raw["occurred_on"] = "05/01/2024"

	_, errs := n.Normalize(3, raw)
	if len(errs) != 1 || errs[0].Field != "occurred_on" {
		t.Fatalf("expected single occurred_on error, got %v", errs)
	}
	if errs[0].RawValue != "05/01/2024" {
		t.Fatalf("expected raw value carried, got %q", errs[0].RawValue)
	}
}

func TestNormalizeUnknownEnumRejectedBlankAllowed(t *testing.T) {
	n := NewNormalizer("")

	raw := validRaw()
	raw["case_status"] = "Closed"
	_, errs := n.Normalize(2, raw)
	if len(errs) != 1 || errs[0].Field != "case_status" {
		t.Fatalf("expected case_status error, got %v", errs)
	}

	raw = validRaw()
	raw["case_status"] = ""
	raw["indoors_or_outdoors"] = ""
	if _, errs := n.Normalize(2, raw); len(errs) != 0 {
		t.Fatalf("blank enum values must be allowed, got %v", errs)
	}
}

func TestNormalizeCustomDateFormat(t *testing.T) {
	n := NewNormalizer("01/02/2006")
	raw := validRaw()
	raw["occurred_on"] = "05/01/2024"
	row, errs := n.Normalize(2, raw)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if row.OccurredOn.Month() != 5 || row.OccurredOn.Day() != 1 {
		t.Fatalf("unexpected parsed date: %v", row.OccurredOn)
	}
}
