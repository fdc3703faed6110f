package imports

import (
	"context"
	"fmt"

	"vigil-irs/core/store"
)

// ConfirmationRequest is the payload the caller echoes back from a prior
// analysis report. The committer trusts the row lists and does not re-derive
// them from the original file.
type ConfirmationRequest struct {
	Action     Action      `json:"action"`
	NewRows    []RowResult `json:"new_rows"`
	UpdateRows []RowResult `json:"update_rows,omitempty"`
}

// ConfirmationResult reports what the commit did. Skipped lists the case
// numbers of echoed update rows that the chosen action left untouched.
type ConfirmationResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped []string `json:"skipped,omitempty"`
}

// Committer applies an operator-confirmed subset of an analysis report as
// one atomic transaction. The first row-level failure aborts everything and
// both counts come back zero.
type Committer struct {
	store store.ReportsStore
}

func NewCommitter(rs store.ReportsStore) *Committer {
	return &Committer{store: rs}
}

func (c *Committer) Confirm(ctx context.Context, req ConfirmationRequest) (*ConfirmationResult, error) {
	switch req.Action {
	case ActionImportNewOnly, ActionImportAndUpdate:
	default:
		return nil, fmt.Errorf("unknown action %q", req.Action)
	}
	creates, err := toReports(req.NewRows)
	if err != nil {
		return nil, err
	}
	var updates []store.Report
	var skipped []string
	if req.Action == ActionImportAndUpdate {
		updates, err = toReports(req.UpdateRows)
		if err != nil {
			return nil, err
		}
	} else {
		for _, row := range req.UpdateRows {
			skipped = append(skipped, row.Fields.CaseNo)
		}
	}
	if len(creates) == 0 && len(updates) == 0 {
		return &ConfirmationResult{Skipped: skipped}, nil
	}
	created, updated, err := c.store.ImportBatch(ctx, creates, updates)
	if err != nil {
		return nil, err
	}
	return &ConfirmationResult{Created: created, Updated: updated, Skipped: skipped}, nil
}

func toReports(rows []RowResult) ([]store.Report, error) {
	var out []store.Report
	for _, row := range rows {
		if !row.Valid() {
			return nil, fmt.Errorf("line %d: row has validation errors and cannot be committed", row.Line)
		}
		if row.Fields.CaseNo == "" {
			return nil, fmt.Errorf("line %d: row has no case number", row.Line)
		}
		if row.PlaceID <= 0 || row.CategoryID <= 0 {
			return nil, fmt.Errorf("line %d: row is missing resolved references", row.Line)
		}
		out = append(out, store.Report{
			CaseNo:            row.Fields.CaseNo,
			OccurredOn:        row.Fields.OccurredOn,
			TimeOfDay:         row.Fields.TimeOfDay,
			DayOfWeek:         row.Fields.DayOfWeek,
			CaseStatus:        row.Fields.CaseStatus,
			Proximity:         row.Fields.Proximity,
			IndoorsOrOutdoors: row.Fields.IndoorsOrOutdoors,
			PlaceID:           row.PlaceID,
			CategoryID:        row.CategoryID,
		})
	}
	return out, nil
}
