package imports

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/gofrs/uuid/v5"

	"vigil-irs/core/store"
	"vigil-irs/core/utils"
)

// Analyzer drives the full analysis of one upload: schema validation, per-row
// normalization, reference resolution and classification, strictly in source
// order. It persists no report rows; reference entities may be created as a
// resolver side effect.
type Analyzer struct {
	store      store.ReportsStore
	normalizer *Normalizer
	resolver   *Resolver
	logger     *utils.Logger
}

func NewAnalyzer(rs store.ReportsStore, dateFormat string, logger *utils.Logger) *Analyzer {
	return &Analyzer{
		store:      rs,
		normalizer: NewNormalizer(dateFormat),
		resolver:   NewResolver(rs),
		logger:     logger,
	}
}

var ErrEmptyUpload = errors.New("upload has no header row")

// Analyze reads the whole upload and returns the complete report. Only
// structural failures (unreadable file, missing columns) return an error;
// row-level problems are recorded on the row and never abort the run.
func (a *Analyzer) Analyze(ctx context.Context, filename string, src io.Reader) (*AnalysisReport, error) {
	reader := csv.NewReader(src)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyUpload
		}
		return nil, fmt.Errorf("parse header: %w", err)
	}
	if err := ValidateSchema(header); err != nil {
		return nil, err
	}
	columns := make([]string, len(header))
	for i, label := range header {
		columns[i] = normalizeLabel(label)
	}

	snapshot, err := a.store.CaseNoSet(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot case numbers: %w", err)
	}

	report := &AnalysisReport{
		UploadID: uuid.Must(uuid.NewV4()),
		Filename: filename,
	}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse row after line %d: %w", line, err)
		}
		line++
		raw := map[string]string{}
		for i, value := range record {
			if i < len(columns) {
				raw[columns[i]] = value
			}
		}
		result := a.processRow(ctx, line, raw, KeySnapshot(snapshot))
		report.TotalRows++
		report.Errors = append(report.Errors, result.Errors...)
		switch result.Bucket {
		case BucketNewValid:
			report.NewValid = append(report.NewValid, result)
			report.Counts.New++
		case BucketUpdateCandidate:
			report.UpdateCandidates = append(report.UpdateCandidates, result)
			report.Counts.Update++
		case BucketInvalidNew:
			report.InvalidNew = append(report.InvalidNew, result)
			report.Counts.InvalidNew++
		case BucketInvalidDuplicate:
			report.InvalidDuplicate = append(report.InvalidDuplicate, result)
			report.Counts.InvalidDuplicate++
		}
	}
	if a.logger != nil {
		a.logger.Printf("analysis %s file=%s rows=%d new=%d update=%d invalid_new=%d invalid_dup=%d",
			report.UploadID, filename, report.TotalRows, report.Counts.New, report.Counts.Update, report.Counts.InvalidNew, report.Counts.InvalidDuplicate)
	}
	return report, nil
}

func (a *Analyzer) processRow(ctx context.Context, line int, raw map[string]string, snapshot KeySnapshot) RowResult {
	fields, errs := a.normalizer.Normalize(line, raw)
	result := RowResult{Line: line, Fields: fields, Errors: errs}
	if len(result.Errors) == 0 {
		placeID, err := a.resolver.ResolvePlace(ctx, fields)
		if err != nil {
			result.Errors = append(result.Errors, ValidationError{Line: line, Field: "place", Message: err.Error()})
		} else {
			result.PlaceID = placeID
		}
		categoryID, err := a.resolver.ResolveCategory(ctx, fields)
		if err != nil {
			result.Errors = append(result.Errors, ValidationError{Line: line, Field: "category", Message: err.Error()})
		} else {
			result.CategoryID = categoryID
		}
	}
	result.Bucket = Classify(fields.CaseNo, result.Valid(), snapshot)
	return result
}
