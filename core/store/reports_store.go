package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrConflict = errors.New("conflict")
	ErrNotFound = errors.New("not found")
)

// Report is a committed incident record. CaseNo is the caller-supplied
// natural key and is unique across the store; it never changes once the
// record exists.
type Report struct {
	ID                int64     `json:"id"`
	CaseNo            string    `json:"case_no"`
	OccurredOn        time.Time `json:"occurred_on"`
	TimeOfDay         string    `json:"time_of_day"`
	DayOfWeek         string    `json:"day_of_week"`
	CaseStatus        string    `json:"case_status,omitempty"`
	Proximity         string    `json:"proximity,omitempty"`
	IndoorsOrOutdoors string    `json:"indoors_or_outdoors,omitempty"`
	PlaceID           int64     `json:"place_id"`
	CategoryID        int64     `json:"category_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Place is a normalized location shared by many reports. Identity is the
// administrative locality tuple; building/street/block and postal code are
// descriptive only.
type Place struct {
	ID         int64     `json:"id"`
	Building   string    `json:"building,omitempty"`
	Street     string    `json:"street,omitempty"`
	Block      string    `json:"block,omitempty"`
	District   string    `json:"district"`
	City       string    `json:"city"`
	Province   string    `json:"province"`
	Region     string    `json:"region"`
	PostalCode string    `json:"postal_code,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// PlaceKey is the structural matching key for places.
type PlaceKey struct {
	District string `json:"district"`
	City     string `json:"city"`
	Province string `json:"province"`
	Region   string `json:"region"`
}

func (p Place) Key() PlaceKey {
	return PlaceKey{District: p.District, City: p.City, Province: p.Province, Region: p.Region}
}

// Category is a (name, group) pair; the name identifies it, compared
// case-insensitively.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Grouping  string    `json:"grouping,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ReportFilter struct {
	Search     string
	CategoryID int64
	PlaceID    int64
	Status     string
	Limit      int
	Offset     int
}

type ReportsStore interface {
	// CaseNoSet returns the set of natural keys currently committed.
	CaseNoSet(ctx context.Context) (map[string]struct{}, error)

	FindPlace(ctx context.Context, key PlaceKey) (*Place, error)
	CreatePlace(ctx context.Context, place *Place) (int64, error)
	FindCategoryByName(ctx context.Context, name string) (*Category, error)
	CreateCategory(ctx context.Context, cat *Category) (int64, error)

	// ImportBatch applies all creates and updates in one transaction.
	// Every create re-checks that its case_no is still absent and every
	// update must hit an existing row; the first failure of any kind rolls
	// the whole batch back and both counts are zero.
	ImportBatch(ctx context.Context, creates []Report, updates []Report) (created int, updated int, err error)

	GetReport(ctx context.Context, id int64) (*Report, error)
	GetReportByCaseNo(ctx context.Context, caseNo string) (*Report, error)
	ListReports(ctx context.Context, filter ReportFilter) ([]Report, error)
	GetPlace(ctx context.Context, id int64) (*Place, error)
	GetCategory(ctx context.Context, id int64) (*Category, error)
}

type reportsStore struct {
	db *DB
}

func NewReportsStore(db *DB) ReportsStore {
	return &reportsStore{db: db}
}

func (s *reportsStore) CaseNoSet(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT case_no FROM reports`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	set := map[string]struct{}{}
	for rows.Next() {
		var caseNo string
		if err := rows.Scan(&caseNo); err != nil {
			return nil, err
		}
		set[caseNo] = struct{}{}
	}
	return set, rows.Err()
}

func (s *reportsStore) FindPlace(ctx context.Context, key PlaceKey) (*Place, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, building, street, block, district, city, province, region, postal_code, created_at
		FROM places WHERE district=? AND city=? AND province=? AND region=?`,
		key.District, key.City, key.Province, key.Region)
	return scanPlace(row)
}

func (s *reportsStore) GetPlace(ctx context.Context, id int64) (*Place, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, building, street, block, district, city, province, region, postal_code, created_at
		FROM places WHERE id=?`, id)
	return scanPlace(row)
}

func (s *reportsStore) CreatePlace(ctx context.Context, place *Place) (int64, error) {
	now := time.Now().UTC()
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO places(building, street, block, district, city, province, region, postal_code, created_at)
		VALUES(?,?,?,?,?,?,?,?,?)
		RETURNING id`,
		place.Building, place.Street, place.Block, place.District, place.City, place.Province, place.Region, place.PostalCode, now).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	place.ID = id
	place.CreatedAt = now
	return id, nil
}

func (s *reportsStore) FindCategoryByName(ctx context.Context, name string) (*Category, error) {
	key := categoryNameKey(name)
	if key == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, grouping, created_at FROM categories WHERE name_key=?`, key)
	return scanCategory(row)
}

func (s *reportsStore) GetCategory(ctx context.Context, id int64) (*Category, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, grouping, created_at FROM categories WHERE id=?`, id)
	return scanCategory(row)
}

func (s *reportsStore) CreateCategory(ctx context.Context, cat *Category) (int64, error) {
	now := time.Now().UTC()
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO categories(name, name_key, grouping, created_at)
		VALUES(?,?,?,?)
		RETURNING id`,
		strings.TrimSpace(cat.Name), categoryNameKey(cat.Name), strings.TrimSpace(cat.Grouping), now).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	cat.ID = id
	cat.CreatedAt = now
	return id, nil
}

func (s *reportsStore) ImportBatch(ctx context.Context, creates []Report, updates []Report) (int, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	now := time.Now().UTC()
	created := 0
	for i := range creates {
		r := &creates[i]
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM reports WHERE case_no=?`, r.CaseNo).Scan(&exists); err != nil {
			tx.Rollback()
			return 0, 0, err
		}
		if exists > 0 {
			tx.Rollback()
			return 0, 0, fmt.Errorf("case %s already exists: %w", r.CaseNo, ErrConflict)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO reports(case_no, occurred_on, time_of_day, day_of_week, case_status, proximity, indoors_or_outdoors, place_id, category_id, created_at, updated_at)
			VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
			r.CaseNo, r.OccurredOn.UTC(), r.TimeOfDay, r.DayOfWeek, r.CaseStatus, r.Proximity, r.IndoorsOrOutdoors, r.PlaceID, r.CategoryID, now, now); err != nil {
			tx.Rollback()
			if isUniqueViolation(err) {
				return 0, 0, fmt.Errorf("case %s already exists: %w", r.CaseNo, ErrConflict)
			}
			return 0, 0, fmt.Errorf("insert case %s: %w", r.CaseNo, err)
		}
		created++
	}
	updated := 0
	for i := range updates {
		r := &updates[i]
		res, err := tx.ExecContext(ctx, `
			UPDATE reports SET occurred_on=?, time_of_day=?, day_of_week=?, case_status=?, proximity=?, indoors_or_outdoors=?, place_id=?, category_id=?, updated_at=?
			WHERE case_no=?`,
			r.OccurredOn.UTC(), r.TimeOfDay, r.DayOfWeek, r.CaseStatus, r.Proximity, r.IndoorsOrOutdoors, r.PlaceID, r.CategoryID, now, r.CaseNo)
		if err != nil {
			tx.Rollback()
			return 0, 0, fmt.Errorf("update case %s: %w", r.CaseNo, err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			tx.Rollback()
			return 0, 0, fmt.Errorf("case %s no longer exists: %w", r.CaseNo, ErrNotFound)
		}
		updated++
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return created, updated, nil
}

func (s *reportsStore) GetReport(ctx context.Context, id int64) (*Report, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, case_no, occurred_on, time_of_day, day_of_week, case_status, proximity, indoors_or_outdoors, place_id, category_id, created_at, updated_at
		FROM reports WHERE id=?`, id)
	return scanReport(row)
}

func (s *reportsStore) GetReportByCaseNo(ctx context.Context, caseNo string) (*Report, error) {
	if strings.TrimSpace(caseNo) == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, case_no, occurred_on, time_of_day, day_of_week, case_status, proximity, indoors_or_outdoors, place_id, category_id, created_at, updated_at
		FROM reports WHERE case_no=?`, caseNo)
	return scanReport(row)
}

func (s *reportsStore) ListReports(ctx context.Context, filter ReportFilter) ([]Report, error) {
	var clauses []string
	var args []any
	if filter.Search != "" {
		clauses = append(clauses, "case_no LIKE ?")
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.CategoryID > 0 {
		clauses = append(clauses, "category_id=?")
		args = append(args, filter.CategoryID)
	}
	if filter.PlaceID > 0 {
		clauses = append(clauses, "place_id=?")
		args = append(args, filter.PlaceID)
	}
	if filter.Status != "" {
		clauses = append(clauses, "case_status=?")
		args = append(args, filter.Status)
	}
	query := `SELECT id, case_no, occurred_on, time_of_day, day_of_week, case_status, proximity, indoors_or_outdoors, place_id, category_id, created_at, updated_at FROM reports`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY occurred_on DESC, id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Report
	for rows.Next() {
		var r Report
		if err := rows.Scan(&r.ID, &r.CaseNo, &r.OccurredOn, &r.TimeOfDay, &r.DayOfWeek, &r.CaseStatus, &r.Proximity, &r.IndoorsOrOutdoors, &r.PlaceID, &r.CategoryID, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

func scanReport(row *sql.Row) (*Report, error) {
	var r Report
	if err := row.Scan(&r.ID, &r.CaseNo, &r.OccurredOn, &r.TimeOfDay, &r.DayOfWeek, &r.CaseStatus, &r.Proximity, &r.IndoorsOrOutdoors, &r.PlaceID, &r.CategoryID, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

func scanPlace(row *sql.Row) (*Place, error) {
	var p Place
	if err := row.Scan(&p.ID, &p.Building, &p.Street, &p.Block, &p.District, &p.City, &p.Province, &p.Region, &p.PostalCode, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func scanCategory(row *sql.Row) (*Category, error) {
	var c Category
	if err := row.Scan(&c.ID, &c.Name, &c.Grouping, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func categoryNameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
