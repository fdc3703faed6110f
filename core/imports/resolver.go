package imports

import (
	"context"
	"errors"
	"fmt"

	"vigil-irs/core/store"
)

// Resolver maps a row's denormalized place and category attributes to stable
// entity identifiers, creating the entity on first sight. Creation can race
// another importer; a rejected insert is retried as a lookup exactly once.
type Resolver struct {
	store store.ReportsStore
}

func NewResolver(rs store.ReportsStore) *Resolver {
	return &Resolver{store: rs}
}

// ResolvePlace finds or creates the place for the row. The matching key is
// the administrative locality tuple only; building, street, block and postal
// code are carried onto a newly created entity but never matched on.
func (r *Resolver) ResolvePlace(ctx context.Context, row NormalizedRow) (int64, error) {
	key := store.PlaceKey{
		District: row.District,
		City:     row.City,
		Province: row.Province,
		Region:   row.Region,
	}
	place, err := r.store.FindPlace(ctx, key)
	if err != nil {
		return 0, &ResolutionError{Entity: "place", Key: placeKeyString(key), Err: err}
	}
	if place != nil {
		return place.ID, nil
	}
	fresh := &store.Place{
		Building:   row.Building,
		Street:     row.Street,
		Block:      row.Block,
		District:   row.District,
		City:       row.City,
		Province:   row.Province,
		Region:     row.Region,
		PostalCode: row.PostalCode,
	}
	id, err := r.store.CreatePlace(ctx, fresh)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, store.ErrConflict) {
		return 0, &ResolutionError{Entity: "place", Key: placeKeyString(key), Err: err}
	}
	// a concurrent importer created the same locality first; its row must be
	// visible now
	place, err = r.store.FindPlace(ctx, key)
	if err != nil {
		return 0, &ResolutionError{Entity: "place", Key: placeKeyString(key), Err: err}
	}
	if place == nil {
		return 0, &ResolutionError{Entity: "place", Key: placeKeyString(key), Err: store.ErrConflict}
	}
	return place.ID, nil
}

// ResolveCategory finds or creates the category for the row. Names match
// case-insensitively; when the name already exists its stored group wins and
// the row-supplied group is ignored.
func (r *Resolver) ResolveCategory(ctx context.Context, row NormalizedRow) (int64, error) {
	cat, err := r.store.FindCategoryByName(ctx, row.Category)
	if err != nil {
		return 0, &ResolutionError{Entity: "category", Key: row.Category, Err: err}
	}
	if cat != nil {
		return cat.ID, nil
	}
	fresh := &store.Category{Name: row.Category, Grouping: row.CategoryGroup}
	id, err := r.store.CreateCategory(ctx, fresh)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, store.ErrConflict) {
		return 0, &ResolutionError{Entity: "category", Key: row.Category, Err: err}
	}
	cat, err = r.store.FindCategoryByName(ctx, row.Category)
	if err != nil {
		return 0, &ResolutionError{Entity: "category", Key: row.Category, Err: err}
	}
	if cat == nil {
		return 0, &ResolutionError{Entity: "category", Key: row.Category, Err: store.ErrConflict}
	}
	return cat.ID, nil
}

func placeKeyString(key store.PlaceKey) string {
	return fmt.Sprintf("%s/%s/%s/%s", key.District, key.City, key.Province, key.Region)
}
