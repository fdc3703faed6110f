package imports

import (
	"context"
	"errors"
	"testing"

	"vigil-irs/core/store"
)

// refStoreStub fakes the find/create pair so tests can script the race
// between two importers. The embedded interface covers the methods the
// resolver never touches.
type refStoreStub struct {
	store.ReportsStore

	placeFinds   int
	placeOnFind  func(call int) (*store.Place, error)
	placeCreates int
	placeCreate  func() (int64, error)

	catFinds   int
	catOnFind  func(call int) (*store.Category, error)
	catCreates int
	catCreate  func() (int64, error)
}

func (s *refStoreStub) FindPlace(ctx context.Context, key store.PlaceKey) (*store.Place, error) {
	s.placeFinds++
	return s.placeOnFind(s.placeFinds)
}

func (s *refStoreStub) CreatePlace(ctx context.Context, place *store.Place) (int64, error) {
	s.placeCreates++
	return s.placeCreate()
}

func (s *refStoreStub) FindCategoryByName(ctx context.Context, name string) (*store.Category, error) {
	s.catFinds++
	return s.catOnFind(s.catFinds)
}

func (s *refStoreStub) CreateCategory(ctx context.Context, cat *store.Category) (int64, error) {
	s.catCreates++
	return s.catCreate()
}

func raceRow() NormalizedRow {
	return NormalizedRow{
		District: "D", City: "C", Province: "P", Region: "R",
		Category: "Theft", CategoryGroup: "Property",
	}
}

func TestResolvePlaceRetriesLookupOnceAfterLosingRace(t *testing.T) {
	stub := &refStoreStub{
		placeOnFind: func(call int) (*store.Place, error) {
			if call == 1 {
				return nil, nil
			}
			// the winner's row is visible on the retry
			return &store.Place{ID: 42}, nil
		},
		placeCreate: func() (int64, error) { return 0, store.ErrConflict },
	}
	id, err := NewResolver(stub).ResolvePlace(context.Background(), raceRow())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected the winner's id 42, got %d", id)
	}
	if stub.placeCreates != 1 || stub.placeFinds != 2 {
		t.Fatalf("expected 1 create and 2 finds, got %d/%d", stub.placeCreates, stub.placeFinds)
	}
}

func TestResolvePlaceGivesUpAfterSingleRetry(t *testing.T) {
	stub := &refStoreStub{
		placeOnFind: func(int) (*store.Place, error) { return nil, nil },
		placeCreate: func() (int64, error) { return 0, store.ErrConflict },
	}
	_, err := NewResolver(stub).ResolvePlace(context.Background(), raceRow())
	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected ResolutionError, got %v", err)
	}
	if resErr.Entity != "place" || !errors.Is(err, store.ErrConflict) {
		t.Fatalf("unexpected resolution error: %+v", resErr)
	}
	if stub.placeFinds != 2 {
		t.Fatalf("expected exactly one retry lookup, got %d finds", stub.placeFinds)
	}
	if stub.placeCreates != 1 {
		t.Fatalf("create must not be retried, got %d", stub.placeCreates)
	}
}

func TestResolveCategoryRetriesLookupOnceAfterLosingRace(t *testing.T) {
	stub := &refStoreStub{
		catOnFind: func(call int) (*store.Category, error) {
			if call == 1 {
				return nil, nil
			}
			return &store.Category{ID: 7, Name: "Theft"}, nil
		},
		catCreate: func() (int64, error) { return 0, store.ErrConflict },
	}
	id, err := NewResolver(stub).ResolveCategory(context.Background(), raceRow())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != 7 {
		t.Fatalf("expected the winner's id 7, got %d", id)
	}
	if stub.catCreates != 1 || stub.catFinds != 2 {
		t.Fatalf("expected 1 create and 2 finds, got %d/%d", stub.catCreates, stub.catFinds)
	}
}

func TestResolveCategoryGivesUpAfterSingleRetry(t *testing.T) {
	stub := &refStoreStub{
		catOnFind: func(int) (*store.Category, error) { return nil, nil },
		catCreate: func() (int64, error) { return 0, store.ErrConflict },
	}
	_, err := NewResolver(stub).ResolveCategory(context.Background(), raceRow())
	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected ResolutionError, got %v", err)
	}
	if resErr.Entity != "category" || !errors.Is(err, store.ErrConflict) {
		t.Fatalf("unexpected resolution error: %+v", resErr)
	}
	if stub.catFinds != 2 || stub.catCreates != 1 {
		t.Fatalf("expected 2 finds and 1 create, got %d/%d", stub.catFinds, stub.catCreates)
	}
}
