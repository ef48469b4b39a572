package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/outrigger999/rental-recon/internal/domain"
	sqliterepo "github.com/outrigger999/rental-recon/internal/storage/sqlite"
)

func pstr(s string) *string { return &s }
func pbool(b bool) *bool    { return &b }

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := sqliterepo.InitSchema(db); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return db
}

func seedProperty(t *testing.T, repo *sqliterepo.Repo, addr string, price float64, typ string, cat bool) int64 {
	t.Helper()
	id, err := repo.CreateProperty(context.Background(), domain.Property{
		Address:       addr,
		PropertyType:  typ,
		PricePerMonth: price,
		SquareFootage: 850,
		Description:   pstr("bright corner unit"),
		CatFriendly:   cat,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return id
}

func TestRepo_CreateAndGet(t *testing.T) {
	repo := sqliterepo.New(openTestDB(t))
	ctx := context.Background()

	id := seedProperty(t, repo, "123 Main St", 2400, "home", true)

	pv, err := repo.GetProperty(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if pv.Address != "123 Main St" || pv.PropertyType != "home" || !pv.CatFriendly {
		t.Fatalf("unexpected property: %+v", pv)
	}
	if pv.Description == nil || *pv.Description != "bright corner unit" {
		t.Fatalf("description lost: %+v", pv.Description)
	}
	if pv.Contacts != nil {
		t.Fatalf("contacts should be nil, got %v", *pv.Contacts)
	}
	// Travel fields are null at creation: no slots at all.
	if len(pv.TravelTimes) != 0 {
		t.Fatalf("expected no travel times on a fresh property, got %v", pv.TravelTimes)
	}
	if pv.CreatedAt.IsZero() || pv.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not set: %+v", pv)
	}
}

func TestRepo_GetMissing(t *testing.T) {
	repo := sqliterepo.New(openTestDB(t))
	if _, err := repo.GetProperty(context.Background(), 42); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRepo_Update(t *testing.T) {
	repo := sqliterepo.New(openTestDB(t))
	ctx := context.Background()

	id := seedProperty(t, repo, "123 Main St", 2400, "home", false)
	err := repo.UpdateProperty(ctx, domain.Property{
		ID:            id,
		Address:       "125 Main St",
		PropertyType:  "townhome",
		PricePerMonth: 2600,
		SquareFootage: 900,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	pv, _ := repo.GetProperty(ctx, id)
	if pv.Address != "125 Main St" || pv.PropertyType != "townhome" || pv.PricePerMonth != 2600 {
		t.Fatalf("update not applied: %+v", pv)
	}
	if pv.Description != nil {
		t.Fatalf("update should overwrite description to null, got %v", *pv.Description)
	}

	err = repo.UpdateProperty(ctx, domain.Property{ID: 999, Address: "x", PropertyType: "home"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRepo_ListFiltersAndSort(t *testing.T) {
	repo := sqliterepo.New(openTestDB(t))
	ctx := context.Background()

	seedProperty(t, repo, "1 Cheap St", 1200, "apartment", true)
	seedProperty(t, repo, "2 Mid Rd", 2000, "townhome", false)
	seedProperty(t, repo, "3 Plush Ave", 3200, "home", true)

	all, err := repo.ListProperties(ctx, domain.PropertiesQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d, want 3", len(all))
	}

	byPrice, _ := repo.ListProperties(ctx, domain.PropertiesQuery{Sort: "price"})
	if byPrice[0].Address != "1 Cheap St" || byPrice[2].Address != "3 Plush Ave" {
		t.Fatalf("price sort wrong: %s .. %s", byPrice[0].Address, byPrice[2].Address)
	}

	maxPrice := 2100.0
	cheap, _ := repo.ListProperties(ctx, domain.PropertiesQuery{MaxPrice: &maxPrice})
	if len(cheap) != 2 {
		t.Fatalf("max_price filter: got %d, want 2", len(cheap))
	}

	cats, _ := repo.ListProperties(ctx, domain.PropertiesQuery{CatFriendly: pbool(true)})
	if len(cats) != 2 {
		t.Fatalf("cat filter: got %d, want 2", len(cats))
	}

	typ := "home"
	homes, _ := repo.ListProperties(ctx, domain.PropertiesQuery{Type: &typ})
	if len(homes) != 1 || homes[0].Address != "3 Plush Ave" {
		t.Fatalf("type filter wrong: %+v", homes)
	}
}

func TestRepo_TravelTimesReplaceAtomically(t *testing.T) {
	repo := sqliterepo.New(openTestDB(t))
	ctx := context.Background()

	id := seedProperty(t, repo, "123 Main St", 2400, "home", false)

	first := map[string]domain.TravelEstimate{
		"830am":  {Minutes: 33, Display: "21-33 min"},
		"midday": {Minutes: 25, Display: "16-25 min"},
	}
	if err := repo.ReplaceTravelTimes(ctx, id, first); err != nil {
		t.Fatalf("replace: %v", err)
	}
	pv, _ := repo.GetProperty(ctx, id)
	if len(pv.TravelTimes) != 2 || pv.TravelTimes["830am"].Display != "21-33 min" {
		t.Fatalf("unexpected travel times: %+v", pv.TravelTimes)
	}

	// A second replace fully supersedes the first slot set.
	second := map[string]domain.TravelEstimate{
		"830am": {Minutes: 20, Display: "13-20 min"},
	}
	if err := repo.ReplaceTravelTimes(ctx, id, second); err != nil {
		t.Fatalf("replace: %v", err)
	}
	pv, _ = repo.GetProperty(ctx, id)
	if len(pv.TravelTimes) != 1 {
		t.Fatalf("stale slots survived: %+v", pv.TravelTimes)
	}
	if est := pv.TravelTimes["830am"]; est.Minutes != 20 || est.Display != "13-20 min" {
		t.Fatalf("unexpected slot: %+v", est)
	}

	if err := repo.ReplaceTravelTimes(ctx, 999, second); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRepo_DeletePropertyRemovesDependents(t *testing.T) {
	repo := sqliterepo.New(openTestDB(t))
	ctx := context.Background()

	id := seedProperty(t, repo, "123 Main St", 2400, "home", false)
	if _, err := repo.AddNote(ctx, domain.PropertyNote{PropertyID: id, Content: "visited"}); err != nil {
		t.Fatalf("note: %v", err)
	}
	if err := repo.ReplaceTravelTimes(ctx, id, map[string]domain.TravelEstimate{
		"830am": {Minutes: 20, Display: "13-20 min"},
	}); err != nil {
		t.Fatalf("travel: %v", err)
	}

	if err := repo.DeleteProperty(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetProperty(ctx, id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("property survived delete: %v", err)
	}
	if err := repo.DeleteProperty(ctx, id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete: err = %v, want ErrNotFound", err)
	}
}

func TestRepo_Notes(t *testing.T) {
	repo := sqliterepo.New(openTestDB(t))
	ctx := context.Background()

	id := seedProperty(t, repo, "123 Main St", 2400, "home", false)

	if _, err := repo.AddNote(ctx, domain.PropertyNote{PropertyID: 999, Content: "x"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	n1, _ := repo.AddNote(ctx, domain.PropertyNote{PropertyID: id, Content: "first"})
	n2, _ := repo.AddNote(ctx, domain.PropertyNote{PropertyID: id, Content: "second"})

	pv, _ := repo.GetProperty(ctx, id)
	if len(pv.Notes) != 2 {
		t.Fatalf("got %d notes, want 2", len(pv.Notes))
	}

	if err := repo.DeleteNote(ctx, id, n1); err != nil {
		t.Fatalf("delete note: %v", err)
	}
	// Wrong property id must not delete someone else's note.
	if err := repo.DeleteNote(ctx, id+1, n2); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRepo_Settings(t *testing.T) {
	repo := sqliterepo.New(openTestDB(t))
	ctx := context.Background()

	st, err := repo.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if st.OriginAddress != "" {
		t.Fatalf("fresh settings should be empty, got %q", st.OriginAddress)
	}

	if err := repo.UpdateSettings(ctx, domain.Settings{OriginAddress: "1 Work Way"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := repo.UpdateSettings(ctx, domain.Settings{OriginAddress: "2 Office Blvd"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	st, _ = repo.GetSettings(ctx)
	if st.OriginAddress != "2 Office Blvd" {
		t.Fatalf("got %q, want last write", st.OriginAddress)
	}
}
