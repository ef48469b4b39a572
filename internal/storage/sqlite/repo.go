package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/outrigger999/rental-recon/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// InitSchema creates all tables in one transaction. Idempotent; runs on
// every startup.
func InitSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range schemaStatements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: statement #%d: %w", i+1, err)
		}
	}
	return tx.Commit()
}

func (r *Repo) CreateProperty(ctx context.Context, p domain.Property) (int64, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, insertPropertySQL,
		p.Address,
		p.PropertyType,
		p.PricePerMonth,
		p.SquareFootage,
		valStr(p.Description),
		valStr(p.Contacts),
		boolInt(p.CatFriendly),
		boolInt(p.AirConditioning),
		boolInt(p.OnPremisesParking),
		now,
		now,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repo) UpdateProperty(ctx context.Context, p domain.Property) error {
	res, err := r.db.ExecContext(ctx, updatePropertySQL,
		p.Address,
		p.PropertyType,
		p.PricePerMonth,
		p.SquareFootage,
		valStr(p.Description),
		valStr(p.Contacts),
		boolInt(p.CatFriendly),
		boolInt(p.AirConditioning),
		boolInt(p.OnPremisesParking),
		time.Now().UTC(),
		p.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteProperty removes the property and its dependent rows in one
// transaction. Travel-time fields only ever disappear through this path.
func (r *Repo) DeleteProperty(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM travel_times WHERE property_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM property_notes WHERE property_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM properties WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return tx.Commit()
}

func (r *Repo) AddNote(ctx context.Context, n domain.PropertyNote) (int64, error) {
	if err := r.exists(ctx, n.PropertyID); err != nil {
		return 0, err
	}
	created := n.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, insertNoteSQL, n.PropertyID, n.Content, created)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repo) DeleteNote(ctx context.Context, propertyID, noteID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM property_notes WHERE id = ? AND property_id = ?`, noteID, propertyID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ReplaceTravelTimes swaps the full slot set atomically: readers either
// see the old estimates or the new ones, never a mix, and never a slot
// with minutes but no display.
func (r *Repo) ReplaceTravelTimes(ctx context.Context, propertyID int64, ts map[string]domain.TravelEstimate) error {
	if err := r.exists(ctx, propertyID); err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM travel_times WHERE property_id = ?`, propertyID); err != nil {
		return err
	}
	for slot, est := range ts {
		if _, err := tx.ExecContext(ctx, insertTravelTimeSQL, propertyID, slot, est.Minutes, est.Display); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *Repo) GetProperty(ctx context.Context, id int64) (domain.PropertyView, error) {
	row := r.db.QueryRowContext(ctx, getPropertySQL, id)
	pv, err := scanProperty(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PropertyView{}, domain.ErrNotFound
		}
		return domain.PropertyView{}, err
	}

	notes, err := r.listNotes(ctx, id)
	if err != nil {
		return domain.PropertyView{}, err
	}
	pv.Notes = notes

	tt, err := r.travelTimes(ctx, id)
	if err != nil {
		return domain.PropertyView{}, err
	}
	pv.TravelTimes = tt
	return pv, nil
}

// ListProperties returns summary views: travel times included, note
// bodies omitted (the detail endpoint loads those).
func (r *Repo) ListProperties(ctx context.Context, q domain.PropertiesQuery) ([]domain.PropertyView, error) {
	var where []string
	var args []any
	if q.Type != nil {
		where = append(where, "property_type = ?")
		args = append(args, strings.ToLower(*q.Type))
	}
	if q.MaxPrice != nil {
		where = append(where, "price_per_month <= ?")
		args = append(args, *q.MaxPrice)
	}
	if q.CatFriendly != nil {
		where = append(where, "cat_friendly = ?")
		args = append(args, boolInt(*q.CatFriendly))
	}

	order := "created_at DESC, id DESC"
	switch q.Sort {
	case "price":
		order = "price_per_month ASC, id ASC"
	case "sqft":
		order = "square_footage DESC, id ASC"
	}

	limit := q.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	sqlStr := `
SELECT
  id, address, property_type, price_per_month, square_footage,
  description, contacts, cat_friendly, air_conditioning,
  on_premises_parking, created_at, updated_at
FROM properties`
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}
	sqlStr += " ORDER BY " + order + " LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PropertyView
	for rows.Next() {
		pv, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		tt, err := r.travelTimes(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].TravelTimes = tt
	}
	return out, nil
}

func (r *Repo) GetSettings(ctx context.Context) (domain.Settings, error) {
	var st domain.Settings
	err := r.db.QueryRowContext(ctx, `SELECT origin_address FROM settings WHERE id = 1`).
		Scan(&st.OriginAddress)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Settings{}, nil
	}
	return st, err
}

func (r *Repo) UpdateSettings(ctx context.Context, st domain.Settings) error {
	_, err := r.db.ExecContext(ctx, upsertSettingsSQL, st.OriginAddress)
	return err
}

// ---- internals ----

type rowScanner interface{ Scan(dest ...any) error }

func scanProperty(row rowScanner) (domain.PropertyView, error) {
	var pv domain.PropertyView
	var desc, contacts sql.NullString
	var cat, ac, parking int
	if err := row.Scan(
		&pv.ID,
		&pv.Address,
		&pv.PropertyType,
		&pv.PricePerMonth,
		&pv.SquareFootage,
		&desc,
		&contacts,
		&cat, &ac, &parking,
		&pv.CreatedAt,
		&pv.UpdatedAt,
	); err != nil {
		return domain.PropertyView{}, err
	}
	if desc.Valid {
		d := desc.String
		pv.Description = &d
	}
	if contacts.Valid {
		c := contacts.String
		pv.Contacts = &c
	}
	pv.CatFriendly = cat != 0
	pv.AirConditioning = ac != 0
	pv.OnPremisesParking = parking != 0
	return pv, nil
}

func (r *Repo) listNotes(ctx context.Context, propertyID int64) ([]domain.PropertyNote, error) {
	rows, err := r.db.QueryContext(ctx, listNotesSQL, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PropertyNote
	for rows.Next() {
		var n domain.PropertyNote
		if err := rows.Scan(&n.ID, &n.PropertyID, &n.Content, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *Repo) travelTimes(ctx context.Context, propertyID int64) (map[string]domain.TravelEstimate, error) {
	rows, err := r.db.QueryContext(ctx, listTravelTimesSQL, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]domain.TravelEstimate{}
	for rows.Next() {
		var slot string
		var est domain.TravelEstimate
		if err := rows.Scan(&slot, &est.Minutes, &est.Display); err != nil {
			return nil, err
		}
		out[slot] = est
	}
	return out, rows.Err()
}

func (r *Repo) exists(ctx context.Context, propertyID int64) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM properties WHERE id = ?`, propertyID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}
