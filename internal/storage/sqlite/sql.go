package sqlite

const insertPropertySQL = `
INSERT INTO properties
  (address, property_type, price_per_month, square_footage, description,
   contacts, cat_friendly, air_conditioning, on_premises_parking,
   created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updatePropertySQL = `
UPDATE properties SET
  address             = ?,
  property_type       = ?,
  price_per_month     = ?,
  square_footage      = ?,
  description         = ?,
  contacts            = ?,
  cat_friendly        = ?,
  air_conditioning    = ?,
  on_premises_parking = ?,
  updated_at          = ?
WHERE id = ?
`

const getPropertySQL = `
SELECT
  id, address, property_type, price_per_month, square_footage,
  description, contacts, cat_friendly, air_conditioning,
  on_premises_parking, created_at, updated_at
FROM properties
WHERE id = ?
`

const listNotesSQL = `
SELECT id, property_id, content, created_at
FROM property_notes
WHERE property_id = ?
ORDER BY created_at DESC, id DESC
`

// minutes and display live in the same row, so the two can never be
// persisted independently.
const listTravelTimesSQL = `
SELECT slot, minutes, display
FROM travel_times
WHERE property_id = ?
`

const insertTravelTimeSQL = `
INSERT INTO travel_times (property_id, slot, minutes, display)
VALUES (?, ?, ?, ?)
`

const insertNoteSQL = `
INSERT INTO property_notes (property_id, content, created_at)
VALUES (?, ?, ?)
`

const upsertSettingsSQL = `
INSERT INTO settings (id, origin_address) VALUES (1, ?)
ON CONFLICT (id) DO UPDATE SET origin_address = excluded.origin_address
`

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS properties (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		address             TEXT NOT NULL,
		property_type       TEXT NOT NULL,
		price_per_month     REAL NOT NULL,
		square_footage      REAL NOT NULL,
		description         TEXT,
		contacts            TEXT,
		cat_friendly        INTEGER NOT NULL DEFAULT 0,
		air_conditioning    INTEGER NOT NULL DEFAULT 0,
		on_premises_parking INTEGER NOT NULL DEFAULT 0,
		created_at          TIMESTAMP NOT NULL,
		updated_at          TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS property_notes (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		property_id INTEGER NOT NULL REFERENCES properties(id),
		content     TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS travel_times (
		property_id INTEGER NOT NULL REFERENCES properties(id),
		slot        TEXT NOT NULL,
		minutes     INTEGER NOT NULL,
		display     TEXT NOT NULL,
		PRIMARY KEY (property_id, slot)
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		id             INTEGER PRIMARY KEY CHECK (id = 1),
		origin_address TEXT NOT NULL DEFAULT ''
	)`,
	`INSERT OR IGNORE INTO settings (id, origin_address) VALUES (1, '')`,
	`CREATE INDEX IF NOT EXISTS idx_notes_property ON property_notes(property_id)`,
}
