package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"foodmatch/logging"
	"foodmatch/types"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when an item does not exist or belongs to
// another user.
var ErrNotFound = errors.New("food item not found")

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

const itemColumns = `id, user_id, path, origin, source_path, calories, phash, ahash, dhash, hist_json, created_at`

// InitDatabase initializes and returns a database connection
func InitDatabase(dbPath string) (*sql.DB, error) {
	db, err := OpenDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS food_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		path TEXT NOT NULL DEFAULT '',
		origin TEXT NOT NULL DEFAULT 'upload',
		source_path TEXT NOT NULL DEFAULT '',
		calories INTEGER,
		phash TEXT NOT NULL,
		ahash TEXT NOT NULL,
		dhash TEXT NOT NULL,
		hist_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_food_items_user ON food_items(user_id, id);
	CREATE INDEX IF NOT EXISTS idx_food_items_created ON food_items(user_id, created_at);`

	if _, err = db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot create schema: %w", err)
	}

	// Databases created before folder import lack the origin columns
	for _, col := range []struct{ name, ddl string }{
		{"origin", "ALTER TABLE food_items ADD COLUMN origin TEXT NOT NULL DEFAULT 'upload';"},
		{"source_path", "ALTER TABLE food_items ADD COLUMN source_path TEXT NOT NULL DEFAULT '';"},
	} {
		var hasColumn bool
		err = db.QueryRow("SELECT COUNT(*) FROM pragma_table_info('food_items') WHERE name = ?", col.name).Scan(&hasColumn)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("error checking for %s column: %w", col.name, err)
		}
		if hasColumn {
			continue
		}
		if _, err = db.Exec(col.ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("error adding %s column: %w", col.name, err)
		}
		logging.DebugLog("Added '%s' column to existing database schema", col.name)
	}

	if _, err = db.Exec("CREATE INDEX IF NOT EXISTS idx_food_items_source ON food_items(user_id, source_path);"); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot create source index: %w", err)
	}

	return db, nil
}

// OpenDatabase opens an existing database connection. SQLite allows one
// writer at a time, so the pool is limited to a single connection.
func OpenDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// StoreFoodItem inserts a new item and returns its id
func StoreFoodItem(db *sql.DB, item types.FoodItem) (int64, error) {
	if item.Created.IsZero() {
		item.Created = time.Now()
	}
	if item.Origin == "" {
		item.Origin = types.OriginUpload
	}

	var calories sql.NullInt64
	if item.Calories != nil {
		calories = sql.NullInt64{Int64: int64(*item.Calories), Valid: true}
	}

	res, err := db.Exec(`
		INSERT INTO food_items (
			user_id, path, origin, source_path, calories, phash, ahash, dhash, hist_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.UserID,
		item.Path,
		item.Origin,
		item.SourcePath,
		calories,
		item.Features.PerceptualHash,
		item.Features.AverageHash,
		item.Features.DifferenceHash,
		item.Features.Histogram,
		formatTime(item.Created),
	)
	if err != nil {
		return 0, fmt.Errorf("cannot insert item for user %d: %w", item.UserID, err)
	}
	return res.LastInsertId()
}

// QueryMatchCandidates returns the user's most recent items with a known
// calorie value, newest first, at most limit of them
func QueryMatchCandidates(db *sql.DB, userID int64, limit int) ([]types.FoodItem, error) {
	rows, err := db.Query(`SELECT `+itemColumns+` FROM food_items
		WHERE user_id = ? AND calories IS NOT NULL
		ORDER BY id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("database query error: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// ListFoodItems returns every item of the user, newest first
func ListFoodItems(db *sql.DB, userID int64) ([]types.FoodItem, error) {
	rows, err := db.Query(`SELECT `+itemColumns+` FROM food_items
		WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("database query error: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// GetFoodItem loads one item owned by the user
func GetFoodItem(db *sql.DB, userID, itemID int64) (types.FoodItem, error) {
	row := db.QueryRow(`SELECT `+itemColumns+` FROM food_items WHERE id = ? AND user_id = ?`, itemID, userID)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.FoodItem{}, fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}
	if err != nil {
		return types.FoodItem{}, fmt.Errorf("cannot load item %d: %w", itemID, err)
	}
	return item, nil
}

// DeleteFoodItem removes an item owned by the user and returns what was deleted
func DeleteFoodItem(db *sql.DB, userID, itemID int64) (types.FoodItem, error) {
	item, err := GetFoodItem(db, userID, itemID)
	if err != nil {
		return types.FoodItem{}, err
	}
	if _, err := db.Exec("DELETE FROM food_items WHERE id = ? AND user_id = ?", itemID, userID); err != nil {
		return types.FoodItem{}, fmt.Errorf("cannot delete item %d: %w", itemID, err)
	}
	return item, nil
}

// CheckItemExists reports whether a file was already imported for the user
func CheckItemExists(db *sql.DB, userID int64, sourcePath string) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM food_items WHERE user_id = ? AND source_path = ?", userID, sourcePath).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("database error for %s: %w", sourcePath, err)
	}
	return count > 0, nil
}

// SumCalories totals the calories of items created in [from, to)
func SumCalories(db *sql.DB, userID int64, from, to time.Time) (total int, count int, err error) {
	err = db.QueryRow(`SELECT COALESCE(SUM(calories), 0), COUNT(*) FROM food_items
		WHERE user_id = ? AND created_at >= ? AND created_at < ?`,
		userID, formatTime(from), formatTime(to)).Scan(&total, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("cannot sum calories: %w", err)
	}
	return total, count, nil
}

// LedgerStats contains statistics about a user's logged items
type LedgerStats struct {
	TotalItems   int
	WithCalories int
	UniqueHashes int
}

// GetLedgerStats retrieves statistics about the user's items
func GetLedgerStats(db *sql.DB, userID int64) (*LedgerStats, error) {
	var stats LedgerStats
	err := db.QueryRow(`SELECT COUNT(*), COUNT(calories), COUNT(DISTINCT phash) FROM food_items WHERE user_id = ?`, userID).
		Scan(&stats.TotalItems, &stats.WithCalories, &stats.UniqueHashes)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger stats: %w", err)
	}
	return &stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (types.FoodItem, error) {
	var (
		item     types.FoodItem
		calories sql.NullInt64
		created  string
	)
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.Path,
		&item.Origin,
		&item.SourcePath,
		&calories,
		&item.Features.PerceptualHash,
		&item.Features.AverageHash,
		&item.Features.DifferenceHash,
		&item.Features.Histogram,
		&created,
	)
	if err != nil {
		return types.FoodItem{}, err
	}
	if calories.Valid {
		c := int(calories.Int64)
		item.Calories = &c
	}
	if item.Created, err = time.Parse(timeLayout, created); err != nil {
		// A bad timestamp does not make the fingerprint unusable
		logging.LogWarning("item %d has unparsable created_at %q: %v", item.ID, created, err)
	}
	return item, nil
}

func collectItems(rows *sql.Rows) ([]types.FoodItem, error) {
	var items []types.FoodItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading rows: %w", err)
	}
	return items, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
