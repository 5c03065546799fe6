package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"modwatch/internal/config"
	"modwatch/internal/services"
)

const activeProfileKey = "active_profile_id"

// Store manages profile persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Summary is the listing view of a profile.
type Summary struct {
	ID        string
	Name      string
	ItemCount int
	DmcaCount int
	Active    bool
}

// Open initializes or connects to the profile database. A file lock in
// the data directory keeps concurrent processes out.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	lock := flock.New(filepath.Join(cfg.Paths.DataDir, "modwatch.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire store lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "modwatch.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, lock: lock}
	ctx := context.Background()
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}
	if err := store.ensureDefault(ctx); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}

	return store, nil
}

// Close closes the database and releases the store lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var closeErr error
	if s.db != nil {
		closeErr = s.db.Close()
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil && closeErr == nil {
			closeErr = err
		}
	}
	return closeErr
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// ensureDefault guarantees at least one profile exists and one is
// active.
func (s *Store) ensureDefault(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM profiles").Scan(&count); err != nil {
		return fmt.Errorf("count profiles: %w", err)
	}
	if count == 0 {
		p := NewProfile("Default")
		if err := s.insert(ctx, p); err != nil {
			return err
		}
		return s.setActiveID(ctx, p.ID)
	}

	id, err := s.activeID(ctx)
	if err != nil {
		return err
	}
	if id != "" {
		var exists int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM profiles WHERE id = ?", id).Scan(&exists); err != nil {
			return fmt.Errorf("check active profile: %w", err)
		}
		if exists > 0 {
			return nil
		}
	}

	// Active pointer missing or stale. Point it at any profile.
	var fallback string
	if err := s.db.QueryRowContext(ctx, "SELECT id FROM profiles ORDER BY created_at LIMIT 1").Scan(&fallback); err != nil {
		return fmt.Errorf("pick fallback profile: %w", err)
	}
	return s.setActiveID(ctx, fallback)
}

// Active loads the currently active profile.
func (s *Store) Active(ctx context.Context) (*Profile, error) {
	id, err := s.activeID(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrProfileNotFound
	}
	return s.load(ctx, id)
}

// Save persists the full state of a profile.
func (s *Store) Save(ctx context.Context, p *Profile) error {
	p.UpdatedAt = time.Now().UTC()

	itemsJSON, err := json.Marshal(p.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	dmcaJSON, err := json.Marshal(p.Dmca)
	if err != nil {
		return fmt.Errorf("marshal dmca entries: %w", err)
	}
	resultsJSON, err := json.Marshal(p.SearchResults)
	if err != nil {
		return fmt.Errorf("marshal search results: %w", err)
	}
	prefsJSON, err := json.Marshal(p.Prefs)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET
            name = ?, items_json = ?, dmca_json = ?,
            search_results_json = ?, prefs_json = ?, updated_at = ?
        WHERE id = ?`,
		p.Name,
		string(itemsJSON),
		string(dmcaJSON),
		string(resultsJSON),
		string(prefsJSON),
		p.UpdatedAt.Format(time.RFC3339Nano),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	if affected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// Create adds a new empty profile and makes it active.
func (s *Store) Create(ctx context.Context, name string) (*Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, services.Wrap(services.ErrValidation, "profile", "create", "name must not be empty", nil)
	}

	var exists int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM profiles WHERE name = ?", name).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check profile name: %w", err)
	}
	if exists > 0 {
		return nil, services.Wrap(services.ErrValidation, "profile", "create", fmt.Sprintf("profile %q already exists", name), nil)
	}

	p := NewProfile(name)
	if err := s.insert(ctx, p); err != nil {
		return nil, err
	}
	if err := s.setActiveID(ctx, p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

// Rename changes a profile's display name.
func (s *Store) Rename(ctx context.Context, id, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return services.Wrap(services.ErrValidation, "profile", "rename", "name must not be empty", nil)
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE profiles SET name = ?, updated_at = ? WHERE id = ?",
		newName, time.Now().UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("rename profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rename profile: %w", err)
	}
	if affected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// Delete removes a profile. The last remaining profile cannot be
// deleted. Deleting the active profile activates another one.
func (s *Store) Delete(ctx context.Context, id string) error {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM profiles").Scan(&count); err != nil {
		return fmt.Errorf("count profiles: %w", err)
	}
	if count <= 1 {
		return ErrLastProfile
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM profiles WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if affected == 0 {
		return ErrProfileNotFound
	}

	active, err := s.activeID(ctx)
	if err != nil {
		return err
	}
	if active == id {
		var next string
		if err := s.db.QueryRowContext(ctx, "SELECT id FROM profiles ORDER BY created_at LIMIT 1").Scan(&next); err != nil {
			return fmt.Errorf("pick next active profile: %w", err)
		}
		return s.setActiveID(ctx, next)
	}
	return nil
}

// SwitchActive makes the profile with the given id or name active.
func (s *Store) SwitchActive(ctx context.Context, idOrName string) (*Profile, error) {
	idOrName = strings.TrimSpace(idOrName)
	var id string
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM profiles WHERE id = ? OR name = ?", idOrName, idOrName,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve profile: %w", err)
	}
	if err := s.setActiveID(ctx, id); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// List returns a summary row per profile.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	active, err := s.activeID(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, items_json, dmca_json FROM profiles ORDER BY created_at",
	)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var itemsJSON, dmcaJSON string
		if err := rows.Scan(&sum.ID, &sum.Name, &itemsJSON, &dmcaJSON); err != nil {
			return nil, fmt.Errorf("scan profile row: %w", err)
		}
		var items []TrackedItem
		if err := json.Unmarshal([]byte(itemsJSON), &items); err != nil {
			return nil, fmt.Errorf("decode items for %s: %w", sum.Name, err)
		}
		var entries []DmcaEntry
		if err := json.Unmarshal([]byte(dmcaJSON), &entries); err != nil {
			return nil, fmt.Errorf("decode dmca entries for %s: %w", sum.Name, err)
		}
		sum.ItemCount = len(items)
		sum.DmcaCount = len(normalizeEntries(entries))
		sum.Active = sum.ID == active
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *Store) insert(ctx context.Context, p *Profile) error {
	itemsJSON, err := json.Marshal(p.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	dmcaJSON, err := json.Marshal(p.Dmca)
	if err != nil {
		return fmt.Errorf("marshal dmca entries: %w", err)
	}
	resultsJSON, err := json.Marshal(p.SearchResults)
	if err != nil {
		return fmt.Errorf("marshal search results: %w", err)
	}
	prefsJSON, err := json.Marshal(p.Prefs)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profiles (
            id, name, items_json, dmca_json, search_results_json,
            prefs_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.Name,
		string(itemsJSON),
		string(dmcaJSON),
		string(resultsJSON),
		string(prefsJSON),
		p.CreatedAt.Format(time.RFC3339Nano),
		p.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (s *Store) load(ctx context.Context, id string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, items_json, dmca_json, search_results_json,
            prefs_json, created_at, updated_at
        FROM profiles WHERE id = ?`, id,
	)

	var p Profile
	var itemsJSON, dmcaJSON, resultsJSON, prefsJSON string
	var createdAt, updatedAt string
	err := row.Scan(&p.ID, &p.Name, &itemsJSON, &dmcaJSON, &resultsJSON, &prefsJSON, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	if err := json.Unmarshal([]byte(itemsJSON), &p.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	if err := json.Unmarshal([]byte(dmcaJSON), &p.Dmca); err != nil {
		return nil, fmt.Errorf("decode dmca entries: %w", err)
	}
	if err := json.Unmarshal([]byte(resultsJSON), &p.SearchResults); err != nil {
		return nil, fmt.Errorf("decode search results: %w", err)
	}
	if err := json.Unmarshal([]byte(prefsJSON), &p.Prefs); err != nil {
		return nil, fmt.Errorf("decode prefs: %w", err)
	}
	if p.SearchResults == nil {
		p.SearchResults = map[string]SearchResult{}
	}
	if p.Prefs.SortOrder == "" {
		p.Prefs.SortOrder = SortByName
	}
	p.Dmca = normalizeEntries(p.Dmca)

	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		p.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		p.UpdatedAt = t
	}
	return &p, nil
}

func (s *Store) activeID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM app_state WHERE key = ?", activeProfileKey,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read active profile id: %w", err)
	}
	return id, nil
}

func (s *Store) setActiveID(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_state (key, value) VALUES (?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		activeProfileKey, id,
	)
	if err != nil {
		return fmt.Errorf("set active profile id: %w", err)
	}
	return nil
}
