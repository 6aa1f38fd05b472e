package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sydlexius/artistlink/internal/provider"
)

// ErrNotFound is returned when no profile has the requested id.
var ErrNotFound = errors.New("profile not found")

// Store persists finalized profiles.
type Store interface {
	Save(ctx context.Context, p *Profile) error
	Get(ctx context.Context, id string) (*Profile, error)
	List(ctx context.Context, limit, offset int) ([]Profile, int, error)
	FindByLink(ctx context.Context, platform provider.ProviderName, platformID string) (*Profile, error)
}

const profileColumns = `id, name, avatar_url, bio, location, genres, popularity, created_at, updated_at`

// SQLStore is the SQLite Store.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a store over a migrated database.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Save inserts p, or replaces it when p.ID already exists. A missing ID is
// generated.
func (s *SQLStore) Save(ctx context.Context, p *Profile) error {
	if p.Name == "" {
		return &provider.ErrValidation{Reason: "profile name is required"}
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			avatar_url = excluded.avatar_url,
			bio = excluded.bio,
			location = excluded.location,
			genres = excluded.genres,
			popularity = excluded.popularity,
			updated_at = excluded.updated_at
	`,
		p.ID, p.Name, p.AvatarURL, p.Bio, p.Location, marshalStrings(p.Genres), p.Popularity,
		p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM profile_links WHERE profile_id = ?`, p.ID); err != nil {
		return fmt.Errorf("clearing profile links: %w", err)
	}
	for _, l := range p.Links {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO profile_links (profile_id, platform, platform_id, url) VALUES (?, ?, ?, ?)`,
			p.ID, string(l.Platform), l.PlatformID, l.URL)
		if err != nil {
			return fmt.Errorf("saving %s link: %w", l.Platform, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing profile: %w", err)
	}
	return nil
}

// Get retrieves a profile by id.
func (s *SQLStore) Get(ctx context.Context, id string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	if err := s.loadLinks(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// FindByLink returns the profile linked to the given platform artist.
func (s *SQLStore) FindByLink(ctx context.Context, platform provider.ProviderName, platformID string) (*Profile, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT profile_id FROM profile_links WHERE platform = ? AND platform_id = ? LIMIT 1`,
		string(platform), platformID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, platform, platformID)
	}
	if err != nil {
		return nil, fmt.Errorf("finding profile by link: %w", err)
	}
	return s.Get(ctx, id)
}

// List returns one page of profiles, most recently updated first, and the
// total count.
func (s *SQLStore) List(ctx context.Context, limit, offset int) ([]Profile, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset = max(offset, 0)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting profiles: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles ORDER BY updated_at DESC, name ASC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing profiles: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var profiles []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning profile row: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating profile rows: %w", err)
	}
	// Links are loaded after the cursor is closed; the pool has one connection.
	rows.Close() //nolint:errcheck,gosec

	for i := range profiles {
		if err := s.loadLinks(ctx, &profiles[i]); err != nil {
			return nil, 0, err
		}
	}
	return profiles, total, nil
}

func (s *SQLStore) loadLinks(ctx context.Context, p *Profile) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT platform, platform_id, url FROM profile_links WHERE profile_id = ?`, p.ID)
	if err != nil {
		return fmt.Errorf("loading profile links: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	byPlatform := make(map[provider.ProviderName]Link)
	for rows.Next() {
		var l Link
		var platform string
		if err := rows.Scan(&platform, &l.PlatformID, &l.URL); err != nil {
			return fmt.Errorf("scanning profile link: %w", err)
		}
		l.Platform = provider.ProviderName(platform)
		byPlatform[l.Platform] = l
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating profile links: %w", err)
	}

	p.Links = make([]Link, 0, len(byPlatform))
	for _, name := range provider.AllProviderNames() {
		if l, ok := byPlatform[name]; ok {
			p.Links = append(p.Links, l)
		}
	}
	return nil
}

func scanProfile(row interface{ Scan(...any) error }) (*Profile, error) {
	var p Profile
	var genres, createdAt, updatedAt string
	err := row.Scan(&p.ID, &p.Name, &p.AvatarURL, &p.Bio, &p.Location, &genres, &p.Popularity, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.Genres = unmarshalStrings(genres)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}
