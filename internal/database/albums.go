package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"photo-gallery/internal/albums"
	"photo-gallery/internal/logging"
	"photo-gallery/internal/metrics"
)

var (
	// ErrAlbumNotFound is returned when no album has the requested id.
	ErrAlbumNotFound = errors.New("album not found")
	// ErrMissingSession is returned by RecordView without a session id.
	ErrMissingSession = errors.New("session id is required")
)

const albumColumns = `
	a.id, a.title, a.description, a.category, a.featured, a.tags, a.location,
	a.cover_image, a.date, a.created_at,
	a.base_views + (SELECT COUNT(*) FROM album_views v WHERE v.album_id = a.id),
	a.base_unique_views + (SELECT COUNT(DISTINCT v.session_id) FROM album_views v WHERE v.album_id = a.id)
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlbum(row rowScanner) (*albums.Album, error) {
	var (
		a                 albums.Album
		featured          int
		tags              string
		date, createdAt   int64
		views, uniqueView int
	)
	err := row.Scan(&a.ID, &a.Title, &a.Description, &a.Category, &featured, &tags, &a.Location,
		&a.CoverImage, &date, &createdAt, &views, &uniqueView)
	if err != nil {
		return nil, err
	}
	a.Featured = featured != 0
	a.Date = time.UnixMilli(date).UTC()
	a.CreatedAt = time.UnixMilli(createdAt).UTC()
	a.Views = views
	a.UniqueViews = uniqueView
	if err := json.Unmarshal([]byte(tags), &a.Tags); err != nil {
		logging.Warn("Album %s has unreadable tags: %v", a.ID, err)
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	a.Images = []string{}
	return &a, nil
}

// ListAlbums returns every album in insertion order.
func (d *Database) ListAlbums(ctx context.Context) (list []albums.Album, err error) {
	start := time.Now()
	defer func() { recordQuery("list_albums", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return d.listAlbumsUnlocked(ctx)
}

func (d *Database) listAlbumsUnlocked(ctx context.Context) ([]albums.Album, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT "+albumColumns+" FROM albums a ORDER BY a.rowid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []albums.Album{}
	index := make(map[string]int)
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		index[a.ID] = len(list)
		list = append(list, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	imgRows, err := d.db.QueryContext(ctx, "SELECT album_id, source FROM album_images ORDER BY album_id, position")
	if err != nil {
		return nil, err
	}
	defer imgRows.Close()

	for imgRows.Next() {
		var id, source string
		if err := imgRows.Scan(&id, &source); err != nil {
			return nil, err
		}
		if i, ok := index[id]; ok {
			list[i].Images = append(list[i].Images, source)
		}
	}
	return list, imgRows.Err()
}

// GetAlbum returns the album with id, or ErrAlbumNotFound.
func (d *Database) GetAlbum(ctx context.Context, id string) (a *albums.Album, err error) {
	start := time.Now()
	defer func() {
		if errors.Is(err, ErrAlbumNotFound) {
			recordQuery("get_album", start, nil)
			return
		}
		recordQuery("get_album", start, err)
	}()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return d.getAlbumUnlocked(ctx, id)
}

func (d *Database) getAlbumUnlocked(ctx context.Context, id string) (*albums.Album, error) {
	row := d.db.QueryRowContext(ctx, "SELECT "+albumColumns+" FROM albums a WHERE a.id = ?", id)
	a, err := scanAlbum(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrAlbumNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, "SELECT source FROM album_images WHERE album_id = ? ORDER BY position", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, err
		}
		a.Images = append(a.Images, source)
	}
	return a, rows.Err()
}

// CreateAlbum stores a new album with a fresh id and zero views. Date
// defaults to now.
func (d *Database) CreateAlbum(ctx context.Context, in albums.Album) (a *albums.Album, err error) {
	start := time.Now()
	defer func() { recordQuery("create_album", start, err) }()

	in.ID = uuid.NewString()
	in.Views = 0
	in.UniqueViews = 0
	in.CreatedAt = time.Now().UTC()
	if in.Date.IsZero() {
		in.Date = in.CreatedAt
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = d.withTx(ctx, func(tx *sql.Tx) error {
		return insertAlbum(ctx, tx, &in)
	})
	if err != nil {
		return nil, err
	}

	logging.Info("Created album %s (%q, %d images)", in.ID, in.Title, len(in.Images))
	return d.getAlbumUnlocked(ctx, in.ID)
}

func insertAlbum(ctx context.Context, tx *sql.Tx, a *albums.Album) error {
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	tagJSON, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	featured := 0
	if a.Featured {
		featured = 1
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = a.Date
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO albums (id, title, description, category, featured, tags, location,
			cover_image, date, created_at, base_views, base_unique_views)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Title, a.Description, a.Category, featured, string(tagJSON), a.Location,
		a.CoverImage, a.Date.UnixMilli(), createdAt.UnixMilli(), a.Views, a.UniqueViews)
	if err != nil {
		return err
	}
	return insertImages(ctx, tx, a.ID, 0, a.Images)
}

func insertImages(ctx context.Context, tx *sql.Tx, albumID string, first int, sources []string) error {
	if len(sources) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO album_images (album_id, position, source) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, src := range sources {
		if _, err := stmt.ExecContext(ctx, albumID, first+i, src); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAlbum removes an album with its images and views.
func (d *Database) DeleteAlbum(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { recordQuery("delete_album", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = d.withTx(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{
			"DELETE FROM album_images WHERE album_id = ?",
			"DELETE FROM album_views WHERE album_id = ?",
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM albums WHERE id = ?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", ErrAlbumNotFound, id)
		}
		return nil
	})
	if err == nil {
		logging.Info("Deleted album %s", id)
	}
	return err
}

// AppendImages adds sources to the end of an album and returns the updated
// album. Blank sources are rejected.
func (d *Database) AppendImages(ctx context.Context, id string, sources []string) (a *albums.Album, err error) {
	start := time.Now()
	defer func() { recordQuery("append_images", start, err) }()

	for i, src := range sources {
		if strings.TrimSpace(src) == "" {
			return nil, fmt.Errorf("%w: image %d is empty", albums.ErrInvalidAlbum, i)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = d.withTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) > 0 FROM albums WHERE id = ?", id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", ErrAlbumNotFound, id)
		}

		var next int
		if err := tx.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(position) + 1, 0) FROM album_images WHERE album_id = ?", id).Scan(&next); err != nil {
			return err
		}
		return insertImages(ctx, tx, id, next, sources)
	})
	if err != nil {
		return nil, err
	}
	return d.getAlbumUnlocked(ctx, id)
}

// RecordView records one view of an album by a session and returns the new
// total and unique view counts. Unique views count distinct sessions.
func (d *Database) RecordView(ctx context.Context, id, sessionID string) (views, unique int, err error) {
	return d.RecordVisit(ctx, albums.View{AlbumID: id, SessionID: sessionID})
}

// UpdateAlbum applies a partial update and returns the stored album.
// Images, when patched, replace the whole list in the given order.
func (d *Database) UpdateAlbum(ctx context.Context, id string, p albums.Patch) (a *albums.Album, err error) {
	start := time.Now()
	defer func() { recordQuery("update_album", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	current, err := d.getAlbumUnlocked(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := p.Apply(*current)
	if err != nil {
		return nil, err
	}

	tagJSON, err := json.Marshal(next.Tags)
	if err != nil {
		return nil, err
	}
	featured := 0
	if next.Featured {
		featured = 1
	}

	err = d.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE albums SET title = ?, description = ?, category = ?, featured = ?, tags = ?,
				location = ?, cover_image = ?, date = ?
			WHERE id = ?
		`, next.Title, next.Description, next.Category, featured, string(tagJSON),
			next.Location, next.CoverImage, next.Date.UnixMilli(), id)
		if err != nil {
			return err
		}
		if p.Images == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM album_images WHERE album_id = ?", id); err != nil {
			return err
		}
		return insertImages(ctx, tx, id, 0, next.Images)
	})
	if err != nil {
		return nil, err
	}

	logging.Info("Updated album %s (%q, %d images)", id, next.Title, len(next.Images))
	return d.getAlbumUnlocked(ctx, id)
}

// Seed inserts the given albums when the album table is empty and returns
// how many were inserted.
func (d *Database) Seed(ctx context.Context, seed []albums.Album) (n int, err error) {
	start := time.Now()
	defer func() { recordQuery("seed_albums", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM albums").Scan(&count); err != nil {
		return 0, err
	}
	if count > 0 {
		logging.Debug("Album table already holds %d albums, skipping seed", count)
		return 0, nil
	}

	err = d.withTx(ctx, func(tx *sql.Tx) error {
		for i := range seed {
			if err := insertAlbum(ctx, tx, &seed[i]); err != nil {
				return fmt.Errorf("seed album %s: %w", seed[i].ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logging.Info("Seeded %d albums", len(seed))
	return len(seed), nil
}

// AlbumStats summarises every album, including categories and tags.
func (d *Database) AlbumStats(ctx context.Context) (s albums.Stats, err error) {
	start := time.Now()
	defer func() { recordQuery("album_stats", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	list, err := d.listAlbumsUnlocked(ctx)
	if err != nil {
		return albums.Stats{}, err
	}
	return albums.Summarize(list), nil
}

// GetStats reports registry totals for the metrics collector. Errors are
// logged and yield zero totals.
func (d *Database) GetStats() metrics.Stats {
	s, err := d.AlbumStats(context.Background())
	if err != nil {
		logging.Warn("Failed to collect album stats: %v", err)
		return metrics.Stats{}
	}
	return metrics.Stats{
		TotalAlbums:      s.TotalAlbums,
		TotalImages:      s.TotalImages,
		TotalViews:       s.TotalViews,
		TotalUniqueViews: s.TotalUniqueViews,
	}
}
