package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"photo-gallery/internal/albums"
	"photo-gallery/internal/logging"
)

const day = 24 * time.Hour

// RecordVisit stores one view with its client details and returns the
// album's new total and unique view counts. Timestamp defaults to now.
func (d *Database) RecordVisit(ctx context.Context, v albums.View) (views, unique int, err error) {
	start := time.Now()
	defer func() { recordQuery("record_view", start, err) }()

	if strings.TrimSpace(v.SessionID) == "" {
		return 0, 0, ErrMissingSession
	}
	if v.Timestamp.IsZero() {
		v.Timestamp = d.now()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO album_views (album_id, session_id, viewed_at, user_agent, referrer)
		SELECT id, ?, ?, ?, ? FROM albums WHERE id = ?
	`, v.SessionID, v.Timestamp.UnixMilli(), albums.ClipViewField(v.UserAgent), albums.ClipViewField(v.Referrer), v.AlbumID)
	if err != nil {
		return 0, 0, err
	}

	a, err := d.getAlbumUnlocked(ctx, v.AlbumID)
	if err != nil {
		return 0, 0, err
	}
	return a.Views, a.UniqueViews, nil
}

// HasImage reports whether any album lists source as an image or cover.
func (d *Database) HasImage(ctx context.Context, source string) (found bool, err error) {
	start := time.Now()
	defer func() { recordQuery("has_image", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = d.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM album_images WHERE source = ?)
			OR EXISTS (SELECT 1 FROM albums WHERE cover_image = ?)
	`, source, source).Scan(&found)
	return found, err
}

// ViewsByDate counts an album's recorded views per UTC day over the last
// days days, oldest first. Days without views are omitted.
func (d *Database) ViewsByDate(ctx context.Context, albumID string, days int) (out []albums.DailyViews, err error) {
	start := time.Now()
	defer func() { recordQuery("views_by_date", start, err) }()

	if days <= 0 {
		days = albums.DefaultViewWindowDays
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := d.requireAlbum(ctx, albumID); err != nil {
		return nil, err
	}

	cutoff := d.now().Add(-time.Duration(days) * day).UnixMilli()
	rows, err := d.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m-%d', viewed_at / 1000, 'unixepoch') AS day, COUNT(*)
		FROM album_views
		WHERE album_id = ? AND viewed_at >= ?
		GROUP BY day
		ORDER BY day
	`, albumID, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out = []albums.DailyViews{}
	for rows.Next() {
		var dv albums.DailyViews
		if err := rows.Scan(&dv.Date, &dv.Views); err != nil {
			return nil, err
		}
		out = append(out, dv)
	}
	return out, rows.Err()
}

// MostViewed ranks albums with at least one view by total views, breaking
// ties by unique views and then id.
func (d *Database) MostViewed(ctx context.Context, limit int) (out []albums.ViewCount, err error) {
	start := time.Now()
	defer func() { recordQuery("most_viewed", start, err) }()

	if limit <= 0 {
		limit = albums.DefaultMostViewedLimit
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, title, views, unique_views FROM (
			SELECT a.id, a.title,
				a.base_views + (SELECT COUNT(*) FROM album_views v WHERE v.album_id = a.id) AS views,
				a.base_unique_views + (SELECT COUNT(DISTINCT v.session_id) FROM album_views v WHERE v.album_id = a.id) AS unique_views
			FROM albums a
		)
		WHERE views > 0
		ORDER BY views DESC, unique_views DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out = []albums.ViewCount{}
	for rows.Next() {
		var vc albums.ViewCount
		if err := rows.Scan(&vc.AlbumID, &vc.Title, &vc.Views, &vc.UniqueViews); err != nil {
			return nil, err
		}
		out = append(out, vc)
	}
	return out, rows.Err()
}

// ViewStats summarises the recorded views. The windows are rolling: today
// is the last 24 hours.
func (d *Database) ViewStats(ctx context.Context) (s albums.ViewStats, err error) {
	start := time.Now()
	defer func() { recordQuery("view_stats", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := d.now()
	since := func(days int) int64 { return now.Add(-time.Duration(days) * day).UnixMilli() }

	err = d.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(DISTINCT session_id),
			COUNT(DISTINCT album_id),
			COALESCE(SUM(viewed_at >= ?), 0),
			COALESCE(SUM(viewed_at >= ?), 0),
			COALESCE(SUM(viewed_at >= ?), 0)
		FROM album_views
	`, since(30), since(7), since(1)).Scan(&s.TotalViews, &s.UniqueVisitors, &s.AlbumsViewed,
		&s.ViewsLast30Days, &s.ViewsLast7Days, &s.ViewsToday)
	if err != nil {
		return albums.ViewStats{}, err
	}
	if s.UniqueVisitors > 0 {
		s.AvgViewsPerVisitor = float64(s.TotalViews) / float64(s.UniqueVisitors)
	}
	return s, nil
}

// CleanOldViews deletes views older than days days and returns how many
// were removed. Their counts move into the album base counts so album
// totals do not change.
func (d *Database) CleanOldViews(ctx context.Context, days int) (removed int, err error) {
	start := time.Now()
	defer func() { recordQuery("clean_old_views", start, err) }()

	if days <= 0 {
		days = albums.DefaultViewRetentionDays
	}
	cutoff := d.now().Add(-time.Duration(days) * day).UnixMilli()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = d.withTx(ctx, func(tx *sql.Tx) error {
		// Sessions seen only before the cutoff stop being counted once
		// their rows go, so the unique delta is distinct-all minus
		// distinct-remaining.
		_, err := tx.ExecContext(ctx, `
			UPDATE albums SET
				base_views = base_views +
					(SELECT COUNT(*) FROM album_views v WHERE v.album_id = albums.id AND v.viewed_at < ?),
				base_unique_views = base_unique_views +
					(SELECT COUNT(DISTINCT v.session_id) FROM album_views v WHERE v.album_id = albums.id) -
					(SELECT COUNT(DISTINCT v.session_id) FROM album_views v WHERE v.album_id = albums.id AND v.viewed_at >= ?)
			WHERE id IN (SELECT album_id FROM album_views WHERE viewed_at < ?)
		`, cutoff, cutoff, cutoff)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, "DELETE FROM album_views WHERE viewed_at < ?", cutoff)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		removed = int(n)
		return err
	})
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		logging.Info("Removed %d views older than %d days", removed, days)
	}
	return removed, nil
}

// ExportViews returns every recorded view in the order it was recorded.
func (d *Database) ExportViews(ctx context.Context) (out []albums.View, err error) {
	start := time.Now()
	defer func() { recordQuery("export_views", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		"SELECT id, album_id, session_id, viewed_at, user_agent, referrer FROM album_views ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out = []albums.View{}
	for rows.Next() {
		var (
			v  albums.View
			at int64
		)
		if err := rows.Scan(&v.ID, &v.AlbumID, &v.SessionID, &at, &v.UserAgent, &v.Referrer); err != nil {
			return nil, err
		}
		v.Timestamp = time.UnixMilli(at).UTC()
		out = append(out, v)
	}
	return out, rows.Err()
}

func (d *Database) requireAlbum(ctx context.Context, id string) error {
	var exists bool
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) > 0 FROM albums WHERE id = ?", id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrAlbumNotFound, id)
	}
	return nil
}
