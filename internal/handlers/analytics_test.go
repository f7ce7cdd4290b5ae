package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"photo-gallery/internal/albums"
)

func recordViews(t *testing.T, env *testEnv, albumID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/albums/"+albumID+"/views", http.NoBody)
		if w := routed("/api/albums/{id}/views", env.h.RecordView, req); w.Code != http.StatusOK {
			t.Fatalf("record view status = %d: %s", w.Code, w.Body.String())
		}
	}
}

func TestAlbumViewsByDate(t *testing.T) {
	env := setupTestEnv(t)
	recordViews(t, env, "2", 3)
	const path = "/api/albums/{id}/views"

	w := routed(path, env.h.AlbumViewsByDate, httptest.NewRequest(http.MethodGet, "/api/albums/2/views?days=7", http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var daily []albums.DailyViews
	decodeBody(t, w, &daily)
	today := time.Now().UTC().Format("2006-01-02")
	if len(daily) != 1 || daily[0].Views != 3 || daily[0].Date != today {
		t.Errorf("daily = %+v, want 3 views on %s", daily, today)
	}

	tests := []struct {
		name, url string
		want      int
	}{
		{name: "default window", url: "/api/albums/2/views", want: http.StatusOK},
		{name: "bad days", url: "/api/albums/2/views?days=-3", want: http.StatusBadRequest},
		{name: "not a number", url: "/api/albums/2/views?days=week", want: http.StatusBadRequest},
		{name: "unknown album", url: "/api/albums/none/views", want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := routed(path, env.h.AlbumViewsByDate, httptest.NewRequest(http.MethodGet, tt.url, http.NoBody))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestGetAnalytics(t *testing.T) {
	env := setupTestEnv(t)
	recordViews(t, env, "3", 2)

	w := httptest.NewRecorder()
	env.h.GetAnalytics(w, httptest.NewRequest(http.MethodGet, "/api/analytics?limit=2", http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp analyticsResponse
	decodeBody(t, w, &resp)
	want := albums.ViewStats{
		TotalViews:         2,
		UniqueVisitors:     2,
		AvgViewsPerVisitor: 1,
		AlbumsViewed:       1,
		ViewsLast30Days:    2,
		ViewsLast7Days:     2,
		ViewsToday:         2,
	}
	if resp.Stats != want {
		t.Errorf("stats = %+v, want %+v", resp.Stats, want)
	}
	if len(resp.MostViewed) != 2 || resp.MostViewed[0].AlbumID != "1" || resp.MostViewed[0].Views != 1250 {
		t.Errorf("most viewed = %+v", resp.MostViewed)
	}

	w = httptest.NewRecorder()
	env.h.GetAnalytics(w, httptest.NewRequest(http.MethodGet, "/api/analytics?limit=x", http.NoBody))
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", w.Code)
	}
}

func TestExportViews(t *testing.T) {
	env := setupTestEnv(t)
	recordViews(t, env, "1", 2)

	w := httptest.NewRecorder()
	env.h.ExportViews(w, httptest.NewRequest(http.MethodGet, "/api/analytics/export", http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="views.json"` {
		t.Errorf("Content-Disposition = %q", cd)
	}

	var views []albums.View
	decodeBody(t, w, &views)
	if len(views) != 2 || views[0].AlbumID != "1" || views[0].SessionID == "" {
		t.Errorf("views = %+v", views)
	}
}

func TestCleanViews(t *testing.T) {
	env := setupTestEnv(t)
	recordViews(t, env, "1", 1)

	tests := []struct {
		name, url   string
		want        int
		wantDays    int
		wantRemoved int
	}{
		{name: "default retention", url: "/api/analytics/views", want: http.StatusOK, wantDays: 365},
		{name: "explicit days", url: "/api/analytics/views?days=30", want: http.StatusOK, wantDays: 30},
		{name: "bad days", url: "/api/analytics/views?days=-1", want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			env.h.CleanViews(w, httptest.NewRequest(http.MethodDelete, tt.url, http.NoBody))
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
			if tt.want != http.StatusOK {
				return
			}
			var body map[string]int
			decodeBody(t, w, &body)
			if body["days"] != tt.wantDays || body["removed"] != tt.wantRemoved {
				t.Errorf("body = %v", body)
			}
		})
	}
}
