package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcus-crane/jellypresence/activity"
	"github.com/marcus-crane/jellypresence/assets"
	"github.com/marcus-crane/jellypresence/config"
	"github.com/marcus-crane/jellypresence/events"
	"github.com/marcus-crane/jellypresence/migrations"
	"github.com/marcus-crane/jellypresence/playback"
	"github.com/marcus-crane/jellypresence/poller"
	"github.com/marcus-crane/jellypresence/preflight"
	"github.com/marcus-crane/jellypresence/presence"
)

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) Trigger() error {
	f.calls++
	return f.err
}

func newTestApp(t *testing.T, cfg config.Config) (*App, *fakeRefresher) {
	t.Helper()
	refresher := &fakeRefresher{}
	app := &App{
		cfg:       cfg,
		sse:       events.NewSSE(),
		hub:       events.NewHub(),
		refresher: refresher,
	}
	app.broadcaster = presence.NewBroadcaster(app.sse)
	t.Cleanup(app.sse.Close)
	return app, refresher
}

func serve(app *App, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	RegisterRoutes(http.NewServeMux(), app).ServeHTTP(rec, req)
	return rec
}

func setupTestDB(t *testing.T) *sqlx.DB {
	db, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	goose.SetBaseFS(migrations.GetMigrations())

	err = goose.SetDialect("sqlite3")
	require.NoError(t, err)

	err = goose.Up(db.DB, ".")
	require.NoError(t, err)

	return db
}

func sign(t *testing.T, body, secret string) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	_, err := mac.Write([]byte(body))
	require.NoError(t, err)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestBanner(t *testing.T) {
	app, _ := newTestApp(t, config.Default())

	rec := serve(app, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "jellypresence")

	rec = serve(app, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlaying(t *testing.T) {
	app, _ := newTestApp(t, config.Default())

	rec := serve(app, httptest.NewRequest(http.MethodGet, "/api/v1/playing", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"type":"LOCAL_ACTIVITY_UPDATE","socketId":"Jellyfin","activity":null}`, rec.Body.String())

	require.NoError(t, app.broadcaster.Publish(context.Background(), presence.NewUpdate(&activity.Activity{
		ApplicationID: config.DefaultApplicationID,
		Name:          "Jellyfin",
		Details:       "The Matrix",
	}, "abc", "Movie")))

	rec = serve(app, httptest.NewRequest(http.MethodGet, "/api/v1/playing", nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body["activity"])
	assert.Equal(t, "The Matrix", body["activity"].(map[string]any)["details"])
}

func TestHistory_Disabled(t *testing.T) {
	app, _ := newTestApp(t, config.Default())

	rec := serve(app, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHistory_ReturnsRecentEntries(t *testing.T) {
	ps := playback.NewSystem(setupTestDB(t))
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		require.NoError(t, ps.Record(context.Background(), playback.Entry{ItemID: id, Category: "Audio", Details: id}))
	}

	app, _ := newTestApp(t, config.Default())
	app.history = ps

	rec := serve(app, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var entries []playback.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.Len(t, entries, historyLimit)
}

func TestRefresh_WithoutSecret(t *testing.T) {
	app, refresher := newTestApp(t, config.Default())

	rec := serve(app, httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, refresher.calls)

	rec = serve(app, httptest.NewRequest(http.MethodGet, "/api/v1/refresh", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, 1, refresher.calls)
}

func TestRefresh_Signature(t *testing.T) {
	cfg := config.Default()
	cfg.Presence.WebhookSecret = "hunter2"
	body := `{"event":"playback.start"}`

	tests := []struct {
		name      string
		signature string
		want      int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong secret", sign(t, body, "hunter3"), http.StatusUnauthorized},
		{"valid", sign(t, body, "hunter2"), http.StatusAccepted},
		{"valid without prefix", strings.TrimPrefix(sign(t, body, "hunter2"), "sha256="), http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, refresher := newTestApp(t, cfg)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/refresh", strings.NewReader(body))
			if tt.signature != "" {
				req.Header.Set("X-Signature", tt.signature)
			}

			rec := serve(app, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusAccepted {
				assert.Equal(t, 1, refresher.calls)
			} else {
				assert.Zero(t, refresher.calls)
			}
		})
	}
}

func TestRefresh_NotRunning(t *testing.T) {
	app, refresher := newTestApp(t, config.Default())
	refresher.err = poller.ErrNotRunning

	rec := serve(app, httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStatic(t *testing.T) {
	cfg := config.Default()
	cfg.Presence.StorageDir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Presence.StorageDir, "cover.1234.jpeg"), []byte("jpeg bytes"), 0644))
	app, _ := newTestApp(t, cfg)

	rec := serve(app, httptest.NewRequest(http.MethodGet, "/static/cover.1234.jpeg", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "jpeg bytes", rec.Body.String())

	rec = serve(app, httptest.NewRequest(http.MethodGet, "/static/cover.5678.jpeg", nil))
	assert.Equal(t, http.StatusGone, rec.Code)

	rec = serve(app, httptest.NewRequest(http.MethodGet, "/static/cover.jpeg", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNewGate(t *testing.T) {
	cfg := config.Default()
	cfg.Jellyfin.URL = "https://jellyfin.example.com/web"
	cfg.Presence.EgressAllowlist = "https://jellyfin.example.com, https://*.archive.org"

	decisions, err := newGate(cfg).Check(context.Background())
	require.NoError(t, err)

	allowed := map[string]bool{}
	for _, d := range decisions {
		allowed[d.Host] = d.Allowed
	}
	assert.True(t, allowed["https://jellyfin.example.com"])
	assert.True(t, allowed["https://*.archive.org"])
	assert.False(t, allowed["https://archive.org"])
	assert.False(t, allowed["https://api.themoviedb.org"])
	assert.Len(t, decisions, 5)

	cfg.Presence.AssetMode = "LOCAL"
	decisions, err = newGate(cfg).Check(context.Background())
	require.NoError(t, err)
	require.Len(t, decisions, 6)
	assert.Equal(t, preflight.Decision{Host: "https://image.tmdb.org", Allowed: false}, decisions[5])
	cfg.Presence.AssetMode = assets.ModePassthrough

	cfg.Presence.EgressAllowlist = ""
	assert.NoError(t, newGate(cfg).Ensure(context.Background()))
}

func TestDeleteHistoryEntry(t *testing.T) {
	ps := playback.NewSystem(setupTestDB(t))
	require.NoError(t, ps.Record(context.Background(), playback.Entry{ItemID: "a", Category: "Audio"}))
	entries, err := ps.GetHistory(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	path := "/api/v1/history/" + strconv.Itoa(entries[0].ID)

	// Deleting is refused outright without a secret
	app, _ := newTestApp(t, config.Default())
	app.history = ps
	rec := serve(app, httptest.NewRequest(http.MethodDelete, path, nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	cfg := config.Default()
	cfg.Presence.WebhookSecret = "hunter2"
	app, _ = newTestApp(t, cfg)
	app.history = ps

	rec = serve(app, httptest.NewRequest(http.MethodDelete, path, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/history/abc", nil)
	req.Header.Set("X-Signature", sign(t, "", "hunter2"))
	rec = serve(app, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, path, nil)
	req.Header.Set("X-Signature", sign(t, "", "hunter2"))
	rec = serve(app, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	entries, err = ps.GetHistory(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
