package assets

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coverServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{B: 0xff, A: 0xff})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	hits := &atomic.Int32{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cover.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		hits.Add(1)
		w.Write(buf.Bytes())
	}))
	t.Cleanup(ts.Close)
	return ts, hits
}

func TestPassthrough(t *testing.T) {
	got, err := Passthrough{}.Resolve(context.Background(), "app", []string{"https://archive.org/a.jpg", "audio"})
	require.NoError(t, err)
	assert.Equal(t, []Asset{{ID: "https://archive.org/a.jpg"}, {ID: "audio"}}, got)
}

func TestCoverStore_SavesRemoteCovers(t *testing.T) {
	ts, hits := coverServer(t)
	dir := t.TempDir()

	store := NewCoverStore(dir)
	store.HTTPClient = ts.Client()

	got, err := store.Resolve(context.Background(), "app", []string{ts.URL + "/cover.png"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, strings.HasPrefix(got[0].ID, "/static/cover."))
	assert.True(t, strings.HasSuffix(got[0].ID, ".png"))
	assert.NotEmpty(t, got[0].DominantColours)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, strings.TrimPrefix(got[0].ID, "/static/"), filepath.Base(files[0].Name()))

	again, err := store.Resolve(context.Background(), "app", []string{ts.URL + "/cover.png"})
	require.NoError(t, err)
	assert.Equal(t, got, again)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCoverStore_IconsPassThrough(t *testing.T) {
	store := NewCoverStore(t.TempDir())
	got, err := store.Resolve(context.Background(), "app", []string{"movie"})
	require.NoError(t, err)
	assert.Equal(t, []Asset{{ID: "movie"}}, got)
}

func TestCoverStore_DownloadFailure(t *testing.T) {
	ts, _ := coverServer(t)
	store := NewCoverStore(t.TempDir())
	store.HTTPClient = ts.Client()

	_, err := store.Resolve(context.Background(), "app", []string{ts.URL + "/missing.png"})
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	assert.IsType(t, Passthrough{}, New("", "/tmp"))
	assert.IsType(t, Passthrough{}, New(ModePassthrough, "/tmp"))
	assert.IsType(t, &CoverStore{}, New("LOCAL", "/tmp"))
}
