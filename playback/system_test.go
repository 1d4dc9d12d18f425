package playback

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcus-crane/jellypresence/activity"
	"github.com/marcus-crane/jellypresence/migrations"
	"github.com/marcus-crane/jellypresence/presence"
)

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

// steppingClock advances a second every call so ordering is deterministic.
func steppingClock() func() time.Time {
	current := time.Date(2024, 7, 21, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func update(itemID, details string) presence.Update {
	return presence.NewUpdate(&activity.Activity{
		Details: details,
		State:   "1999",
		Assets:  activity.Assets{LargeImage: "https://image.tmdb.org/t/p/w500/matrix.jpg", DominantColours: []string{"#abc123"}},
	}, itemID, "Movie")
}

func TestSystem_RecordsOneEntryPerDistinctItem(t *testing.T) {
	ps := NewSystem(setupTestDB(t))
	ps.now = steppingClock()
	ctx := context.Background()

	// Same item polled three times, then another item, then the first again
	for _, u := range []presence.Update{
		update("matrix", "The Matrix"),
		update("matrix", "The Matrix"),
		update("matrix", "The Matrix"),
		update("house", "House"),
		update("matrix", "The Matrix"),
	} {
		require.NoError(t, ps.Publish(ctx, u))
	}

	history, err := ps.GetHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 3)

	assert.Equal(t, "The Matrix", history[0].Details)
	assert.Equal(t, "House", history[1].Details)
	assert.Equal(t, "The Matrix", history[2].Details)

	first := history[2]
	assert.Equal(t, GenerateMediaID("matrix", "Movie"), first.MediaID)
	assert.Equal(t, "matrix", first.ItemID)
	assert.Equal(t, "Movie", first.Category)
	assert.Equal(t, "1999", first.State)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/matrix.jpg", first.Image)
	assert.Equal(t, Colours{"#abc123"}, first.DominantColours)
	assert.Equal(t, 2*time.Second, first.UpdatedAt.Sub(first.CreatedAt))
}

func TestSystem_ClearStartsNewEntry(t *testing.T) {
	ps := NewSystem(setupTestDB(t))
	ps.now = steppingClock()
	ctx := context.Background()

	require.NoError(t, ps.Publish(ctx, update("matrix", "The Matrix")))
	require.NoError(t, ps.Publish(ctx, presence.Clear()))
	require.NoError(t, ps.Publish(ctx, update("matrix", "The Matrix")))

	history, err := ps.GetHistory(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestSystem_IgnoresUpdatesWithoutItem(t *testing.T) {
	ps := NewSystem(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, ps.Publish(ctx, presence.NewUpdate(&activity.Activity{Details: "anonymous"}, "", "")))

	history, err := ps.GetHistory(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSystem_GetHistoryLimit(t *testing.T) {
	ps := NewSystem(setupTestDB(t))
	ps.now = steppingClock()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, ps.Record(ctx, Entry{ItemID: id, Category: "Audio", Details: id}))
	}

	history, err := ps.GetHistory(ctx, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "c", history[0].Details)
	assert.Equal(t, "b", history[1].Details)
	assert.Equal(t, Colours{}, history[0].DominantColours)

	_, err = ps.GetHistory(ctx, 0)
	assert.Error(t, err)
}

func TestSystem_DeleteItem(t *testing.T) {
	ps := NewSystem(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, ps.Record(ctx, Entry{ItemID: "a", Category: "Audio"}))
	history, err := ps.GetHistory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)

	require.NoError(t, ps.DeleteItem(ctx, history[0].ID))

	history, err = ps.GetHistory(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSystem_InsertFailureDoesNotMarkActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ps := NewSystem(sqlx.NewDb(db, "sqlmock"))
	insert := regexp.QuoteMeta("INSERT INTO playback_history")

	mock.ExpectExec(insert).WillReturnError(errors.New("disk I/O error"))
	mock.ExpectExec(insert).WillReturnResult(sqlmock.NewResult(1, 1))

	err = ps.Record(context.Background(), Entry{ItemID: "a", Category: "Audio"})
	assert.ErrorContains(t, err, "disk I/O error")

	// The retry must insert again rather than extend a row that never landed
	assert.NoError(t, ps.Record(context.Background(), Entry{ItemID: "a", Category: "Audio"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSystem_GetHistoryQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectQuery(regexp.QuoteMeta("FROM playback_history")).WillReturnError(errors.New("no such table"))

	_, err = NewSystem(sqlx.NewDb(db, "sqlmock")).GetHistory(context.Background(), 5)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateMediaID(t *testing.T) {
	assert.Equal(t, GenerateMediaID("abc", "Movie"), GenerateMediaID("abc", "movie"))
	assert.NotEqual(t, GenerateMediaID("abc", "Movie"), GenerateMediaID("abc", "Episode"))
	assert.Regexp(t, `^movie:\d+$`, GenerateMediaID("abc", "Movie"))
}

func TestColours_RoundTrip(t *testing.T) {
	value, err := Colours{"#000000", "#ffffff"}.Value()
	require.NoError(t, err)

	var got Colours
	require.NoError(t, got.Scan(value))
	assert.Equal(t, Colours{"#000000", "#ffffff"}, got)

	require.NoError(t, got.Scan(nil))
	assert.Equal(t, Colours{}, got)
	assert.Error(t, got.Scan(42))
}
