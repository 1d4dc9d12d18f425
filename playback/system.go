package playback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/marcus-crane/jellypresence/presence"
)

// System keeps a history of what was shown. It's attached to the presence
// broadcaster as a sink and only writes when the shown item changes.
type System struct {
	db  *sqlx.DB
	now func() time.Time

	m      sync.Mutex
	active string // media ID of the entry being extended, "" when cleared
}

var (
	_ Store         = (*System)(nil)
	_ presence.Sink = (*System)(nil)
)

func NewSystem(db *sqlx.DB) *System {
	return &System{db: db, now: time.Now}
}

func (s *System) Publish(ctx context.Context, update presence.Update) error {
	if update.Activity == nil {
		s.m.Lock()
		s.active = ""
		s.m.Unlock()
		return nil
	}
	if update.ItemID == "" {
		return nil
	}
	return s.Record(ctx, Entry{
		ItemID:          update.ItemID,
		Category:        update.Category,
		Details:         update.Activity.Details,
		State:           update.Activity.State,
		Image:           update.Activity.Assets.LargeImage,
		DominantColours: update.Activity.Assets.DominantColours,
	})
}

// Record extends the active entry when it's for the same item, otherwise it
// starts a new one.
func (s *System) Record(ctx context.Context, entry Entry) error {
	s.m.Lock()
	defer s.m.Unlock()

	entry.MediaID = GenerateMediaID(entry.ItemID, entry.Category)
	now := s.now()

	if entry.MediaID == s.active {
		_, err := s.db.ExecContext(ctx, `
		  UPDATE playback_history
		  SET updated_at = ?
		  WHERE id = (SELECT MAX(id) FROM playback_history WHERE media_id = ?)`,
			now, entry.MediaID)
		if err != nil {
			return fmt.Errorf("failed to extend history entry: %w", err)
		}
		return nil
	}

	if entry.DominantColours == nil {
		entry.DominantColours = Colours{}
	}
	_, err := s.db.ExecContext(ctx, `
	  INSERT INTO playback_history
	  (media_id, item_id, category, details, state, image, dominant_colours, created_at, updated_at)
	  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.MediaID, entry.ItemID, entry.Category, entry.Details, entry.State, entry.Image, entry.DominantColours, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	s.active = entry.MediaID

	slog.Debug("Inserted new history entry", slog.String("media_id", entry.MediaID))
	return nil
}

func (s *System) GetHistory(ctx context.Context, limit int) ([]Entry, error) {
	results := []Entry{}

	if limit <= 0 {
		return results, fmt.Errorf("must request at least one historical item")
	}

	err := s.db.SelectContext(ctx, &results, `
	  SELECT id, media_id, item_id, category, details, state, image, dominant_colours, created_at, updated_at
	  FROM playback_history
	  ORDER BY updated_at DESC, id DESC
	  LIMIT ?`, limit)

	return results, err
}

func (s *System) DeleteItem(ctx context.Context, id int) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM playback_history WHERE id = ?`, id); err != nil {
		return err
	}
	return nil
}
