package playback

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

type Store interface {
	Record(ctx context.Context, entry Entry) error
	GetHistory(ctx context.Context, limit int) ([]Entry, error)
	DeleteItem(ctx context.Context, id int) error
}

// Entry is one stretch of an item being shown. Playing the same item again
// after something else, or after presence was cleared, starts a new entry.
type Entry struct {
	ID              int       `db:"id" json:"id"`
	MediaID         string    `db:"media_id" json:"media_id"`
	ItemID          string    `db:"item_id" json:"item_id"`
	Category        string    `db:"category" json:"category"`
	Details         string    `db:"details" json:"details"`
	State           string    `db:"state" json:"state"`
	Image           string    `db:"image" json:"image"`
	DominantColours Colours   `db:"dominant_colours" json:"dominant_colours"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Colours is stored as a JSON array.
type Colours []string

func (c Colours) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (c *Colours) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*c = Colours{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported colours type %T", src)
	}
	return json.Unmarshal(data, c)
}

// GenerateMediaID is stable for an item across restarts.
func GenerateMediaID(itemID, category string) string {
	category = strings.ToLower(category)
	return fmt.Sprintf("%s:%d", category, xxhash.Sum64String(fmt.Sprintf("%s-%s", category, itemID)))
}
