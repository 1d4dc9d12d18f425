package migrations

import (
	"embed"
	"io/fs"
)

// The playback history schema. Files sit at the root of the FS so goose is
// pointed at ".".
//
//go:embed *.sql
var historySchema embed.FS

func GetMigrations() fs.FS {
	return historySchema
}
