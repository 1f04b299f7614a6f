package catalog

import (
	"time"

	"lms/internal/ids"

	"gorm.io/datatypes"
)

// LyricsLine is one synchronized line; Timestamp is the offset from
// track start. Unsynchronized lyrics are stored as a single line with
// a zero Timestamp in an unsynchronized-ordered slice instead.
type LyricsLine struct {
	Timestamp time.Duration `json:"timestamp"`
	Line      string        `json:"line"`
}

// LyricsBody is persisted as JSON text in one column via
// datatypes.JSONType on TrackLyrics.
type LyricsBody struct {
	Language      string        `json:"language,omitempty"`
	Offset        time.Duration `json:"offset,omitempty"`
	DisplayArtist string        `json:"displayArtist,omitempty"`
	DisplayTitle  string        `json:"displayTitle,omitempty"`
	Synchronized  bool          `json:"synchronized"`
	Lines         []LyricsLine  `json:"lines,omitempty"`
}

// TrackLyrics is either external (own path/stem/mtime/size) or
// embedded in the audio file itself.
type TrackLyrics struct {
	ID       ids.Id[ids.LyricsKind] `gorm:"primaryKey;autoIncrement"`
	TrackID  ids.Id[ids.TrackKind]  `gorm:"not null;index:idx_track_lyrics_track"`
	External bool

	AbsoluteFilePath string
	Stem             string
	LastWriteTime    time.Time
	FileSize         int64

	Body datatypes.JSONType[LyricsBody]
}
