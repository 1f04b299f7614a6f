package catalog

import (
	"time"

	"lms/internal/ids"
)

// TrackListType distinguishes a user-curated Playlist from an Internal
// list used as scratch state (e.g. building a queue server-side).
type TrackListType int

const (
	TrackListPlaylist TrackListType = iota
	TrackListInternal
)

type TrackListVisibility int

const (
	VisibilityPrivate TrackListVisibility = iota
	VisibilityPublic
)

// TrackList is an ordered list of track references.
type TrackList struct {
	ID           ids.Id[ids.TrackListKind] `gorm:"primaryKey;autoIncrement"`
	Type         TrackListType             `gorm:"not null"`
	Visibility   TrackListVisibility       `gorm:"not null"`
	OwnerUserID  ids.Id[ids.UserKind]      `gorm:"not null;index:idx_tracklist_user"`
	Name         string                    `gorm:"not null;index:idx_tracklist_name"`
	LastModified time.Time                 `gorm:"not null"`
}

// TrackListEntry's ID ordering defines playback position.
type TrackListEntry struct {
	ID          ids.Id[ids.TrackListEntryKind] `gorm:"primaryKey;autoIncrement"`
	TrackListID ids.Id[ids.TrackListKind]      `gorm:"not null;index:idx_tracklist_entry_list"`
	TrackID     ids.Id[ids.TrackKind]          `gorm:"not null"`
}

// PlayQueue is per-user, per-client: meant to be clobbered wholesale on
// every /savePlayQueue, not curated incrementally like a TrackList.
type PlayQueue struct {
	UserID          ids.Id[ids.UserKind] `gorm:"primaryKey"`
	ClientName      string               `gorm:"primaryKey"`
	TrackIDsJSON    string               // JSON array of ids.Id[TrackKind], ordered
	CurrentIndex    int
	CurrentPosition time.Duration
	Changed         time.Time
	ChangedBy       string
}
