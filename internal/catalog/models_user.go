package catalog

import (
	"time"

	"lms/internal/ids"
)

type UserType int

const (
	UserRegular UserType = iota
	UserAdmin
	UserDemo
)

// FeedbackBackend selects where starred/played state is recorded.
// The catalog is the only backend this repo implements; the enum
// still exists so User.FeedbackBackend round-trips through Subsonic
// clients that persist it.
type FeedbackBackend int

const (
	FeedbackBackendInternal FeedbackBackend = iota
)

type ArtistListMode int

const (
	ArtistListAllArtists ArtistListMode = iota
	ArtistListReleaseArtists
	ArtistListTrackArtists
)

// User holds login + Subsonic preferences. PasswordHash is the
// reversible AES-GCM form internal/subsonic's resolver reads; token
// auth needs the plaintext back, so it is not a one-way hash.
type User struct {
	ID              ids.Id[ids.UserKind] `gorm:"primaryKey;autoIncrement"`
	LoginName       string               `gorm:"not null;uniqueIndex:idx_user_login_name"`
	PasswordHash    string               `gorm:"not null"`
	Type            UserType             `gorm:"not null"`
	FeedbackBackend FeedbackBackend      `gorm:"not null"`

	EnableTranscodingByDefault bool
	DefaultOutputFormat        string
	DefaultBitrate             int
	MaximumBitrate             int

	ArtistListMode ArtistListMode

	CreatedAt time.Time
}

// SyncState governs starred-entry visibility: rows are written
// Synchronized on create and deleted on unstar; reads filter
// <> PendingRemove.
type SyncState int

const (
	SyncStateSynchronized SyncState = iota
	SyncStatePendingAdd
	SyncStatePendingRemove
)

type StarredArtist struct {
	UserID      ids.Id[ids.UserKind]   `gorm:"primaryKey"`
	ArtistID    ids.Id[ids.ArtistKind] `gorm:"primaryKey"`
	StarredDate time.Time              `gorm:"not null"`
	SyncState   SyncState              `gorm:"not null"`
}

type StarredRelease struct {
	UserID      ids.Id[ids.UserKind]    `gorm:"primaryKey"`
	ReleaseID   ids.Id[ids.ReleaseKind] `gorm:"primaryKey"`
	StarredDate time.Time               `gorm:"not null"`
	SyncState   SyncState               `gorm:"not null"`
}

type StarredTrack struct {
	UserID      ids.Id[ids.UserKind]  `gorm:"primaryKey"`
	TrackID     ids.Id[ids.TrackKind] `gorm:"primaryKey"`
	StarredDate time.Time             `gorm:"not null"`
	SyncState   SyncState             `gorm:"not null"`
}

// TrackBookmark is per-user resume state for a single track.
type TrackBookmark struct {
	UserID   ids.Id[ids.UserKind]  `gorm:"primaryKey"`
	TrackID  ids.Id[ids.TrackKind] `gorm:"primaryKey"`
	Position time.Duration
	Comment  string
	Changed  time.Time
}

// Listen is one play event, feeding statistics and "recently played".
type Listen struct {
	ID       ids.Id[ids.ListenKind] `gorm:"primaryKey;autoIncrement"`
	UserID   ids.Id[ids.UserKind]   `gorm:"not null;index:idx_listen_user"`
	TrackID  ids.Id[ids.TrackKind]  `gorm:"not null"`
	PlayedAt time.Time              `gorm:"not null"`
}

// PodcastEpisode is a per-episode ingestion leaf; podcast fetching
// itself lives outside this server, but the schema still
// models the state a podcast subsystem would populate.
type PodcastEpisode struct {
	ID          ids.Id[ids.PodcastEpisodeKind] `gorm:"primaryKey;autoIncrement"`
	ChannelName string                         `gorm:"not null"`
	Title       string                         `gorm:"not null"`
	PublishDate time.Time
	TrackID     ids.Id[ids.TrackKind]
}
