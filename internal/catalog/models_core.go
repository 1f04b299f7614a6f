package catalog

import (
	"time"

	"lms/internal/ids"
	"lms/internal/partialdate"

	"github.com/shopspring/decimal"
)

// Advisory mirrors the explicit-content flag carried by a track.
type Advisory int

const (
	AdvisoryUnset Advisory = iota
	AdvisoryClean
	AdvisoryExplicit
	AdvisoryUnknown
)

// LinkRole is the closed set of artist credit roles a TrackArtistLink
// can carry.
type LinkRole int

const (
	RoleArtist LinkRole = iota
	RoleReleaseArtist
	RoleComposer
	RoleConductor
	RoleLyricist
	RoleMixer
	RolePerformer
	RoleProducer
	RoleRemixer
	RoleArranger
	RoleWriter
)

// Artist is created on first sight during a scan, deleted when orphan.
type Artist struct {
	ID        ids.Id[ids.ArtistKind] `gorm:"primaryKey;autoIncrement"`
	Name      string                 `gorm:"not null;index:idx_artist_name"`
	SortName  string                 `gorm:"not null;index:idx_artist_sort_name collate:nocase"`
	MBID      string                 `gorm:"column:mbid;index:idx_artist_mbid"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName returns Name, falling back to SortName only in the
// degenerate case Name was never set (shouldn't happen post-scan).
func (a Artist) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.SortName
}

// Release is the album/anthology aggregate. It does not own its tracks.
type Release struct {
	ID                ids.Id[ids.ReleaseKind] `gorm:"primaryKey;autoIncrement"`
	Name              string                  `gorm:"not null;index:idx_release_name"`
	SortName          string                  `gorm:"not null"`
	MBID              string                  `gorm:"column:mbid;index:idx_release_mbid"`
	ReleaseGroupMBID  string                  `gorm:"column:release_group_mbid"`
	TotalMediumCount  int
	IsCompilation     bool
	Barcode           string
	Comment           string
	ArtistDisplayName string
	Labels            CommaList
	Countries         CommaList
	ReleaseTypes      CommaList
	PreferredArtwork  ids.Id[ids.ArtworkKind]
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Medium is a disc within a release. A null Position is represented by
// HasPosition=false for single-disc releases.
type Medium struct {
	ID               ids.Id[ids.MediumKind]  `gorm:"primaryKey;autoIncrement"`
	ReleaseID        ids.Id[ids.ReleaseKind] `gorm:"not null;uniqueIndex:idx_medium_release_position"`
	Position         int                     `gorm:"uniqueIndex:idx_medium_release_position"`
	HasPosition      bool
	TrackCount       int
	HasTrackCount    bool
	Media            string
	ReplayGain       *decimal.Decimal        `gorm:"type:text"`
	PreferredArtwork ids.Id[ids.ArtworkKind]
}

// Track is the fundamental unit.
type Track struct {
	ID               ids.Id[ids.TrackKind] `gorm:"primaryKey;autoIncrement"`
	AbsoluteFilePath string                `gorm:"not null;uniqueIndex:idx_track_path"`
	FileSize         int64                 `gorm:"not null"`
	LastWriteTime    time.Time             `gorm:"not null"`
	AddedTime        time.Time             `gorm:"not null"`
	ScanVersion      int                   `gorm:"not null"`

	Duration      time.Duration
	Bitrate       int
	SampleRate    int
	BitsPerSample int
	Channels      int

	Name        string `gorm:"index:idx_track_name"`
	TrackNumber int
	DiscNumber  int

	Date         partialdate.PartialDateTime `gorm:"type:text;index:idx_track_year"`
	OriginalDate partialdate.PartialDateTime `gorm:"type:text;index:idx_track_original_year"`

	TrackMBID     string `gorm:"column:track_mbid;index:idx_track_mbid"`
	RecordingMBID string `gorm:"column:recording_mbid"`

	Copyright    string
	CopyrightURL string
	Advisory     Advisory
	Comment      string

	TrackReplayGain   *decimal.Decimal `gorm:"type:text"`
	ReleaseReplayGain *decimal.Decimal `gorm:"type:text"`
	ArtistDisplayName string

	ReleaseID      ids.Id[ids.ReleaseKind]      `gorm:"index:idx_track_release"`
	MediumID       ids.Id[ids.MediumKind]
	DirectoryID    ids.Id[ids.DirectoryKind]    `gorm:"not null"`
	MediaLibraryID ids.Id[ids.MediaLibraryKind] `gorm:"not null"`

	PreferredArtwork      ids.Id[ids.ArtworkKind]
	PreferredMediaArtwork ids.Id[ids.ArtworkKind]
}

func (Track) TableName() string { return "tracks" }

// TrackArtistLink implements the newer schema shape chosen for Open
// Question 2: role/artist-name/artist-sort-name as dedicated columns
// rather than a join on a denormalized "credit" string.
type TrackArtistLink struct {
	ID             uint64                 `gorm:"primaryKey;autoIncrement"`
	TrackID        ids.Id[ids.TrackKind]  `gorm:"not null;index:idx_tal_track_type"`
	ArtistID       ids.Id[ids.ArtistKind] `gorm:"not null"`
	Role           LinkRole               `gorm:"not null;index:idx_tal_track_type"`
	SubRole        string
	MatchedByMBID  bool                   `gorm:"column:matched_by_mbid"`
	ArtistName     string                 `gorm:"not null"`
	ArtistSortName string                 `gorm:"not null"`
}

func (TrackArtistLink) TableName() string { return "track_artist_links" }

// CommaList persists a []string as a single comma-joined text column;
// the repeated fields (labels/countries/release-types) are small,
// order-preserving sets that never need to be queried individually.
type CommaList []string
