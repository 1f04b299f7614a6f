package catalog

// ScanSettings is a singleton row (id always 1) holding scanner
// configuration that requestReload re-reads.
type ScanSettings struct {
	ID                      int `gorm:"primaryKey"`
	MediaLibraryRoots       CommaList
	AudioExtensions         CommaList
	UpdateScheduleCron      string
	ScanVersion             int  `gorm:"not null;default:1"`
	SkipDuplicateTrackMBID  bool `gorm:"column:skip_duplicate_track_mbid"`
	AllowArtistMBIDFallback bool `gorm:"column:allow_artist_mbid_fallback"`
}

const scanSettingsSingletonID = 1

// VersionInfo is a singleton row tracking the monotonically increasing
// schema version actually applied to this database file.
type VersionInfo struct {
	ID      int `gorm:"primaryKey"`
	Version int `gorm:"not null"`
}

const versionInfoSingletonID = 1
