package catalog

import "lms/internal/ids"

// MediaLibrary is a named scan root. FirstScan tells the scanner
// whether a track's AddedTime should come from file mtime (first scan)
// or now() (subsequent scans discovering a genuinely new file).
type MediaLibrary struct {
	ID        ids.Id[ids.MediaLibraryKind] `gorm:"primaryKey;autoIncrement"`
	Name      string                       `gorm:"not null"`
	RootPath  string                       `gorm:"not null;uniqueIndex:idx_media_library_root"`
	FirstScan bool                         `gorm:"not null;default:true"`
}

// Directory forms a forest rooted at each MediaLibrary root via a
// nullable self-reference. Used both for browsing and as the
// "probable release" grouping heuristic during scanning.
type Directory struct {
	ID             ids.Id[ids.DirectoryKind]    `gorm:"primaryKey;autoIncrement"`
	ParentID       ids.Id[ids.DirectoryKind]
	HasParent      bool
	Name           string                       `gorm:"not null"`
	AbsolutePath   string                       `gorm:"not null;uniqueIndex:idx_directory_path"`
	MediaLibraryID ids.Id[ids.MediaLibraryKind] `gorm:"not null"`
}
