package catalog

import (
	"time"

	"lms/internal/ids"
)

// ImageType mirrors the ID3 APIC picture-type taxonomy, restricted to
// the subset the scanner and the Subsonic layer care about.
type ImageType int

const (
	ImageOther ImageType = iota
	ImageFrontCover
	ImageBackCover
	ImageMedia
	ImageBandLogo
	ImageArtistPhoto
	ImageLeaflet
)

// TrackEmbeddedImage is deduplicated by (size, hash): no two rows may
// share that pair.
type TrackEmbeddedImage struct {
	ID     ids.Id[ids.ImageKind] `gorm:"primaryKey;autoIncrement"`
	Size   int64                 `gorm:"not null;uniqueIndex:idx_embedded_image_size_hash"`
	Hash   string                `gorm:"not null;uniqueIndex:idx_embedded_image_size_hash"`
	Width  int
	Height int
	Mime   string                `gorm:"not null"`
}

// TrackEmbeddedImageLink is a per-track-per-image occurrence.
type TrackEmbeddedImageLink struct {
	ID          uint64                `gorm:"primaryKey;autoIncrement"`
	TrackID     ids.Id[ids.TrackKind] `gorm:"not null;index:idx_embedded_image_link_track"`
	ImageID     ids.Id[ids.ImageKind] `gorm:"not null"`
	Index       int                   `gorm:"not null"`
	Type        ImageType
	Description string
}

func (TrackEmbeddedImageLink) TableName() string { return "track_embedded_image_links" }

// ArtworkKind distinguishes the two things an Artwork can unify.
type ArtworkKind int

const (
	ArtworkExternalFile ArtworkKind = iota
	ArtworkEmbedded
)

// Artwork unifies a standalone image file and a TrackEmbeddedImage
// behind one reference type so Track/Release/Medium only ever store
// an ArtworkId.
type Artwork struct {
	ID               ids.Id[ids.ArtworkKind] `gorm:"primaryKey;autoIncrement"`
	Kind             ArtworkKind             `gorm:"not null"`
	AbsoluteFilePath string
	LastWrittenTime  time.Time               // zero when Kind == ArtworkEmbedded
	EmbeddedImageID  ids.Id[ids.ImageKind]
	// DirectoryID is set only when Kind == ArtworkExternalFile: it lets
	// the per-track artwork fallback find a standalone cover-art file
	// sitting in the same directory without a path-prefix query.
	DirectoryID ids.Id[ids.DirectoryKind]
}
