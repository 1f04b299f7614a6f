package catalog

import (
	"errors"

	"lms/internal/ids"
	"lms/internal/pagerange"

	"gorm.io/gorm"
)

func FindTrackEmbeddedImage(tx *Tx, id ids.Id[ids.ImageKind]) (*TrackEmbeddedImage, error) {
	return findByID[TrackEmbeddedImage](tx, id)
}

// FindTrackEmbeddedImageBySizeHash is the dedup lookup the scanner uses
// before inserting a newly-hashed embedded image: (size, hash) is
// unique across the table.
func FindTrackEmbeddedImageBySizeHash(tx *Tx, size int64, hash string) (*TrackEmbeddedImage, error) {
	tx.assertRead()

	var img TrackEmbeddedImage
	err := tx.db.Where("size = ? AND hash = ?", size, hash).First(&img).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &img, nil
}

// FindOrCreateTrackEmbeddedImage implements the scanner's dedup-on-write
// step: look up by (size, hash), insert if absent.
func FindOrCreateTrackEmbeddedImage(tx *Tx, size int64, hash string, width, height int, mime string) (*TrackEmbeddedImage, error) {
	tx.assertWrite()

	existing, err := FindTrackEmbeddedImageBySizeHash(tx, size, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	img := TrackEmbeddedImage{Size: size, Hash: hash, Width: width, Height: height, Mime: mime}
	if err := tx.db.Create(&img).Error; err != nil {
		return nil, err
	}
	return &img, nil
}

func FindArtwork(tx *Tx, id ids.Id[ids.ArtworkKind]) (*Artwork, error) {
	return findByID[Artwork](tx, id)
}

func FindArtworkByEmbeddedImage(tx *Tx, imageID ids.Id[ids.ImageKind]) (*Artwork, error) {
	tx.assertRead()

	var a Artwork
	err := tx.db.Where("kind = ? AND embedded_image_id = ?", ArtworkEmbedded, imageID.Raw()).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// FindArtworkByDirectory returns the standalone cover-art file, if any,
// discovered in directoryID; the fallback preferredArtworkForTrack
// reaches for when a track carries no embedded picture.
func FindArtworkByDirectory(tx *Tx, directoryID ids.Id[ids.DirectoryKind]) (*Artwork, error) {
	tx.assertRead()

	var a Artwork
	err := tx.db.Where("kind = ? AND directory_id = ?", ArtworkExternalFile, directoryID.Raw()).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func FindArtworkByFilePath(tx *Tx, path string) (*Artwork, error) {
	tx.assertRead()

	var a Artwork
	err := tx.db.Where("kind = ? AND absolute_file_path = ?", ArtworkExternalFile, path).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// FindOrphanTrackEmbeddedImageIds finds embedded images with no
// remaining TrackEmbeddedImageLink, candidates for garbage collection
// after a reconcile-orphans scanner pass.
func FindOrphanTrackEmbeddedImageIds(tx *Tx, r pagerange.Range) (pagerange.RangeResults[ids.Id[ids.ImageKind]], error) {
	return findIDsOrphan[ids.ImageKind](tx, "track_embedded_images",
		"id NOT IN (SELECT image_id FROM track_embedded_image_links)", r)
}

func FindNextTrackEmbeddedImageIdRange(tx *Tx, lastSeenID ids.Id[ids.ImageKind], count uint32) (ids.IdRange[ids.ImageKind], error) {
	return findNextIDRange[ids.ImageKind](tx, "track_embedded_images", lastSeenID, count)
}

// FindTrackEmbeddedImageLinks returns every picture occurrence attached
// to trackID, ordered the way the tag was originally read.
func FindTrackEmbeddedImageLinks(tx *Tx, trackID ids.Id[ids.TrackKind]) ([]TrackEmbeddedImageLink, error) {
	tx.assertRead()
	var out []TrackEmbeddedImageLink
	err := tx.db.Where("track_id = ?", trackID.Raw()).Order(`"index"`).Find(&out).Error
	return out, err
}

// FindTrackEmbeddedImageLinkByImage returns one occurrence of imageID,
// used to recover a source file to re-read the picture bytes from:
// TrackEmbeddedImage never stores the bytes themselves, only the probe
// results computed at scan time.
func FindTrackEmbeddedImageLinkByImage(tx *Tx, imageID ids.Id[ids.ImageKind]) (*TrackEmbeddedImageLink, error) {
	tx.assertRead()
	var link TrackEmbeddedImageLink
	err := tx.db.Where("image_id = ?", imageID.Raw()).First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// FindOrphanArtworkIds finds embedded-kind artworks whose backing image
// row is gone and external-file-kind artworks no track or release
// references any longer.
func FindOrphanArtworkIds(tx *Tx, r pagerange.Range) (pagerange.RangeResults[ids.Id[ids.ArtworkKind]], error) {
	where := "(kind = 1 AND embedded_image_id NOT IN (SELECT id FROM track_embedded_images)) OR " +
		"(kind = 0 AND id NOT IN (SELECT preferred_artwork FROM releases WHERE preferred_artwork != 0) " +
		"AND id NOT IN (SELECT preferred_artwork FROM media WHERE preferred_artwork != 0) " +
		"AND id NOT IN (SELECT preferred_artwork FROM tracks WHERE preferred_artwork != 0) " +
		"AND id NOT IN (SELECT preferred_media_artwork FROM tracks WHERE preferred_media_artwork != 0))"
	return findIDsOrphan[ids.ArtworkKind](tx, "artworks", where, r)
}

func FindNextArtworkIdRange(tx *Tx, lastSeenID ids.Id[ids.ArtworkKind], count uint32) (ids.IdRange[ids.ArtworkKind], error) {
	return findNextIDRange[ids.ArtworkKind](tx, "artworks", lastSeenID, count)
}
