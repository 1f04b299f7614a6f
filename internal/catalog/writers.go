package catalog

import (
	"errors"
	"time"

	"lms/internal/ids"

	"gorm.io/gorm"
)

// writers.go groups the plain create/update/delete helpers the scanner
// calls while resolving artists, releases, media, and tracks. Identity
// resolution policy (MBID preference, same-directory matching, etc.)
// lives in the scanner; these functions are the mechanical half.

func FindArtistByMBID(tx *Tx, mbid string) (*Artist, error) {
	tx.assertRead()
	if mbid == "" {
		return nil, nil
	}
	var a Artist
	err := tx.db.Where("mbid = ?", mbid).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func FindArtistByName(tx *Tx, name string) (*Artist, error) {
	tx.assertRead()
	var a Artist
	err := tx.db.Where("name = ?", name).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func CreateArtist(tx *Tx, name, sortName, mbid string) (*Artist, error) {
	tx.assertWrite()
	if sortName == "" {
		sortName = name
	}
	a := Artist{Name: name, SortName: sortName, MBID: mbid}
	if err := tx.db.Create(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func UpdateArtistMBID(tx *Tx, id ids.Id[ids.ArtistKind], mbid string) error {
	tx.assertWrite()
	return tx.db.Model(&Artist{}).Where("id = ?", id.Raw()).Update("mbid", mbid).Error
}

func FindReleaseByMBID(tx *Tx, mbid string) (*Release, error) {
	tx.assertRead()
	if mbid == "" {
		return nil, nil
	}
	var r Release
	err := tx.db.Where("mbid = ?", mbid).First(&r).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// FindReleaseCandidatesInDirectory returns non-MBID-tagged releases
// whose tracks live in dirID, narrowed by name. The scanner applies
// the remaining (sortName, totalDisc, isCompilation, labels, barcode)
// match itself.
func FindReleaseCandidatesInDirectory(tx *Tx, dirID ids.Id[ids.DirectoryKind], name string) ([]Release, error) {
	tx.assertRead()

	var out []Release
	err := tx.db.Where("mbid = '' AND name = ? AND id IN (SELECT DISTINCT release_id FROM tracks WHERE directory_id = ?)", name, dirID.Raw()).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func CreateRelease(tx *Tx, r *Release) error {
	tx.assertWrite()
	return tx.db.Create(r).Error
}

func FindMediumByReleaseAndPosition(tx *Tx, releaseID ids.Id[ids.ReleaseKind], position int, hasPosition bool) (*Medium, error) {
	tx.assertRead()

	var m Medium
	q := tx.db.Where("release_id = ?", releaseID.Raw())
	if hasPosition {
		q = q.Where("position = ? AND has_position = ?", position, true)
	} else {
		q = q.Where("has_position = ?", false)
	}
	err := q.First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func CreateMedium(tx *Tx, m *Medium) error {
	tx.assertWrite()
	return tx.db.Create(m).Error
}

func CreateTrack(tx *Tx, t *Track) error {
	tx.assertWrite()
	return tx.db.Create(t).Error
}

func UpdateTrack(tx *Tx, t *Track) error {
	tx.assertWrite()
	return tx.db.Save(t).Error
}

func DeleteTrack(tx *Tx, id ids.Id[ids.TrackKind]) error {
	tx.assertWrite()
	if err := tx.db.Delete(&TrackArtistLink{}, "track_id = ?", id.Raw()).Error; err != nil {
		return err
	}
	if err := tx.db.Delete(&TrackClusterLink{}, "track_id = ?", id.Raw()).Error; err != nil {
		return err
	}
	if err := tx.db.Delete(&TrackEmbeddedImageLink{}, "track_id = ?", id.Raw()).Error; err != nil {
		return err
	}
	if err := tx.db.Delete(&TrackLyrics{}, "track_id = ?", id.Raw()).Error; err != nil {
		return err
	}
	return tx.db.Delete(&Track{}, "id = ?", id.Raw()).Error
}

func DeleteTrackArtistLinks(tx *Tx, trackID ids.Id[ids.TrackKind]) error {
	tx.assertWrite()
	return tx.db.Delete(&TrackArtistLink{}, "track_id = ?", trackID.Raw()).Error
}

func CreateTrackArtistLink(tx *Tx, l *TrackArtistLink) error {
	tx.assertWrite()
	return tx.db.Create(l).Error
}

func DeleteTrackClusterLinks(tx *Tx, trackID ids.Id[ids.TrackKind]) error {
	tx.assertWrite()
	return tx.db.Delete(&TrackClusterLink{}, "track_id = ?", trackID.Raw()).Error
}

func CreateTrackClusterLink(tx *Tx, trackID ids.Id[ids.TrackKind], clusterID ids.Id[ids.ClusterKind]) error {
	tx.assertWrite()
	return tx.db.Create(&TrackClusterLink{TrackID: trackID, ClusterID: clusterID}).Error
}

func DeleteTrackEmbeddedImageLinks(tx *Tx, trackID ids.Id[ids.TrackKind]) error {
	tx.assertWrite()
	return tx.db.Delete(&TrackEmbeddedImageLink{}, "track_id = ?", trackID.Raw()).Error
}

func CreateTrackEmbeddedImageLink(tx *Tx, l *TrackEmbeddedImageLink) error {
	tx.assertWrite()
	return tx.db.Create(l).Error
}

func DeleteTrackLyricsForTrack(tx *Tx, trackID ids.Id[ids.TrackKind]) error {
	tx.assertWrite()
	return tx.db.Delete(&TrackLyrics{}, "track_id = ?", trackID.Raw()).Error
}

func CreateTrackLyrics(tx *Tx, l *TrackLyrics) error {
	tx.assertWrite()
	return tx.db.Create(l).Error
}

func CreateArtwork(tx *Tx, a *Artwork) error {
	tx.assertWrite()
	return tx.db.Create(a).Error
}

func UpdateReleasePreferredArtwork(tx *Tx, id ids.Id[ids.ReleaseKind], artworkID ids.Id[ids.ArtworkKind]) error {
	tx.assertWrite()
	return tx.db.Model(&Release{}).Where("id = ?", id.Raw()).Update("preferred_artwork", artworkID.Raw()).Error
}

func UpdateMediumPreferredArtwork(tx *Tx, id ids.Id[ids.MediumKind], artworkID ids.Id[ids.ArtworkKind]) error {
	tx.assertWrite()
	return tx.db.Model(&Medium{}).Where("id = ?", id.Raw()).Update("preferred_artwork", artworkID.Raw()).Error
}

func UpdateTrackPreferredArtwork(tx *Tx, id ids.Id[ids.TrackKind], artworkID, mediaArtworkID ids.Id[ids.ArtworkKind]) error {
	tx.assertWrite()
	return tx.db.Model(&Track{}).Where("id = ?", id.Raw()).
		Updates(map[string]any{
			"preferred_artwork":       artworkID.Raw(),
			"preferred_media_artwork": mediaArtworkID.Raw(),
		}).Error
}

func UpdateArtworkLastWrittenTime(tx *Tx, id ids.Id[ids.ArtworkKind], t time.Time) error {
	tx.assertWrite()
	return tx.db.Model(&Artwork{}).Where("id = ?", id.Raw()).Update("last_written_time", t).Error
}

func DeleteArtist(tx *Tx, id ids.Id[ids.ArtistKind]) error {
	tx.assertWrite()
	return tx.db.Delete(&Artist{}, "id = ?", id.Raw()).Error
}

func DeleteRelease(tx *Tx, id ids.Id[ids.ReleaseKind]) error {
	tx.assertWrite()
	return tx.db.Delete(&Release{}, "id = ?", id.Raw()).Error
}

func DeleteCluster(tx *Tx, id ids.Id[ids.ClusterKind]) error {
	tx.assertWrite()
	return tx.db.Delete(&Cluster{}, "id = ?", id.Raw()).Error
}

func DeleteClusterType(tx *Tx, id ids.Id[ids.ClusterTypeKind]) error {
	tx.assertWrite()
	return tx.db.Delete(&ClusterType{}, "id = ?", id.Raw()).Error
}

func DeleteTrackEmbeddedImage(tx *Tx, id ids.Id[ids.ImageKind]) error {
	tx.assertWrite()
	return tx.db.Delete(&TrackEmbeddedImage{}, "id = ?", id.Raw()).Error
}

func DeleteArtwork(tx *Tx, id ids.Id[ids.ArtworkKind]) error {
	tx.assertWrite()
	return tx.db.Delete(&Artwork{}, "id = ?", id.Raw()).Error
}

// FindTrackByPath is used by move-detection and the skip/refresh check.
func FindTrackByPath(tx *Tx, path string) (*Track, error) {
	tx.assertRead()

	var t Track
	err := tx.db.Where("absolute_file_path = ?", path).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// FindTrackByMBID returns the one track whose recording MBID is mbid,
// or nil when no track or more than one track carries it.
func FindTrackByMBID(tx *Tx, mbid string) (*Track, error) {
	tx.assertRead()
	if mbid == "" {
		return nil, nil
	}
	var matches []Track
	if err := tx.db.Where("recording_mbid = ?", mbid).Limit(2).Find(&matches).Error; err != nil {
		return nil, err
	}
	if len(matches) != 1 {
		return nil, nil
	}
	return &matches[0], nil
}

func CountTracksByMBIDUnderLibraries(tx *Tx, mbid string, libraries []ids.Id[ids.MediaLibraryKind]) (int64, error) {
	tx.assertRead()
	if mbid == "" || len(libraries) == 0 {
		return 0, nil
	}
	var count int64
	err := tx.db.Model(&Track{}).Where("recording_mbid = ? AND media_library_id IN ?", mbid, libraries).Count(&count).Error
	return count, err
}

func FindArtworkForEmbeddedImageOrCreate(tx *Tx, imageID ids.Id[ids.ImageKind]) (*Artwork, error) {
	existing, err := FindArtworkByEmbeddedImage(tx, imageID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	a := Artwork{Kind: ArtworkEmbedded, EmbeddedImageID: imageID}
	if err := CreateArtwork(tx, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
