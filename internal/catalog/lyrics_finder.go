package catalog

import (
	"errors"

	"lms/internal/ids"

	"gorm.io/gorm"
)

func FindTrackLyrics(tx *Tx, id ids.Id[ids.LyricsKind]) (*TrackLyrics, error) {
	return findByID[TrackLyrics](tx, id)
}

// FindTrackLyricsByTrack returns every lyrics row attached to a track
// (a track may carry both embedded and external lyrics at once).
func FindTrackLyricsByTrack(tx *Tx, trackID ids.Id[ids.TrackKind]) ([]TrackLyrics, error) {
	tx.assertRead()

	var out []TrackLyrics
	err := tx.db.Where("track_id = ?", trackID.Raw()).Order("external, id").Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindTrackLyricsByFilePath supports the scanner's external-lyrics
// reconcile step: look up the row tracking a given .lrc/.txt sidecar.
func FindTrackLyricsByFilePath(tx *Tx, path string) (*TrackLyrics, error) {
	tx.assertRead()

	var l TrackLyrics
	err := tx.db.Where("external = ? AND absolute_file_path = ?", true, path).First(&l).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func DeleteTrackLyrics(tx *Tx, id ids.Id[ids.LyricsKind]) error {
	tx.assertWrite()
	return tx.db.Delete(&TrackLyrics{}, "id = ?", id.Raw()).Error
}
