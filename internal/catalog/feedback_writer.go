package catalog

import (
	"errors"
	"time"

	"lms/internal/ids"

	"gorm.io/gorm"
)

// feedback_writer.go groups the per-user state the Subsonic layer
// mutates directly: starred entries, bookmarks, play queues, and
// playlists (TrackLists). Unlike the scanner's writers.go helpers,
// these run inside the request's own write transaction rather than a
// scan session.

func StarArtist(tx *Tx, userID ids.Id[ids.UserKind], artistID ids.Id[ids.ArtistKind]) error {
	tx.assertWrite()
	return tx.db.Save(&StarredArtist{UserID: userID, ArtistID: artistID, StarredDate: time.Now(), SyncState: SyncStateSynchronized}).Error
}

func UnstarArtist(tx *Tx, userID ids.Id[ids.UserKind], artistID ids.Id[ids.ArtistKind]) error {
	tx.assertWrite()
	return tx.db.Delete(&StarredArtist{}, "user_id = ? AND artist_id = ?", userID.Raw(), artistID.Raw()).Error
}

func StarRelease(tx *Tx, userID ids.Id[ids.UserKind], releaseID ids.Id[ids.ReleaseKind]) error {
	tx.assertWrite()
	return tx.db.Save(&StarredRelease{UserID: userID, ReleaseID: releaseID, StarredDate: time.Now(), SyncState: SyncStateSynchronized}).Error
}

func UnstarRelease(tx *Tx, userID ids.Id[ids.UserKind], releaseID ids.Id[ids.ReleaseKind]) error {
	tx.assertWrite()
	return tx.db.Delete(&StarredRelease{}, "user_id = ? AND release_id = ?", userID.Raw(), releaseID.Raw()).Error
}

func StarTrack(tx *Tx, userID ids.Id[ids.UserKind], trackID ids.Id[ids.TrackKind]) error {
	tx.assertWrite()
	return tx.db.Save(&StarredTrack{UserID: userID, TrackID: trackID, StarredDate: time.Now(), SyncState: SyncStateSynchronized}).Error
}

func UnstarTrack(tx *Tx, userID ids.Id[ids.UserKind], trackID ids.Id[ids.TrackKind]) error {
	tx.assertWrite()
	return tx.db.Delete(&StarredTrack{}, "user_id = ? AND track_id = ?", userID.Raw(), trackID.Raw()).Error
}

// FindBookmarks returns every bookmark a user has set, across all tracks.
func FindBookmarks(tx *Tx, userID ids.Id[ids.UserKind]) ([]TrackBookmark, error) {
	tx.assertRead()
	var out []TrackBookmark
	err := tx.db.Where("user_id = ?", userID.Raw()).Find(&out).Error
	return out, err
}

func SaveBookmark(tx *Tx, b *TrackBookmark) error {
	tx.assertWrite()
	b.Changed = time.Now()
	return tx.db.Save(b).Error
}

func DeleteBookmark(tx *Tx, userID ids.Id[ids.UserKind], trackID ids.Id[ids.TrackKind]) error {
	tx.assertWrite()
	return tx.db.Delete(&TrackBookmark{}, "user_id = ? AND track_id = ?", userID.Raw(), trackID.Raw()).Error
}

func FindPlayQueue(tx *Tx, userID ids.Id[ids.UserKind], clientName string) (*PlayQueue, error) {
	tx.assertRead()
	var q PlayQueue
	err := tx.db.First(&q, "user_id = ? AND client_name = ?", userID.Raw(), clientName).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &q, nil
}

func SavePlayQueue(tx *Tx, q *PlayQueue) error {
	tx.assertWrite()
	q.Changed = time.Now()
	return tx.db.Save(q).Error
}

func RecordListen(tx *Tx, userID ids.Id[ids.UserKind], trackID ids.Id[ids.TrackKind], playedAt time.Time) error {
	tx.assertWrite()
	return tx.db.Create(&Listen{UserID: userID, TrackID: trackID, PlayedAt: playedAt}).Error
}

// FindTrackLists lists every TrackList of the given type a user either
// owns or may see (public lists owned by others are visible too).
func FindTrackLists(tx *Tx, userID ids.Id[ids.UserKind], listType TrackListType) ([]TrackList, error) {
	tx.assertRead()
	var out []TrackList
	err := tx.db.Where("type = ? AND (owner_user_id = ? OR visibility = ?)", listType, userID.Raw(), VisibilityPublic).
		Order("name COLLATE NOCASE").Find(&out).Error
	return out, err
}

func FindTrackList(tx *Tx, id ids.Id[ids.TrackListKind]) (*TrackList, error) {
	return findByID[TrackList](tx, id)
}

func CreateTrackList(tx *Tx, l *TrackList) error {
	tx.assertWrite()
	l.LastModified = time.Now()
	return tx.db.Create(l).Error
}

func SaveTrackList(tx *Tx, l *TrackList) error {
	tx.assertWrite()
	l.LastModified = time.Now()
	return tx.db.Save(l).Error
}

func DeleteTrackList(tx *Tx, id ids.Id[ids.TrackListKind]) error {
	tx.assertWrite()
	if err := tx.db.Delete(&TrackListEntry{}, "track_list_id = ?", id.Raw()).Error; err != nil {
		return err
	}
	return tx.db.Delete(&TrackList{}, "id = ?", id.Raw()).Error
}

// FindTrackListEntries returns a list's entries in playback order
// (entry id order).
func FindTrackListEntries(tx *Tx, listID ids.Id[ids.TrackListKind]) ([]TrackListEntry, error) {
	tx.assertRead()
	var out []TrackListEntry
	err := tx.db.Where("track_list_id = ?", listID.Raw()).Order("id").Find(&out).Error
	return out, err
}

func AppendTrackListEntry(tx *Tx, listID ids.Id[ids.TrackListKind], trackID ids.Id[ids.TrackKind]) error {
	tx.assertWrite()
	return tx.db.Create(&TrackListEntry{TrackListID: listID, TrackID: trackID}).Error
}

func ClearTrackListEntries(tx *Tx, listID ids.Id[ids.TrackListKind]) error {
	tx.assertWrite()
	return tx.db.Delete(&TrackListEntry{}, "track_list_id = ?", listID.Raw()).Error
}

func DeleteTrackListEntriesAt(tx *Tx, listID ids.Id[ids.TrackListKind], positions []int) error {
	tx.assertWrite()
	entries, err := FindTrackListEntries(tx, listID)
	if err != nil {
		return err
	}
	toDelete := map[int]bool{}
	for _, p := range positions {
		toDelete[p] = true
	}
	for i, e := range entries {
		if toDelete[i] {
			if err := tx.db.Delete(&TrackListEntry{}, "id = ?", e.ID.Raw()).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
