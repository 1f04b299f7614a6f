package catalog

import (
	"fmt"
	"time"

	"lms/internal/ids"
	"lms/internal/pagerange"

	"gorm.io/gorm"
)

// TrackSortMethod is the closed set of track sort orders. Some
// require a matching filter to be set; see the
// comment on each constant.
type TrackSortMethod int

const (
	TrackSortNone TrackSortMethod = iota
	TrackSortID
	TrackSortLastWrittenDesc
	TrackSortAddedDesc
	TrackSortRandom
	TrackSortStarredDateDesc // requires StarringUser
	TrackSortName
	TrackSortAbsoluteFilePath
	TrackSortDateDescAndRelease
	TrackSortRelease
	TrackSortTrackList // requires TrackList
	TrackSortTrackNumber
)

// TrackFindParameters collects the filter and sort options a track
// query can combine.
type TrackFindParameters struct {
	Artist               *ids.Id[ids.ArtistKind]
	ArtistName           *string
	TrackArtistLinkTypes []LinkRole
	Release              *ids.Id[ids.ReleaseKind]
	ReleaseName          *string
	NonRelease           bool                      // mutually exclusive with Release
	Medium               *ids.Id[ids.MediumKind]
	Directory            *ids.Id[ids.DirectoryKind]
	TrackList            *ids.Id[ids.TrackListKind]
	TrackNumber          *uint32
	FileSize             *uint64
	EmbeddedImageID      *ids.Id[ids.ImageKind]
	WrittenAfter         *time.Time
	StarringUser         *ids.Id[ids.UserKind]
	FeedbackBackend      FeedbackBackend
	Keywords             []string                  // ANDed, substring match on name
	Name                 *string                   // exact
	Clusters             []ids.Id[ids.ClusterKind] // ANDed via HAVING COUNT = N
	MediaLibrary         *ids.Id[ids.MediaLibraryKind]
	Label                *string
	ReleaseType          *string
	SortMethod           TrackSortMethod
	Range                pagerange.Range
}

// buildQuery compiles the parameters onto a *gorm.DB query against the
// tracks table. It does not apply Range/sort-dependent LIMIT/OFFSET;
// callers add that so findIds and find(visitor) can share this.
func (p TrackFindParameters) buildQuery(tx *gorm.DB) (*gorm.DB, error) {
	if p.Release != nil && p.NonRelease {
		return nil, newError(UnknownError, "Release and NonRelease are mutually exclusive", nil)
	}
	if p.SortMethod == TrackSortStarredDateDesc && p.StarringUser == nil {
		return nil, newError(UnknownError, "StarredDateDesc requires StarringUser", nil)
	}
	if p.SortMethod == TrackSortTrackList && p.TrackList == nil {
		return nil, newError(UnknownError, "TrackList sort requires TrackList filter", nil)
	}

	q := tx.Table("tracks")

	if p.Artist != nil {
		q = q.Where("id IN (SELECT track_id FROM track_artist_links WHERE artist_id = ?)", p.Artist.Raw())
	}
	if p.ArtistName != nil {
		q = q.Where("id IN (SELECT track_id FROM track_artist_links WHERE artist_name = ?)", *p.ArtistName)
	}
	if len(p.TrackArtistLinkTypes) > 0 {
		roles := make([]int, len(p.TrackArtistLinkTypes))
		for i, r := range p.TrackArtistLinkTypes {
			roles[i] = int(r)
		}
		q = q.Where("id IN (SELECT track_id FROM track_artist_links WHERE role IN ?)", roles)
	}
	if p.Release != nil {
		q = q.Where("release_id = ?", p.Release.Raw())
	}
	if p.NonRelease {
		q = q.Where("release_id = 0 OR release_id IS NULL")
	}
	if p.ReleaseName != nil {
		q = q.Where("release_id IN (SELECT id FROM releases WHERE name = ?)", *p.ReleaseName)
	}
	if p.Medium != nil {
		q = q.Where("medium_id = ?", p.Medium.Raw())
	}
	if p.Directory != nil {
		q = q.Where("directory_id = ?", p.Directory.Raw())
	}
	if p.TrackList != nil {
		q = q.Where("id IN (SELECT track_id FROM track_list_entries WHERE track_list_id = ?)", p.TrackList.Raw())
	}
	if p.TrackNumber != nil {
		q = q.Where("track_number = ?", *p.TrackNumber)
	}
	if p.FileSize != nil {
		q = q.Where("file_size = ?", *p.FileSize)
	}
	if p.EmbeddedImageID != nil {
		q = q.Where("id IN (SELECT track_id FROM track_embedded_image_links WHERE image_id = ?)", p.EmbeddedImageID.Raw())
	}
	if p.WrittenAfter != nil {
		q = q.Where("last_write_time > ?", *p.WrittenAfter)
	}
	if p.StarringUser != nil {
		q = q.Where("id IN (SELECT track_id FROM starred_tracks WHERE user_id = ? AND sync_state <> ?)",
			p.StarringUser.Raw(), SyncStatePendingRemove)
	}
	if p.MediaLibrary != nil {
		q = q.Where("media_library_id = ?", p.MediaLibrary.Raw())
	}
	if p.Name != nil {
		q = q.Where("name = ?", *p.Name)
	}
	for _, kw := range p.Keywords {
		q = q.Where("name LIKE ? ESCAPE '\\' COLLATE NOCASE", "%"+escapeLikeWildcards(kw)+"%")
	}
	if p.Label != nil {
		q = q.Where("release_id IN (SELECT id FROM releases WHERE labels LIKE ?)", "%"+escapeLikeWildcards(*p.Label)+"%")
	}
	if p.ReleaseType != nil {
		q = q.Where("release_id IN (SELECT id FROM releases WHERE release_types LIKE ?)", "%"+escapeLikeWildcards(*p.ReleaseType)+"%")
	}

	q = applyClusterFilter(q, "tracks", "track_cluster_links", "track_id", p.Clusters)

	switch p.SortMethod {
	case TrackSortID:
		q = q.Order("id")
	case TrackSortLastWrittenDesc:
		q = q.Order("last_write_time DESC")
	case TrackSortAddedDesc:
		q = q.Order("added_time DESC")
	case TrackSortRandom:
		q = q.Order("RANDOM()")
	case TrackSortStarredDateDesc:
		q = q.Joins("JOIN starred_tracks st ON st.track_id = tracks.id AND st.user_id = ?", p.StarringUser.Raw()).
			Order("st.starred_date DESC")
	case TrackSortName:
		q = q.Order("name COLLATE NOCASE")
	case TrackSortAbsoluteFilePath:
		q = q.Order("absolute_file_path")
	case TrackSortDateDescAndRelease:
		q = q.Order("date DESC").Order("release_id")
	case TrackSortRelease:
		q = q.Order("release_id")
	case TrackSortTrackList:
		q = q.Joins("JOIN track_list_entries tle ON tle.track_id = tracks.id AND tle.track_list_id = ?", p.TrackList.Raw()).
			Order("tle.id")
	case TrackSortTrackNumber:
		q = q.Order("disc_number").Order("track_number")
	}

	return q, nil
}

// applyClusterFilter implements the cluster AND-filter:
// a single cluster id is a direct inner join (fast path); more than
// one requires every id to match via HAVING COUNT(DISTINCT ...) = N,
// with an identical result to the join for the single-cluster case.
func applyClusterFilter(q *gorm.DB, entityTable, linkTable, linkColumn string, clusters []ids.Id[ids.ClusterKind]) *gorm.DB {
	if len(clusters) == 0 {
		return q
	}
	if len(clusters) == 1 {
		return q.Joins(fmt.Sprintf("JOIN %s cl ON cl.%s = %s.id AND cl.cluster_id = ?", linkTable, linkColumn, entityTable), clusters[0].Raw())
	}

	ids_ := make([]uint64, len(clusters))
	for i, c := range clusters {
		ids_[i] = c.Raw()
	}
	subquery := fmt.Sprintf(
		"%s.id IN (SELECT %s FROM %s WHERE cluster_id IN ? GROUP BY %s HAVING COUNT(DISTINCT cluster_id) = ?)",
		entityTable, linkColumn, linkTable, linkColumn,
	)
	return q.Where(subquery, ids_, len(clusters))
}

// FindTrack is the single-row find(tx, id) -> Option<Track>.
func FindTrack(tx *Tx, id ids.Id[ids.TrackKind]) (*Track, error) {
	return findByID[Track](tx, id)
}

// FindTracks streams matching rows through visitor, honoring
// params.Range (size+1 overfetch to detect "more results").
func FindTracks(tx *Tx, params TrackFindParameters, visitor func(*Track) error) error {
	tx.assertRead()

	q, err := params.buildQuery(tx.db)
	if err != nil {
		return err
	}
	q = q.Offset(int(params.Range.Offset))
	if params.Range.HasLimit() {
		q = q.Limit(int(params.Range.InternalFetchSize()))
	}

	rows, err := q.Select("tracks.*").Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		if params.Range.HasLimit() && uint32(count) >= params.Range.Size {
			break
		}
		var t Track
		if err := tx.db.ScanRows(rows, &t); err != nil {
			return err
		}
		if err := visitor(&t); err != nil {
			return err
		}
		count++
	}
	return rows.Err()
}

// FindTrackIds is find(...)'s id-only sibling.
func FindTrackIds(tx *Tx, params TrackFindParameters) (pagerange.RangeResults[ids.Id[ids.TrackKind]], error) {
	tx.assertRead()

	q, err := params.buildQuery(tx.db)
	if err != nil {
		return pagerange.RangeResults[ids.Id[ids.TrackKind]]{}, err
	}
	q = q.Offset(int(params.Range.Offset))
	if params.Range.HasLimit() {
		q = q.Limit(int(params.Range.InternalFetchSize()))
	}

	var raw []uint64
	if err := q.Select("tracks.id").Pluck("tracks.id", &raw).Error; err != nil {
		return pagerange.RangeResults[ids.Id[ids.TrackKind]]{}, err
	}

	out := make([]ids.Id[ids.TrackKind], len(raw))
	for i, v := range raw {
		out[i] = ids.New[ids.TrackKind](v)
	}
	return pagerange.Paginate(params.Range, out), nil
}

// FindOrphanTrackIds is unused in practice (tracks are never orphan by
// definition; they are the root of every link) but is provided so
// Track satisfies the same finder shape as every other entity.
func FindOrphanTrackIds(tx *Tx, r pagerange.Range) (pagerange.RangeResults[ids.Id[ids.TrackKind]], error) {
	return pagerange.RangeResults[ids.Id[ids.TrackKind]]{}, nil
}

func FindNextTrackIdRange(tx *Tx, lastSeenID ids.Id[ids.TrackKind], count uint32) (ids.IdRange[ids.TrackKind], error) {
	return findNextIDRange[ids.TrackKind](tx, "tracks", lastSeenID, count)
}

// FindTracksInIdRange loads every track whose id falls in [r.First, r.Last],
// the batch shape RecomputeArtworkStep walks the table with.
func FindTracksInIdRange(tx *Tx, r ids.IdRange[ids.TrackKind]) ([]Track, error) {
	tx.assertRead()
	if !r.IsValid() {
		return nil, nil
	}
	var out []Track
	err := tx.db.Where("id BETWEEN ? AND ?", r.First.Raw(), r.Last.Raw()).Find(&out).Error
	return out, err
}

// FindTracksByMedium and FindTracksByRelease are used by
// RecomputeArtworkStep to roll a track's preferred artwork up to its
// owning medium/release.
func FindTracksByMedium(tx *Tx, mediumID ids.Id[ids.MediumKind]) ([]Track, error) {
	tx.assertRead()
	var out []Track
	err := tx.db.Where("medium_id = ?", mediumID.Raw()).Find(&out).Error
	return out, err
}

func FindTracksByRelease(tx *Tx, releaseID ids.Id[ids.ReleaseKind]) ([]Track, error) {
	tx.assertRead()
	var out []Track
	err := tx.db.Where("release_id = ?", releaseID.Raw()).Find(&out).Error
	return out, err
}
