package catalog

import (
	"lms/internal/ids"
	"lms/internal/pagerange"
)

type ReleaseSortMethod int

const (
	ReleaseSortNone ReleaseSortMethod = iota
	ReleaseSortID
	ReleaseSortName
	ReleaseSortNewest
	ReleaseSortRandom
	ReleaseSortStarredDateDesc // requires StarringUser
)

// ReleaseFindParameters mirrors TrackFindParameters for the Release
// entity: artist scoping, keyword/exact name, label/country/type
// filters, cluster AND-filter, starred-by-user filter.
type ReleaseFindParameters struct {
	Artist       *ids.Id[ids.ArtistKind]
	Keywords     []string
	Name         *string
	Label        *string
	Country      *string
	ReleaseType  *string
	Clusters     []ids.Id[ids.ClusterKind]
	StarringUser *ids.Id[ids.UserKind]
	SortMethod   ReleaseSortMethod
	Range        pagerange.Range
}

func FindRelease(tx *Tx, id ids.Id[ids.ReleaseKind]) (*Release, error) {
	return findByID[Release](tx, id)
}

func FindReleases(tx *Tx, params ReleaseFindParameters, visitor func(*Release) error) error {
	tx.assertRead()

	q := tx.db.Table("releases")
	if params.Artist != nil {
		q = q.Where("id IN (SELECT release_id FROM tracks WHERE id IN (SELECT track_id FROM track_artist_links WHERE artist_id = ?))", params.Artist.Raw())
	}
	if params.Name != nil {
		q = q.Where("name = ?", *params.Name)
	}
	for _, kw := range params.Keywords {
		q = q.Where("name LIKE ? ESCAPE '\\' COLLATE NOCASE", "%"+escapeLikeWildcards(kw)+"%")
	}
	if params.Label != nil {
		q = q.Where("labels LIKE ?", "%"+escapeLikeWildcards(*params.Label)+"%")
	}
	if params.Country != nil {
		q = q.Where("countries LIKE ?", "%"+escapeLikeWildcards(*params.Country)+"%")
	}
	if params.ReleaseType != nil {
		q = q.Where("release_types LIKE ?", "%"+escapeLikeWildcards(*params.ReleaseType)+"%")
	}
	if params.StarringUser != nil {
		q = q.Where("id IN (SELECT release_id FROM starred_releases WHERE user_id = ? AND sync_state <> ?)",
			params.StarringUser.Raw(), SyncStatePendingRemove)
	}
	if len(params.Clusters) > 0 {
		q = applyClusterFilter(q, "releases",
			"(SELECT DISTINCT t.release_id AS release_id, tcl.cluster_id FROM tracks t JOIN track_cluster_links tcl ON tcl.track_id = t.id)",
			"release_id", params.Clusters)
	}

	switch params.SortMethod {
	case ReleaseSortID:
		q = q.Order("id")
	case ReleaseSortName:
		q = q.Order("name COLLATE NOCASE")
	case ReleaseSortNewest:
		q = q.Order("created_at DESC")
	case ReleaseSortRandom:
		q = q.Order("RANDOM()")
	case ReleaseSortStarredDateDesc:
		if params.StarringUser != nil {
			q = q.Joins("JOIN starred_releases sr ON sr.release_id = releases.id AND sr.user_id = ?", params.StarringUser.Raw()).
				Order("sr.starred_date DESC")
		}
	}

	q = q.Offset(int(params.Range.Offset))
	if params.Range.HasLimit() {
		q = q.Limit(int(params.Range.InternalFetchSize()))
	}

	rows, err := q.Select("releases.*").Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		if params.Range.HasLimit() && uint32(count) >= params.Range.Size {
			break
		}
		var r Release
		if err := tx.db.ScanRows(rows, &r); err != nil {
			return err
		}
		if err := visitor(&r); err != nil {
			return err
		}
		count++
	}
	return rows.Err()
}

// FindOrphanReleaseIds finds releases with no track pointing at them.
func FindOrphanReleaseIds(tx *Tx, r pagerange.Range) (pagerange.RangeResults[ids.Id[ids.ReleaseKind]], error) {
	return findIDsOrphan[ids.ReleaseKind](tx, "releases",
		"id NOT IN (SELECT release_id FROM tracks WHERE release_id IS NOT NULL)", r)
}

func FindNextReleaseIdRange(tx *Tx, lastSeenID ids.Id[ids.ReleaseKind], count uint32) (ids.IdRange[ids.ReleaseKind], error) {
	return findNextIDRange[ids.ReleaseKind](tx, "releases", lastSeenID, count)
}

// GetAdvisories returns the set of distinct Advisory values observed
// across this release's tracks; every returned value has at least
// one supporting track.
func GetAdvisories(tx *Tx, releaseID ids.Id[ids.ReleaseKind]) ([]Advisory, error) {
	tx.assertRead()

	var raw []int
	err := tx.db.Table("tracks").
		Where("release_id = ?", releaseID.Raw()).
		Distinct().
		Pluck("advisory", &raw).Error
	if err != nil {
		return nil, err
	}
	out := make([]Advisory, len(raw))
	for i, v := range raw {
		out[i] = Advisory(v)
	}
	return out, nil
}
