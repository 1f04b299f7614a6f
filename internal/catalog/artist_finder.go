package catalog

import (
	"lms/internal/ids"
	"lms/internal/pagerange"
)

type ArtistSortMethod int

const (
	ArtistSortNone ArtistSortMethod = iota
	ArtistSortID
	ArtistSortName
	ArtistSortSortName
)

// ArtistFindParameters mirrors TrackFindParameters' shape for Artist:
// name keyword search, cluster AND-filter (via tracks each artist is
// linked to), and a sort method.
type ArtistFindParameters struct {
	Keywords   []string
	Name       *string
	Clusters   []ids.Id[ids.ClusterKind]
	SortMethod ArtistSortMethod
	Range      pagerange.Range
}

// FindArtist is the single-row lookup.
func FindArtist(tx *Tx, id ids.Id[ids.ArtistKind]) (*Artist, error) {
	return findByID[Artist](tx, id)
}

// FindArtists streams matches through visitor.
func FindArtists(tx *Tx, params ArtistFindParameters, visitor func(*Artist) error) error {
	tx.assertRead()

	q := tx.db.Table("artists")
	if params.Name != nil {
		q = q.Where("name = ?", *params.Name)
	}
	for _, kw := range params.Keywords {
		q = q.Where("name LIKE ? ESCAPE '\\' COLLATE NOCASE", "%"+escapeLikeWildcards(kw)+"%")
	}
	if len(params.Clusters) > 0 {
		q = applyClusterFilter(q, "artists",
			"(SELECT DISTINCT tal.artist_id AS artist_id, tcl.cluster_id FROM track_artist_links tal JOIN track_cluster_links tcl ON tcl.track_id = tal.track_id)",
			"artist_id", params.Clusters)
	}
	switch params.SortMethod {
	case ArtistSortID:
		q = q.Order("id")
	case ArtistSortName:
		q = q.Order("name COLLATE NOCASE")
	case ArtistSortSortName:
		q = q.Order("sort_name COLLATE NOCASE")
	}

	q = q.Offset(int(params.Range.Offset))
	if params.Range.HasLimit() {
		q = q.Limit(int(params.Range.InternalFetchSize()))
	}

	rows, err := q.Select("artists.*").Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		if params.Range.HasLimit() && uint32(count) >= params.Range.Size {
			break
		}
		var a Artist
		if err := tx.db.ScanRows(rows, &a); err != nil {
			return err
		}
		if err := visitor(&a); err != nil {
			return err
		}
		count++
	}
	return rows.Err()
}

// FindOrphanArtistIds finds artists with no incoming TrackArtistLink.
func FindOrphanArtistIds(tx *Tx, r pagerange.Range) (pagerange.RangeResults[ids.Id[ids.ArtistKind]], error) {
	return findIDsOrphan[ids.ArtistKind](tx, "artists",
		"id NOT IN (SELECT artist_id FROM track_artist_links)", r)
}

func FindNextArtistIdRange(tx *Tx, lastSeenID ids.Id[ids.ArtistKind], count uint32) (ids.IdRange[ids.ArtistKind], error) {
	return findNextIDRange[ids.ArtistKind](tx, "artists", lastSeenID, count)
}
