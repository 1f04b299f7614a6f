package catalog

import (
	"errors"

	"lms/internal/ids"
	"lms/internal/pagerange"

	"gorm.io/gorm"
)

type ClusterFindParameters struct {
	ClusterType *ids.Id[ids.ClusterTypeKind]
	Track       *ids.Id[ids.TrackKind]
	Name        *string
	Range       pagerange.Range
}

func FindCluster(tx *Tx, id ids.Id[ids.ClusterKind]) (*Cluster, error) {
	return findByID[Cluster](tx, id)
}

func FindClusters(tx *Tx, params ClusterFindParameters, visitor func(*Cluster) error) error {
	tx.assertRead()

	q := tx.db.Table("clusters")
	if params.ClusterType != nil {
		q = q.Where("cluster_type_id = ?", params.ClusterType.Raw())
	}
	if params.Name != nil {
		q = q.Where("name = ?", *params.Name)
	}
	if params.Track != nil {
		q = q.Where("id IN (SELECT cluster_id FROM track_cluster_links WHERE track_id = ?)", params.Track.Raw())
	}

	q = q.Order("name COLLATE NOCASE").Offset(int(params.Range.Offset))
	if params.Range.HasLimit() {
		q = q.Limit(int(params.Range.InternalFetchSize()))
	}

	rows, err := q.Select("clusters.*").Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		if params.Range.HasLimit() && uint32(count) >= params.Range.Size {
			break
		}
		var c Cluster
		if err := tx.db.ScanRows(rows, &c); err != nil {
			return err
		}
		if err := visitor(&c); err != nil {
			return err
		}
		count++
	}
	return rows.Err()
}

// FindOrCreateCluster is used by the scanner's tag-to-cluster step: it
// looks up a (clusterTypeID, name) pair and inserts it on first sight.
func FindOrCreateCluster(tx *Tx, clusterTypeID ids.Id[ids.ClusterTypeKind], name string) (*Cluster, error) {
	tx.assertWrite()

	var existing Cluster
	err := tx.db.Where("cluster_type_id = ? AND name = ?", clusterTypeID.Raw(), name).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	c := Cluster{ClusterTypeID: clusterTypeID, Name: name}
	if err := tx.db.Create(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// FindClusterTypeByName is the read-only counterpart to
// FindOrCreateClusterType, for callers (like the Subsonic genre
// listing) that must not create a missing type as a side effect of a
// read request.
func FindClusterTypeByName(tx *Tx, name string) (*ClusterType, error) {
	tx.assertRead()

	var ct ClusterType
	err := tx.db.First(&ct, "name = ?", name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ct, nil
}

func FindOrCreateClusterType(tx *Tx, name string) (*ClusterType, error) {
	tx.assertWrite()

	var existing ClusterType
	err := tx.db.Where("name = ?", name).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	ct := ClusterType{Name: name}
	if err := tx.db.Create(&ct).Error; err != nil {
		return nil, err
	}
	return &ct, nil
}

func FindOrphanClusterIds(tx *Tx, r pagerange.Range) (pagerange.RangeResults[ids.Id[ids.ClusterKind]], error) {
	return findIDsOrphan[ids.ClusterKind](tx, "clusters",
		"id NOT IN (SELECT cluster_id FROM track_cluster_links)", r)
}

func FindNextClusterIdRange(tx *Tx, lastSeenID ids.Id[ids.ClusterKind], count uint32) (ids.IdRange[ids.ClusterKind], error) {
	return findNextIDRange[ids.ClusterKind](tx, "clusters", lastSeenID, count)
}

// FindOrphanClusterTypeIds finds cluster types with no remaining
// cluster, which only happens once every cluster under that type has
// itself been reconciled away.
func FindOrphanClusterTypeIds(tx *Tx, r pagerange.Range) (pagerange.RangeResults[ids.Id[ids.ClusterTypeKind]], error) {
	return findIDsOrphan[ids.ClusterTypeKind](tx, "cluster_types",
		"id NOT IN (SELECT cluster_type_id FROM clusters)", r)
}

func FindNextClusterTypeIdRange(tx *Tx, lastSeenID ids.Id[ids.ClusterTypeKind], count uint32) (ids.IdRange[ids.ClusterTypeKind], error) {
	return findNextIDRange[ids.ClusterTypeKind](tx, "cluster_types", lastSeenID, count)
}
