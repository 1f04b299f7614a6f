package catalog

import "lms/internal/ids"

// ClusterType is a tag taxonomy root, e.g. "GENRE", "MOOD". Name is
// unique.
type ClusterType struct {
	ID   ids.Id[ids.ClusterTypeKind] `gorm:"primaryKey;autoIncrement"`
	Name string                      `gorm:"not null;uniqueIndex:idx_cluster_type_name"`
}

// Cluster is (type, name) unique within its type. Tracks link to
// clusters many-to-many; Release/Artist memberships are computed by
// traversal through their tracks, not stored directly.
type Cluster struct {
	ID            ids.Id[ids.ClusterKind]     `gorm:"primaryKey;autoIncrement"`
	ClusterTypeID ids.Id[ids.ClusterTypeKind] `gorm:"not null;uniqueIndex:idx_cluster_type_name_unique"`
	Name          string                      `gorm:"not null;uniqueIndex:idx_cluster_type_name_unique"`
}

// TrackClusterLink is the many-to-many join between Track and Cluster.
type TrackClusterLink struct {
	TrackID   ids.Id[ids.TrackKind]   `gorm:"primaryKey;index:idx_track_cluster_link"`
	ClusterID ids.Id[ids.ClusterKind] `gorm:"primaryKey;index:idx_track_cluster_link"`
}

func (TrackClusterLink) TableName() string { return "track_cluster_links" }
