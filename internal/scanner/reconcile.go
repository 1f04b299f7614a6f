package scanner

import (
	"lms/internal/catalog"
	"lms/internal/ids"
	"lms/internal/pagerange"
)

// orphanBatchSize bounds how many ids reconcileOrphans deletes per
// write transaction, so a library-wide cleanup never holds the write
// lock for one unbroken, unbounded transaction.
const orphanBatchSize = 500

// ReconcileOrphansStep deletes rows that no longer have any track
// referencing them: artists, releases, clusters, cluster types, and
// embedded images/artworks left behind by deleted or re-tagged tracks.
type ReconcileOrphansStep struct{}

func (ReconcileOrphansStep) Name() string { return "reconcile_orphans" }

func (ReconcileOrphansStep) Execute(sc *Context) error {
	session, release, err := sc.Store.Pool().Borrow(sc)
	if err != nil {
		return err
	}
	defer release()

	if err := reconcileBatched(sc, session, "artists", catalog.FindOrphanArtistIds, catalog.DeleteArtist); err != nil {
		return err
	}
	if err := reconcileBatched(sc, session, "releases", catalog.FindOrphanReleaseIds, catalog.DeleteRelease); err != nil {
		return err
	}
	if err := reconcileBatched(sc, session, "clusters", catalog.FindOrphanClusterIds, catalog.DeleteCluster); err != nil {
		return err
	}
	if err := reconcileBatched(sc, session, "cluster_types", catalog.FindOrphanClusterTypeIds, catalog.DeleteClusterType); err != nil {
		return err
	}
	if err := reconcileBatched(sc, session, "track_embedded_images", catalog.FindOrphanTrackEmbeddedImageIds, catalog.DeleteTrackEmbeddedImage); err != nil {
		return err
	}
	// Artworks reconcile last: the embedded-image pass above may have
	// just made an Artwork row orphaned, so this pass needs to run after.
	if err := reconcileBatched(sc, session, "artworks", catalog.FindOrphanArtworkIds, catalog.DeleteArtwork); err != nil {
		return err
	}

	return nil
}

// reconcileBatched repeatedly fetches one page of orphan ids via find
// and deletes them in their own write transaction until fewer than a
// full batch comes back, checking for abort between every batch.
func reconcileBatched[K any](sc *Context, session *catalog.Session, label string,
	find func(*catalog.Tx, pagerange.Range) (pagerange.RangeResults[ids.Id[K]], error),
	del func(*catalog.Tx, ids.Id[K]) error) error {

	for {
		if sc.Aborted() {
			return nil
		}

		var batch []ids.Id[K]
		err := session.WriteTransaction(sc, func(tx *catalog.Tx) error {
			page, err := find(tx, pagerange.Range{Size: orphanBatchSize})
			if err != nil {
				return err
			}
			batch = page.Results
			for _, id := range batch {
				if err := del(tx, id); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			sc.Log.Er("reconcile orphans failed", err, "table", label)
			return err
		}

		sc.IncRemoved(len(batch))
		if len(batch) < orphanBatchSize {
			return nil
		}
	}
}
