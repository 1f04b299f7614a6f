package catalog

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"lms/internal/ids"
	"lms/internal/pagerange"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(Options{Path: ":memory:", Debug: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func withWrite(t *testing.T, store *Store, fn func(tx *Tx) error) {
	t.Helper()
	sess, release, err := store.Pool().Borrow(context.Background())
	require.NoError(t, err)
	defer release()
	require.NoError(t, sess.WriteTransaction(context.Background(), fn))
}

func withRead(t *testing.T, store *Store, fn func(tx *Tx) error) {
	t.Helper()
	sess, release, err := store.Pool().Borrow(context.Background())
	require.NoError(t, err)
	defer release()
	require.NoError(t, sess.ReadTransaction(context.Background(), fn))
}

func TestOpenRunsMigrationsToExpectedVersion(t *testing.T) {
	store := openTestStore(t)
	withRead(t, store, func(tx *Tx) error {
		var applied int
		err := tx.db.Raw("SELECT COUNT(*) FROM gorp_migrations").Row().Scan(&applied)
		assert.NoError(t, err)
		assert.Equal(t, EXPECTED_VERSION, applied)

		var version int
		err = tx.db.Raw("SELECT version FROM version_infos WHERE id = ?", versionInfoSingletonID).Row().Scan(&version)
		assert.NoError(t, err)
		assert.Equal(t, EXPECTED_VERSION, version)
		return nil
	})
}

// TestDebugModeAssertsTransactionMode exercises the debug-only
// misuse assertions: calling a write-only helper inside a
// read transaction panics rather than silently allowing it.
func TestDebugModeAssertsTransactionMode(t *testing.T) {
	store := openTestStore(t)
	assert.Panics(t, func() {
		withRead(t, store, func(tx *Tx) error {
			_, err := CreateArtist(tx, "The Artist", "", "")
			return err
		})
	})
}

func TestWriteTransactionExcludesConcurrentReaders(t *testing.T) {
	store := openTestStore(t)

	sess, release, err := store.Pool().Borrow(context.Background())
	require.NoError(t, err)
	defer release()

	started := make(chan struct{})
	finished := make(chan struct{})
	var writerDone atomic.Bool
	go func() {
		_ = sess.WriteTransaction(context.Background(), func(tx *Tx) error {
			close(started)
			time.Sleep(30 * time.Millisecond)
			writerDone.Store(true)
			return nil
		})
		close(finished)
	}()

	<-started
	readerSess, readerRelease, err := store.Pool().Borrow(context.Background())
	require.NoError(t, err)
	defer readerRelease()

	require.NoError(t, readerSess.ReadTransaction(context.Background(), func(tx *Tx) error {
		assert.True(t, writerDone.Load(), "read transaction ran while the write transaction was still open")
		return nil
	}))
	<-finished
}

// seedTrack creates the full chain a Track's NOT NULL foreign keys
// require (media library, directory, release, medium) and returns the
// created track's id.
func seedTrack(t *testing.T, store *Store, name string, clusters ...ids.Id[ids.ClusterKind]) ids.Id[ids.TrackKind] {
	t.Helper()
	var trackID ids.Id[ids.TrackKind]
	withWrite(t, store, func(tx *Tx) error {
		lib, err := FindOrCreateMediaLibrary(tx, "Library", "/music")
		if err != nil {
			return err
		}
		dir, err := FindOrCreateDirectory(tx, lib.ID, nil, "music", "/music/"+name)
		if err != nil {
			return err
		}
		track := &Track{
			AbsoluteFilePath: "/music/" + name + "/track.flac",
			FileSize:         1,
			LastWriteTime:    time.Unix(0, 0),
			AddedTime:        time.Unix(0, 0),
			Name:             name,
			DirectoryID:      dir.ID,
			MediaLibraryID:   lib.ID,
		}
		if err := CreateTrack(tx, track); err != nil {
			return err
		}
		trackID = track.ID
		for _, c := range clusters {
			if err := CreateTrackClusterLink(tx, track.ID, c); err != nil {
				return err
			}
		}
		return nil
	})
	return trackID
}

func seedCluster(t *testing.T, store *Store, typeName, name string) ids.Id[ids.ClusterKind] {
	t.Helper()
	var clusterID ids.Id[ids.ClusterKind]
	withWrite(t, store, func(tx *Tx) error {
		ct, err := FindOrCreateClusterType(tx, typeName)
		if err != nil {
			return err
		}
		c, err := FindOrCreateCluster(tx, ct.ID, name)
		if err != nil {
			return err
		}
		clusterID = c.ID
		return nil
	})
	return clusterID
}

// TestClusterANDFilterRequiresEveryCluster: a track matching only a subset of the
// requested clusters must not appear, only one matching every one of
// them does.
func TestClusterANDFilterRequiresEveryCluster(t *testing.T) {
	store := openTestStore(t)

	rock := seedCluster(t, store, "GENRE", "Rock")
	live := seedCluster(t, store, "MOOD", "Live")

	bothID := seedTrack(t, store, "both", rock, live)
	onlyRockID := seedTrack(t, store, "only-rock", rock)
	_ = seedTrack(t, store, "neither")

	withRead(t, store, func(tx *Tx) error {
		ids_, err := FindTrackIds(tx, TrackFindParameters{
			Clusters: []ids.Id[ids.ClusterKind]{rock, live},
			Range:    pagerange.Unbounded,
		})
		require.NoError(t, err)
		assert.Len(t, ids_.Results, 1)
		assert.Equal(t, bothID, ids_.Results[0])
		return nil
	})

	withRead(t, store, func(tx *Tx) error {
		ids_, err := FindTrackIds(tx, TrackFindParameters{
			Clusters: []ids.Id[ids.ClusterKind]{rock},
			Range:    pagerange.Unbounded,
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []ids.Id[ids.TrackKind]{bothID, onlyRockID}, ids_.Results)
		return nil
	})
}

func TestKeywordSearchIsCaseInsensitiveSubstring(t *testing.T) {
	store := openTestStore(t)
	wantID := seedTrack(t, store, "Nocturne in E Minor")
	_ = seedTrack(t, store, "Unrelated Title")

	withRead(t, store, func(tx *Tx) error {
		res, err := FindTrackIds(tx, TrackFindParameters{
			Keywords: []string{"nocturne"},
			Range:    pagerange.Unbounded,
		})
		require.NoError(t, err)
		assert.Equal(t, []ids.Id[ids.TrackKind]{wantID}, res.Results)
		return nil
	})
}

func TestKeywordSearchEscapesLikeWildcards(t *testing.T) {
	store := openTestStore(t)
	_ = seedTrack(t, store, "100% Pure")

	withRead(t, store, func(tx *Tx) error {
		res, err := FindTrackIds(tx, TrackFindParameters{
			Keywords: []string{"100_ Pure"},
			Range:    pagerange.Unbounded,
		})
		require.NoError(t, err)
		assert.Empty(t, res.Results, "escaped '_' must not match the literal '%' in the title")
		return nil
	})
}

func TestFindOrphanClusterIdsAndReconciliation(t *testing.T) {
	store := openTestStore(t)
	rock := seedCluster(t, store, "GENRE", "Rock")
	trackID := seedTrack(t, store, "song", rock)

	withRead(t, store, func(tx *Tx) error {
		orphans, err := FindOrphanClusterIds(tx, pagerange.Unbounded)
		require.NoError(t, err)
		assert.Empty(t, orphans.Results)
		return nil
	})

	withWrite(t, store, func(tx *Tx) error {
		return DeleteTrackClusterLinks(tx, trackID)
	})

	withRead(t, store, func(tx *Tx) error {
		orphans, err := FindOrphanClusterIds(tx, pagerange.Unbounded)
		require.NoError(t, err)
		assert.Equal(t, []ids.Id[ids.ClusterKind]{rock}, orphans.Results)
		return nil
	})
}

func TestFindNextIDRangeCursorAdvancesPastLastSeen(t *testing.T) {
	store := openTestStore(t)
	first := seedTrack(t, store, "a")
	second := seedTrack(t, store, "b")
	third := seedTrack(t, store, "c")

	withRead(t, store, func(tx *Tx) error {
		r, err := FindNextTrackIdRange(tx, ids.Id[ids.TrackKind]{}, 2)
		require.NoError(t, err)
		assert.Equal(t, first, r.First)
		assert.Equal(t, second, r.Last)
		return nil
	})

	withRead(t, store, func(tx *Tx) error {
		r, err := FindNextTrackIdRange(tx, second, 2)
		require.NoError(t, err)
		assert.Equal(t, third, r.First)
		assert.Equal(t, third, r.Last)
		return nil
	})

	withRead(t, store, func(tx *Tx) error {
		r, err := FindNextTrackIdRange(tx, third, 2)
		require.NoError(t, err)
		assert.False(t, r.IsValid())
		return nil
	})
}

func TestEscapeLikeWildcards(t *testing.T) {
	assert.Equal(t, `100\% Pure`, escapeLikeWildcards("100% Pure"))
	assert.Equal(t, `a\_b`, escapeLikeWildcards("a_b"))
	assert.Equal(t, `a\\b`, escapeLikeWildcards(`a\b`))
	assert.Equal(t, "plain", escapeLikeWildcards("plain"))
}
