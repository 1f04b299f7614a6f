package scanner

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lms/config"
	"lms/internal/catalog"
	"lms/internal/ids"
	"lms/internal/metadata"
	"lms/internal/pagerange"
	"lms/internal/partialdate"
	applog "lms/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	store, err := catalog.Open(catalog.Options{Path: ":memory:", Debug: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return newScanContext(context.Background(), store, config.Config{ScannerWorkerCount: 1}, false, applog.New("scanner-test"), nil)
}

func scanWrite(t *testing.T, sc *Context, fn func(tx *catalog.Tx) error) {
	t.Helper()
	session, release, err := sc.Store.Pool().Borrow(sc)
	require.NoError(t, err)
	defer release()
	require.NoError(t, session.WriteTransaction(sc, fn))
}

func scanRead(t *testing.T, sc *Context, fn func(tx *catalog.Tx) error) {
	t.Helper()
	session, release, err := sc.Store.Pool().Borrow(sc)
	require.NoError(t, err)
	defer release()
	require.NoError(t, session.ReadTransaction(sc, fn))
}

// seedScanTarget materializes the media library and directory rows the
// discover step would have created for a file at path.
func seedScanTarget(t *testing.T, sc *Context, path string) FileToScan {
	t.Helper()
	var f FileToScan
	scanWrite(t, sc, func(tx *catalog.Tx) error {
		lib, err := catalog.FindOrCreateMediaLibrary(tx, "Main", filepath.Dir(filepath.Dir(path)))
		if err != nil {
			return err
		}
		dir, err := catalog.FindOrCreateDirectory(tx, lib.ID, nil, filepath.Base(filepath.Dir(path)), filepath.Dir(path))
		if err != nil {
			return err
		}
		f = FileToScan{
			Path:             path,
			Library:          lib.ID,
			LibraryFirstScan: true,
			Directory:        dir.ID,
			LastWriteTime:    time.Unix(1700000000, 0).UTC(),
		}
		return nil
	})
	return f
}

func parsedFixture() *metadata.Track {
	return &metadata.Track{
		Title:         "So What",
		Artists:       []metadata.ArtistRef{{Name: "Miles Davis", SortName: "Davis, Miles", MBID: "mbid-miles"}},
		Release:       metadata.Release{Name: "Kind of Blue", SortName: "Kind of Blue", MBID: "mbid-kob"},
		Audio:         metadata.AudioProperties{Duration: 545, Bitrate: 1411, SampleRate: 44100, ChannelCount: 2},
		Genres:        []string{"Jazz"},
		RecordingMBID: "rec-mbid-1",
		TrackNumber:   1,
		DiscNumber:    1,
	}
}

func runUpsert(t *testing.T, sc *Context, f FileToScan, parsed *metadata.Track, existing *catalog.Track, settings catalog.ScanSettings) {
	t.Helper()
	scanWrite(t, sc, func(tx *catalog.Tx) error {
		return upsertTrack(tx, sc, f, parsed, nil, existing, settings)
	})
}

func TestUpsertTrackBuildsEntityGraph(t *testing.T) {
	sc := newTestContext(t)
	f := seedScanTarget(t, sc, "/music/album/01 - So What.flac")
	runUpsert(t, sc, f, parsedFixture(), nil, catalog.ScanSettings{ScanVersion: 1})

	scanRead(t, sc, func(tx *catalog.Tx) error {
		track, err := catalog.FindTrackByPath(tx, f.Path)
		require.NoError(t, err)
		require.NotNil(t, track)
		assert.Equal(t, "So What", track.Name)
		assert.Equal(t, 1, track.ScanVersion)
		assert.True(t, track.ReleaseID.IsValid())
		assert.True(t, track.MediumID.IsValid())

		artist, err := catalog.FindArtistByMBID(tx, "mbid-miles")
		require.NoError(t, err)
		require.NotNil(t, artist)
		assert.Equal(t, "Davis, Miles", artist.SortName)

		release, err := catalog.FindReleaseByMBID(tx, "mbid-kob")
		require.NoError(t, err)
		require.NotNil(t, release)
		assert.Equal(t, release.ID, track.ReleaseID)

		found, err := catalog.FindTrackIds(tx, catalog.TrackFindParameters{
			Artist: &artist.ID,
			Range:  pagerange.Unbounded,
		})
		require.NoError(t, err)
		assert.Equal(t, []ids.Id[ids.TrackKind]{track.ID}, found.Results)

		ct, err := catalog.FindClusterTypeByName(tx, "GENRE")
		require.NoError(t, err)
		require.NotNil(t, ct)
		return nil
	})
}

func TestUpsertTrackTwiceReusesEntities(t *testing.T) {
	sc := newTestContext(t)
	f := seedScanTarget(t, sc, "/music/album/01 - So What.flac")
	settings := catalog.ScanSettings{ScanVersion: 1}
	runUpsert(t, sc, f, parsedFixture(), nil, settings)

	var firstID ids.Id[ids.TrackKind]
	scanRead(t, sc, func(tx *catalog.Tx) error {
		track, err := catalog.FindTrackByPath(tx, f.Path)
		require.NoError(t, err)
		require.NotNil(t, track)
		firstID = track.ID
		return nil
	})

	var existing *catalog.Track
	scanRead(t, sc, func(tx *catalog.Tx) error {
		track, err := catalog.FindTrackByPath(tx, f.Path)
		existing = track
		return err
	})
	runUpsert(t, sc, f, parsedFixture(), existing, settings)

	scanRead(t, sc, func(tx *catalog.Tx) error {
		track, err := catalog.FindTrackByPath(tx, f.Path)
		require.NoError(t, err)
		require.NotNil(t, track)
		assert.Equal(t, firstID, track.ID)

		tracks, err := catalog.FindTrackIds(tx, catalog.TrackFindParameters{Range: pagerange.Unbounded})
		require.NoError(t, err)
		assert.Len(t, tracks.Results, 1)

		artists, err := catalog.FindNextArtistIdRange(tx, ids.Invalid[ids.ArtistKind](), 10)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), artists.Count())

		releases, err := catalog.FindNextReleaseIdRange(tx, ids.Invalid[ids.ReleaseKind](), 10)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), releases.Count())

		orphans, err := catalog.FindOrphanClusterIds(tx, pagerange.Unbounded)
		require.NoError(t, err)
		assert.Empty(t, orphans.Results)
		return nil
	})
}

func TestUpsertTrackCopiesOriginalDateWhenDateMissing(t *testing.T) {
	sc := newTestContext(t)
	f := seedScanTarget(t, sc, "/music/album/02.flac")
	parsed := parsedFixture()
	original, err := partialdate.FromString("1959-08-17")
	require.NoError(t, err)
	parsed.OriginalDate = original
	runUpsert(t, sc, f, parsed, nil, catalog.ScanSettings{ScanVersion: 1})

	scanRead(t, sc, func(tx *catalog.Tx) error {
		track, err := catalog.FindTrackByPath(tx, f.Path)
		require.NoError(t, err)
		require.NotNil(t, track)
		assert.True(t, partialdate.Equal(original, track.Date))
		assert.True(t, partialdate.Equal(original, track.OriginalDate))
		return nil
	})
}

func TestUpsertTrackMoveDetectionReassignsRow(t *testing.T) {
	sc := newTestContext(t)
	oldFile := seedScanTarget(t, sc, "/music/album/old-name.flac")
	runUpsert(t, sc, oldFile, parsedFixture(), nil, catalog.ScanSettings{ScanVersion: 1})

	var movedID ids.Id[ids.TrackKind]
	scanRead(t, sc, func(tx *catalog.Tx) error {
		track, err := catalog.FindTrackByPath(tx, oldFile.Path)
		require.NoError(t, err)
		require.NotNil(t, track)
		movedID = track.ID
		return nil
	})

	// The old path never existed on disk, so the MBID match treats the
	// second upsert as a rename rather than a new file.
	newFile := oldFile
	newFile.Path = "/music/album/new-name.flac"
	runUpsert(t, sc, newFile, parsedFixture(), nil, catalog.ScanSettings{ScanVersion: 1})

	scanRead(t, sc, func(tx *catalog.Tx) error {
		gone, err := catalog.FindTrackByPath(tx, oldFile.Path)
		require.NoError(t, err)
		assert.Nil(t, gone)

		track, err := catalog.FindTrackByPath(tx, newFile.Path)
		require.NoError(t, err)
		require.NotNil(t, track)
		assert.Equal(t, movedID, track.ID)

		tracks, err := catalog.FindTrackIds(tx, catalog.TrackFindParameters{Range: pagerange.Unbounded})
		require.NoError(t, err)
		assert.Len(t, tracks.Results, 1)
		return nil
	})
}

func TestUpsertTrackSkipsDuplicateMBID(t *testing.T) {
	sc := newTestContext(t)
	dir := t.TempDir()
	firstPath := filepath.Join(dir, "first.flac")
	require.NoError(t, os.WriteFile(firstPath, []byte("x"), 0o644))

	settings := catalog.ScanSettings{ScanVersion: 1, SkipDuplicateTrackMBID: true}
	first := seedScanTarget(t, sc, firstPath)
	runUpsert(t, sc, first, parsedFixture(), nil, settings)

	// The first file still exists on disk, so this is a duplicate, not
	// a move: the second path must not be inserted.
	second := first
	second.Path = filepath.Join(dir, "second.flac")
	runUpsert(t, sc, second, parsedFixture(), nil, settings)

	scanRead(t, sc, func(tx *catalog.Tx) error {
		dup, err := catalog.FindTrackByPath(tx, second.Path)
		require.NoError(t, err)
		assert.Nil(t, dup)

		kept, err := catalog.FindTrackByPath(tx, first.Path)
		require.NoError(t, err)
		assert.NotNil(t, kept)
		return nil
	})
}

func TestHandleParseErrorRemovesTrackWithoutAudio(t *testing.T) {
	sc := newTestContext(t)
	f := seedScanTarget(t, sc, "/music/album/broken.flac")
	runUpsert(t, sc, f, parsedFixture(), nil, catalog.ScanSettings{ScanVersion: 1})

	var existing *catalog.Track
	scanRead(t, sc, func(tx *catalog.Tx) error {
		track, err := catalog.FindTrackByPath(tx, f.Path)
		existing = track
		return err
	})
	require.NotNil(t, existing)

	session, release, err := sc.Store.Pool().Borrow(sc)
	require.NoError(t, err)
	defer release()
	handleParseError(sc, session, f, existing, &metadata.Error{Kind: metadata.NoAudioTrackFound})

	assert.Equal(t, 1, sc.Snapshot("test").Removed)
	assert.Len(t, sc.errorLog, 1)
	assert.Equal(t, NoAudioTrackFound, sc.errorLog[0].Kind)

	scanRead(t, sc, func(tx *catalog.Tx) error {
		track, err := catalog.FindTrackByPath(tx, f.Path)
		require.NoError(t, err)
		assert.Nil(t, track)
		return nil
	})
}

func TestReconcileOrphansStepDeletesUnreferencedRows(t *testing.T) {
	sc := newTestContext(t)
	f := seedScanTarget(t, sc, "/music/album/03.flac")
	runUpsert(t, sc, f, parsedFixture(), nil, catalog.ScanSettings{ScanVersion: 1})

	scanWrite(t, sc, func(tx *catalog.Tx) error {
		track, err := catalog.FindTrackByPath(tx, f.Path)
		if err != nil {
			return err
		}
		return catalog.DeleteTrack(tx, track.ID)
	})

	require.NoError(t, ReconcileOrphansStep{}.Execute(sc))

	scanRead(t, sc, func(tx *catalog.Tx) error {
		artist, err := catalog.FindArtistByMBID(tx, "mbid-miles")
		require.NoError(t, err)
		assert.Nil(t, artist)

		release, err := catalog.FindReleaseByMBID(tx, "mbid-kob")
		require.NoError(t, err)
		assert.Nil(t, release)

		ct, err := catalog.FindClusterTypeByName(tx, "GENRE")
		require.NoError(t, err)
		assert.Nil(t, ct)
		return nil
	})
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestRelinkImagesDeduplicatesBySizeAndHash(t *testing.T) {
	sc := newTestContext(t)
	cover := pngBytes(t, 2, 2)

	firstFile := seedScanTarget(t, sc, "/music/album/04.flac")
	secondFile := firstFile
	secondFile.Path = "/music/album/05.flac"

	parsed := parsedFixture()
	parsed.RecordingMBID = ""
	pics := []metadata.Image{{Bytes: cover, Mime: "image/png", Type: int(catalog.ImageFrontCover)}}

	scanWrite(t, sc, func(tx *catalog.Tx) error {
		return upsertTrack(tx, sc, firstFile, parsed, pics, nil, catalog.ScanSettings{ScanVersion: 1})
	})
	scanWrite(t, sc, func(tx *catalog.Tx) error {
		return upsertTrack(tx, sc, secondFile, parsed, pics, nil, catalog.ScanSettings{ScanVersion: 1})
	})

	scanRead(t, sc, func(tx *catalog.Tx) error {
		imgs, err := catalog.FindNextTrackEmbeddedImageIdRange(tx, ids.Invalid[ids.ImageKind](), 10)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), imgs.Count(), "identical bytes must dedup to one row")

		img, err := catalog.FindTrackEmbeddedImage(tx, imgs.First)
		require.NoError(t, err)
		require.NotNil(t, img)
		assert.Equal(t, int64(len(cover)), img.Size)
		assert.Equal(t, 2, img.Width)
		assert.Equal(t, 2, img.Height)
		assert.Equal(t, "image/png", img.Mime)

		first, err := catalog.FindTrackByPath(tx, firstFile.Path)
		require.NoError(t, err)
		links, err := catalog.FindTrackEmbeddedImageLinks(tx, first.ID)
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, catalog.ImageFrontCover, links[0].Type)
		return nil
	})
}

func TestRecomputeArtworkStepPrefersFrontCover(t *testing.T) {
	sc := newTestContext(t)
	f := seedScanTarget(t, sc, "/music/album/06.flac")

	parsed := parsedFixture()
	pics := []metadata.Image{
		{Bytes: pngBytes(t, 3, 3), Mime: "image/png", Type: int(catalog.ImageOther)},
		{Bytes: pngBytes(t, 4, 4), Mime: "image/png", Type: int(catalog.ImageFrontCover)},
	}
	scanWrite(t, sc, func(tx *catalog.Tx) error {
		return upsertTrack(tx, sc, f, parsed, pics, nil, catalog.ScanSettings{ScanVersion: 1})
	})

	require.NoError(t, RecomputeArtworkStep{}.Execute(sc))

	scanRead(t, sc, func(tx *catalog.Tx) error {
		track, err := catalog.FindTrackByPath(tx, f.Path)
		require.NoError(t, err)
		require.NotNil(t, track)
		require.True(t, track.PreferredArtwork.IsValid())

		art, err := catalog.FindArtwork(tx, track.PreferredArtwork)
		require.NoError(t, err)
		require.NotNil(t, art)
		require.Equal(t, catalog.ArtworkEmbedded, art.Kind)

		img, err := catalog.FindTrackEmbeddedImage(tx, art.EmbeddedImageID)
		require.NoError(t, err)
		require.NotNil(t, img)
		assert.Equal(t, 4, img.Width, "front cover must beat the other embedded picture")

		release, err := catalog.FindReleaseByMBID(tx, "mbid-kob")
		require.NoError(t, err)
		require.NotNil(t, release)
		assert.Equal(t, track.PreferredArtwork, release.PreferredArtwork)
		return nil
	})
}
