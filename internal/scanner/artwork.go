package scanner

import (
	"lms/internal/catalog"
	"lms/internal/ids"
)

// ExternalArtworkUpsertStep materializes an Artwork row (Kind =
// ArtworkExternalFile) for every standalone cover-art file the
// discover step found, keyed by directory so RecomputeArtworkStep's
// per-track fallback can find one without a path-prefix query.
type ExternalArtworkUpsertStep struct{}

func (ExternalArtworkUpsertStep) Name() string { return "external_artwork_upsert" }

func (ExternalArtworkUpsertStep) Execute(sc *Context) error {
	if len(sc.DiscoveredImages) == 0 {
		return nil
	}

	session, release, err := sc.Store.Pool().Borrow(sc)
	if err != nil {
		return err
	}
	defer release()

	for _, img := range sc.DiscoveredImages {
		if sc.Aborted() {
			return nil
		}
		if err := session.WriteTransaction(sc, func(tx *catalog.Tx) error {
			existing, err := catalog.FindArtworkByFilePath(tx, img.Path)
			if err != nil {
				return err
			}
			if existing == nil {
				return catalog.CreateArtwork(tx, &catalog.Artwork{
					Kind:             catalog.ArtworkExternalFile,
					AbsoluteFilePath: img.Path,
					LastWrittenTime:  img.LastWriteTime,
					DirectoryID:      img.Directory,
				})
			}
			if !existing.LastWrittenTime.Equal(img.LastWriteTime) {
				return catalog.UpdateArtworkLastWrittenTime(tx, existing.ID, img.LastWriteTime)
			}
			return nil
		}); err != nil {
			sc.RecordError(ScanError{Kind: IOScanError, Path: img.Path, Cause: err})
		}
		sc.Progress("external_artwork_upsert")
	}
	return nil
}

// RecomputeArtworkStep assigns each track's preferred artwork from its
// own embedded pictures (front cover beats any other embedded image,
// which beats nothing at all), then propagates the first definite
// answer found among a medium's or release's tracks up to the medium
// and release rows themselves.
type RecomputeArtworkStep struct{}

func (RecomputeArtworkStep) Name() string { return "recompute_artwork" }

func (RecomputeArtworkStep) Execute(sc *Context) error {
	session, release, err := sc.Store.Pool().Borrow(sc)
	if err != nil {
		return err
	}
	defer release()

	var lastSeen ids.Id[ids.TrackKind]
	for {
		if sc.Aborted() {
			return nil
		}

		var batch ids.IdRange[ids.TrackKind]
		err := session.ReadTransaction(sc, func(tx *catalog.Tx) error {
			r, err := catalog.FindNextTrackIdRange(tx, lastSeen, 200)
			batch = r
			return err
		})
		if err != nil {
			return err
		}
		if !batch.IsValid() {
			return nil
		}

		if err := recomputeTrackRange(sc, session, batch); err != nil {
			return err
		}
		lastSeen = batch.Last
		sc.Progress("recompute_artwork")
	}
}

func recomputeTrackRange(sc *Context, session *catalog.Session, r ids.IdRange[ids.TrackKind]) error {
	return session.WriteTransaction(sc, func(tx *catalog.Tx) error {
		tracks, err := catalog.FindTracksInIdRange(tx, r)
		if err != nil {
			return err
		}

		touchedMedia := map[ids.Id[ids.MediumKind]]bool{}
		touchedReleases := map[ids.Id[ids.ReleaseKind]]bool{}

		for _, t := range tracks {
			trackArt, mediaArt, err := preferredArtworkForTrack(tx, t.ID)
			if err != nil {
				return err
			}
			if trackArt.IsValid() || mediaArt.IsValid() {
				if err := catalog.UpdateTrackPreferredArtwork(tx, t.ID, trackArt, mediaArt); err != nil {
					return err
				}
			}
			if t.MediumID.IsValid() {
				touchedMedia[t.MediumID] = true
			}
			if t.ReleaseID.IsValid() {
				touchedReleases[t.ReleaseID] = true
			}
		}

		for mediumID := range touchedMedia {
			art, err := preferredArtworkForMedium(tx, mediumID)
			if err != nil {
				return err
			}
			if art.IsValid() {
				if err := catalog.UpdateMediumPreferredArtwork(tx, mediumID, art); err != nil {
					return err
				}
			}
		}

		for releaseID := range touchedReleases {
			art, err := preferredArtworkForRelease(tx, releaseID)
			if err != nil {
				return err
			}
			if art.IsValid() {
				if err := catalog.UpdateReleasePreferredArtwork(tx, releaseID, art); err != nil {
					return err
				}
			}
		}

		return nil
	})
}

// preferredArtworkForTrack returns (preferredArtwork, preferredMediaArtwork):
// front cover beats media-side art beats any other embedded picture,
// beats a standalone cover-art file found in the track's own directory.
func preferredArtworkForTrack(tx *catalog.Tx, trackID ids.Id[ids.TrackKind]) (ids.Id[ids.ArtworkKind], ids.Id[ids.ArtworkKind], error) {
	links, err := catalog.FindTrackEmbeddedImageLinks(tx, trackID)
	if err != nil {
		return ids.Invalid[ids.ArtworkKind](), ids.Invalid[ids.ArtworkKind](), err
	}

	if len(links) == 0 {
		t, err := catalog.FindTrack(tx, trackID)
		if err != nil {
			return ids.Invalid[ids.ArtworkKind](), ids.Invalid[ids.ArtworkKind](), err
		}
		if t != nil && t.DirectoryID.IsValid() {
			a, err := catalog.FindArtworkByDirectory(tx, t.DirectoryID)
			if err != nil {
				return ids.Invalid[ids.ArtworkKind](), ids.Invalid[ids.ArtworkKind](), err
			}
			if a != nil {
				return a.ID, ids.Invalid[ids.ArtworkKind](), nil
			}
		}
	}

	var front, media, other *catalog.TrackEmbeddedImageLink
	for i := range links {
		l := &links[i]
		switch l.Type {
		case catalog.ImageFrontCover:
			if front == nil {
				front = l
			}
		case catalog.ImageMedia:
			if media == nil {
				media = l
			}
		default:
			if other == nil {
				other = l
			}
		}
	}

	best := front
	if best == nil {
		best = media
	}
	if best == nil {
		best = other
	}

	var trackArt, mediaArt ids.Id[ids.ArtworkKind]
	if best != nil {
		a, err := catalog.FindArtworkByEmbeddedImage(tx, best.ImageID)
		if err != nil {
			return ids.Invalid[ids.ArtworkKind](), ids.Invalid[ids.ArtworkKind](), err
		}
		if a != nil {
			trackArt = a.ID
		}
	}
	if media != nil {
		a, err := catalog.FindArtworkByEmbeddedImage(tx, media.ImageID)
		if err != nil {
			return ids.Invalid[ids.ArtworkKind](), ids.Invalid[ids.ArtworkKind](), err
		}
		if a != nil {
			mediaArt = a.ID
		}
	}

	return trackArt, mediaArt, nil
}

func preferredArtworkForMedium(tx *catalog.Tx, mediumID ids.Id[ids.MediumKind]) (ids.Id[ids.ArtworkKind], error) {
	tracks, err := catalog.FindTracksByMedium(tx, mediumID)
	if err != nil {
		return ids.Invalid[ids.ArtworkKind](), err
	}
	for _, t := range tracks {
		if t.PreferredArtwork.IsValid() {
			return t.PreferredArtwork, nil
		}
	}
	return ids.Invalid[ids.ArtworkKind](), nil
}

func preferredArtworkForRelease(tx *catalog.Tx, releaseID ids.Id[ids.ReleaseKind]) (ids.Id[ids.ArtworkKind], error) {
	tracks, err := catalog.FindTracksByRelease(tx, releaseID)
	if err != nil {
		return ids.Invalid[ids.ArtworkKind](), err
	}
	for _, t := range tracks {
		if t.PreferredArtwork.IsValid() {
			return t.PreferredArtwork, nil
		}
	}
	return ids.Invalid[ids.ArtworkKind](), nil
}
