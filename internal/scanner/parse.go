package scanner

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"lms/internal/catalog"
	"lms/internal/ids"
	"lms/internal/images"
	"lms/internal/lyrics"
	"lms/internal/metadata"
	"lms/internal/partialdate"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// sidecarLyricsExtensions lists the external lyrics file extensions
// findSidecarLyrics looks for next to an audio file sharing its stem.
var sidecarLyricsExtensions = []string{".lrc", ".txt"}

// ParseUpsertStep consumes Context.Discovered through a fixed-size
// worker pool, one write transaction per file, implementing the
// move-detection / duplicate-MBID-skip / artist-release resolution /
// image-dedup / cluster-materialization / lyrics / date rules.
type ParseUpsertStep struct{}

func (ParseUpsertStep) Name() string { return "parse_upsert" }

func (ParseUpsertStep) Execute(sc *Context) error {
	workers := sc.Config.ScannerWorkerCount
	if workers <= 0 {
		workers = 1
	}

	files := make(chan FileToScan)
	var wg sync.WaitGroup

	lastProgress := time.Now()
	var progressMu sync.Mutex
	maybeProgress := func() {
		progressMu.Lock()
		defer progressMu.Unlock()
		if time.Since(lastProgress) >= time.Second {
			lastProgress = time.Now()
			sc.Progress("parse_upsert")
		}
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			session, release, err := sc.Store.Pool().Borrow(sc)
			if err != nil {
				sc.Log.Er("could not borrow session for worker", err)
				return
			}
			defer release()

			for f := range files {
				if sc.Aborted() {
					continue
				}
				processFile(sc, session, f)
				sc.IncFilesScanned(1)
				maybeProgress()
			}
		}()
	}

	for _, f := range sc.Discovered {
		if sc.Aborted() {
			break
		}
		files <- f
	}
	close(files)
	wg.Wait()

	return nil
}

func processFile(sc *Context, session *catalog.Session, f FileToScan) {
	var settings catalog.ScanSettings
	_ = session.ReadTransaction(sc, func(tx *catalog.Tx) error {
		s, err := catalog.GetScanSettings(tx)
		if err != nil {
			return err
		}
		settings = *s
		return nil
	})

	var existing *catalog.Track
	_ = session.ReadTransaction(sc, func(tx *catalog.Tx) error {
		t, err := catalog.FindTrackByPath(tx, f.Path)
		if err != nil {
			return err
		}
		existing = t
		return nil
	})

	if !sc.Force && existing != nil &&
		existing.ScanVersion == settings.ScanVersion &&
		existing.LastWriteTime.Equal(f.LastWriteTime) {
		return
	}

	parsed, err := metadata.ParseFile(f.Path, func(img metadata.Image) error {
		return nil // images are collected below via a second pass into a slice
	})
	if err != nil {
		handleParseError(sc, session, f, existing, err)
		return
	}

	// Re-parse collecting images into a slice for the write transaction
	// below: ParseFile's callback hands over one picture at a time. A
	// second call is cheap relative to the transaction cost and keeps
	// ParseFile's signature pure (no image accumulation parameter).
	var pictures []metadata.Image
	_, _ = metadata.ParseFile(f.Path, func(img metadata.Image) error {
		pictures = append(pictures, img)
		return nil
	})

	err = session.WriteTransaction(sc, func(tx *catalog.Tx) error {
		return upsertTrack(tx, sc, f, parsed, pictures, existing, settings)
	})
	if err != nil {
		sc.RecordError(ScanError{Kind: AudioFileScanError, Path: f.Path, Cause: err})
		return
	}

	if existing == nil {
		sc.IncAdded(1)
	} else {
		sc.IncUpdated(1)
	}
}

func handleParseError(sc *Context, session *catalog.Session, f FileToScan, existing *catalog.Track, err error) {
	var kind ErrorKind
	if me, ok := err.(*metadata.Error); ok {
		switch me.Kind {
		case metadata.NoAudioTrackFound:
			kind = NoAudioTrackFound
		case metadata.IOScanError:
			kind = IOScanError
		case metadata.BadAudioDuration:
			kind = BadAudioDurationError
		default:
			kind = AudioFileScanError
		}
	} else {
		kind = AudioFileScanError
	}

	sc.RecordError(ScanError{Kind: kind, Path: f.Path, Cause: err})

	if (kind == NoAudioTrackFound || kind == BadAudioDurationError) && existing != nil {
		_ = session.WriteTransaction(sc, func(tx *catalog.Tx) error {
			return catalog.DeleteTrack(tx, existing.ID)
		})
		sc.IncRemoved(1)
	}
}

func upsertTrack(tx *catalog.Tx, sc *Context, f FileToScan, parsed *metadata.Track, pictures []metadata.Image, existing *catalog.Track, settings catalog.ScanSettings) error {
	// c. Move detection: same MBID, exactly one other track, old path gone.
	if existing == nil && parsed.RecordingMBID != "" {
		if other, err := catalog.FindTrackByMBID(tx, parsed.RecordingMBID); err == nil && other != nil {
			if _, statErr := os.Stat(other.AbsoluteFilePath); os.IsNotExist(statErr) {
				existing = other
			}
		}
	}

	// d. Skip duplicate MBID.
	if settings.SkipDuplicateTrackMBID && existing == nil && parsed.RecordingMBID != "" {
		count, err := catalog.CountTracksByMBIDUnderLibraries(tx, parsed.RecordingMBID, []ids.Id[ids.MediaLibraryKind]{f.Library})
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
	}

	resolveArtistMBIDFallback(parsed)

	artistID, err := resolveArtist(tx, parsed.Artists, settings.AllowArtistMBIDFallback)
	if err != nil {
		return err
	}

	releaseID, mediumID, err := resolveReleaseAndMedium(tx, f, parsed)
	if err != nil {
		return err
	}

	date := parsed.Date
	if !date.IsValid() && parsed.OriginalDate.IsValid() {
		date = parsed.OriginalDate // i. Dates: copy original to date when date is absent.
	}

	addedTime := f.LastWriteTime
	if !f.LibraryFirstScan {
		addedTime = time.Now()
	}
	if parsed.EncodingTime.Precision() >= partialdate.Day {
		addedTime = toTime(parsed.EncodingTime)
	}

	track := catalog.Track{
		AbsoluteFilePath:  f.Path,
		FileSize:          fileSize(f.Path),
		LastWriteTime:     f.LastWriteTime,
		AddedTime:         addedTime,
		ScanVersion:       settings.ScanVersion,
		Duration:          secondsToDuration(parsed.Audio.Duration),
		Bitrate:           parsed.Audio.Bitrate,
		SampleRate:        parsed.Audio.SampleRate,
		BitsPerSample:     parsed.Audio.BitsPerSample,
		Channels:          parsed.Audio.ChannelCount,
		Name:              parsed.Title,
		TrackNumber:       parsed.TrackNumber,
		DiscNumber:        parsed.DiscNumber,
		Date:              date,
		OriginalDate:      parsed.OriginalDate,
		TrackMBID:         parsed.MBID,
		RecordingMBID:     parsed.RecordingMBID,
		Copyright:         parsed.Copyright,
		CopyrightURL:      parsed.CopyrightURL,
		Advisory:          catalog.Advisory(parsed.Advisory),
		Comment:           parsed.Comment,
		ArtistDisplayName: parsed.ArtistDisplayName,
		ReleaseID:         releaseID,
		MediumID:          mediumID,
		DirectoryID:       f.Directory,
		MediaLibraryID:    f.Library,
	}
	if parsed.ReplayGain != nil {
		track.TrackReplayGain = parseDecimal(*parsed.ReplayGain)
	}

	if existing != nil {
		track.ID = existing.ID
		if err := catalog.UpdateTrack(tx, &track); err != nil {
			return err
		}
	} else {
		if err := catalog.CreateTrack(tx, &track); err != nil {
			return err
		}
	}

	if err := relinkArtists(tx, track.ID, artistID, parsed, settings.AllowArtistMBIDFallback); err != nil {
		return err
	}
	if err := relinkClusters(tx, track.ID, parsed); err != nil {
		return err
	}
	if err := relinkImages(tx, sc, track.ID, pictures); err != nil {
		return err
	}
	if err := relinkLyrics(tx, track.ID, parsed.Lyrics); err != nil {
		return err
	}
	if err := relinkExternalLyrics(tx, track.ID, f.Path); err != nil {
		return err
	}

	return nil
}

func resolveArtistMBIDFallback(parsed *metadata.Track) {
	nameToMBID := map[string]string{}
	for _, a := range parsed.Artists {
		if a.MBID != "" {
			nameToMBID[a.Name] = a.MBID
		}
	}
	for _, a := range parsed.Release.Artists {
		if a.MBID != "" {
			nameToMBID[a.Name] = a.MBID
		}
	}
	fill := func(refs []metadata.ArtistRef) {
		for i, a := range refs {
			if a.MBID == "" {
				if mbid, ok := nameToMBID[a.Name]; ok {
					refs[i].MBID = mbid
				}
			}
		}
	}
	fill(parsed.ConductorArtists)
	fill(parsed.ComposerArtists)
	fill(parsed.LyricistArtists)
	fill(parsed.MixerArtists)
	fill(parsed.ProducerArtists)
	fill(parsed.RemixerArtists)
	for role := range parsed.PerformerArtists {
		fill(parsed.PerformerArtists[role])
	}
}

// resolveArtist applies the main-artist identity preference order:
// MBID match, then exact-name match if fallback is allowed, else
// create. It returns the resolved artist id, or the invalid id when
// refs is empty.
func resolveArtist(tx *catalog.Tx, refs []metadata.ArtistRef, allowNameFallback bool) (ids.Id[ids.ArtistKind], error) {
	if len(refs) == 0 {
		return ids.Invalid[ids.ArtistKind](), nil
	}
	a, err := findOrCreateArtist(tx, refs[0], allowNameFallback)
	if err != nil {
		return ids.Invalid[ids.ArtistKind](), err
	}
	return a.ID, nil
}

func findOrCreateArtist(tx *catalog.Tx, ref metadata.ArtistRef, allowNameFallback bool) (*catalog.Artist, error) {
	if ref.MBID != "" {
		if a, err := catalog.FindArtistByMBID(tx, ref.MBID); err == nil && a != nil {
			return a, nil
		} else if err != nil {
			return nil, err
		}
	}
	if allowNameFallback {
		if a, err := catalog.FindArtistByName(tx, ref.Name); err == nil && a != nil {
			if ref.MBID != "" && a.MBID == "" {
				_ = catalog.UpdateArtistMBID(tx, a.ID, ref.MBID)
				a.MBID = ref.MBID
			}
			return a, nil
		} else if err != nil {
			return nil, err
		}
	}
	return catalog.CreateArtist(tx, ref.Name, ref.SortName, ref.MBID)
}

func relinkArtists(tx *catalog.Tx, trackID ids.Id[ids.TrackKind], mainArtistID ids.Id[ids.ArtistKind], parsed *metadata.Track, allowNameFallback bool) error {
	if err := catalog.DeleteTrackArtistLinks(tx, trackID); err != nil {
		return err
	}

	link := func(role catalog.LinkRole, refs []metadata.ArtistRef) error {
		for _, ref := range refs {
			a, err := findOrCreateArtist(tx, ref, allowNameFallback)
			if err != nil {
				return err
			}
			l := catalog.TrackArtistLink{
				TrackID: trackID, ArtistID: a.ID, Role: role,
				MatchedByMBID:  ref.MBID != "" && a.MBID == ref.MBID,
				ArtistName:     a.Name,
				ArtistSortName: a.SortName,
			}
			if err := catalog.CreateTrackArtistLink(tx, &l); err != nil {
				return err
			}
		}
		return nil
	}

	if mainArtistID.IsValid() && len(parsed.Artists) > 0 {
		if err := link(catalog.RoleArtist, parsed.Artists[:1]); err != nil {
			return err
		}
	}
	if err := link(catalog.RoleConductor, parsed.ConductorArtists); err != nil {
		return err
	}
	if err := link(catalog.RoleComposer, parsed.ComposerArtists); err != nil {
		return err
	}
	if err := link(catalog.RoleLyricist, parsed.LyricistArtists); err != nil {
		return err
	}
	if err := link(catalog.RoleMixer, parsed.MixerArtists); err != nil {
		return err
	}
	if err := link(catalog.RoleProducer, parsed.ProducerArtists); err != nil {
		return err
	}
	if err := link(catalog.RoleRemixer, parsed.RemixerArtists); err != nil {
		return err
	}
	for _, refs := range parsed.PerformerArtists {
		if err := link(catalog.RolePerformer, refs); err != nil {
			return err
		}
	}
	return nil
}

// resolveReleaseAndMedium applies the release identity preference
// order (MBID, then a same-directory match, else create) and finds or
// creates the owning Medium row. Releases whose tracks sit only in the
// parent directory are not considered, so the discs of an untagged
// multi-disc set kept in separate subdirectories become separate
// releases.
func resolveReleaseAndMedium(tx *catalog.Tx, f FileToScan, parsed *metadata.Track) (ids.Id[ids.ReleaseKind], ids.Id[ids.MediumKind], error) {
	if parsed.Release.Name == "" {
		return ids.Invalid[ids.ReleaseKind](), ids.Invalid[ids.MediumKind](), nil
	}

	var release *catalog.Release
	if parsed.Release.MBID != "" {
		r, err := catalog.FindReleaseByMBID(tx, parsed.Release.MBID)
		if err != nil {
			return ids.Invalid[ids.ReleaseKind](), ids.Invalid[ids.MediumKind](), err
		}
		release = r
	}

	if release == nil {
		candidates, err := catalog.FindReleaseCandidatesInDirectory(tx, f.Directory, parsed.Release.Name)
		if err != nil {
			return ids.Invalid[ids.ReleaseKind](), ids.Invalid[ids.MediumKind](), err
		}
		for i := range candidates {
			c := &candidates[i]
			if c.SortName == firstNonEmpty(parsed.Release.SortName, parsed.Release.Name) &&
				c.TotalMediumCount == parsed.Release.MediumCount &&
				c.IsCompilation == parsed.Release.IsCompilation &&
				slices.Equal(c.Labels, catalog.CommaList(parsed.Release.Labels)) &&
				c.Barcode == parsed.Release.Barcode {
				release = c
				break
			}
		}
	}

	if release == nil {
		release = &catalog.Release{
			Name:              parsed.Release.Name,
			SortName:          firstNonEmpty(parsed.Release.SortName, parsed.Release.Name),
			MBID:              parsed.Release.MBID,
			ReleaseGroupMBID:  parsed.Release.GroupMBID,
			TotalMediumCount:  parsed.Release.MediumCount,
			IsCompilation:     parsed.Release.IsCompilation,
			Barcode:           parsed.Release.Barcode,
			Comment:           parsed.Release.Comment,
			ArtistDisplayName: parsed.Release.ArtistDisplayName,
			Labels:            catalog.CommaList(parsed.Release.Labels),
			Countries:         catalog.CommaList(parsed.Release.Countries),
			ReleaseTypes:      catalog.CommaList(parsed.Release.ReleaseTypes),
		}
		if err := catalog.CreateRelease(tx, release); err != nil {
			return ids.Invalid[ids.ReleaseKind](), ids.Invalid[ids.MediumKind](), err
		}
	}

	medium, err := catalog.FindMediumByReleaseAndPosition(tx, release.ID, parsed.DiscNumber, parsed.DiscNumber > 0)
	if err != nil {
		return ids.Invalid[ids.ReleaseKind](), ids.Invalid[ids.MediumKind](), err
	}
	if medium == nil {
		medium = &catalog.Medium{
			ReleaseID:     release.ID,
			Position:      parsed.DiscNumber,
			HasPosition:   parsed.DiscNumber > 0,
			TrackCount:    parsed.Medium.TrackCount,
			HasTrackCount: parsed.Medium.HasTrackCount,
			Media:         parsed.Medium.Name,
		}
		if parsed.Medium.ReplayGain != nil {
			medium.ReplayGain = parseDecimal(*parsed.Medium.ReplayGain)
		}
		if err := catalog.CreateMedium(tx, medium); err != nil {
			return ids.Invalid[ids.ReleaseKind](), ids.Invalid[ids.MediumKind](), err
		}
	}

	return release.ID, medium.ID, nil
}

// relinkClusters materializes genres/moods/languages/groupings and
// every userExtraTags (tag, values) pair into ClusterType+Cluster rows
// and links them to the track.
func relinkClusters(tx *catalog.Tx, trackID ids.Id[ids.TrackKind], parsed *metadata.Track) error {
	if err := catalog.DeleteTrackClusterLinks(tx, trackID); err != nil {
		return err
	}

	link := func(typeName string, values []string) error {
		if len(values) == 0 {
			return nil
		}
		ct, err := catalog.FindOrCreateClusterType(tx, typeName)
		if err != nil {
			return err
		}
		for _, v := range values {
			if v == "" {
				continue
			}
			c, err := catalog.FindOrCreateCluster(tx, ct.ID, v)
			if err != nil {
				return err
			}
			if err := catalog.CreateTrackClusterLink(tx, trackID, c.ID); err != nil {
				return err
			}
		}
		return nil
	}

	if err := link("GENRE", parsed.Genres); err != nil {
		return err
	}
	if err := link("MOOD", parsed.Moods); err != nil {
		return err
	}
	if err := link("LANGUAGE", parsed.Languages); err != nil {
		return err
	}
	if err := link("GROUPING", parsed.Groupings); err != nil {
		return err
	}
	for tag, values := range parsed.UserExtraTags {
		if err := link(strings.ToUpper(tag), values); err != nil {
			return err
		}
	}
	return nil
}

// relinkImages implements image deduplication by (size, hash): probe
// dimensions, compute the 64-bit hash, look up TrackEmbeddedImage by
// (size, hash), create if absent along with its unifying Artwork, then
// link it to this track with its per-track index.
func relinkImages(tx *catalog.Tx, sc *Context, trackID ids.Id[ids.TrackKind], pictures []metadata.Image) error {
	if err := catalog.DeleteTrackEmbeddedImageLinks(tx, trackID); err != nil {
		return err
	}

	for i, pic := range pictures {
		dims, err := images.Probe(pic.Bytes)
		if err != nil {
			sc.RecordError(ScanError{Kind: EmbeddedImageScanError, Index: i, Cause: err})
			continue
		}
		hash := images.Hash(pic.Bytes)
		mime := pic.Mime
		if mime == "" {
			mime = images.DetectMime(pic.Bytes)
		}

		img, err := catalog.FindOrCreateTrackEmbeddedImage(tx, int64(len(pic.Bytes)), hashString(hash), dims.Width, dims.Height, mime)
		if err != nil {
			return err
		}
		if _, err := catalog.FindArtworkForEmbeddedImageOrCreate(tx, img.ID); err != nil {
			return err
		}

		link := catalog.TrackEmbeddedImageLink{
			TrackID:     trackID,
			ImageID:     img.ID,
			Index:       i,
			Type:        catalog.ImageType(pic.Type),
			Description: pic.Description,
		}
		if err := catalog.CreateTrackEmbeddedImageLink(tx, &link); err != nil {
			return err
		}
	}
	return nil
}

func relinkLyrics(tx *catalog.Tx, trackID ids.Id[ids.TrackKind], parsedLyrics []metadata.Lyrics) error {
	if err := catalog.DeleteTrackLyricsForTrack(tx, trackID); err != nil {
		return err
	}
	for _, l := range parsedLyrics {
		body := catalog.LyricsBody{
			Language:      l.Language,
			DisplayArtist: l.DisplayArtist,
			DisplayTitle:  l.DisplayTitle,
			Synchronized:  l.Synchronized,
		}
		for _, line := range l.Lines {
			body.Lines = append(body.Lines, catalog.LyricsLine{
				Timestamp: time.Duration(line.TimestampMs) * time.Millisecond,
				Line:      line.Line,
			})
		}
		row := catalog.TrackLyrics{TrackID: trackID, External: false, Body: datatypes.NewJSONType(body)}
		if err := catalog.CreateTrackLyrics(tx, &row); err != nil {
			return err
		}
	}
	return nil
}

// findSidecarLyrics returns the path of an external lyrics file sharing
// audioPath's stem, or "" if none exists.
func findSidecarLyrics(audioPath string) string {
	stem := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	for _, ext := range sidecarLyricsExtensions {
		candidate := stem + ext
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// relinkExternalLyrics reads and parses a sidecar lyrics file if one is
// present. relinkLyrics must run first since it clears every lyrics row
// (embedded and external) for the track.
func relinkExternalLyrics(tx *catalog.Tx, trackID ids.Id[ids.TrackKind], audioPath string) error {
	path := findSidecarLyrics(audioPath)
	if path == "" {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}

	parsed := lyrics.Parse(string(raw))
	body := catalog.LyricsBody{
		Language:      parsed.Language,
		Offset:        time.Duration(parsed.Offset) * time.Millisecond,
		DisplayArtist: parsed.DisplayArtist,
		DisplayTitle:  parsed.DisplayTitle,
		Synchronized:  parsed.Synchronized,
	}
	for _, line := range parsed.Lines {
		body.Lines = append(body.Lines, catalog.LyricsLine{
			Timestamp: time.Duration(line.TimestampMs) * time.Millisecond,
			Line:      line.Text,
		})
	}

	row := catalog.TrackLyrics{
		TrackID:          trackID,
		External:         true,
		AbsoluteFilePath: path,
		Stem:             strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		LastWriteTime:    info.ModTime(),
		FileSize:         info.Size(),
		Body:             datatypes.NewJSONType(body),
	}
	return catalog.CreateTrackLyrics(tx, &row)
}

func parseDecimal(s string) *decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &d
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func hashString(h uint64) string {
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = hexDigits[h&0xf]
		h >>= 4
	}
	return string(buf)
}

func toTime(p partialdate.PartialDateTime) time.Time {
	year, _ := p.Year()
	month, ok := p.Month()
	if !ok {
		month = 1
	}
	day, ok := p.Day()
	if !ok {
		day = 1
	}
	hour, _ := p.Hour()
	minute, _ := p.Minute()
	sec, _ := p.Second()
	return time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.UTC)
}
