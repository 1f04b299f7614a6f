package subsonic

import (
	"time"

	"lms/internal/catalog"
	"lms/internal/ids"
)

// renderCtx carries the instant used for every cover art id in one
// response tree, so the cache-busting timestamps agree across it; each
// endpoint handler builds one from time.Now() before rendering.
type renderCtx struct {
	now time.Time
}

func coverArtFor(artworkID ids.Id[ids.ArtworkKind], rc renderCtx) string {
	if !artworkID.IsValid() {
		return ""
	}
	return NewCoverArtID(artworkID, rc.now.Unix()).String()
}

// renderArtist fills n with the shared <artist> attribute set used by
// getIndexes, getArtists and search3.
func renderArtist(n *Node, a *catalog.Artist, releaseCount int, rc renderCtx) {
	n.AttrString("id", ArtistExternalID(a.ID))
	n.AttrString("name", a.DisplayName())
	n.AttrInt("albumCount", int64(releaseCount))
}

func renderRelease(n *Node, r *catalog.Release, trackCount int, duration time.Duration, rc renderCtx) {
	n.AttrString("id", ReleaseExternalID(r.ID))
	n.AttrString("name", r.Name)
	n.AttrStringOpt("artist", r.ArtistDisplayName)
	n.AttrInt("songCount", int64(trackCount))
	n.AttrInt("duration", int64(duration.Seconds()))
	if art := coverArtFor(r.PreferredArtwork, rc); art != "" {
		n.AttrString("coverArt", art)
	}
	if len(r.Labels) > 0 {
		n.AttrString("recordLabel", r.Labels[0])
	}
}

func renderTrack(n *Node, t *catalog.Track, rc renderCtx) {
	n.AttrString("id", TrackExternalID(t.ID))
	n.AttrString("title", t.Name)
	n.AttrBool("isDir", false)
	if t.ReleaseID.IsValid() {
		n.AttrString("parent", ReleaseExternalID(t.ReleaseID))
		n.AttrString("albumId", ReleaseExternalID(t.ReleaseID))
	}
	n.AttrStringOpt("artist", t.ArtistDisplayName)
	if t.TrackNumber > 0 {
		n.AttrInt("track", int64(t.TrackNumber))
	}
	if t.DiscNumber > 0 {
		n.AttrInt("discNumber", int64(t.DiscNumber))
	}
	if y, ok := t.Date.Year(); ok {
		n.AttrInt("year", int64(y))
	}
	n.AttrInt("duration", int64(t.Duration.Seconds()))
	n.AttrInt("bitRate", int64(t.Bitrate/1000))
	n.AttrInt("size", t.FileSize)
	n.AttrString("suffix", fileSuffix(t.AbsoluteFilePath))
	n.AttrString("contentType", contentTypeFor(fileSuffix(t.AbsoluteFilePath)))
	if art := coverArtFor(t.PreferredArtwork, rc); art != "" {
		n.AttrString("coverArt", art)
	}
	n.AttrString("type", "music")
	switch t.Advisory {
	case catalog.AdvisoryExplicit:
		n.AttrString("explicitStatus", "explicit")
	case catalog.AdvisoryClean:
		n.AttrString("explicitStatus", "clean")
	}
}

func fileSuffix(path string) string {
	for i := len(path) - 1; i >= 0 && i > len(path)-8; i-- {
		if path[i] == '.' {
			return path[i+1:]
		}
		if path[i] == '/' {
			break
		}
	}
	return ""
}

func contentTypeFor(suffix string) string {
	switch suffix {
	case "mp3":
		return "audio/mpeg"
	case "flac":
		return "audio/flac"
	case "ogg", "oga":
		return "audio/ogg"
	case "opus":
		return "audio/opus"
	case "m4a", "aac":
		return "audio/mp4"
	case "wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}
