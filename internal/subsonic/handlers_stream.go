package subsonic

import (
	"time"

	"lms/internal/catalog"
	"lms/internal/ids"
	"lms/internal/metadata"
	"lms/internal/streaming"
)

// BinaryHandler answers one of the three binary endpoints
// (/stream, /download, /getCoverArt): unlike Handler it doesn't fill a
// Response tree, it hands back a streaming.ResourceHandler the HTTP
// layer drives directly and writes with raw status codes. A nil handler and nil error both returned means the
// resource doesn't exist: respond 404, not a Subsonic error.
type BinaryHandler func(tx *catalog.Tx, rc *RequestContext) (streaming.ResourceHandler, *APIError)

func clampCoverArtSize(raw int64) int {
	size := int(raw)
	if size < 32 {
		size = 32
	}
	if size > 2048 {
		size = 2048
	}
	return size
}

// handleDownload always serves the original file verbatim; the
// choice-of-path algorithm only governs /stream.
func handleDownload(tx *catalog.Tx, rc *RequestContext) (streaming.ResourceHandler, *APIError) {
	idParam, perr := rc.RequireParam("id")
	if perr != nil {
		return nil, perr.(*APIError)
	}
	trackID, err := ParseTrackID(idParam)
	if err != nil {
		return nil, ErrBadParameter("id")
	}
	t, err := catalog.FindTrack(tx, trackID)
	if err != nil {
		return nil, ErrInternal(err.Error())
	}
	if t == nil {
		return nil, nil
	}
	return streaming.NewFileResourceHandler(t.AbsoluteFilePath, contentTypeFor(fileSuffix(t.AbsoluteFilePath))), nil
}

// handleStreamWith closes over the process-wide Transcoder so the
// stateless Handler/BinaryHandler registration pattern doesn't need a
// dedicated Endpoints method.
func handleStreamWith(transcoder streaming.Transcoder) BinaryHandler {
	return func(tx *catalog.Tx, rc *RequestContext) (streaming.ResourceHandler, *APIError) {
		idParam, perr := rc.RequireParam("id")
		if perr != nil {
			return nil, perr.(*APIError)
		}
		trackID, err := ParseTrackID(idParam)
		if err != nil {
			return nil, ErrBadParameter("id")
		}
		t, err := catalog.FindTrack(tx, trackID)
		if err != nil {
			return nil, ErrInternal(err.Error())
		}
		if t == nil {
			return nil, nil
		}

		format := rc.Param("format")
		maxBitRate, perr := rc.ParamIntDefault("maxBitRate", 0)
		if perr != nil {
			return nil, perr.(*APIError)
		}
		timeOffsetSeconds, perr := rc.ParamIntDefault("timeOffset", 0)
		if perr != nil {
			return nil, perr.(*APIError)
		}
		estimateContentLength := rc.ParamBoolDefault("estimateContentLength", false)

		requester, err := catalog.FindUser(tx, rc.UserID)
		if err != nil {
			return nil, ErrInternal(err.Error())
		}
		var userDefaults streaming.UserDefaults
		if requester != nil {
			userDefaults = streaming.UserDefaults{
				EnableTranscodingByDefault: requester.EnableTranscodingByDefault,
				DefaultOutputFormat:        requester.DefaultOutputFormat,
				DefaultBitrateKbps:         requester.DefaultBitrate,
			}
			if requester.MaximumBitrate > 0 && (maxBitRate == 0 || int64(requester.MaximumBitrate) < maxBitRate) {
				maxBitRate = int64(requester.MaximumBitrate)
			}
		}

		info := streaming.TrackInfo{
			AbsoluteFilePath: t.AbsoluteFilePath,
			Suffix:           fileSuffix(t.AbsoluteFilePath),
			BitrateKbps:      t.Bitrate / 1000,
			DurationSeconds:  t.Duration.Seconds(),
		}
		plan := streaming.Choose(info, format, int(maxBitRate), userDefaults)

		if !plan.Transcode {
			return streaming.NewFileResourceHandler(t.AbsoluteFilePath, contentTypeFor(fileSuffix(t.AbsoluteFilePath))), nil
		}

		in := streaming.InputParameters{
			FilePath: t.AbsoluteFilePath,
			Duration: t.Duration,
			Offset:   time.Duration(timeOffsetSeconds) * time.Second,
		}
		return streaming.NewTranscodingResourceHandler(transcoder, in, plan.Output, estimateContentLength), nil
	}
}

func handleGetCoverArt(tx *catalog.Tx, rc *RequestContext) (streaming.ResourceHandler, *APIError) {
	idParam, perr := rc.RequireParam("id")
	if perr != nil {
		return nil, perr.(*APIError)
	}
	coverArtID, err := ParseCoverArtID(idParam)
	if err != nil {
		return nil, ErrBadParameter("id")
	}
	// size is clamped to [32, 2048] even though this server has no
	// resize step wired yet: the clamp still validates the parameter
	// shape a real client sends.
	if raw := rc.Param("size"); raw != "" {
		n, perr := rc.ParamIntDefault("size", 0)
		if perr != nil {
			return nil, perr.(*APIError)
		}
		_ = clampCoverArtSize(n)
	}

	art, err := catalog.FindArtwork(tx, coverArtID.ArtworkID)
	if err != nil {
		return nil, ErrInternal(err.Error())
	}
	if art == nil {
		return nil, nil
	}

	switch art.Kind {
	case catalog.ArtworkExternalFile:
		return streaming.NewFileResourceHandler(art.AbsoluteFilePath, ""), nil
	case catalog.ArtworkEmbedded:
		return embeddedArtworkHandler(tx, art.EmbeddedImageID)
	default:
		return nil, nil
	}
}

// embeddedArtworkHandler re-reads the picture bytes from whichever
// source file still carries this embedded image: TrackEmbeddedImage
// only stores the probe results computed at scan time, never the
// bytes themselves.
func embeddedArtworkHandler(tx *catalog.Tx, imageID ids.Id[ids.ImageKind]) (streaming.ResourceHandler, *APIError) {
	link, err := catalog.FindTrackEmbeddedImageLinkByImage(tx, imageID)
	if err != nil {
		return nil, ErrInternal(err.Error())
	}
	if link == nil {
		return nil, nil
	}
	t, err := catalog.FindTrack(tx, link.TrackID)
	if err != nil {
		return nil, ErrInternal(err.Error())
	}
	if t == nil {
		return nil, nil
	}
	img, err := catalog.FindTrackEmbeddedImage(tx, imageID)
	if err != nil {
		return nil, ErrInternal(err.Error())
	}
	if img == nil {
		return nil, nil
	}

	var found []byte
	_, parseErr := metadata.ParseFile(t.AbsoluteFilePath, func(pic metadata.Image) error {
		if found == nil && int64(len(pic.Bytes)) == img.Size {
			found = pic.Bytes
		}
		return nil
	})
	if parseErr != nil || found == nil {
		return nil, nil
	}
	return streaming.NewMemoryResourceHandler(found, img.Mime), nil
}
