package subsonic

import (
	"encoding/json"
	"time"

	"lms/internal/catalog"
	"lms/internal/ids"
)

func handleStar(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	for _, raw := range rc.ParamList("id") {
		switch {
		case hasPrefix(raw, prefixArtist+"-"):
			id, err := ParseArtistID(raw)
			if err != nil {
				return ErrBadParameter("id")
			}
			if err := catalog.StarArtist(tx, rc.UserID, id); err != nil {
				return ErrInternal(err.Error())
			}
		case hasPrefix(raw, prefixRelease+"-"):
			id, err := ParseReleaseID(raw)
			if err != nil {
				return ErrBadParameter("id")
			}
			if err := catalog.StarRelease(tx, rc.UserID, id); err != nil {
				return ErrInternal(err.Error())
			}
		default:
			id, err := ParseTrackID(raw)
			if err != nil {
				return ErrBadParameter("id")
			}
			if err := catalog.StarTrack(tx, rc.UserID, id); err != nil {
				return ErrInternal(err.Error())
			}
		}
	}
	for _, raw := range rc.ParamList("albumId") {
		id, err := ParseReleaseID(raw)
		if err != nil {
			return ErrBadParameter("albumId")
		}
		if err := catalog.StarRelease(tx, rc.UserID, id); err != nil {
			return ErrInternal(err.Error())
		}
	}
	for _, raw := range rc.ParamList("artistId") {
		id, err := ParseArtistID(raw)
		if err != nil {
			return ErrBadParameter("artistId")
		}
		if err := catalog.StarArtist(tx, rc.UserID, id); err != nil {
			return ErrInternal(err.Error())
		}
	}
	return nil
}

func handleUnstar(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	for _, raw := range rc.ParamList("id") {
		switch {
		case hasPrefix(raw, prefixArtist+"-"):
			id, err := ParseArtistID(raw)
			if err != nil {
				return ErrBadParameter("id")
			}
			if err := catalog.UnstarArtist(tx, rc.UserID, id); err != nil {
				return ErrInternal(err.Error())
			}
		case hasPrefix(raw, prefixRelease+"-"):
			id, err := ParseReleaseID(raw)
			if err != nil {
				return ErrBadParameter("id")
			}
			if err := catalog.UnstarRelease(tx, rc.UserID, id); err != nil {
				return ErrInternal(err.Error())
			}
		default:
			id, err := ParseTrackID(raw)
			if err != nil {
				return ErrBadParameter("id")
			}
			if err := catalog.UnstarTrack(tx, rc.UserID, id); err != nil {
				return ErrInternal(err.Error())
			}
		}
	}
	for _, raw := range rc.ParamList("albumId") {
		id, err := ParseReleaseID(raw)
		if err != nil {
			return ErrBadParameter("albumId")
		}
		if err := catalog.UnstarRelease(tx, rc.UserID, id); err != nil {
			return ErrInternal(err.Error())
		}
	}
	for _, raw := range rc.ParamList("artistId") {
		id, err := ParseArtistID(raw)
		if err != nil {
			return ErrBadParameter("artistId")
		}
		if err := catalog.UnstarArtist(tx, rc.UserID, id); err != nil {
			return ErrInternal(err.Error())
		}
	}
	return nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func handleGetLyrics(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	artist := rc.Param("artist")
	title := rc.Param("title")
	lyricsNode := resp.Root.Child("lyrics")

	var found *catalog.Track
	err := catalog.FindTracks(tx, catalog.TrackFindParameters{Name: &title}, func(t *catalog.Track) error {
		if found != nil {
			return nil
		}
		if artist == "" || t.ArtistDisplayName == artist {
			found = t
		}
		return nil
	})
	if err != nil {
		return ErrInternal(err.Error())
	}
	if found == nil {
		return nil
	}
	return renderLyrics(tx, found.ID, lyricsNode)
}

func handleGetLyricsBySongId(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	raw, perr := rc.RequireParam("id")
	if perr != nil {
		return perr.(*APIError)
	}
	trackID, err := ParseTrackID(raw)
	if err != nil {
		return ErrBadParameter("id")
	}
	list := resp.Root.Child("lyricsList")
	return renderLyricsList(tx, trackID, list)
}

// renderLyrics fills the legacy getLyrics response: a single <lyrics>
// element whose text body is the unsynchronized lyric text, one line
// per newline.
func renderLyrics(tx *catalog.Tx, trackID ids.Id[ids.TrackKind], node *Node) *APIError {
	rows, err := catalog.FindTrackLyricsByTrack(tx, trackID)
	if err != nil {
		return ErrInternal(err.Error())
	}
	if len(rows) == 0 {
		return nil
	}
	body := rows[0].Body.Data()
	node.AttrStringOpt("artist", body.DisplayArtist)
	node.AttrStringOpt("title", body.DisplayTitle)
	text := ""
	for i, line := range body.Lines {
		if i > 0 {
			text += "\n"
		}
		text += line.Line
	}
	node.SetValue(StringValue(text))
	return nil
}

// renderLyricsList fills the OpenSubsonic getLyricsBySongId response:
// every lyrics row attached to the track, synchronized or not, as a
// <structuredLyrics> entry.
func renderLyricsList(tx *catalog.Tx, trackID ids.Id[ids.TrackKind], list *Node) *APIError {
	rows, err := catalog.FindTrackLyricsByTrack(tx, trackID)
	if err != nil {
		return ErrInternal(err.Error())
	}
	for _, row := range rows {
		body := row.Body.Data()
		n := list.AddArrayItem("structuredLyrics")
		n.AttrBool("synced", body.Synchronized)
		n.AttrStringOpt("lang", body.Language)
		n.AttrStringOpt("displayArtist", body.DisplayArtist)
		n.AttrStringOpt("displayTitle", body.DisplayTitle)
		n.AttrInt("offset", body.Offset.Milliseconds())
		for _, line := range body.Lines {
			ln := n.AddArrayItem("line")
			ln.AttrInt("start", line.Timestamp.Milliseconds())
			ln.SetValue(StringValue(line.Line))
		}
	}
	return nil
}

func decodeTrackIDList(raw string) ([]ids.Id[ids.TrackKind], error) {
	if raw == "" {
		return nil, nil
	}
	var vals []uint64
	if err := json.Unmarshal([]byte(raw), &vals); err != nil {
		return nil, err
	}
	out := make([]ids.Id[ids.TrackKind], len(vals))
	for i, v := range vals {
		out[i] = ids.New[ids.TrackKind](v)
	}
	return out, nil
}

func decodeTrackIDListFromParams(raw []string) ([]ids.Id[ids.TrackKind], error) {
	out := make([]ids.Id[ids.TrackKind], len(raw))
	for i, s := range raw {
		id, err := ParseTrackID(s)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

func encodeTrackIDList(list []ids.Id[ids.TrackKind]) (string, error) {
	vals := make([]uint64, len(list))
	for i, id := range list {
		vals[i] = id.Raw()
	}
	raw, err := json.Marshal(vals)
	return string(raw), err
}
func handleGetPlaylists(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	lists, err := catalog.FindTrackLists(tx, rc.UserID, catalog.TrackListPlaylist)
	if err != nil {
		return ErrInternal(err.Error())
	}
	root := resp.Root.Child("playlists")
	for _, l := range lists {
		n := root.AddArrayItem("playlist")
		renderPlaylistAttrs(tx, n, &l)
	}
	return nil
}

func renderPlaylistAttrs(tx *catalog.Tx, n *Node, l *catalog.TrackList) {
	n.AttrString("id", TrackListExternalID(l.ID))
	n.AttrString("name", l.Name)
	n.AttrBool("public", l.Visibility == catalog.VisibilityPublic)
	entries, _ := catalog.FindTrackListEntries(tx, l.ID)
	n.AttrInt("songCount", int64(len(entries)))
	var total time.Duration
	for _, e := range entries {
		if t, _ := catalog.FindTrack(tx, e.TrackID); t != nil {
			total += t.Duration
		}
	}
	n.AttrInt("duration", int64(total.Seconds()))
	n.AttrString("changed", l.LastModified.Format(time.RFC3339))
}

func handleGetPlaylist(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	raw, perr := rc.RequireParam("id")
	if perr != nil {
		return perr.(*APIError)
	}
	listID, err := ParseTrackListID(raw)
	if err != nil {
		return ErrBadParameter("id")
	}
	l, err := catalog.FindTrackList(tx, listID)
	if err != nil {
		return ErrInternal(err.Error())
	}
	if l == nil {
		return ErrDataNotFound()
	}
	n := resp.Root.Child("playlist")
	renderPlaylistAttrs(tx, n, l)

	entries, err := catalog.FindTrackListEntries(tx, listID)
	if err != nil {
		return ErrInternal(err.Error())
	}
	render := renderCtx{now: time.Now()}
	for _, e := range entries {
		t, err := catalog.FindTrack(tx, e.TrackID)
		if err != nil {
			return ErrInternal(err.Error())
		}
		if t != nil {
			renderTrack(n.AddArrayItem("entry"), t, render)
		}
	}
	return nil
}

func handleCreatePlaylist(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	name, perr := rc.RequireParam("name")
	if perr != nil {
		return perr.(*APIError)
	}
	l := &catalog.TrackList{Type: catalog.TrackListPlaylist, Visibility: catalog.VisibilityPrivate, OwnerUserID: rc.UserID, Name: name}
	if err := catalog.CreateTrackList(tx, l); err != nil {
		return ErrInternal(err.Error())
	}
	for _, raw := range rc.ParamList("songId") {
		trackID, err := ParseTrackID(raw)
		if err != nil {
			return ErrBadParameter("songId")
		}
		if err := catalog.AppendTrackListEntry(tx, l.ID, trackID); err != nil {
			return ErrInternal(err.Error())
		}
	}
	n := resp.Root.Child("playlist")
	renderPlaylistAttrs(tx, n, l)
	return nil
}

func handleUpdatePlaylist(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	raw, perr := rc.RequireParam("playlistId")
	if perr != nil {
		return perr.(*APIError)
	}
	listID, err := ParseTrackListID(raw)
	if err != nil {
		return ErrBadParameter("playlistId")
	}
	l, err := catalog.FindTrackList(tx, listID)
	if err != nil {
		return ErrInternal(err.Error())
	}
	if l == nil {
		return ErrDataNotFound()
	}
	if l.OwnerUserID != rc.UserID {
		return ErrUserNotAuthorized()
	}
	if name := rc.Param("name"); name != "" {
		l.Name = name
	}
	if pub := rc.Param("public"); pub != "" {
		if rc.ParamBoolDefault("public", false) {
			l.Visibility = catalog.VisibilityPublic
		} else {
			l.Visibility = catalog.VisibilityPrivate
		}
	}
	if err := catalog.SaveTrackList(tx, l); err != nil {
		return ErrInternal(err.Error())
	}
	for _, raw := range rc.ParamList("songIdToAdd") {
		trackID, err := ParseTrackID(raw)
		if err != nil {
			return ErrBadParameter("songIdToAdd")
		}
		if err := catalog.AppendTrackListEntry(tx, listID, trackID); err != nil {
			return ErrInternal(err.Error())
		}
	}
	var removeAt []int
	for _, raw := range rc.ParamList("songIndexToRemove") {
		idx, err := parseIntParam(raw)
		if err != nil {
			return ErrBadParameter("songIndexToRemove")
		}
		removeAt = append(removeAt, idx)
	}
	if len(removeAt) > 0 {
		if err := catalog.DeleteTrackListEntriesAt(tx, listID, removeAt); err != nil {
			return ErrInternal(err.Error())
		}
	}
	return nil
}

func parseIntParam(s string) (int, error) {
	n := 0
	neg := false
	for i, c := range s {
		if i == 0 && c == '-' {
			neg = true
			continue
		}
		if c < '0' || c > '9' {
			return 0, ErrBadParameter(s)
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}

func handleDeletePlaylist(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	raw, perr := rc.RequireParam("id")
	if perr != nil {
		return perr.(*APIError)
	}
	listID, err := ParseTrackListID(raw)
	if err != nil {
		return ErrBadParameter("id")
	}
	l, err := catalog.FindTrackList(tx, listID)
	if err != nil {
		return ErrInternal(err.Error())
	}
	if l == nil {
		return ErrDataNotFound()
	}
	if l.OwnerUserID != rc.UserID {
		return ErrUserNotAuthorized()
	}
	if err := catalog.DeleteTrackList(tx, listID); err != nil {
		return ErrInternal(err.Error())
	}
	return nil
}

func handleGetBookmarks(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	bookmarks, err := catalog.FindBookmarks(tx, rc.UserID)
	if err != nil {
		return ErrInternal(err.Error())
	}
	root := resp.Root.Child("bookmarks")
	render := renderCtx{now: time.Now()}
	for _, b := range bookmarks {
		t, err := catalog.FindTrack(tx, b.TrackID)
		if err != nil {
			return ErrInternal(err.Error())
		}
		if t == nil {
			continue
		}
		n := root.AddArrayItem("bookmark")
		n.AttrInt("position", b.Position.Milliseconds())
		n.AttrString("comment", b.Comment)
		n.AttrString("changed", b.Changed.Format(time.RFC3339))
		renderTrack(n.Child("entry"), t, render)
	}
	return nil
}

func handleCreateBookmark(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	raw, perr := rc.RequireParam("id")
	if perr != nil {
		return perr.(*APIError)
	}
	trackID, err := ParseTrackID(raw)
	if err != nil {
		return ErrBadParameter("id")
	}
	posMs, perr := rc.ParamIntDefault("position", 0)
	if perr != nil {
		return perr.(*APIError)
	}
	b := &catalog.TrackBookmark{
		UserID:   rc.UserID,
		TrackID:  trackID,
		Position: time.Duration(posMs) * time.Millisecond,
		Comment:  rc.Param("comment"),
	}
	if err := catalog.SaveBookmark(tx, b); err != nil {
		return ErrInternal(err.Error())
	}
	return nil
}

func handleDeleteBookmark(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	raw, perr := rc.RequireParam("id")
	if perr != nil {
		return perr.(*APIError)
	}
	trackID, err := ParseTrackID(raw)
	if err != nil {
		return ErrBadParameter("id")
	}
	if err := catalog.DeleteBookmark(tx, rc.UserID, trackID); err != nil {
		return ErrInternal(err.Error())
	}
	return nil
}

func handleGetPlayQueue(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	q, err := catalog.FindPlayQueue(tx, rc.UserID, rc.ClientName)
	if err != nil {
		return ErrInternal(err.Error())
	}
	if q == nil {
		return nil
	}
	n := resp.Root.Child("playQueue")
	n.AttrString("current", "")
	n.AttrInt("position", q.CurrentPosition.Milliseconds())
	n.AttrString("username", rc.ClientName)
	n.AttrString("changed", q.Changed.Format(time.RFC3339))
	n.AttrStringOpt("changedBy", q.ChangedBy)

	trackIDs, err := decodeTrackIDList(q.TrackIDsJSON)
	if err != nil {
		return ErrInternal(err.Error())
	}
	render := renderCtx{now: time.Now()}
	for i, tid := range trackIDs {
		t, err := catalog.FindTrack(tx, tid)
		if err != nil {
			return ErrInternal(err.Error())
		}
		if t == nil {
			continue
		}
		if i == q.CurrentIndex {
			n.AttrString("current", TrackExternalID(tid))
		}
		renderTrack(n.AddArrayItem("entry"), t, render)
	}
	return nil
}

func handleSavePlayQueue(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	ids_, err := decodeTrackIDListFromParams(rc.ParamList("id"))
	if err != nil {
		return ErrBadParameter("id")
	}
	current := rc.Param("current")
	currentIndex := -1
	for i, id := range ids_ {
		if TrackExternalID(id) == current {
			currentIndex = i
			break
		}
	}
	posMs, perr := rc.ParamIntDefault("position", 0)
	if perr != nil {
		return perr.(*APIError)
	}
	encoded, err := encodeTrackIDList(ids_)
	if err != nil {
		return ErrInternal(err.Error())
	}
	q := &catalog.PlayQueue{
		UserID:          rc.UserID,
		ClientName:      rc.ClientName,
		TrackIDsJSON:    encoded,
		CurrentIndex:    currentIndex,
		CurrentPosition: time.Duration(posMs) * time.Millisecond,
		ChangedBy:       rc.ClientName,
	}
	if err := catalog.SavePlayQueue(tx, q); err != nil {
		return ErrInternal(err.Error())
	}
	return nil
}
