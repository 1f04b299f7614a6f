package subsonic

import (
	"time"

	"lms/internal/catalog"
	"lms/internal/ids"
	"lms/internal/pagerange"
)

func handleGetMusicFolders(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	libs, err := catalog.FindMediaLibraries(tx)
	if err != nil {
		return ErrInternal(err.Error())
	}
	folders := resp.Root.Child("musicFolders")
	for _, lib := range libs {
		f := folders.AddArrayItem("musicFolder")
		f.AttrString("id", lib.ID.String())
		f.AttrString("name", lib.Name)
	}
	return nil
}

// handleGetIndexes groups all artists by the first letter of their
// display name, the legacy (pre-ID3) browsing shape older clients
// still use alongside getArtists.
func handleGetIndexes(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	root := resp.Root.Child("indexes")
	root.AttrInt("lastModified", time.Now().Unix())

	render := renderCtx{now: time.Now()}
	byLetter := map[string]*Node{}

	err := catalog.FindArtists(tx, catalog.ArtistFindParameters{SortMethod: catalog.ArtistSortName}, func(a *catalog.Artist) error {
		letter := indexLetter(a.DisplayName())
		idx, ok := byLetter[letter]
		if !ok {
			idx = root.AddArrayItem("index")
			idx.AttrString("name", letter)
			byLetter[letter] = idx
		}
		artistNode := idx.AddArrayItem("artist")
		releaseCount, cerr := countArtistReleases(tx, a.ID)
		if cerr != nil {
			return cerr
		}
		renderArtist(artistNode, a, releaseCount, render)
		return nil
	})
	if err != nil {
		return ErrInternal(err.Error())
	}
	return nil
}

func indexLetter(name string) string {
	if name == "" {
		return "#"
	}
	r := []rune(name)[0]
	if r >= 'a' && r <= 'z' {
		r -= 'a' - 'A'
	}
	if r < 'A' || r > 'Z' {
		return "#"
	}
	return string(r)
}

func countArtistReleases(tx *catalog.Tx, artistID ids.Id[ids.ArtistKind]) (int, error) {
	count := 0
	seen := map[uint64]bool{}
	err := catalog.FindTracks(tx, catalog.TrackFindParameters{Artist: &artistID}, func(t *catalog.Track) error {
		if t.ReleaseID.IsValid() && !seen[t.ReleaseID.Raw()] {
			seen[t.ReleaseID.Raw()] = true
			count++
		}
		return nil
	})
	return count, err
}

// handleGetArtists is getIndexes' ID3 sibling: same grouping, ID3
// attribute set.
func handleGetArtists(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	root := resp.Root.Child("artists")
	render := renderCtx{now: time.Now()}
	byLetter := map[string]*Node{}

	err := catalog.FindArtists(tx, catalog.ArtistFindParameters{SortMethod: catalog.ArtistSortName}, func(a *catalog.Artist) error {
		letter := indexLetter(a.DisplayName())
		idx, ok := byLetter[letter]
		if !ok {
			idx = root.AddArrayItem("index")
			idx.AttrString("name", letter)
			byLetter[letter] = idx
		}
		artistNode := idx.AddArrayItem("artist")
		releaseCount, cerr := countArtistReleases(tx, a.ID)
		if cerr != nil {
			return cerr
		}
		renderArtist(artistNode, a, releaseCount, render)
		return nil
	})
	if err != nil {
		return ErrInternal(err.Error())
	}
	return nil
}

func handleGetArtist(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	raw, perr := rc.RequireParam("id")
	if perr != nil {
		return perr.(*APIError)
	}
	artistID, err := ParseArtistID(raw)
	if err != nil {
		return ErrBadParameter("id")
	}
	a, err := catalog.FindArtist(tx, artistID)
	if err != nil {
		return ErrInternal(err.Error())
	}
	if a == nil {
		return ErrDataNotFound()
	}

	render := renderCtx{now: time.Now()}
	node := resp.Root.Child("artist")
	releaseCount := 0
	releases := map[uint64]*catalog.Release{}
	var order []uint64
	err = catalog.FindTracks(tx, catalog.TrackFindParameters{Artist: &artistID}, func(t *catalog.Track) error {
		if !t.ReleaseID.IsValid() {
			return nil
		}
		key := t.ReleaseID.Raw()
		if _, ok := releases[key]; ok {
			return nil
		}
		rel, rerr := catalog.FindRelease(tx, t.ReleaseID)
		if rerr != nil || rel == nil {
			return rerr
		}
		releases[key] = rel
		order = append(order, key)
		return nil
	})
	if err != nil {
		return ErrInternal(err.Error())
	}
	releaseCount = len(order)
	renderArtist(node, a, releaseCount, render)

	for _, key := range order {
		rel := releases[key]
		trackCount, duration, cerr := releaseTrackStats(tx, rel.ID)
		if cerr != nil {
			return ErrInternal(cerr.Error())
		}
		relNode := node.AddArrayItem("album")
		renderRelease(relNode, rel, trackCount, duration, render)
	}
	return nil
}

func releaseTrackStats(tx *catalog.Tx, releaseID ids.Id[ids.ReleaseKind]) (int, time.Duration, error) {
	count := 0
	var total time.Duration
	err := catalog.FindTracks(tx, catalog.TrackFindParameters{Release: &releaseID}, func(t *catalog.Track) error {
		count++
		total += t.Duration
		return nil
	})
	return count, total, err
}

func handleGetAlbum(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	raw, perr := rc.RequireParam("id")
	if perr != nil {
		return perr.(*APIError)
	}
	releaseID, err := ParseReleaseID(raw)
	if err != nil {
		return ErrBadParameter("id")
	}
	rel, err := catalog.FindRelease(tx, releaseID)
	if err != nil {
		return ErrInternal(err.Error())
	}
	if rel == nil {
		return ErrDataNotFound()
	}

	render := renderCtx{now: time.Now()}
	node := resp.Root.Child("album")
	trackCount, duration, err := releaseTrackStats(tx, releaseID)
	if err != nil {
		return ErrInternal(err.Error())
	}
	renderRelease(node, rel, trackCount, duration, render)

	err = catalog.FindTracks(tx, catalog.TrackFindParameters{Release: &releaseID, SortMethod: catalog.TrackSortTrackNumber}, func(t *catalog.Track) error {
		renderTrack(node.AddArrayItem("song"), t, render)
		return nil
	})
	if err != nil {
		return ErrInternal(err.Error())
	}
	return nil
}

func handleGetSong(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	raw, perr := rc.RequireParam("id")
	if perr != nil {
		return perr.(*APIError)
	}
	trackID, err := ParseTrackID(raw)
	if err != nil {
		return ErrBadParameter("id")
	}
	t, err := catalog.FindTrack(tx, trackID)
	if err != nil {
		return ErrInternal(err.Error())
	}
	if t == nil {
		return ErrDataNotFound()
	}
	renderTrack(resp.Root.Child("song"), t, renderCtx{now: time.Now()})
	return nil
}

func handleGetGenres(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	ct, err := catalog.FindClusterTypeByName(tx, "GENRE")
	if err != nil {
		return ErrInternal(err.Error())
	}
	genres := resp.Root.Child("genres")
	if ct == nil {
		return nil
	}
	return withAPIError(catalog.FindClusters(tx, catalog.ClusterFindParameters{ClusterType: &ct.ID}, func(c *catalog.Cluster) error {
		songCount, err := countClusterTracks(tx, c.ID)
		if err != nil {
			return err
		}
		albumCount, err := countClusterReleases(tx, c.ID)
		if err != nil {
			return err
		}
		g := genres.AddArrayItem("genre")
		g.SetValue(StringValue(c.Name))
		g.AttrInt("songCount", int64(songCount))
		g.AttrInt("albumCount", int64(albumCount))
		return nil
	}))
}

func countClusterTracks(tx *catalog.Tx, clusterID ids.Id[ids.ClusterKind]) (int, error) {
	count := 0
	err := catalog.FindTracks(tx, catalog.TrackFindParameters{Clusters: []ids.Id[ids.ClusterKind]{clusterID}}, func(*catalog.Track) error {
		count++
		return nil
	})
	return count, err
}

func countClusterReleases(tx *catalog.Tx, clusterID ids.Id[ids.ClusterKind]) (int, error) {
	count := 0
	err := catalog.FindReleases(tx, catalog.ReleaseFindParameters{Clusters: []ids.Id[ids.ClusterKind]{clusterID}}, func(*catalog.Release) error {
		count++
		return nil
	})
	return count, err
}

// handleGetAlbumList2 covers getAlbumList/getAlbumList2's "type"-driven
// listing modes; unsupported types fall back to newest.
func handleGetAlbumList2(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	listType := rc.Param("type")
	size, perr := rc.ParamIntDefault("size", 10)
	if perr != nil {
		return perr.(*APIError)
	}
	if size > 1000 {
		return ErrParameterValueTooHigh("size")
	}
	offset, perr := rc.ParamIntDefault("offset", 0)
	if perr != nil {
		return perr.(*APIError)
	}

	params := catalog.ReleaseFindParameters{Range: pagerange.Range{Offset: uint32(offset), Size: uint32(size)}}
	switch listType {
	case "random":
		params.SortMethod = catalog.ReleaseSortRandom
	case "starred":
		uid := rc.UserID
		params.StarringUser = &uid
		params.SortMethod = catalog.ReleaseSortStarredDateDesc
	case "alphabeticalByName":
		params.SortMethod = catalog.ReleaseSortName
	default:
		params.SortMethod = catalog.ReleaseSortNewest
	}

	render := renderCtx{now: time.Now()}
	list := resp.Root.Child("albumList2")
	return withAPIError(catalog.FindReleases(tx, params, func(r *catalog.Release) error {
		trackCount, duration, err := releaseTrackStats(tx, r.ID)
		if err != nil {
			return err
		}
		renderRelease(list.AddArrayItem("album"), r, trackCount, duration, render)
		return nil
	}))
}

// handleGetSimilarSongs is a placeholder: LMS has no recommendation
// engine wired, so it always returns an empty list rather than
// failing the request.
func handleGetSimilarSongs(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	resp.Root.Child("similarSongs2")
	return nil
}

func handleSearch3(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	query := rc.Param("query")
	render := renderCtx{now: time.Now()}
	result := resp.Root.Child("searchResult3")

	var kw []string
	if query != "" && query != "\"\"" {
		kw = []string{query}
	}

	err := catalog.FindArtists(tx, catalog.ArtistFindParameters{Keywords: kw, SortMethod: catalog.ArtistSortName}, func(a *catalog.Artist) error {
		releaseCount, cerr := countArtistReleases(tx, a.ID)
		if cerr != nil {
			return cerr
		}
		renderArtist(result.AddArrayItem("artist"), a, releaseCount, render)
		return nil
	})
	if err != nil {
		return ErrInternal(err.Error())
	}

	err = catalog.FindReleases(tx, catalog.ReleaseFindParameters{Keywords: kw, SortMethod: catalog.ReleaseSortName}, func(r *catalog.Release) error {
		trackCount, duration, cerr := releaseTrackStats(tx, r.ID)
		if cerr != nil {
			return cerr
		}
		renderRelease(result.AddArrayItem("album"), r, trackCount, duration, render)
		return nil
	})
	if err != nil {
		return ErrInternal(err.Error())
	}

	err = catalog.FindTracks(tx, catalog.TrackFindParameters{Keywords: kw, SortMethod: catalog.TrackSortName}, func(t *catalog.Track) error {
		renderTrack(result.AddArrayItem("song"), t, render)
		return nil
	})
	if err != nil {
		return ErrInternal(err.Error())
	}
	return nil
}

// withAPIError adapts a plain error-returning finder loop into the
// APIError return convention handlers use.
func withAPIError(err error) *APIError {
	if err == nil {
		return nil
	}
	if ae, ok := err.(*APIError); ok {
		return ae
	}
	return ErrInternal(err.Error())
}
