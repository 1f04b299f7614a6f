package subsonic

import (
	"lms/internal/catalog"
	"lms/internal/scanner"
	"lms/internal/streaming"
)

// Handler answers one Subsonic endpoint. It runs inside a read
// transaction unless it was registered through registerWrite below;
// handlers never open their own transaction.
type Handler func(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError

// Endpoints maps a request path (without the leading slash or the
// optional ".view" suffix, e.g. "ping", "getArtist") to its handler.
// Built once at startup by NewEndpoints.
type Endpoints struct {
	handlers map[string]Handler
	writes   map[string]bool
	binary   map[string]BinaryHandler
	scanner  *scanner.Service
	auth     AuthConfig
}

// NewEndpoints builds the full endpoint table. scan is the running
// scanner instance getScanStatus/startScan report on and drive; auth
// carries the secret user-management handlers need to encrypt
// passwords with; transcoder drives /stream when the choice-of-path
// algorithm decides the request needs transcoding.
func NewEndpoints(scan *scanner.Service, auth AuthConfig, transcoder streaming.Transcoder) *Endpoints {
	e := &Endpoints{
		handlers: map[string]Handler{},
		writes:   map[string]bool{},
		binary:   map[string]BinaryHandler{},
		scanner:  scan,
		auth:     auth,
	}

	e.register("ping", handlePing)
	e.register("getLicense", handleGetLicense)

	e.register("getMusicFolders", handleGetMusicFolders)
	e.register("getIndexes", handleGetIndexes)
	e.register("getArtists", handleGetArtists)
	e.register("getArtist", handleGetArtist)
	e.register("getAlbum", handleGetAlbum)
	e.register("getSong", handleGetSong)
	e.register("getGenres", handleGetGenres)
	e.register("getAlbumList", handleGetAlbumList2)
	e.register("getAlbumList2", handleGetAlbumList2)
	e.register("getSimilarSongs", handleGetSimilarSongs)
	e.register("getSimilarSongs2", handleGetSimilarSongs)
	e.register("search2", handleSearch3)
	e.register("search3", handleSearch3)

	e.registerWrite("star", handleStar)
	e.registerWrite("unstar", handleUnstar)

	e.register("getLyrics", handleGetLyrics)
	e.register("getLyricsBySongId", handleGetLyricsBySongId)

	e.register("getPlaylists", handleGetPlaylists)
	e.register("getPlaylist", handleGetPlaylist)
	e.registerWrite("createPlaylist", handleCreatePlaylist)
	e.registerWrite("updatePlaylist", handleUpdatePlaylist)
	e.registerWrite("deletePlaylist", handleDeletePlaylist)

	e.register("getBookmarks", handleGetBookmarks)
	e.registerWrite("createBookmark", handleCreateBookmark)
	e.registerWrite("deleteBookmark", handleDeleteBookmark)
	e.register("getPlayQueue", handleGetPlayQueue)
	e.registerWrite("savePlayQueue", handleSavePlayQueue)

	e.register("getUser", handleGetUser)
	e.register("getUsers", handleGetUsers)
	e.registerWrite("createUser", e.handleCreateUser)
	e.registerWrite("updateUser", e.handleUpdateUser)
	e.registerWrite("deleteUser", handleDeleteUser)
	e.registerWrite("changePassword", e.handleChangePassword)

	e.register("getScanStatus", e.handleGetScanStatus)
	e.registerWrite("startScan", e.handleStartScan)

	e.binary["stream"] = handleStreamWith(transcoder)
	e.binary["download"] = handleDownload
	e.binary["getCoverArt"] = handleGetCoverArt

	return e
}

func (e *Endpoints) register(path string, h Handler) { e.handlers[path] = h }
func (e *Endpoints) registerWrite(path string, h Handler) {
	e.handlers[path] = h
	e.writes[path] = true
}

// Lookup returns the handler for path and whether it needs a write
// transaction.
func (e *Endpoints) Lookup(path string) (Handler, bool, bool) {
	h, ok := e.handlers[path]
	return h, e.writes[path], ok
}

// LookupBinary returns the binary (non-Response-tree) handler for one
// of /stream, /download, /getCoverArt. These always run inside a read
// transaction.
func (e *Endpoints) LookupBinary(path string) (BinaryHandler, bool) {
	h, ok := e.binary[path]
	return h, ok
}

func handlePing(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	return nil
}

// handleGetLicense always reports a valid, non-expiring license: LMS
// has no licensing concept of its own.
func handleGetLicense(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	lic := resp.Root.Child("license")
	lic.AttrBool("valid", true)
	return nil
}
