package subsonic

import (
	"reflect"
	"testing"
)

func TestEndpointsLookupKnownPaths(t *testing.T) {
	e := NewEndpoints(nil, AuthConfig{}, nil)

	cases := []struct {
		path      string
		wantWrite bool
	}{
		{"ping", false},
		{"getArtist", false},
		{"getAlbumList", false},
		{"getAlbumList2", false},
		{"star", true},
		{"unstar", true},
		{"createPlaylist", true},
		{"startScan", true},
		{"getScanStatus", false},
	}
	for _, c := range cases {
		h, isWrite, ok := e.Lookup(c.path)
		if !ok {
			t.Errorf("Lookup(%q): not found", c.path)
			continue
		}
		if h == nil {
			t.Errorf("Lookup(%q): nil handler", c.path)
		}
		if isWrite != c.wantWrite {
			t.Errorf("Lookup(%q) isWrite = %v, want %v", c.path, isWrite, c.wantWrite)
		}
	}
}

func TestEndpointsLookupUnknownPath(t *testing.T) {
	e := NewEndpoints(nil, AuthConfig{}, nil)
	if _, _, ok := e.Lookup("notARealEndpoint"); ok {
		t.Fatal("expected unknown path to be absent from the dispatch table")
	}
}

func TestEndpointsAliasesShareHandlerIdentity(t *testing.T) {
	e := NewEndpoints(nil, AuthConfig{}, nil)

	h1, _, _ := e.Lookup("getAlbumList")
	h2, _, _ := e.Lookup("getAlbumList2")
	if h1 == nil || h2 == nil {
		t.Fatal("expected both getAlbumList aliases to resolve")
	}
	if reflect.ValueOf(h1).Pointer() != reflect.ValueOf(h2).Pointer() {
		t.Fatal("expected getAlbumList and getAlbumList2 to share one handler")
	}

	h3, _, _ := e.Lookup("search2")
	h4, _, _ := e.Lookup("search3")
	if h3 == nil || h4 == nil {
		t.Fatal("expected both search aliases to resolve")
	}
	if reflect.ValueOf(h3).Pointer() != reflect.ValueOf(h4).Pointer() {
		t.Fatal("expected search2 and search3 to share one handler")
	}
}

func TestEndpointsLookupBinary(t *testing.T) {
	e := NewEndpoints(nil, AuthConfig{}, nil)

	for _, path := range []string{"stream", "download", "getCoverArt"} {
		if _, ok := e.LookupBinary(path); !ok {
			t.Errorf("LookupBinary(%q): not found", path)
		}
	}
	if _, ok := e.LookupBinary("ping"); ok {
		t.Fatal("expected a Response-tree endpoint to be absent from the binary table")
	}
}
