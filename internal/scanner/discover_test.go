package scanner

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeDirEntry struct {
	name  string
	isDir bool
}

func (f fakeDirEntry) Name() string { return f.name }
func (f fakeDirEntry) IsDir() bool { return f.isDir }
func (f fakeDirEntry) Type() os.FileMode { return 0 }
func (f fakeDirEntry) Info() (os.FileInfo, error) { return nil, nil }

func TestExtensionSet(t *testing.T) {
	set := extensionSet([]string{".MP3", "flac", ".Ogg"})
	assert.True(t, set["mp3"])
	assert.True(t, set["flac"])
	assert.True(t, set["ogg"])
	assert.False(t, set["wav"])
}

func TestHasSentinelEmptySentinelNeverMatches(t *testing.T) {
	entries := []os.DirEntry{fakeDirEntry{name: ".lmsignore"}}
	assert.False(t, hasSentinel(entries, ""))
}

func TestHasSentinelMatchesFileNotDirectory(t *testing.T) {
	entries := []os.DirEntry{
		fakeDirEntry{name: ".lmsignore", isDir: true},
		fakeDirEntry{name: "track.mp3"},
	}
	assert.False(t, hasSentinel(entries, ".lmsignore"))

	entries = append(entries, fakeDirEntry{name: ".lmsignore"})
	assert.True(t, hasSentinel(entries, ".lmsignore"))
}
