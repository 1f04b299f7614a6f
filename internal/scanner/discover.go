package scanner

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"lms/internal/catalog"
	"lms/internal/ids"
)

// FileToScan is one candidate audio file found by DiscoverStep and
// handed to ParseUpsertStep.
type FileToScan struct {
	Path             string
	Library          ids.Id[ids.MediaLibraryKind]
	LibraryFirstScan bool
	Directory        ids.Id[ids.DirectoryKind]
	LastWriteTime    time.Time
}

// ImageToScan is one candidate standalone cover-art file found by
// DiscoverStep and handed to ExternalArtworkUpsertStep.
type ImageToScan struct {
	Path          string
	Directory     ids.Id[ids.DirectoryKind]
	LastWriteTime time.Time
}

// DiscoverStep walks every configured media root breadth-first,
// materializing Directory rows as it goes and collecting every file
// whose extension is allowlisted and whose directory carries no
// exclude sentinel.
type DiscoverStep struct{}

func (DiscoverStep) Name() string { return "discover" }

func (DiscoverStep) Execute(sc *Context) error {
	roots := sc.Config.MediaLibraryRootList()
	extensions := extensionSet(sc.Config.AudioExtensionList())
	imageExtensions := extensionSet(sc.Config.ImageExtensionList())
	sentinel := sc.Config.ExcludeSentinel

	session, release, err := sc.Store.Pool().Borrow(sc)
	if err != nil {
		return err
	}
	defer release()

	for _, root := range roots {
		if sc.Aborted() {
			return nil
		}
		if err := discoverRoot(sc, session, root, extensions, imageExtensions, sentinel); err != nil {
			sc.Log.Er("discover root failed", err, "root", root)
		}
	}
	return nil
}

func discoverRoot(sc *Context, session *catalog.Session, root string, extensions, imageExtensions map[string]bool, sentinel string) error {
	var libraryID ids.Id[ids.MediaLibraryKind]
	var firstScan bool

	err := session.WriteTransaction(sc, func(tx *catalog.Tx) error {
		lib, err := catalog.FindOrCreateMediaLibrary(tx, filepath.Base(root), root)
		if err != nil {
			return err
		}
		libraryID = lib.ID
		firstScan = lib.FirstScan
		return nil
	})
	if err != nil {
		return err
	}

	type queueEntry struct {
		path     string
		dirID    ids.Id[ids.DirectoryKind]
		hasDirID bool
	}
	queue := []queueEntry{{path: root}}

	for len(queue) > 0 {
		if sc.Aborted() {
			return nil
		}
		entry := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(entry.path)
		if err != nil {
			sc.RecordError(ScanError{Kind: IOScanError, Path: entry.path, Cause: err})
			continue
		}

		if hasSentinel(entries, sentinel) {
			continue
		}

		var dirID ids.Id[ids.DirectoryKind]
		err = session.WriteTransaction(sc, func(tx *catalog.Tx) error {
			var parent *ids.Id[ids.DirectoryKind]
			if entry.hasDirID {
				parent = &entry.dirID
			}
			d, err := catalog.FindOrCreateDirectory(tx, libraryID, parent, filepath.Base(entry.path), entry.path)
			if err != nil {
				return err
			}
			dirID = d.ID
			return nil
		})
		if err != nil {
			sc.Log.Er("materialize directory failed", err, "path", entry.path)
			continue
		}

		for _, de := range entries {
			full := filepath.Join(entry.path, de.Name())
			if de.IsDir() {
				queue = append(queue, queueEntry{path: full, dirID: dirID, hasDirID: true})
				continue
			}
			ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(de.Name()), "."))
			if !extensions[ext] && !imageExtensions[ext] {
				continue
			}
			info, err := de.Info()
			if err != nil {
				sc.RecordError(ScanError{Kind: IOScanError, Path: full, Cause: err})
				continue
			}
			if extensions[ext] {
				sc.Discovered = append(sc.Discovered, FileToScan{
					Path:             full,
					Library:          libraryID,
					LibraryFirstScan: firstScan,
					Directory:        dirID,
					LastWriteTime:    info.ModTime(),
				})
				continue
			}
			sc.DiscoveredImages = append(sc.DiscoveredImages, ImageToScan{
				Path:          full,
				Directory:     dirID,
				LastWriteTime: info.ModTime(),
			})
		}
	}

	return nil
}

func hasSentinel(entries []os.DirEntry, sentinel string) bool {
	if sentinel == "" {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() && e.Name() == sentinel {
			return true
		}
	}
	return false
}

func extensionSet(exts []string) map[string]bool {
	out := make(map[string]bool, len(exts))
	for _, e := range exts {
		out[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}
	return out
}
