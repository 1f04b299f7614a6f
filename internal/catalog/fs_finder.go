package catalog

import (
	"errors"

	"lms/internal/ids"

	"gorm.io/gorm"
)

func FindMediaLibraryByRoot(tx *Tx, rootPath string) (*MediaLibrary, error) {
	tx.assertRead()

	var m MediaLibrary
	err := tx.db.Where("root_path = ?", rootPath).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func FindMediaLibraries(tx *Tx) ([]MediaLibrary, error) {
	tx.assertRead()

	var out []MediaLibrary
	if err := tx.db.Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// FindOrCreateMediaLibrary implements the "materialize on first sight"
// rule for configured media roots: a root not yet in the table is
// created with FirstScan=true.
func FindOrCreateMediaLibrary(tx *Tx, name, rootPath string) (*MediaLibrary, error) {
	tx.assertWrite()

	existing, err := FindMediaLibraryByRoot(tx, rootPath)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	m := MediaLibrary{Name: name, RootPath: rootPath, FirstScan: true}
	if err := tx.db.Create(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func MarkMediaLibraryScanned(tx *Tx, id ids.Id[ids.MediaLibraryKind]) error {
	tx.assertWrite()
	return tx.db.Model(&MediaLibrary{}).Where("id = ?", id.Raw()).Update("first_scan", false).Error
}

func FindDirectoryByPath(tx *Tx, absolutePath string) (*Directory, error) {
	tx.assertRead()

	var d Directory
	err := tx.db.Where("absolute_path = ?", absolutePath).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func FindOrCreateDirectory(tx *Tx, libraryID ids.Id[ids.MediaLibraryKind], parent *ids.Id[ids.DirectoryKind], name, absolutePath string) (*Directory, error) {
	tx.assertWrite()

	existing, err := FindDirectoryByPath(tx, absolutePath)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	d := Directory{Name: name, AbsolutePath: absolutePath, MediaLibraryID: libraryID}
	if parent != nil {
		d.ParentID = *parent
		d.HasParent = true
	}
	if err := tx.db.Create(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func FindDirectoryChildDirectories(tx *Tx, dirID ids.Id[ids.DirectoryKind]) ([]Directory, error) {
	tx.assertRead()

	var out []Directory
	err := tx.db.Where("parent_id = ? AND has_parent = ?", dirID.Raw(), true).Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
