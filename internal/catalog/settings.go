package catalog

import "gorm.io/gorm"

// GetScanSettings reads the singleton settings row. The migration
// runner seeds it on first run, so this never returns not-found in
// practice once the store is open.
func GetScanSettings(tx *Tx) (*ScanSettings, error) {
	tx.assertRead()

	var s ScanSettings
	if err := tx.db.First(&s, "id = ?", scanSettingsSingletonID).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func SaveScanSettings(tx *Tx, s *ScanSettings) error {
	tx.assertWrite()

	s.ID = scanSettingsSingletonID
	return tx.db.Save(s).Error
}

// BumpScanVersion increments ScanVersion by one, used by migrations
// that change parsing semantics so the next scan reparses every file.
func BumpScanVersion(tx *Tx) error {
	tx.assertWrite()
	return tx.db.Model(&ScanSettings{}).Where("id = ?", scanSettingsSingletonID).
		UpdateColumn("scan_version", gorm.Expr("scan_version + 1")).Error
}

func GetVersionInfo(tx *Tx) (*VersionInfo, error) {
	tx.assertRead()

	var v VersionInfo
	if err := tx.db.First(&v, "id = ?", versionInfoSingletonID).Error; err != nil {
		return nil, err
	}
	return &v, nil
}
