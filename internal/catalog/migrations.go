package catalog

import (
	migrate "github.com/rubenv/sql-migrate"
)

// migrationMeta tracks whether applying a given migration should bump
// ScanSettings.ScanVersion so the next scan refreshes all rows.
type migrationMeta struct {
	*migrate.Migration
	BumpsScanVersion bool
}

// migrations is the full, numbered migration sequence for this binary.
// EXPECTED_VERSION is derived from its length; a fresh database runs
// every entry in order, an existing one only the entries past its
// last-applied id.
var migrations = []migrationMeta{
	{
		Migration: &migrate.Migration{
			Id: "0001_initial_schema",
			Up: []string{
				`CREATE TABLE IF NOT EXISTS artists (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					sort_name TEXT NOT NULL,
					mbid TEXT,
					created_at DATETIME,
					updated_at DATETIME
				)`,
				`CREATE TABLE IF NOT EXISTS releases (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					sort_name TEXT NOT NULL,
					mbid TEXT,
					release_group_mbid TEXT,
					total_medium_count INTEGER,
					is_compilation BOOLEAN,
					barcode TEXT,
					comment TEXT,
					artist_display_name TEXT,
					labels TEXT,
					countries TEXT,
					release_types TEXT,
					preferred_artwork INTEGER,
					created_at DATETIME,
					updated_at DATETIME
				)`,
				`CREATE TABLE IF NOT EXISTS media (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					release_id INTEGER NOT NULL,
					position INTEGER,
					has_position BOOLEAN,
					track_count INTEGER,
					has_track_count BOOLEAN,
					media TEXT,
					replay_gain TEXT,
					preferred_artwork INTEGER,
					UNIQUE(release_id, position)
				)`,
				`CREATE TABLE IF NOT EXISTS tracks (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					absolute_file_path TEXT NOT NULL UNIQUE,
					file_size INTEGER NOT NULL,
					last_write_time DATETIME NOT NULL,
					added_time DATETIME NOT NULL,
					scan_version INTEGER NOT NULL,
					duration INTEGER,
					bitrate INTEGER,
					sample_rate INTEGER,
					bits_per_sample INTEGER,
					channels INTEGER,
					name TEXT,
					track_number INTEGER,
					disc_number INTEGER,
					date TEXT,
					original_date TEXT,
					track_mbid TEXT,
					recording_mbid TEXT,
					copyright TEXT,
					copyright_url TEXT,
					advisory INTEGER,
					comment TEXT,
					track_replay_gain TEXT,
					release_replay_gain TEXT,
					artist_display_name TEXT,
					release_id INTEGER,
					medium_id INTEGER,
					directory_id INTEGER NOT NULL,
					media_library_id INTEGER NOT NULL,
					preferred_artwork INTEGER,
					preferred_media_artwork INTEGER
				)`,
				`CREATE TABLE IF NOT EXISTS track_artist_links (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					track_id INTEGER NOT NULL,
					artist_id INTEGER NOT NULL,
					role INTEGER NOT NULL,
					sub_role TEXT,
					matched_by_mbid BOOLEAN,
					artist_name TEXT NOT NULL,
					artist_sort_name TEXT NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS cluster_types (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL UNIQUE
				)`,
				`CREATE TABLE IF NOT EXISTS clusters (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					cluster_type_id INTEGER NOT NULL,
					name TEXT NOT NULL,
					UNIQUE(cluster_type_id, name)
				)`,
				`CREATE TABLE IF NOT EXISTS track_cluster_links (
					track_id INTEGER NOT NULL,
					cluster_id INTEGER NOT NULL,
					PRIMARY KEY (track_id, cluster_id)
				)`,
				`CREATE TABLE IF NOT EXISTS media_libraries (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					root_path TEXT NOT NULL UNIQUE,
					first_scan BOOLEAN NOT NULL DEFAULT 1
				)`,
				`CREATE TABLE IF NOT EXISTS directories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					parent_id INTEGER,
					has_parent BOOLEAN,
					name TEXT NOT NULL,
					absolute_path TEXT NOT NULL UNIQUE,
					media_library_id INTEGER NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS track_embedded_images (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					size INTEGER NOT NULL,
					hash TEXT NOT NULL,
					width INTEGER,
					height INTEGER,
					mime TEXT NOT NULL,
					UNIQUE(size, hash)
				)`,
				`CREATE TABLE IF NOT EXISTS track_embedded_image_links (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					track_id INTEGER NOT NULL,
					image_id INTEGER NOT NULL,
					"index" INTEGER NOT NULL,
					type INTEGER,
					description TEXT
				)`,
				`CREATE TABLE IF NOT EXISTS artworks (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					kind INTEGER NOT NULL,
					absolute_file_path TEXT,
					last_written_time DATETIME,
					embedded_image_id INTEGER,
					directory_id INTEGER
				)`,
				`CREATE TABLE IF NOT EXISTS track_lyrics (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					track_id INTEGER NOT NULL,
					external BOOLEAN,
					absolute_file_path TEXT,
					stem TEXT,
					last_write_time DATETIME,
					file_size INTEGER,
					body TEXT
				)`,
				`CREATE TABLE IF NOT EXISTS track_lists (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					type INTEGER NOT NULL,
					visibility INTEGER NOT NULL,
					owner_user_id INTEGER NOT NULL,
					name TEXT NOT NULL,
					last_modified DATETIME NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS track_list_entries (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					track_list_id INTEGER NOT NULL,
					track_id INTEGER NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS play_queues (
					user_id INTEGER NOT NULL,
					client_name TEXT NOT NULL,
					track_ids_json TEXT,
					current_index INTEGER,
					current_position INTEGER,
					changed DATETIME,
					changed_by TEXT,
					PRIMARY KEY (user_id, client_name)
				)`,
				`CREATE TABLE IF NOT EXISTS users (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					login_name TEXT NOT NULL UNIQUE,
					password_hash TEXT NOT NULL,
					type INTEGER NOT NULL,
					feedback_backend INTEGER NOT NULL,
					enable_transcoding_by_default BOOLEAN,
					default_output_format TEXT,
					default_bitrate INTEGER,
					maximum_bitrate INTEGER,
					artist_list_mode INTEGER,
					created_at DATETIME
				)`,
				`CREATE TABLE IF NOT EXISTS starred_artists (
					user_id INTEGER NOT NULL,
					artist_id INTEGER NOT NULL,
					starred_date DATETIME NOT NULL,
					sync_state INTEGER NOT NULL,
					PRIMARY KEY (user_id, artist_id)
				)`,
				`CREATE TABLE IF NOT EXISTS starred_releases (
					user_id INTEGER NOT NULL,
					release_id INTEGER NOT NULL,
					starred_date DATETIME NOT NULL,
					sync_state INTEGER NOT NULL,
					PRIMARY KEY (user_id, release_id)
				)`,
				`CREATE TABLE IF NOT EXISTS starred_tracks (
					user_id INTEGER NOT NULL,
					track_id INTEGER NOT NULL,
					starred_date DATETIME NOT NULL,
					sync_state INTEGER NOT NULL,
					PRIMARY KEY (user_id, track_id)
				)`,
				`CREATE TABLE IF NOT EXISTS track_bookmarks (
					user_id INTEGER NOT NULL,
					track_id INTEGER NOT NULL,
					position INTEGER,
					comment TEXT,
					changed DATETIME,
					PRIMARY KEY (user_id, track_id)
				)`,
				`CREATE TABLE IF NOT EXISTS listens (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					user_id INTEGER NOT NULL,
					track_id INTEGER NOT NULL,
					played_at DATETIME NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS podcast_episodes (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					channel_name TEXT NOT NULL,
					title TEXT NOT NULL,
					publish_date DATETIME,
					track_id INTEGER
				)`,
				`CREATE TABLE IF NOT EXISTS scan_settings (
					id INTEGER PRIMARY KEY,
					media_library_roots TEXT,
					audio_extensions TEXT,
					update_schedule_cron TEXT,
					scan_version INTEGER NOT NULL DEFAULT 1,
					skip_duplicate_track_mbid BOOLEAN,
					allow_artist_mbid_fallback BOOLEAN
				)`,
				`CREATE TABLE IF NOT EXISTS version_infos (
					id INTEGER PRIMARY KEY,
					version INTEGER NOT NULL
				)`,
				`INSERT OR IGNORE INTO scan_settings (id, scan_version) VALUES (1, 1)`,
				`INSERT OR IGNORE INTO version_infos (id, version) VALUES (1, 1)`,
			},
			Down: []string{
				`DROP TABLE IF EXISTS version_infos`,
				`DROP TABLE IF EXISTS scan_settings`,
				`DROP TABLE IF EXISTS podcast_episodes`,
				`DROP TABLE IF EXISTS listens`,
				`DROP TABLE IF EXISTS track_bookmarks`,
				`DROP TABLE IF EXISTS starred_tracks`,
				`DROP TABLE IF EXISTS starred_releases`,
				`DROP TABLE IF EXISTS starred_artists`,
				`DROP TABLE IF EXISTS users`,
				`DROP TABLE IF EXISTS play_queues`,
				`DROP TABLE IF EXISTS track_list_entries`,
				`DROP TABLE IF EXISTS track_lists`,
				`DROP TABLE IF EXISTS track_lyrics`,
				`DROP TABLE IF EXISTS artworks`,
				`DROP TABLE IF EXISTS track_embedded_image_links`,
				`DROP TABLE IF EXISTS track_embedded_images`,
				`DROP TABLE IF EXISTS directories`,
				`DROP TABLE IF EXISTS media_libraries`,
				`DROP TABLE IF EXISTS track_cluster_links`,
				`DROP TABLE IF EXISTS clusters`,
				`DROP TABLE IF EXISTS cluster_types`,
				`DROP TABLE IF EXISTS track_artist_links`,
				`DROP TABLE IF EXISTS tracks`,
				`DROP TABLE IF EXISTS media`,
				`DROP TABLE IF EXISTS releases`,
				`DROP TABLE IF EXISTS artists`,
			},
		},
		BumpsScanVersion: false,
	},
	{
		Migration: &migrate.Migration{
			Id: "0002_user_extra_tags_widen_parsing",
			Up: []string{
				// No schema change: this migration exists purely to
				// widen how userExtraTags are materialized into
				// clusters (scanner-side semantics), so every track
				// must be re-parsed.
				`SELECT 1`,
			},
			Down: []string{`SELECT 1`},
		},
		BumpsScanVersion: true,
	},
}

func migrationSource() *migrate.MemoryMigrationSource {
	ms := make([]*migrate.Migration, len(migrations))
	for i, m := range migrations {
		ms[i] = m.Migration
	}
	return &migrate.MemoryMigrationSource{Migrations: ms}
}

func bumpsScanVersion(id string) bool {
	for _, m := range migrations {
		if m.Id == id {
			return m.BumpsScanVersion
		}
	}
	return false
}

func (s *Store) migrate() error {
	log := s.log.Function("migrate")

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	before, _ := migrate.GetMigrationRecords(sqlDB, "sqlite3")
	beforeSet := make(map[string]bool, len(before))
	for _, r := range before {
		beforeSet[r.Id] = true
	}

	n, err := migrate.Exec(sqlDB, "sqlite3", migrationSource(), migrate.Up)
	if err != nil {
		return err
	}
	if n == 0 {
		log.Info("no catalog migrations to apply")
		return s.ensureScanSettingsRow()
	}

	after, err := migrate.GetMigrationRecords(sqlDB, "sqlite3")
	if err != nil {
		return err
	}

	bumped := false
	for _, r := range after {
		if beforeSet[r.Id] {
			continue
		}
		if bumpsScanVersion(r.Id) {
			bumped = true
		}
	}

	log.Info("applied catalog migrations", "count", n, "bumpsScanVersion", bumped)

	if bumped {
		if err := s.db.Exec("UPDATE scan_settings SET scan_version = scan_version + 1 WHERE id = ?", scanSettingsSingletonID).Error; err != nil {
			return err
		}
	}

	return s.db.Exec("UPDATE version_infos SET version = ? WHERE id = ?", EXPECTED_VERSION, versionInfoSingletonID).Error
}

func (s *Store) ensureScanSettingsRow() error {
	return s.db.Exec(`INSERT OR IGNORE INTO scan_settings (id, scan_version) VALUES (?, 1)`, scanSettingsSingletonID).Error
}

// ensureIndexes creates the indexes that
// goes beyond what the migration's CREATE TABLE statements declare
// inline (composite and collation-sensitive indexes).
func (s *Store) ensureIndexes() error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_artist_name ON artists(name)`,
		`CREATE INDEX IF NOT EXISTS idx_artist_sort_name ON artists(sort_name COLLATE NOCASE)`,
		`CREATE INDEX IF NOT EXISTS idx_artist_mbid ON artists(mbid)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_track_path ON tracks(absolute_file_path)`,
		`CREATE INDEX IF NOT EXISTS idx_track_name ON tracks(name)`,
		`CREATE INDEX IF NOT EXISTS idx_track_mbid ON tracks(track_mbid)`,
		`CREATE INDEX IF NOT EXISTS idx_release_name ON releases(name)`,
		`CREATE INDEX IF NOT EXISTS idx_release_mbid ON releases(mbid)`,
		`CREATE INDEX IF NOT EXISTS idx_track_release ON tracks(release_id)`,
		`CREATE INDEX IF NOT EXISTS idx_track_year ON tracks(date)`,
		`CREATE INDEX IF NOT EXISTS idx_track_original_year ON tracks(original_date)`,
		`CREATE INDEX IF NOT EXISTS idx_tracklist_name ON track_lists(name)`,
		`CREATE INDEX IF NOT EXISTS idx_tracklist_user ON track_lists(owner_user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_track_cluster_link ON track_cluster_links(track_id, cluster_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tal_track_type ON track_artist_links(track_id, role)`,
	}
	for _, stmt := range stmts {
		if err := s.db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
