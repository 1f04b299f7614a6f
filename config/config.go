package config

import (
	"fmt"
	"strings"

	"lms/pkg/logger"

	"github.com/spf13/viper"
)

// Config is the fully resolved server configuration, loaded once at
// startup from the environment (and .env / .env.local during local
// development) and handed out via GetConfig.
type Config struct {
	GeneralVersion string `mapstructure:"GENERAL_VERSION"`
	Environment    string `mapstructure:"ENVIRONMENT"`
	ServerPort     int    `mapstructure:"SERVER_PORT"`

	// WorkingDir holds the catalog database file, the valkey AOF (if
	// embedded), and any on-disk caches. Media libraries live outside
	// it; see MediaLibraryRoots.
	WorkingDir string `mapstructure:"WORKING_DIR"`

	// MediaLibraryRoots is a comma-separated list of absolute paths
	// the scanner walks. Each becomes a MediaLibrary row on first scan.
	MediaLibraryRoots string `mapstructure:"MEDIA_LIBRARY_ROOTS"`

	// AudioExtensions is a comma-separated allowlist (without the dot)
	// of file extensions the scanner treats as audio, e.g. "mp3,flac,ogg".
	AudioExtensions string `mapstructure:"AUDIO_EXTENSIONS"`

	// ExcludeSentinel is the filename that, when present in a
	// directory, causes the scanner to skip that directory and its
	// descendants entirely (e.g. ".lmsignore").
	ExcludeSentinel string `mapstructure:"EXCLUDE_SENTINEL"`

	// ImageExtensions is the comma-separated allowlist (without the
	// dot) of file extensions the scanner treats as standalone cover
	// art files sitting next to audio, e.g. "jpg,jpeg,png".
	ImageExtensions string `mapstructure:"IMAGE_EXTENSIONS"`

	ScannerWorkerCount int `mapstructure:"SCANNER_WORKER_COUNT"`
	SessionPoolSize    int `mapstructure:"SESSION_POOL_SIZE"`

	DatabaseCacheAddress string `mapstructure:"DB_CACHE_ADDRESS"`
	DatabaseCachePort    int    `mapstructure:"DB_CACHE_PORT"`
	DatabaseCacheReset   int    `mapstructure:"DB_CACHE_RESET"`

	CorsAllowOrigins string `mapstructure:"CORS_ALLOW_ORIGINS"`

	SecuritySalt      int    `mapstructure:"SECURITY_SALT"`
	SecurityPepper    string `mapstructure:"SECURITY_PEPPER"`
	SecurityJwtSecret string `mapstructure:"SECURITY_JWT_SECRET"`

	// ApiReportedServerVersion is the version string the Subsonic API
	// reports in every response envelope, independent of GeneralVersion.
	ApiReportedServerVersion string `mapstructure:"API_REPORTED_SERVER_VERSION"`

	// ApiSubsonicOldServerProtocolClients lists (comma-separated)
	// client name substrings that should be served the pre-1.16.0
	// Subsonic protocol quirks regardless of the requested version.
	ApiSubsonicOldServerProtocolClients string `mapstructure:"API_SUBSONIC_OLD_SERVER_PROTOCOL_CLIENTS"`

	// ApiOpenSubsonicDisabledClients lists client name substrings for
	// which OpenSubsonic extensions are suppressed even though the
	// server supports them.
	ApiOpenSubsonicDisabledClients string `mapstructure:"API_OPEN_SUBSONIC_DISABLED_CLIENTS"`

	// ApiSubsonicSupportUserPasswordAuth permits the legacy plaintext
	// 'p' password parameter in addition to the salted 't'/'s' token.
	ApiSubsonicSupportUserPasswordAuth bool `mapstructure:"API_SUBSONIC_SUPPORT_USER_PASSWORD_AUTH"`
}

var ConfigInstance Config

func InitConfig() (Config, error) {
	log := logger.New("config").Function("InitConfig")
	log.Info("Initializing config")

	viper.AutomaticEnv()

	envVars := []string{
		"GENERAL_VERSION", "ENVIRONMENT", "SERVER_PORT",
		"WORKING_DIR", "MEDIA_LIBRARY_ROOTS", "AUDIO_EXTENSIONS", "EXCLUDE_SENTINEL", "IMAGE_EXTENSIONS",
		"SCANNER_WORKER_COUNT", "SESSION_POOL_SIZE",
		"DB_CACHE_ADDRESS", "DB_CACHE_PORT", "DB_CACHE_RESET",
		"CORS_ALLOW_ORIGINS", "SECURITY_SALT", "SECURITY_PEPPER", "SECURITY_JWT_SECRET",
		"API_REPORTED_SERVER_VERSION", "API_SUBSONIC_OLD_SERVER_PROTOCOL_CLIENTS",
		"API_OPEN_SUBSONIC_DISABLED_CLIENTS", "API_SUBSONIC_SUPPORT_USER_PASSWORD_AUTH",
	}

	for _, env := range envVars {
		if err := viper.BindEnv(env); err != nil {
			log.Warn("Failed to bind environment variable", "env", env, "error", err)
		}
	}

	envVarsSet := viper.IsSet("SERVER_PORT") && viper.IsSet("WORKING_DIR")

	if envVarsSet {
		log.Info("Environment variables detected, skipping file loading")
	} else {
		log.Info("Environment variables not found, attempting to load from files")

		viper.SetConfigFile(".env")
		viper.SetConfigType("env")

		if err := viper.ReadInConfig(); err != nil {
			log.Warn("Could not find .env file", "error", err)
		} else {
			log.Info("Loaded .env file")
		}

		viper.SetConfigFile(".env.local")
		if err := viper.MergeInConfig(); err != nil {
			log.Debug("No .env.local file found", "error", err)
		} else {
			log.Info("Loaded .env.local overrides")
		}
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, log.Err("Fatal error: could not unmarshal config", err)
	}

	log.Info("Successfully initialized config", "config", config)
	if err := validateConfig(config, log); err != nil {
		return Config{}, err
	}
	return ConfigInstance, nil
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", 4533)
	viper.SetDefault("WORKING_DIR", "./data")
	viper.SetDefault("AUDIO_EXTENSIONS", "mp3,flac,ogg,opus,m4a,wav,wma,aac")
	viper.SetDefault("EXCLUDE_SENTINEL", ".lmsignore")
	viper.SetDefault("IMAGE_EXTENSIONS", "jpg,jpeg,png,gif,bmp,webp")
	viper.SetDefault("SCANNER_WORKER_COUNT", 4)
	viper.SetDefault("SESSION_POOL_SIZE", 16)
	viper.SetDefault("API_REPORTED_SERVER_VERSION", "1.16.1")
	viper.SetDefault("API_SUBSONIC_SUPPORT_USER_PASSWORD_AUTH", false)
}

func GetConfig() Config {
	return ConfigInstance
}

// MediaLibraryRootList splits MediaLibraryRoots on commas and trims
// whitespace, dropping empty entries.
func (c Config) MediaLibraryRootList() []string {
	return splitTrimmed(c.MediaLibraryRoots)
}

// AudioExtensionList splits AudioExtensions the same way.
func (c Config) AudioExtensionList() []string {
	return splitTrimmed(c.AudioExtensions)
}

// ImageExtensionList splits ImageExtensions the same way.
func (c Config) ImageExtensionList() []string {
	return splitTrimmed(c.ImageExtensions)
}

// ApiSubsonicOldServerProtocolClientList splits
// ApiSubsonicOldServerProtocolClients the same way.
func (c Config) ApiSubsonicOldServerProtocolClientList() []string {
	return splitTrimmed(c.ApiSubsonicOldServerProtocolClients)
}

// ApiOpenSubsonicDisabledClientList splits ApiOpenSubsonicDisabledClients
// the same way.
func (c Config) ApiOpenSubsonicDisabledClientList() []string {
	return splitTrimmed(c.ApiOpenSubsonicDisabledClients)
}

func splitTrimmed(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func validateConfig(config Config, log logger.Logger) error {
	if config.ServerPort <= 0 {
		return log.Err(
			"Fatal error: invalid server port",
			fmt.Errorf("invalid port: %d", config.ServerPort),
			"port", config.ServerPort,
		)
	}
	if config.WorkingDir == "" {
		return log.Err(
			"Fatal error: working dir must be set",
			fmt.Errorf("empty working dir"),
		)
	}
	if config.ScannerWorkerCount <= 0 {
		return log.Err(
			"Fatal error: invalid scanner worker count",
			fmt.Errorf("invalid count: %d", config.ScannerWorkerCount),
			"count", config.ScannerWorkerCount,
		)
	}

	ConfigInstance = config
	return nil
}
