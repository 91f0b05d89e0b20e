package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/handiism/myzuka-downloader/internal/fetch"
	mzhttp "github.com/handiism/myzuka-downloader/internal/http"
	"github.com/handiism/myzuka-downloader/internal/model"
	"github.com/handiism/myzuka-downloader/internal/retry"
)

// ErrInvalid is wrapped by every error returned from Validate.
var ErrInvalid = errors.New("invalid settings")

var validate = validator.New()

// Settings holds all configuration options.
type Settings struct {
	// Download settings
	DownloadsPath      string        `yaml:"downloads_path" env:"MYZUKA_PATH" validate:"required"`
	Concurrency        int           `yaml:"concurrency" env:"MYZUKA_NB_CONN" validate:"min=1,max=32"`
	Timeout            time.Duration `yaml:"timeout" env:"MYZUKA_TIMEOUT" validate:"min=1s"`
	SocksProxy         string        `yaml:"socks_proxy" env:"MYZUKA_SOCKS" validate:"omitempty,hostname_port"`
	Debug              int           `yaml:"debug" env:"MYZUKA_DEBUG" validate:"min=0,max=2"`
	MaxAttempts        int           `yaml:"max_attempts" env:"MYZUKA_MAX_ATTEMPTS" validate:"min=0"`
	SizeLookupAttempts int           `yaml:"size_lookup_attempts" env:"MYZUKA_SIZE_LOOKUP_ATTEMPTS" validate:"min=1"`

	// Request identity
	UserAgent string `yaml:"user_agent" env:"MYZUKA_USER_AGENT" validate:"required"`
	Referer   string `yaml:"referer" env:"MYZUKA_REFERER" validate:"required,url"`

	// Retry pauses
	TransientBackoffMin time.Duration `yaml:"transient_backoff_min" env:"MYZUKA_TRANSIENT_BACKOFF_MIN" validate:"min=0"`
	TransientBackoffMax time.Duration `yaml:"transient_backoff_max" env:"MYZUKA_TRANSIENT_BACKOFF_MAX" validate:"gtefield=TransientBackoffMin"`
	TaskBackoffMin      time.Duration `yaml:"task_backoff_min" env:"MYZUKA_TASK_BACKOFF_MIN" validate:"min=0"`
	TaskBackoffMax      time.Duration `yaml:"task_backoff_max" env:"MYZUKA_TASK_BACKOFF_MAX" validate:"gtefield=TaskBackoffMin"`

	// File naming
	CoverFileName          string `yaml:"cover_file_name" env:"MYZUKA_COVER_FILE_NAME" validate:"required"`
	PlaylistFileNameFormat string `yaml:"playlist_file_name_format" env:"MYZUKA_PLAYLIST_FILE_NAME" validate:"required"`

	// Playlist settings
	CreatePlaylist bool   `yaml:"create_playlist" env:"MYZUKA_PLAYLIST"`
	PlaylistFormat string `yaml:"playlist_format" env:"MYZUKA_PLAYLIST_FORMAT" validate:"oneof=m3u pls wpl zpl"`
	M3UExtended    bool   `yaml:"m3u_extended" env:"MYZUKA_M3U_EXTENDED"`

	// Cover thumbnail settings
	CreateThumbnail   bool   `yaml:"create_thumbnail" env:"MYZUKA_THUMBNAIL"`
	ThumbnailFileName string `yaml:"thumbnail_file_name" env:"MYZUKA_THUMBNAIL_FILE_NAME" validate:"required_if=CreateThumbnail true"`
	ThumbnailMaxSize  int    `yaml:"thumbnail_max_size" env:"MYZUKA_THUMBNAIL_MAX_SIZE" validate:"min=0"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		DownloadsPath:      ".",
		Concurrency:        3,
		Timeout:            mzhttp.DefaultTimeout,
		Debug:              0,
		MaxAttempts:        0,
		SizeLookupAttempts: fetch.DefaultSizeLookupAttempts,

		UserAgent: mzhttp.DefaultUserAgent,
		Referer:   mzhttp.DefaultReferer,

		TransientBackoffMin: 5 * time.Second,
		TransientBackoffMax: 15 * time.Second,
		TaskBackoffMin:      1 * time.Second,
		TaskBackoffMax:      5 * time.Second,

		CoverFileName:          "cover.jpg",
		PlaylistFileNameFormat: "{album}",

		CreatePlaylist: false,
		PlaylistFormat: "m3u",
		M3UExtended:    true,

		CreateThumbnail:   false,
		ThumbnailFileName: "folder.jpg",
		ThumbnailMaxSize:  500,
	}
}

// Load reads settings from a YAML file and applies MYZUKA_* environment
// overrides. A missing file is not an error: defaults plus environment are
// used. An empty path skips the file.
func Load(path string) (*Settings, error) {
	settings := DefaultSettings()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, settings); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
			return settings, nil
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	if err := cleanenv.ReadEnv(settings); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return settings, nil
}

// Validate checks every field against its constraints.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Save writes settings to a YAML file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ToPathConfig converts settings to PathConfig.
func (s *Settings) ToPathConfig() *model.PathConfig {
	return &model.PathConfig{
		DownloadsPath:          s.DownloadsPath,
		CoverFileName:          s.CoverFileName,
		PlaylistFileNameFormat: s.PlaylistFileNameFormat,
		PlaylistFormat:         model.ParsePlaylistFormat(s.PlaylistFormat),
	}
}

// HTTPConfig converts settings to the HTTP client configuration. Transient
// failures are retried forever with a random pause between the two
// transient backoff bounds.
func (s *Settings) HTTPConfig(logger zerolog.Logger) mzhttp.Config {
	return mzhttp.Config{
		Timeout:    s.Timeout,
		SocksProxy: s.SocksProxy,
		UserAgent:  s.UserAgent,
		Referer:    s.Referer,
		Retry:      retry.Unbounded(retry.RandomBackoff(s.TransientBackoffMin, s.TransientBackoffMax)),
		Logger:     logger,
	}
}

// FetchOptions converts settings to fetcher options.
func (s *Settings) FetchOptions(logger zerolog.Logger) fetch.Options {
	opts := fetch.DefaultOptions()
	opts.SizeLookupAttempts = s.SizeLookupAttempts
	opts.Logger = logger
	return opts
}

// TaskRetry returns the per-task retry policy.
func (s *Settings) TaskRetry() *retry.Policy {
	return &retry.Policy{
		MaxAttempts: s.MaxAttempts,
		Backoff:     retry.RandomBackoff(s.TaskBackoffMin, s.TaskBackoffMax),
	}
}
