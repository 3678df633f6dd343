package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix                = "TURKALKOL"
	defaultHTTPAddress       = "0.0.0.0:8080"
	defaultPublicDir         = "public"
	defaultLogLevel          = "info"
	defaultAdminUsername     = "turkalkol"
	defaultAdminPassword     = "kamberoğlu"
	defaultUploadMaxBytes    = 100 << 20
	defaultWatermarkText     = "turkalkol.com"
	defaultWatermarkFontSize = 44
)

// defaultFontPaths lists the system font candidates probed in order for the
// watermark face. All of them may be absent; rendering then degrades to a
// built-in bitmap font instead of failing uploads.
var defaultFontPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Bold.ttf",
}

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress        string
	PublicDir          string
	OriginalDir        string
	WatermarkedDir     string
	LikesFile          string
	LeaderboardFile    string
	AdminUsername      string
	AdminPassword      string
	UploadMaxBytes     int64
	WatermarkText      string
	WatermarkFontSize  float64
	WatermarkFontPaths []string
	LogLevel           string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("public.dir", defaultPublicDir)
	configViper.SetDefault("admin.username", defaultAdminUsername)
	configViper.SetDefault("admin.password", defaultAdminPassword)
	configViper.SetDefault("upload.max_bytes", defaultUploadMaxBytes)
	configViper.SetDefault("watermark.text", defaultWatermarkText)
	configViper.SetDefault("watermark.font_size", defaultWatermarkFontSize)
	configViper.SetDefault("watermark.font_paths", defaultFontPaths)
	configViper.SetDefault("log.level", defaultLogLevel)
}

// Load parses runtime configuration from viper. Image directories and the two
// JSON documents default to paths beneath the public directory unless set
// explicitly.
func Load(configViper *viper.Viper) (AppConfig, error) {
	publicDir := configViper.GetString("public.dir")

	cfg := AppConfig{
		HTTPAddress:        configViper.GetString("http.address"),
		PublicDir:          publicDir,
		OriginalDir:        configViper.GetString("images.original_dir"),
		WatermarkedDir:     configViper.GetString("images.watermarked_dir"),
		LikesFile:          configViper.GetString("likes.file"),
		LeaderboardFile:    configViper.GetString("leaderboard.file"),
		AdminUsername:      configViper.GetString("admin.username"),
		AdminPassword:      configViper.GetString("admin.password"),
		UploadMaxBytes:     configViper.GetInt64("upload.max_bytes"),
		WatermarkText:      configViper.GetString("watermark.text"),
		WatermarkFontSize:  configViper.GetFloat64("watermark.font_size"),
		WatermarkFontPaths: configViper.GetStringSlice("watermark.font_paths"),
		LogLevel:           configViper.GetString("log.level"),
	}

	if cfg.OriginalDir == "" {
		cfg.OriginalDir = filepath.Join(publicDir, "images", "original")
	}
	if cfg.WatermarkedDir == "" {
		cfg.WatermarkedDir = filepath.Join(publicDir, "images", "watermarked")
	}
	if cfg.LikesFile == "" {
		cfg.LikesFile = filepath.Join(publicDir, "likes.json")
	}
	if cfg.LeaderboardFile == "" {
		cfg.LeaderboardFile = filepath.Join(publicDir, "leaderboard.json")
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.PublicDir) == "" {
		return fmt.Errorf("public.dir is required")
	}
	if strings.TrimSpace(c.AdminUsername) == "" {
		return fmt.Errorf("admin.username is required")
	}
	if strings.TrimSpace(c.AdminPassword) == "" {
		return fmt.Errorf("admin.password is required")
	}
	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("upload.max_bytes must be positive")
	}
	if strings.TrimSpace(c.WatermarkText) == "" {
		return fmt.Errorf("watermark.text is required")
	}
	if c.WatermarkFontSize <= 0 {
		return fmt.Errorf("watermark.font_size must be positive")
	}
	return nil
}
