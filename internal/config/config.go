package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var configLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

// Config represents the complete configuration structure
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Publish  PublishConfig  `yaml:"publish"`
	Content  ContentConfig  `yaml:"content"`
	Mirror   MirrorConfig   `yaml:"mirror"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type SiteConfig struct {
	Name        string `yaml:"name" default:"The Press"`
	Description string `yaml:"description" default:"Drafts in private, posts in public"`
}

type ServerConfig struct {
	Host           string `yaml:"host" default:"0.0.0.0"`
	Port           string `yaml:"port" default:"12600"`
	RequestTimeout string `yaml:"request_timeout" default:"15s"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" default:"./database.db"`
}

type AuthConfig struct {
	// Type selects the session authority: "ed25519" or "clerk".
	Type        string `yaml:"type" default:"ed25519"`
	HeaderName  string `yaml:"header_name" default:"Authorization"`
	AdminUserID string `yaml:"admin_user_id" default:"admin"`
	AdminName   string `yaml:"admin_name" default:"Admin"`
}

type PublishConfig struct {
	// RequireOwner rejects publish calls from anyone but the post's author.
	// Disabling it restores the permissive behaviour where any caller who can
	// reach the endpoint may publish any post.
	RequireOwner bool `yaml:"require_owner" default:"true"`
}

type ContentConfig struct {
	Compression string `yaml:"compression" default:"zstd"`
	SyntaxTheme string `yaml:"syntax_theme" default:"gruvbox"`
}

type MirrorConfig struct {
	Enabled  bool   `yaml:"enabled" default:"false"`
	Bucket   string `yaml:"bucket" default:""`
	Endpoint string `yaml:"endpoint" default:""`
	Region   string `yaml:"region" default:"auto"`
	Prefix   string `yaml:"prefix" default:"posts/"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"console"`
}

var AppConfig *Config

func LoadConfig(path string) error {
	config := &Config{}

	applyDefaults(config)

	data, err := os.ReadFile(path)
	if err != nil {
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
		AppConfig = config
		return nil
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return err
	}

	AppConfig = config
	return nil
}

// Validate rejects values the server cannot start with.
func (c *Config) Validate() error {
	switch c.Auth.Type {
	case AuthTypeEd25519, AuthTypeClerk:
	default:
		return fmt.Errorf("unsupported auth type %q", c.Auth.Type)
	}

	switch c.Content.Compression {
	case CompressionZstd, CompressionGzip:
	default:
		return fmt.Errorf("unsupported content compression %q", c.Content.Compression)
	}

	if _, err := c.Server.Timeout(); err != nil {
		return err
	}

	if c.Mirror.Enabled && c.Mirror.Bucket == "" {
		return fmt.Errorf("mirror is enabled but no bucket is configured")
	}

	return nil
}

// Timeout parses RequestTimeout.
func (s ServerConfig) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(s.RequestTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid server request_timeout %q: %w", s.RequestTimeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("server request_timeout must be positive, got %s", d)
	}
	return d, nil
}

func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

func ApplyDefaults(config interface{}) {
	applyDefaults(config)
}

func applyDefaults(config interface{}) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}

		defaultValue := fieldType.Tag.Get("default")
		if defaultValue == "" {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(defaultValue)
		case reflect.Bool:
			if val, err := strconv.ParseBool(defaultValue); err == nil {
				field.SetBool(val)
			}
		case reflect.Int:
			if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
				field.SetInt(val)
			}
		case reflect.Slice:
			if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(defaultValue, ",")
				slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
				for j, part := range parts {
					slice.Index(j).SetString(strings.TrimSpace(part))
				}
				field.Set(slice)
			}
		default:
			configLogger.Warn().
				Str("field_name", fieldType.Name).
				Str("field_type", field.Kind().String()).
				Msg("Unsupported field type for default value")
		}
	}
}
