// Package config handles release configuration loading and validation
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g. SPARKRELEASE_DEST.
const EnvPrefix = "SPARKRELEASE"

// FileName is the config file base name searched for in the project root.
const FileName = "sparkrelease.config"

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config describes where a release reads its inputs and writes its output.
type Config struct {
	MetadataFile    string `mapstructure:"metadataFile" json:"metadataFile" yaml:"metadataFile"`
	DistDir         string `mapstructure:"distDir" json:"distDir" yaml:"distDir"`
	Dest            string `mapstructure:"dest" json:"dest" yaml:"dest"`
	RuntimeDir      string `mapstructure:"runtimeDir" json:"runtimeDir" yaml:"runtimeDir"`
	FrameworkBundle string `mapstructure:"frameworkBundle" json:"frameworkBundle" yaml:"frameworkBundle"`
	AppEntry        string `mapstructure:"appEntry" json:"appEntry" yaml:"appEntry"`
	StaticDir       string `mapstructure:"staticDir" json:"staticDir" yaml:"staticDir"`
	// Atomic builds into a staging directory and swaps it in on success.
	Atomic bool `mapstructure:"atomic" json:"atomic" yaml:"atomic"`

	Spark         SparkConfig        `mapstructure:"spark" json:"spark" yaml:"spark"`
	Transpile     TranspileConfig    `mapstructure:"transpile" json:"transpile" yaml:"transpile"`
	Notifications NotificationConfig `mapstructure:"notifications" json:"notifications" yaml:"notifications"`
	Watch         WatchConfig        `mapstructure:"watch" json:"watch" yaml:"watch"`
}

// SparkConfig describes the spark framework dependency fetched at release time.
type SparkConfig struct {
	Package string `mapstructure:"package" json:"package" yaml:"package"`
	Source  string `mapstructure:"source" json:"source" yaml:"source"`
	// Ref pins Source to a tag, branch or commit.
	Ref               string            `mapstructure:"ref" json:"ref" yaml:"ref"`
	Artifact          string            `mapstructure:"artifact" json:"artifact" yaml:"artifact"`
	ExtraDependencies map[string]string `mapstructure:"extraDependencies" json:"extraDependencies" yaml:"extraDependencies"`
	InstallCommand    string            `mapstructure:"installCommand" json:"installCommand" yaml:"installCommand"`
	// InstallTimeout bounds the install command; zero means no limit.
	InstallTimeout time.Duration `mapstructure:"installTimeout" json:"installTimeout" yaml:"installTimeout"`
}

// TranspileConfig selects the down-level transform engine.
type TranspileConfig struct {
	Engine  string `mapstructure:"engine" json:"engine" yaml:"engine"`
	Target  string `mapstructure:"target" json:"target" yaml:"target"`
	Command string `mapstructure:"command" json:"command" yaml:"command"`
}

// NotificationConfig controls desktop notifications
type NotificationConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	// Beep also rings the system bell when a release fails.
	Beep bool `mapstructure:"beep" json:"beep" yaml:"beep"`
}

// WatchConfig controls the watch command
type WatchConfig struct {
	Paths []string `mapstructure:"paths" json:"paths" yaml:"paths"`
	// Ignore holds glob patterns for files whose changes are ignored.
	Ignore        []string      `mapstructure:"ignore" json:"ignore" yaml:"ignore"`
	SettlingDelay time.Duration `mapstructure:"settlingDelay" json:"settlingDelay" yaml:"settlingDelay"`
}

// Default returns the configuration matching the standard Lightning SDK layout.
func Default() *Config {
	return &Config{
		MetadataFile:    "metadata.json",
		DistDir:         "dist",
		Dest:            "web-spark",
		RuntimeDir:      "node_modules/wpe-lightning-sdk",
		FrameworkBundle: "node_modules/wpe-lightning/dist/lightning-web.js",
		AppEntry:        "src/App.js",
		StaticDir:       "static",
		Spark: SparkConfig{
			Package:  "wpe-lightning-spark",
			Source:   "https://github.com/pxscene/Lightning-Spark.git",
			Artifact: "dist/lightning-spark.js",
			ExtraDependencies: map[string]string{
				"rollup-plugin-node-resolve": "^5.0.0",
			},
			InstallCommand: "npm --prefix {dir} install {dir}",
		},
		Transpile: TranspileConfig{
			Engine:  "command",
			Target:  "es5",
			Command: "npx babel --presets @babel/preset-env {src} --out-file {dst}",
		},
		Watch: WatchConfig{
			Paths:         []string{"src", "static", "metadata.json"},
			Ignore:        []string{"*.swp", "*.swo", "*~", ".#*", ".DS_Store", "Thumbs.db", "*.tmp"},
			SettlingDelay: 300 * time.Millisecond,
		},
	}
}

// SetDefaults registers every default with v so environment variables and
// config files can override individual keys.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("metadataFile", d.MetadataFile)
	v.SetDefault("distDir", d.DistDir)
	v.SetDefault("dest", d.Dest)
	v.SetDefault("runtimeDir", d.RuntimeDir)
	v.SetDefault("frameworkBundle", d.FrameworkBundle)
	v.SetDefault("appEntry", d.AppEntry)
	v.SetDefault("staticDir", d.StaticDir)
	v.SetDefault("atomic", d.Atomic)
	v.SetDefault("spark.package", d.Spark.Package)
	v.SetDefault("spark.source", d.Spark.Source)
	v.SetDefault("spark.ref", d.Spark.Ref)
	v.SetDefault("spark.artifact", d.Spark.Artifact)
	v.SetDefault("spark.extraDependencies", d.Spark.ExtraDependencies)
	v.SetDefault("spark.installCommand", d.Spark.InstallCommand)
	v.SetDefault("spark.installTimeout", d.Spark.InstallTimeout)
	v.SetDefault("transpile.engine", d.Transpile.Engine)
	v.SetDefault("transpile.target", d.Transpile.Target)
	v.SetDefault("transpile.command", d.Transpile.Command)
	v.SetDefault("notifications.enabled", d.Notifications.Enabled)
	v.SetDefault("notifications.beep", d.Notifications.Beep)
	v.SetDefault("watch.paths", d.Watch.Paths)
	v.SetDefault("watch.ignore", d.Watch.Ignore)
	v.SetDefault("watch.settlingDelay", d.Watch.SettlingDelay)
}

// NewViper returns a viper instance with defaults and environment overrides
// configured, searching root for sparkrelease.config.{json,yaml,yml}.
func NewViper(root, configFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(root)
		v.SetConfigName(FileName)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file (if any) into v and decodes the result.
// A missing config file is not an error; a malformed one is.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile loads a single config file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	return Load(NewViper(filepath.Dir(path), path))
}

// Validate checks the configuration for values the pipeline cannot work with
func (c *Config) Validate() error {
	required := []struct{ key, value string }{
		{"metadataFile", c.MetadataFile},
		{"distDir", c.DistDir},
		{"dest", c.Dest},
		{"runtimeDir", c.RuntimeDir},
		{"frameworkBundle", c.FrameworkBundle},
		{"appEntry", c.AppEntry},
		{"spark.package", c.Spark.Package},
		{"spark.source", c.Spark.Source},
		{"spark.artifact", c.Spark.Artifact},
		{"spark.installCommand", c.Spark.InstallCommand},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%w: %s must not be empty", ErrInvalidConfig, r.key)
		}
	}

	if c.Dest == "." || c.Dest == ".." || strings.ContainsAny(c.Dest, `/\`) {
		return fmt.Errorf("%w: dest %q must be a plain directory name", ErrInvalidConfig, c.Dest)
	}
	if !strings.Contains(c.Spark.InstallCommand, "{dir}") {
		return fmt.Errorf("%w: spark.installCommand must reference {dir}", ErrInvalidConfig)
	}

	switch strings.ToLower(c.Transpile.Engine) {
	case "esbuild", "":
	case "command":
		if !strings.Contains(c.Transpile.Command, "{src}") || !strings.Contains(c.Transpile.Command, "{dst}") {
			return fmt.Errorf("%w: transpile.command must reference {src} and {dst}", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown transpile.engine %q", ErrInvalidConfig, c.Transpile.Engine)
	}

	if c.Watch.SettlingDelay < 0 {
		return fmt.Errorf("%w: watch.settlingDelay must not be negative", ErrInvalidConfig)
	}
	if c.Spark.InstallTimeout < 0 {
		return fmt.Errorf("%w: spark.installTimeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

// SparkSource returns the dependency source, pinned to Ref when set.
func (c *Config) SparkSource() string {
	if c.Spark.Ref == "" {
		return c.Spark.Source
	}
	return c.Spark.Source + "#" + c.Spark.Ref
}

// Resolve makes p absolute against root.
func Resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

// Dump renders the configuration as YAML.
func (c *Config) Dump() ([]byte, error) {
	return yaml.Marshal(c)
}
