package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Paths    PathsConfig    `mapstructure:"paths"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Launcher LauncherConfig `mapstructure:"launcher"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Toolkit  ToolkitConfig  `mapstructure:"toolkit"`
}

// PathsConfig contains path-related configuration
type PathsConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	DBFile     string `mapstructure:"db_file"`
	LogFile    string `mapstructure:"log_file"`
	ScriptsDir string `mapstructure:"scripts_dir"`
	ModulePath string `mapstructure:"module_path"`
	PySidePath string `mapstructure:"pyside_path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	Color string `mapstructure:"color"`
}

// LauncherConfig controls executable discovery and process launch
type LauncherConfig struct {
	MinimumVersion string `mapstructure:"minimum_version"`
	// Terminal wraps the launch in a Terminal window on macOS so that
	// Blender's console output stays visible.
	Terminal       bool     `mapstructure:"terminal"`
	ExtraTemplates []string `mapstructure:"extra_templates"`
}

// EngineConfig mirrors the engine settings of the toolkit environment
type EngineConfig struct {
	AutomaticContextSwitch bool             `mapstructure:"automatic_context_switch"`
	UseSgtkAsMenuName      bool             `mapstructure:"use_sgtk_as_menu_name"`
	RunAtStartup           []StartupCommand `mapstructure:"run_at_startup"`
}

// StartupCommand names an app command to run once the engine is up.
// An empty Name runs every command of the app instance.
type StartupCommand struct {
	AppInstance string `mapstructure:"app_instance"`
	Name        string `mapstructure:"name"`
}

// ToolkitConfig configures the filesystem schema used to resolve contexts
type ToolkitConfig struct {
	Schema []string `mapstructure:"schema"`
}

// Load loads configuration from file and environment
func Load() (*Config, error) {
	// Set config name and paths
	viper.SetConfigName("config")
	viper.SetConfigType("toml")

	homeDir, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(filepath.Join(homeDir, ".config", "tkblender"))
	}
	viper.AddConfigPath(".")

	setDefaults()

	// Environment variable overrides
	viper.SetEnvPrefix("TKBLENDER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found - use defaults
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Paths.DataDir = expandPath(cfg.Paths.DataDir)
	cfg.Paths.DBFile = expandPath(cfg.Paths.DBFile)
	cfg.Paths.LogFile = expandPath(cfg.Paths.LogFile)
	cfg.Paths.ScriptsDir = expandPath(cfg.Paths.ScriptsDir)
	cfg.Paths.ModulePath = expandPath(cfg.Paths.ModulePath)
	cfg.Paths.PySidePath = expandPath(cfg.Paths.PySidePath)

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		homeDir = os.Getenv("HOME")
	}
	if homeDir == "" {
		homeDir = "."
	}

	dataDir := filepath.Join(homeDir, ".local", "share", "tkblender")
	viper.SetDefault("paths.data_dir", dataDir)
	viper.SetDefault("paths.db_file", filepath.Join(dataDir, "tkblender.db"))
	viper.SetDefault("paths.log_file", filepath.Join(dataDir, "tkblender.log"))
	viper.SetDefault("paths.scripts_dir", filepath.Join(dataDir, "resources", "scripts"))
	viper.SetDefault("paths.module_path", filepath.Join(dataDir, "python"))
	viper.SetDefault("paths.pyside_path", filepath.Join(dataDir, "python", "ext"))

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.color", "auto")

	viper.SetDefault("launcher.minimum_version", "2.8")
	viper.SetDefault("launcher.terminal", true)
	viper.SetDefault("launcher.extra_templates", []string{})

	viper.SetDefault("engine.automatic_context_switch", true)
	viper.SetDefault("engine.use_sgtk_as_menu_name", false)
	viper.SetDefault("engine.run_at_startup", []map[string]string{})

	viper.SetDefault("toolkit.schema", DefaultSchema)
}

// DefaultSchema lists the project-relative templates used to derive a
// context from a file path, most specific first.
var DefaultSchema = []string{
	"sequences/{Sequence}/{Shot}/{Step}",
	"sequences/{Sequence}/{Shot}",
	"assets/{AssetType}/{Asset}/{Step}",
	"assets/{AssetType}/{Asset}",
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[1:])
		}
	}

	return os.ExpandEnv(path)
}
