package config

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	appdefaults "github.com/misty-community/misty-go/config"

	"github.com/misty-community/misty-go/internal/logger"
	"github.com/spf13/viper"
)

// RobotConfig represents a robotConfig.
type RobotConfig struct {
	IP             string `mapstructure:"ip"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// SimConfig represents a simConfig.
type SimConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	EventIntervalMs int    `mapstructure:"event_interval_ms"`
}

// Config represents a config.
type Config struct {
	RootDir     string        `mapstructure:"-"`
	Robot       RobotConfig   `mapstructure:"robot"`
	Sim         SimConfig     `mapstructure:"sim"`
	SimAddr     string        `mapstructure:"sim_addr"`
	ProfilesDir string        `mapstructure:"profiles_dir"`
	CapturesDir string        `mapstructure:"captures_dir"`
	Log         logger.Config `mapstructure:"log"`
}

// Load executes the load function.
func Load() (Config, error) {
	rootDir, err := resolveRootDir()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigName("conf")
	v.SetConfigType("yaml")
	v.AddConfigPath(rootDir)

	if err := v.ReadConfig(bytes.NewReader(appdefaults.Default)); err != nil {
		return Config{}, fmt.Errorf("load embedded config: %w", err)
	}

	setDefaults(v)
	bindEnv(v)

	if err := v.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	return finish(v, rootDir)
}

// LoadConfig executes the loadConfig function.
func LoadConfig(configPath string) (Config, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		return Load()
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, err
	}

	rootDir := strings.TrimSpace(os.Getenv("MISTY_ROOT_DIR"))
	if rootDir == "" {
		rootDir = filepath.Dir(absPath)
		if filepath.Base(rootDir) == "config" {
			rootDir = filepath.Dir(rootDir)
		}
	}

	v := viper.New()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(bytes.NewReader(appdefaults.Default)); err != nil {
		return Config{}, fmt.Errorf("load embedded config: %w", err)
	}

	setDefaults(v)
	bindEnv(v)

	v.SetConfigFile(absPath)
	if err := v.MergeInConfig(); err != nil {
		return Config{}, err
	}

	return finish(v, rootDir)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("robot.ip", "")
	v.SetDefault("robot.timeout_seconds", 10)
	v.SetDefault("sim.host", "")
	v.SetDefault("sim.port", 8686)
	v.SetDefault("sim.event_interval_ms", 250)
	v.SetDefault("sim_addr", "")
	v.SetDefault("profiles_dir", "profiles")
	v.SetDefault("captures_dir", filepath.Join("data", "captures"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.stdout", true)
	v.SetDefault("log.file.enabled", false)
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.name", "misty.log")
	v.SetDefault("log.file.max_size_mb", 100)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.max_age_days", 30)
	v.SetDefault("log.file.compress", true)
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("misty")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func finish(v *viper.Viper, rootDir string) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	cfg.RootDir = rootDir
	deriveSimAddr(&cfg)
	cfg.ProfilesDir = resolvePath(rootDir, cfg.ProfilesDir, "profiles")
	cfg.CapturesDir = resolvePath(rootDir, cfg.CapturesDir, filepath.Join("data", "captures"))
	return cfg, nil
}

func deriveSimAddr(cfg *Config) {
	if cfg.SimAddr != "" {
		return
	}
	host := cfg.Sim.Host
	port := cfg.Sim.Port
	if port == 0 {
		port = 8686
	}
	if host == "" {
		cfg.SimAddr = fmt.Sprintf(":%d", port)
		return
	}
	cfg.SimAddr = net.JoinHostPort(host, strconv.Itoa(port))
}

func resolveRootDir() (string, error) {
	if root := strings.TrimSpace(os.Getenv("MISTY_ROOT_DIR")); root != "" {
		return filepath.Abs(root)
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := wd
	for i := 0; i < 6; i++ {
		if fileExists(filepath.Join(dir, "conf.yaml")) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return wd, nil
}

func resolvePath(rootDir string, configured string, fallback string) string {
	path := strings.TrimSpace(configured)
	if path == "" {
		path = fallback
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(rootDir, path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
