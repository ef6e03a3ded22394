package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultDBPath         = ".clipflow/clipflow.db"
	defaultBaseURL        = "http://localhost:8080"
	defaultAddr           = ":8080"
	defaultOutputDir      = "output"
	defaultDownloadDir    = "."
	defaultRequestTimeout = 30 * time.Second
)

// Config is the merged result of config.json, the environment and flags,
// in increasing order of precedence.
type Config struct {
	BaseURL        string
	Token          string
	DatabaseURL    string
	Addr           string
	OutputDir      string
	DownloadDir    string
	SnapshotPath   string
	LogDir         string
	JWTSecret      string
	RequestTimeout time.Duration
}

type fileConfig struct {
	BaseURL        string `json:"base_url"`
	Token          string `json:"token"`
	DatabaseURL    string `json:"database_url"`
	Addr           string `json:"addr"`
	OutputDir      string `json:"output_dir"`
	DownloadDir    string `json:"download_dir"`
	SnapshotPath   string `json:"snapshot_path"`
	LogDir         string `json:"log_dir"`
	JWTSecret      string `json:"jwt_secret"`
	RequestTimeout string `json:"request_timeout"`
}

func defaultConfig() Config {
	return Config{
		BaseURL:        defaultBaseURL,
		Addr:           defaultAddr,
		OutputDir:      defaultOutputDir,
		DownloadDir:    defaultDownloadDir,
		RequestTimeout: defaultRequestTimeout,
	}
}

// resolveConfigPath returns -config when set, otherwise config.json next to
// the local database.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return filepath.Join(filepath.Dir(dbPath), "config.json")
}

func loadConfig() (Config, error) {
	cfg := defaultConfig()

	path := resolveConfigPath()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fc fileConfig
		if err := json.Unmarshal(data, &fc); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if err := cfg.applyFile(fc); err != nil {
			return cfg, fmt.Errorf("invalid %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}

	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg, nil
}

func (c *Config) applyFile(fc fileConfig) error {
	setString(&c.BaseURL, fc.BaseURL)
	setString(&c.Token, fc.Token)
	setString(&c.DatabaseURL, fc.DatabaseURL)
	setString(&c.Addr, fc.Addr)
	setString(&c.OutputDir, fc.OutputDir)
	setString(&c.DownloadDir, fc.DownloadDir)
	setString(&c.SnapshotPath, fc.SnapshotPath)
	setString(&c.LogDir, fc.LogDir)
	setString(&c.JWTSecret, fc.JWTSecret)
	if fc.RequestTimeout != "" {
		d, err := time.ParseDuration(fc.RequestTimeout)
		if err != nil {
			return fmt.Errorf("request_timeout: %w", err)
		}
		c.RequestTimeout = d
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.BaseURL, os.Getenv("CLIPFLOW_BASE_URL"))
	setString(&c.Token, os.Getenv("CLIPFLOW_TOKEN"))
	setString(&c.DatabaseURL, os.Getenv("DATABASE_URL"))
	setString(&c.OutputDir, os.Getenv("OUTPUT_DIR"))
	setString(&c.DownloadDir, os.Getenv("DOWNLOAD_DIR"))
	setString(&c.JWTSecret, os.Getenv("JWT_SECRET"))
	if port := os.Getenv("PORT"); port != "" {
		c.Addr = ":" + strings.TrimPrefix(port, ":")
	}
	if v := os.Getenv("CLIPFLOW_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CLIPFLOW_REQUEST_TIMEOUT: %w", err)
		}
		c.RequestTimeout = d
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
