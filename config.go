package main

import (
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	ServerURL   string `toml:"server_url"`
	AccessToken string `toml:"access_token"`
	LogLevel    string `toml:"log_level"`
	ArchiveDir  string `toml:"archive_dir"`
}

func LoadConfig(path string) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Error("config file not found", "path", path, "error", err)
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		slog.Error("failed to decode config", "path", path, "error", err)
		return cfg, err
	}

	slog.Info("config loaded successfully", "path", path)
	return cfg, nil
}
