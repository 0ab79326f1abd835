package main

import (
	"fmt"
	"os"
	"path"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	KeyDatabaseURL = "CALYGO_SYNC_DB_URL"
	KeyPort        = "CALYGO_SYNC_PORT"
	KeyLogLevel    = "CALYGO_SYNC_LOG_LEVEL"
	KeyLogPath     = "CALYGO_SYNC_LOG_PATH"
)

var userHomeDir, _ = os.UserHomeDir()

type conf struct {
	DatabaseURL string
	Port        string
	LogLevel    string
	// LogPath empty means stdout.
	LogPath string
}

func defaults() map[string]string {
	return map[string]string{
		KeyDatabaseURL: path.Join(userHomeDir, ".calygo", "sync.db"),
		KeyPort:        "8080",
		KeyLogLevel:    "INFO",
		KeyLogPath:     "",
	}
}

// LoadConf resolves each key from the environment, then src, then defaults.
// src is created with the defaults when missing.
func LoadConf(src string) (conf, error) {
	if _, err := os.Stat(src); err != nil {
		if err := os.MkdirAll(path.Dir(src), 0o744); err != nil {
			return conf{}, err
		}
		if err := godotenv.Write(defaults(), src); err != nil {
			return conf{}, fmt.Errorf("failed to write default conf: %w", err)
		}
	}
	fromFile, err := godotenv.Read(src)
	if err != nil {
		return conf{}, fmt.Errorf("failed to read conf %s: %w", src, err)
	}

	def := defaults()
	get := func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		if v := fromFile[key]; v != "" {
			return v
		}
		return def[key]
	}

	c := conf{
		DatabaseURL: get(KeyDatabaseURL),
		Port:        get(KeyPort),
		LogLevel:    get(KeyLogLevel),
		LogPath:     get(KeyLogPath),
	}
	if _, err := strconv.ParseUint(c.Port, 10, 16); err != nil {
		return conf{}, fmt.Errorf("invalid %s %q: %w", KeyPort, c.Port, err)
	}
	return c, nil
}
