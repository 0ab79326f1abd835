package calygo

import (
	"fmt"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL    string
	LogLevel       string
	LogPath        string
	ServerURL      string
	PompierID      int
	ProbeInterval  time.Duration
	ReplayTimeout  time.Duration
	RequestTimeout time.Duration
}

const (
	KeyDatabaseURL   = "CALYGO_DB_URL"
	KeyLogLevel      = "CALYGO_LOG_LEVEL"
	KeyLogPath       = "CALYGO_LOG_PATH"
	KeyServerURL     = "CALYGO_SERVER_URL"
	KeyPompierID     = "CALYGO_POMPIER_ID"
	KeyProbeInterval = "CALYGO_PROBE_INTERVAL"
	KeyReplayTimeout = "CALYGO_REPLAY_TIMEOUT"
	KeyDevMode       = "CALYGO_DEV_MODE"
)

const (
	DefaultLogLevel       = "WARN"
	DefaultServerURL      = "http://localhost:8080"
	DefaultProbeInterval  = "15s"
	DefaultReplayTimeout  = "10s"
	DefaultRequestTimeout = 5 * time.Second
)

var (
	userHome, _        = os.UserHomeDir()
	DefaultDatabaseURL = path.Join(userHome, ".calygo", "calygo.db")
	DefaultLogPath     = path.Join(userHome, ".calygo", "calygo.log")
)

// DefaultConfFile is where LoadConfig looks when no file is given.
func DefaultConfFile() string {
	cfgDir, _ := os.UserConfigDir()
	return path.Join(cfgDir, "calygo", "calygo.conf")
}

// LoadConfig resolves each key from the environment first, then confFile,
// then the defaults. A default conf file is written if confFile is missing.
func LoadConfig(confFile string) (Config, error) {
	fromEnv := readEnv(os.Getenv)

	if os.Getenv(KeyDevMode) != "" {
		fromEnv[KeyLogLevel] = "DEBUG"
		fromEnv[KeyDatabaseURL] = path.Join(os.TempDir(), "calygo-dev.db")
		fromEnv[KeyLogPath] = path.Join(userHome, ".calygo", "dev.log")
	}

	if _, err := os.Stat(confFile); err != nil {
		if err := writeDefaultConf(confFile); err != nil {
			return Config{}, fmt.Errorf("failed to create default conf file: %w", err)
		}
	}
	fileVals, err := godotenv.Read(confFile)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read conf file %s: %w", confFile, err)
	}
	fromFile := readEnv(func(k string) string { return fileVals[k] })

	get := func(key, def string) string {
		return coalesce(fromEnv[key], fromFile[key], def)
	}

	conf := Config{
		DatabaseURL:    get(KeyDatabaseURL, DefaultDatabaseURL),
		LogLevel:       get(KeyLogLevel, DefaultLogLevel),
		LogPath:        get(KeyLogPath, DefaultLogPath),
		ServerURL:      get(KeyServerURL, DefaultServerURL),
		RequestTimeout: DefaultRequestTimeout,
	}

	if v := get(KeyPompierID, ""); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s %q: %w", KeyPompierID, v, err)
		}
		conf.PompierID = id
	}
	if conf.ProbeInterval, err = time.ParseDuration(get(KeyProbeInterval, DefaultProbeInterval)); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", KeyProbeInterval, err)
	}
	if conf.ReplayTimeout, err = time.ParseDuration(get(KeyReplayTimeout, DefaultReplayTimeout)); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", KeyReplayTimeout, err)
	}

	return conf, nil
}

func readEnv(getenv func(string) string) map[string]string {
	vals := make(map[string]string)
	for _, k := range []string{
		KeyDatabaseURL, KeyLogLevel, KeyLogPath, KeyServerURL,
		KeyPompierID, KeyProbeInterval, KeyReplayTimeout,
	} {
		vals[k] = getenv(k)
	}
	return vals
}

func writeDefaultConf(confFile string) error {
	if err := os.MkdirAll(path.Dir(confFile), 0o744); err != nil {
		return err
	}
	return godotenv.Write(map[string]string{
		KeyDatabaseURL:   DefaultDatabaseURL,
		KeyLogLevel:      DefaultLogLevel,
		KeyLogPath:       DefaultLogPath,
		KeyServerURL:     DefaultServerURL,
		KeyProbeInterval: DefaultProbeInterval,
		KeyReplayTimeout: DefaultReplayTimeout,
	}, confFile)
}

func coalesce(args ...string) string {
	for _, s := range args {
		if s != "" {
			return s
		}
	}
	return ""
}
