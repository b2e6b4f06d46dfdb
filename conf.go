package deuxgo

import (
	"log"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL  string
	LogLevel     string
	LogPath      string
	BaseURL      string
	AuthToken    string
	WorkspaceID  int
	ProbeAddr    string
	PollInterval time.Duration
}

const (
	DefaultLogLevel     = "WARN"
	DefaultBaseURL      = "https://teuxdeux.com/api/v4"
	DefaultProbeAddr    = "teuxdeux.com:443"
	DefaultPollInterval = 15 * time.Second
)

var (
	userHome, _        = os.UserHomeDir()
	DefaultDatabaseURL = path.Join(userHome, ".deuxgo", "deuxgo.db")
	DefaultLogPath     = path.Join(userHome, ".deuxgo", "deuxgo.log")
)

func LoadConfig() Config {
	confFromEnv := configFromEnv()

	// load file
	cfgDir, _ := os.UserConfigDir()
	cfgDir = path.Join(cfgDir, "deuxgo")
	confFile := path.Join(cfgDir, "deuxgo.conf")
	if _, err := os.Stat(confFile); err != nil {
		log.Println("creating default conf file")
		if err := os.MkdirAll(cfgDir, 0o744); err != nil {
			panic(err)
		}
		f, err := os.Create(confFile)
		if err != nil {
			panic(err)
		}
		defaults := []string{
			"DEUXGO_DB_URL=" + DefaultDatabaseURL,
			"DEUXGO_LOG_LEVEL=" + DefaultLogLevel,
			"DEUXGO_LOG_PATH=" + DefaultLogPath,
			"DEUXGO_BASE_URL=" + DefaultBaseURL,
			"DEUXGO_AUTH_TOKEN=",
			"DEUXGO_WORKSPACE_ID=",
			"DEUXGO_PROBE_ADDR=" + DefaultProbeAddr,
		}
		for _, line := range defaults {
			if _, err := f.WriteString(line + "\n"); err != nil {
				panic(err)
			}
		}
		_ = f.Close()
	}
	if err := godotenv.Load(confFile); err != nil {
		panic(err)
	}
	confFromFile := configFromEnv()

	cfg := Config{
		DatabaseURL:  coalesce(confFromEnv.DatabaseURL, confFromFile.DatabaseURL, DefaultDatabaseURL),
		LogLevel:     coalesce(confFromEnv.LogLevel, confFromFile.LogLevel, DefaultLogLevel),
		LogPath:      coalesce(confFromEnv.LogPath, confFromFile.LogPath, DefaultLogPath),
		BaseURL:      coalesce(confFromEnv.BaseURL, confFromFile.BaseURL, DefaultBaseURL),
		AuthToken:    coalesce(confFromEnv.AuthToken, confFromFile.AuthToken, ""),
		ProbeAddr:    coalesce(confFromEnv.ProbeAddr, confFromFile.ProbeAddr, DefaultProbeAddr),
		PollInterval: DefaultPollInterval,
	}
	if confFromEnv.WorkspaceID != 0 {
		cfg.WorkspaceID = confFromEnv.WorkspaceID
	} else {
		cfg.WorkspaceID = confFromFile.WorkspaceID
	}
	if confFromEnv.PollInterval != 0 {
		cfg.PollInterval = confFromEnv.PollInterval
	} else if confFromFile.PollInterval != 0 {
		cfg.PollInterval = confFromFile.PollInterval
	}
	return cfg
}

func configFromEnv() Config {
	wsID, _ := strconv.Atoi(os.Getenv("DEUXGO_WORKSPACE_ID"))
	poll, _ := time.ParseDuration(os.Getenv("DEUXGO_POLL_INTERVAL"))
	return Config{
		DatabaseURL:  os.Getenv("DEUXGO_DB_URL"),
		LogLevel:     os.Getenv("DEUXGO_LOG_LEVEL"),
		LogPath:      os.Getenv("DEUXGO_LOG_PATH"),
		BaseURL:      os.Getenv("DEUXGO_BASE_URL"),
		AuthToken:    os.Getenv("DEUXGO_AUTH_TOKEN"),
		WorkspaceID:  wsID,
		ProbeAddr:    os.Getenv("DEUXGO_PROBE_ADDR"),
		PollInterval: poll,
	}
}

func coalesce(args ...string) string {
	for _, s := range args {
		if s != "" {
			return s
		}
	}
	return ""
}
