package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

// AppConfig are the [store], [server] and [log] sections.
type AppConfig struct {
	StoreDir     string
	HistoryPath  string  // empty disables the history database
	ProfileEvery float64 // h, 0 disables the profile files
	Window       int     // profiles kept in memory

	Addr string

	LogLevel  string
	LogFormat string // text or json
}

// ReadAppConfig reads the settings from path. A missing file yields the
// defaults.
func ReadAppConfig(path string) (*AppConfig, error) {
	file := ini.Empty()
	if _, err := os.Stat(path); err == nil {
		if file, err = ini.Load(path); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	st := file.Section("store")
	srv := file.Section("server")
	lg := file.Section("log")
	history := "./datei/history.db"
	if st.HasKey("history") {
		history = st.Key("history").String()
	}
	return &AppConfig{
		StoreDir:     st.Key("dir").MustString("./datei"),
		HistoryPath:  history,
		ProfileEvery: st.Key("profile_every").MustFloat64(24),
		Window:       st.Key("window").MustInt(48),
		Addr:         srv.Key("addr").MustString(":9000"),
		LogLevel:     lg.Key("level").MustString("info"),
		LogFormat:    lg.Key("format").In("text", []string{"text", "json"}),
	}, nil
}

func (c *AppConfig) setupLogging() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(level)
	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
