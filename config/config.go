package config

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tcriess/lightspeed-chat-client/globals"
)

const (
	defaultReconnectMinDelay = time.Second
	defaultReconnectMaxDelay = time.Minute
)

// Config is the global configuration object which is filled via the
// configuration file and command-line flags.
type Config struct {
	ServerConfig      ServerConfig      `mapstructure:"server"`
	HistoryConfig     HistoryConfig     `mapstructure:"history"`
	PersistenceConfig PersistenceConfig `mapstructure:"persistence"`
	FilterConfigs     []FilterConfig    `mapstructure:"filter"`
	LogLevel          string            `mapstructure:"log_level"`
}

// ServerConfig describes the chat server endpoint and the identity presented
// to it. The id token is passed through to the server unverified, token
// validation is the server's job.
type ServerConfig struct {
	Url               string `mapstructure:"url"`
	Nick              string `mapstructure:"nick"`
	IdToken           string `mapstructure:"id_token"`
	Provider          string `mapstructure:"provider"`
	Language          string `mapstructure:"language"`
	ReconnectMinDelay string `mapstructure:"reconnect_min_delay"`
	ReconnectMaxDelay string `mapstructure:"reconnect_max_delay"`
}

// HistoryConfig configures local history. MaxLogSize bounds the in-memory
// log per room (0 = unbounded), RetentionDays bounds how long persisted
// messages are kept, PruneSpec is a cron spec for the prune schedule.
type HistoryConfig struct {
	MaxLogSize    int    `mapstructure:"max_log_size"`
	RetentionDays int    `mapstructure:"retention_days"`
	PruneSpec     string `mapstructure:"prune_spec"`
}

// PersistenceConfig configures the optional local transcript store. Type is
// one of "buntdb", "sqlite" or "postgres", an empty type disables
// persistence entirely.
type PersistenceConfig struct {
	Type      string `mapstructure:"type"`
	DSN       string `mapstructure:"dsn"`
	FlockPath string `mapstructure:"flock_path"`
}

// Each FilterConfig block names one notification filter expression, see the
// filter package for the expression environment.
type FilterConfig struct {
	Name       string `mapstructure:"name"`
	Expression string `mapstructure:"expression"`
}

func (c *ServerConfig) ReconnectBackoff() (min, max time.Duration) {
	min = defaultReconnectMinDelay
	max = defaultReconnectMaxDelay
	if d, err := time.ParseDuration(c.ReconnectMinDelay); err == nil && d > 0 {
		min = d
	}
	if d, err := time.ParseDuration(c.ReconnectMaxDelay); err == nil && d > 0 {
		max = d
	}
	if max < min {
		max = min
	}
	return min, max
}

func GetFlagSet() *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("configuration", pflag.ContinueOnError)
	flagSet.StringP("server-url", "s", "", "ws(s) url of the chat server")
	flagSet.StringP("nick", "n", "", "nick to present to the server")
	flagSet.String("log-level", "", "log level (TRACE/DEBUG/INFO/WARN/ERROR)")
	return flagSet
}

// wordSepNormalizeFunc allows for normalization of the flag names (which use - as a separator)
func wordSepNormalizeFunc(f *pflag.FlagSet, name string) pflag.NormalizedName {
	from := "-"
	to := "_"
	name = strings.Replace(name, from, to, -1)
	return pflag.NormalizedName(name)
}

// ReadConfiguration reads and parses the configuration located at configPath,
// which can either point to a single TOML file or to a directory, in which
// case all *.toml files in this directory are concatenated. It returns a
// Config object.
func ReadConfiguration(configPath string, flagSet *pflag.FlagSet) (*Config, error) {
	cfg := Config{}
	flagSet.SetNormalizeFunc(wordSepNormalizeFunc)
	err := viper.BindPFlags(flagSet)
	if err != nil {
		globals.AppLogger.Error("could not bind flags (ignored)", "error", err)
	}
	viper.SetEnvPrefix("LSCHATC")
	viper.AutomaticEnv()
	if configPath != "" {
		fi, err := os.Stat(configPath)
		if err != nil {
			return nil, err
		}
		contents := make([]byte, 0)
		files := []string{configPath}
		if fi.IsDir() {
			files, err = filepath.Glob(filepath.Join(configPath, "*.toml"))
			if err != nil {
				return nil, err
			}
		}
		for _, configFile := range files {
			fileContents, err := ioutil.ReadFile(configFile)
			if err != nil {
				return nil, err
			}
			contents = append(contents, fileContents...)
			contents = append(contents, '\n')
		}
		viper.SetConfigType("toml")
		err = viper.ReadConfig(bytes.NewBuffer(contents))
		if err != nil {
			globals.AppLogger.Error("could not read config:", "error", err)
		}
	}
	err = viper.Unmarshal(&cfg)
	if err != nil {
		globals.AppLogger.Error("could not unmarshal config:", "error", err)
	}

	if cfg.ServerConfig.Url == "" {
		cfg.ServerConfig.Url = viper.GetString("server_url")
	}
	if cfg.ServerConfig.Nick == "" {
		cfg.ServerConfig.Nick = viper.GetString("nick")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = viper.GetString("log_level")
	}

	globals.AppLogger.Debug("config", "cfg", cfg, "all", viper.AllSettings())
	return &cfg, nil
}
