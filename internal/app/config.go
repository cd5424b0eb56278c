package app

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// defaultRooms is the built-in enumerated room set, matching the historical
// room list the message archive was recorded under.
var defaultRooms = []string{"devops", "cloud computing", "covid19", "sports", "nodeJS"}

// Config holds all server settings, loaded from the environment.
type Config struct {
	Env        string `envconfig:"APP_ENV" default:"dev"`
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`

	RedisAddr  string `envconfig:"REDIS_ADDR"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"roomchat.db"`

	JWTSecret string `envconfig:"JWT_SECRET" default:"dev-secret-change"`

	// RoomsFile optionally points to a YAML file overriding the room list.
	RoomsFile string `envconfig:"ROOMS_FILE"`

	HistoryLimit int `envconfig:"HISTORY_LIMIT" default:"500"`
	MaxConns     int `envconfig:"MAX_CONNS" default:"0"`
}

// Load reads the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// roomsFile is the YAML schema for a room list override.
type roomsFile struct {
	Rooms []string `yaml:"rooms"`
}

// RoomNames returns the enumerated room set: the contents of RoomsFile when
// set, otherwise the built-in default list.
func (c Config) RoomNames() ([]string, error) {
	if c.RoomsFile == "" {
		return defaultRooms, nil
	}

	data, err := os.ReadFile(c.RoomsFile)
	if err != nil {
		return nil, fmt.Errorf("read rooms file: %w", err)
	}
	var rf roomsFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse rooms file: %w", err)
	}
	if len(rf.Rooms) == 0 {
		return nil, fmt.Errorf("rooms file %s lists no rooms", c.RoomsFile)
	}
	return rf.Rooms, nil
}
