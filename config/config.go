package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the participant and relay configuration, read from the
// environment after an optional .env file has been loaded.
type Config struct {
	Backend       string // "mesh" or "relay"
	Codec         string // "json" or "msgpack"
	ListenAddr    string // mesh host listen address
	AdvertiseAddr string // host:port placed in mesh room tokens
	RelayURL      string
	RelayListen   string
	Room          string // room token, empty means host a new room
	Rocks         int
	Edge          string // "wrap" or "cull"
	SnapshotHz    int
	InputHz       int
	FrameHz       int
}

func Defaults() Config {
	return Config{
		Backend:       "mesh",
		Codec:         "json",
		ListenAddr:    ":7350",
		AdvertiseAddr: "127.0.0.1:7350",
		RelayURL:      "ws://127.0.0.1:7351/relay",
		RelayListen:   ":7351",
		Rocks:         8,
		Edge:          "wrap",
		SnapshotHz:    12,
		InputHz:       15,
		FrameHz:       60,
	}
}

// InitConfig loads the given env files (".env" when none are named). A
// missing file is not an error; the process environment still applies.
func InitConfig(files ...string) error {
	if err := godotenv.Load(files...); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Println("no .env file, using process environment")
			return nil
		}
		return fmt.Errorf("load env: %w", err)
	}

	log.Println("Successfully loaded environment variables")
	return nil
}

func GetEnvVariable(v string) (string, error) {
	if v == "" {
		return "", fmt.Errorf("input param empty")
	}
	b := os.Getenv(v)
	if b == "" {
		return "", fmt.Errorf("failed to get variable for %s", v)
	}

	return b, nil
}

// FromEnv overlays ARENA_* variables onto Defaults.
func FromEnv() (Config, error) {
	c := Defaults()
	str := map[string]*string{
		"ARENA_BACKEND":      &c.Backend,
		"ARENA_CODEC":        &c.Codec,
		"ARENA_LISTEN":       &c.ListenAddr,
		"ARENA_ADVERTISE":    &c.AdvertiseAddr,
		"ARENA_RELAY_URL":    &c.RelayURL,
		"ARENA_RELAY_LISTEN": &c.RelayListen,
		"ARENA_ROOM":         &c.Room,
		"ARENA_EDGE":         &c.Edge,
	}
	for name, dst := range str {
		if v, err := GetEnvVariable(name); err == nil {
			*dst = v
		}
	}
	ints := map[string]*int{
		"ARENA_ROCKS":       &c.Rocks,
		"ARENA_SNAPSHOT_HZ": &c.SnapshotHz,
		"ARENA_INPUT_HZ":    &c.InputHz,
		"ARENA_FRAME_HZ":    &c.FrameHz,
	}
	for name, dst := range ints {
		v, err := GetEnvVariable(name)
		if err != nil {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	switch c.Backend {
	case "mesh", "relay":
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	switch c.Codec {
	case "json", "msgpack":
	default:
		return fmt.Errorf("unknown codec %q", c.Codec)
	}
	switch c.Edge {
	case "wrap", "cull":
	default:
		return fmt.Errorf("unknown edge policy %q", c.Edge)
	}
	if c.Rocks < 0 {
		return fmt.Errorf("rock count must be >= 0, got %d", c.Rocks)
	}
	if c.SnapshotHz <= 0 || c.InputHz <= 0 || c.FrameHz <= 0 {
		return fmt.Errorf("rates must be > 0")
	}
	return nil
}
