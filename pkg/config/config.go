// Package config reads the runtime's environment-variable configuration
// once at construction (spec §6), the way PGraph's constructor does with
// getenv, but pulled out into an explicit value rather than read inline —
// generalizing zeonica's config.DeviceBuilder pattern of a pure config
// struct built once and handed to the rest of the program.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config is the machine's environment-variable configuration, read once.
type Config struct {
	// BoardsX/BoardsY are the host link's board mesh dimensions
	// (POLITE_BOARDS_X/Y), defaulting to 1x1.
	BoardsX, BoardsY uint32

	// HostlinkBoxesX/Y scale the board mesh by physical HostLink box count
	// (HOSTLINK_BOXES_X/Y), defaulting to 1x1, mirroring the constructor
	// in PGraph.h.
	HostlinkBoxesX, HostlinkBoxesY uint32

	// Chatty is POLITE_CHATTY's verbosity level; 0 disables extra output.
	Chatty int
}

// Default is the configuration that applies when no environment variables
// are set.
var Default = Config{
	BoardsX: 1, BoardsY: 1,
	HostlinkBoxesX: 1, HostlinkBoxesY: 1,
	Chatty: 0,
}

// Load reads Config from the process environment, falling back to Default
// for any variable that isn't set. It returns an error rather than
// panicking on a malformed value, since a bad environment variable is a
// caller mistake to report, not a programming error to crash on.
func Load() (Config, error) {
	c := Default

	var err error
	if c.BoardsX, err = envUint32("POLITE_BOARDS_X", c.BoardsX); err != nil {
		return Config{}, err
	}
	if c.BoardsY, err = envUint32("POLITE_BOARDS_Y", c.BoardsY); err != nil {
		return Config{}, err
	}
	if c.HostlinkBoxesX, err = envUint32("HOSTLINK_BOXES_X", c.HostlinkBoxesX); err != nil {
		return Config{}, err
	}
	if c.HostlinkBoxesY, err = envUint32("HOSTLINK_BOXES_Y", c.HostlinkBoxesY); err != nil {
		return Config{}, err
	}

	if str, ok := os.LookupEnv("POLITE_CHATTY"); ok {
		v, err := strconv.Atoi(str)
		if err != nil {
			return Config{}, fmt.Errorf("config: POLITE_CHATTY: %w", err)
		}
		c.Chatty = v
	}

	return c, nil
}

func envUint32(name string, fallback uint32) (uint32, error) {
	str, ok := os.LookupEnv(name)
	if !ok {
		return fallback, nil
	}
	v, err := strconv.ParseUint(str, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", name, err)
	}
	return uint32(v), nil
}
