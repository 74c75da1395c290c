package seal

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Argon2idParams controls key-derivation cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
}

// Config is the single configuration surface for this package.
type Config struct {
	Params           Argon2idParams
	MinPassphraseLen int
}

// DefaultConfig returns parameters sized for a phone-class device.
func DefaultConfig() Config {
	return Config{
		Params: Argon2idParams{
			MemoryKiB:   19 * 1024,
			Iterations:  2,
			Parallelism: 1,
			SaltLength:  16,
		},
		MinPassphraseLen: 8,
	}
}

// FromEnv loads config from environment variables.
//
// Env surface:
// - SENTINEL_SEAL_MEMORY_KIB
// - SENTINEL_SEAL_ITERATIONS
// - SENTINEL_SEAL_PARALLELISM
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := lookupUint(os.LookupEnv("SENTINEL_SEAL_MEMORY_KIB")); ok {
		if v < 8*1024 || v > 1024*1024 {
			return Config{}, fmt.Errorf("SENTINEL_SEAL_MEMORY_KIB out of range: %d", v)
		}
		cfg.Params.MemoryKiB = uint32(v)
	}
	if v, ok := lookupUint(os.LookupEnv("SENTINEL_SEAL_ITERATIONS")); ok {
		if v < 1 || v > 10 {
			return Config{}, fmt.Errorf("SENTINEL_SEAL_ITERATIONS out of range: %d", v)
		}
		cfg.Params.Iterations = uint32(v)
	}
	if v, ok := lookupUint(os.LookupEnv("SENTINEL_SEAL_PARALLELISM")); ok {
		if v < 1 || v > 16 {
			return Config{}, fmt.Errorf("SENTINEL_SEAL_PARALLELISM out of range: %d", v)
		}
		cfg.Params.Parallelism = uint8(v)
	}

	return cfg, nil
}

func lookupUint(raw string, ok bool) (uint64, bool) {
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0, false
	}
	return n, true
}
