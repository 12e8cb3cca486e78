package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/angelmondragon/ims-backend/pkg/config"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

var ErrInvalidHash = errors.New("invalid password hash")

const (
	argonPrefix  = "$argon2id$"
	pbkdf2Prefix = "pbkdf2_sha256$"
)

// argonHash is the PHC-formatted Argon2id hash stored on employees:
// $argon2id$v=19$m=<KiB>,t=<passes>,p=<threads>$<salt>$<key>
type argonHash struct {
	memory  uint32
	passes  uint32
	threads uint8
	salt    []byte
	key     []byte
}

func (h argonHash) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.passes, h.threads,
		base64.RawStdEncoding.EncodeToString(h.salt),
		base64.RawStdEncoding.EncodeToString(h.key))
}

func (h argonHash) derive(password string) []byte {
	return argon2.IDKey([]byte(password), h.salt, h.passes, h.memory, h.threads, uint32(len(h.key)))
}

// HashPassword returns an Argon2id hash using the configured cost.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	h := argonFromConfig(cfg)
	h.salt = make([]byte, clamp(cfg.ArgonSaltLen, 8, 64))
	if _, err := rand.Read(h.salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	h.key = make([]byte, clamp(cfg.ArgonKeyLen, 16, 64))
	h.key = h.derive(password)
	return h.String(), nil
}

// VerifyPassword checks password against an Argon2id hash or a legacy
// pbkdf2_sha256 hash carried over from imported accounts.
func VerifyPassword(password, encoded string) (bool, error) {
	switch {
	case strings.HasPrefix(encoded, argonPrefix):
		h, err := parseArgon(encoded)
		if err != nil {
			return false, err
		}
		return subtle.ConstantTimeCompare(h.key, h.derive(password)) == 1, nil
	case strings.HasPrefix(encoded, pbkdf2Prefix):
		return verifyPBKDF2(password, encoded)
	default:
		return false, ErrInvalidHash
	}
}

// NeedsRehash reports whether a verified hash should be replaced: legacy
// formats always, Argon2id when it is cheaper than the current config.
func NeedsRehash(encoded string, cfg config.PasswordConfig) bool {
	h, err := parseArgon(encoded)
	if err != nil {
		return true
	}
	want := argonFromConfig(cfg)
	return h.memory < want.memory || h.passes < want.passes || h.threads < want.threads
}

func argonFromConfig(cfg config.PasswordConfig) argonHash {
	return argonHash{
		memory:  uint32(clamp(cfg.ArgonMemoryKB, 8, 512*1024)),
		passes:  uint32(clamp(cfg.ArgonTime, 1, 10)),
		threads: uint8(clamp(cfg.ArgonParallelism, 1, 255)),
	}
}

func parseArgon(encoded string) (argonHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return argonHash{}, ErrInvalidHash
	}
	var h argonHash
	for _, field := range strings.Split(parts[3], ",") {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return argonHash{}, ErrInvalidHash
		}
		var bits int
		var dst func(uint64)
		switch key {
		case "m":
			bits, dst = 32, func(v uint64) { h.memory = uint32(v) }
		case "t":
			bits, dst = 32, func(v uint64) { h.passes = uint32(v) }
		case "p":
			bits, dst = 8, func(v uint64) { h.threads = uint8(v) }
		default:
			continue
		}
		v, err := strconv.ParseUint(value, 10, bits)
		if err != nil {
			return argonHash{}, ErrInvalidHash
		}
		dst(v)
	}
	if h.memory == 0 || h.passes == 0 || h.threads == 0 {
		return argonHash{}, ErrInvalidHash
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return argonHash{}, ErrInvalidHash
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(h.key) == 0 {
		return argonHash{}, ErrInvalidHash
	}
	return h, nil
}

// verifyPBKDF2 understands pbkdf2_sha256$<iterations>$<salt>$<base64 key>.
func verifyPBKDF2(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 4 {
		return false, ErrInvalidHash
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return false, ErrInvalidHash
	}
	want, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil || len(want) == 0 {
		return false, ErrInvalidHash
	}
	got := pbkdf2.Key([]byte(password), []byte(parts[2]), iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

func clamp(value, lo, hi int) int {
	return max(lo, min(value, hi))
}

// GenerateUnusablePassword returns a random secret for accounts created
// without a password; the owner must go through the reset flow.
func GenerateUnusablePassword() (string, error) {
	return GenerateOpaqueToken(24)
}
