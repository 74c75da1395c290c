package seal

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const envelopeTag = "sealv1"

// Sealer seals and opens byte strings with a passphrase-derived key.
type Sealer struct {
	cfg        Config
	passphrase []byte
}

// New returns a Sealer for passphrase.
func New(passphrase string, cfg Config) (*Sealer, error) {
	if len(passphrase) < cfg.MinPassphraseLen {
		return nil, ErrPassphraseTooShort
	}
	return &Sealer{cfg: cfg, passphrase: []byte(passphrase)}, nil
}

// Seal encrypts plain under a fresh salt and nonce.
func (s *Sealer) Seal(plain []byte) ([]byte, error) {
	p := s.cfg.Params

	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("salt: %w", err)
	}

	aead, err := chacha20poly1305.NewX(s.deriveKey(salt, p))
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	header := fmt.Sprintf("$%s$m=%d,t=%d,p=%d", envelopeTag, p.MemoryKiB, p.Iterations, p.Parallelism)
	ct := aead.Seal(nil, nonce, plain, []byte(header))

	b64 := base64.RawStdEncoding
	out := header + "$" + b64.EncodeToString(salt) + "$" + b64.EncodeToString(nonce) + "$" + b64.EncodeToString(ct)
	return []byte(out), nil
}

// Open decrypts an envelope produced by Seal.
// Returns ErrInvalidEnvelope for malformed input and ErrDecrypt for a wrong passphrase or tampering.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	header, params, salt, nonce, ct, err := decode(string(sealed))
	if err != nil {
		return nil, err
	}

	// Anti-DoS boundary: an attacker-controlled file must not pick the derivation cost.
	if !withinReasonableBounds(params, s.cfg.Params) {
		return nil, ErrInvalidEnvelope
	}

	aead, err := chacha20poly1305.NewX(s.deriveKey(salt, params))
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, ErrInvalidEnvelope
	}

	plain, err := aead.Open(nil, nonce, ct, []byte(header))
	if err != nil {
		return nil, ErrDecrypt
	}
	return plain, nil
}

func (s *Sealer) deriveKey(salt []byte, p Argon2idParams) []byte {
	return argon2.IDKey(s.passphrase, salt, p.Iterations, p.MemoryKiB, p.Parallelism, chacha20poly1305.KeySize)
}

func withinReasonableBounds(got Argon2idParams, limits Argon2idParams) bool {
	if got.MemoryKiB > limits.MemoryKiB*2 {
		return false
	}
	if got.Iterations > limits.Iterations*2 {
		return false
	}
	if got.Parallelism > limits.Parallelism*2 {
		return false
	}
	if got.SaltLength < 8 || got.SaltLength > 64 {
		return false
	}
	return true
}

// decode splits "$sealv1$m=..,t=..,p=..$salt$nonce$ct".
func decode(encoded string) (string, Argon2idParams, []byte, []byte, []byte, error) {
	parts := strings.Split(strings.TrimSpace(encoded), "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != envelopeTag {
		return "", Argon2idParams{}, nil, nil, nil, ErrInvalidEnvelope
	}

	var mem, it, par uint32
	if _, err := fmt.Sscanf(parts[2], "m=%d,t=%d,p=%d", &mem, &it, &par); err != nil {
		return "", Argon2idParams{}, nil, nil, nil, ErrInvalidEnvelope
	}
	if mem == 0 || it == 0 || par == 0 || par > 255 {
		return "", Argon2idParams{}, nil, nil, nil, ErrInvalidEnvelope
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[3])
	if err != nil {
		return "", Argon2idParams{}, nil, nil, nil, ErrInvalidEnvelope
	}
	nonce, err := b64.DecodeString(parts[4])
	if err != nil {
		return "", Argon2idParams{}, nil, nil, nil, ErrInvalidEnvelope
	}
	ct, err := b64.DecodeString(parts[5])
	if err != nil {
		return "", Argon2idParams{}, nil, nil, nil, ErrInvalidEnvelope
	}

	params := Argon2idParams{
		MemoryKiB:   mem,
		Iterations:  it,
		Parallelism: uint8(par), // #nosec G115 -- bounded to 255 above.
		SaltLength:  uint32(len(salt)),
	}
	header := "$" + parts[1] + "$" + parts[2]
	return header, params, salt, nonce, ct, nil
}
