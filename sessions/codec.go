package sessions

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
)

// Codec transforms a session blob to and from its cookie representation.
type Codec interface {
	// Seal converts plaintext into transportable cookie text.
	Seal(plaintext string) string
	// Open is the exact inverse of Seal. Implementations may return garbage
	// rather than an error for a wrong key; callers treat any downstream
	// JSON-parse failure as "no session".
	Open(ciphertext string) (string, error)
}

// XORCodec obscures the session blob with a keyed byte-wise XOR and encodes
// it as base64. This is an obfuscation layer, not encryption: it stops
// casual inspection of the cookie but gives no integrity guarantee. A
// tampered cookie opens to garbage instead of being rejected. The tokens it
// wraps are independently validated server-side, which is why the weaker
// guarantee is acceptable here.
type XORCodec struct {
	key []byte
}

func NewXORCodec(secret string) *XORCodec {
	return &XORCodec{key: []byte(secret)}
}

func (c *XORCodec) Seal(plaintext string) string {
	return base64.URLEncoding.EncodeToString(c.transform([]byte(plaintext)))
}

func (c *XORCodec) Open(ciphertext string) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errors.Wrap(err, "session codec: base64 decode")
	}
	return string(c.transform(raw)), nil
}

func (c *XORCodec) transform(data []byte) []byte {
	if len(c.key) == 0 {
		return data
	}
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ c.key[i%len(c.key)]
	}
	return out
}

// AEADCodec is the authenticated-encryption alternative behind the same
// contract, for deployments that need real confidentiality and integrity on
// the cookie. A wrong key or tampered value fails Open outright instead of
// producing garbage.
type AEADCodec struct {
	key [32]byte
}

func NewAEADCodec(secret string) *AEADCodec {
	return &AEADCodec{key: sha256.Sum256([]byte(secret))}
}

func (c *AEADCodec) Seal(plaintext string) string {
	aead, err := chacha20poly1305.NewX(c.key[:])
	if err != nil {
		// Key length is fixed by construction; NewX cannot fail here.
		panic(err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		panic(err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.URLEncoding.EncodeToString(sealed)
}

func (c *AEADCodec) Open(ciphertext string) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errors.Wrap(err, "session codec: base64 decode")
	}
	aead, err := chacha20poly1305.NewX(c.key[:])
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize() {
		return "", errors.New("session codec: ciphertext too short")
	}
	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	opened, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", errors.Wrap(err, "session codec: open")
	}
	return string(opened), nil
}
