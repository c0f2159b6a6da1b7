package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/dkrieger7/cookieauth/internal"
)

const (
	hmacTokenVersion = 1

	hmacHeaderSize = 1 + 16 + 8 // version | session id | expiry
	hmacTagSize    = sha256.Size
	hmacTokenSize  = hmacHeaderSize + hmacTagSize

	minSecretLength = 32
)

// HMACCodec is the default Codec: version byte, raw session id, big-endian
// expiry, and an HMAC-SHA256 tag over all of it, base64url encoded. The
// token carries nothing a client could decode into useful state beyond the
// opaque id.
//
// Multiple secrets support key rotation: the first secret signs, every
// secret verifies, so tokens issued under the previous key stay valid during
// the transition.
type HMACCodec struct {
	secrets [][]byte
}

// NewHMACCodec creates an HMACCodec. At least one secret of 32 bytes or more
// is required.
func NewHMACCodec(secrets ...[]byte) (*HMACCodec, error) {
	if len(secrets) == 0 {
		return nil, errors.New("at least one secret required")
	}
	for i, s := range secrets {
		if len(s) < minSecretLength {
			return nil, fmt.Errorf("secret %d has %d bytes, need at least %d", i, len(s), minSecretLength)
		}
	}

	cloned := make([][]byte, len(secrets))
	for i, s := range secrets {
		cloned[i] = append([]byte(nil), s...)
	}
	return &HMACCodec{secrets: cloned}, nil
}

// Encode produces the signed token for a session id and its expiry bound.
func (c *HMACCodec) Encode(sessionID string, expiresAt time.Time) (string, error) {
	sid, err := internal.ParseSessionID(sessionID)
	if err != nil {
		return "", err
	}

	var raw [hmacTokenSize]byte
	raw[0] = hmacTokenVersion
	copy(raw[1:1+len(sid)], sid[:])
	binary.BigEndian.PutUint64(raw[1+len(sid):hmacHeaderSize], uint64(expiresAt.Unix()))

	tag := c.sign(raw[:hmacHeaderSize], c.secrets[0])
	copy(raw[hmacHeaderSize:], tag)

	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// Decode verifies integrity and the expiry bound, returning the session id.
// Every failure mode collapses to ErrInvalid.
func (c *HMACCodec) Decode(tok string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		return "", ErrInvalid
	}
	if len(raw) != hmacTokenSize {
		return "", ErrInvalid
	}
	if raw[0] != hmacTokenVersion {
		return "", ErrInvalid
	}

	header, tag := raw[:hmacHeaderSize], raw[hmacHeaderSize:]

	// hmac.Equal is constant-time; trying every secret keeps rotated keys
	// verifiable without leaking which key matched.
	var valid bool
	for _, secret := range c.secrets {
		expected := c.sign(header, secret)
		if hmac.Equal(tag, expected) {
			valid = true
		}
	}
	if !valid {
		return "", ErrInvalid
	}

	expiresAt := int64(binary.BigEndian.Uint64(header[1+16 : hmacHeaderSize]))
	if time.Now().Unix() >= expiresAt {
		return "", ErrInvalid
	}

	var sid internal.SessionID
	copy(sid[:], header[1:1+len(sid)])
	return sid.String(), nil
}

func (c *HMACCodec) sign(data, secret []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(data)
	return mac.Sum(nil)
}
