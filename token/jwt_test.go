package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newHS256Codec(t *testing.T) *JWTCodec {
	t.Helper()
	codec, err := NewJWTCodec(JWTConfig{
		SigningMethod: MethodHS256,
		PrivateKey:    testSecret('k'),
		Issuer:        "cookieauth-test",
	})
	if err != nil {
		t.Fatalf("new jwt codec: %v", err)
	}
	return codec
}

func TestJWTConfigValidation(t *testing.T) {
	if _, err := NewJWTCodec(JWTConfig{SigningMethod: MethodHS256, PrivateKey: []byte("short")}); err == nil {
		t.Fatal("expected error for short hs256 secret")
	}
	if _, err := NewJWTCodec(JWTConfig{SigningMethod: "rs512"}); err == nil {
		t.Fatal("expected error for unsupported method")
	}
	if _, err := NewJWTCodec(JWTConfig{SigningMethod: MethodHS256, PrivateKey: testSecret('k'), Leeway: time.Hour}); err == nil {
		t.Fatal("expected error for excessive leeway")
	}
	if _, err := NewJWTCodec(JWTConfig{SigningMethod: MethodEd25519, PrivateKey: []byte("bad"), PublicKey: []byte("bad")}); err == nil {
		t.Fatal("expected error for malformed ed25519 keys")
	}
}

func TestJWTHS256RoundTrip(t *testing.T) {
	codec := newHS256Codec(t)
	sid := freshSessionID(t)

	tok, err := codec.Encode(sid, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := codec.Decode(tok)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != sid {
		t.Fatalf("session id mismatch: got %q want %q", got, sid)
	}
}

func TestJWTEd25519RoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	codec, err := NewJWTCodec(JWTConfig{
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
	})
	if err != nil {
		t.Fatalf("new jwt codec: %v", err)
	}

	sid := freshSessionID(t)
	tok, err := codec.Encode(sid, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := codec.Decode(tok)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != sid {
		t.Fatalf("session id mismatch: got %q want %q", got, sid)
	}
}

func TestJWTDecodeRejectsExpired(t *testing.T) {
	codec := newHS256Codec(t)

	tok, err := codec.Encode(freshSessionID(t), time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if _, err := codec.Decode(tok); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for expired token, got %v", err)
	}
}

func TestJWTDecodeRejectsForeignIssuer(t *testing.T) {
	codec := newHS256Codec(t)

	foreign, err := NewJWTCodec(JWTConfig{
		SigningMethod: MethodHS256,
		PrivateKey:    testSecret('k'),
		Issuer:        "someone-else",
	})
	if err != nil {
		t.Fatalf("new jwt codec: %v", err)
	}

	tok, err := foreign.Encode(freshSessionID(t), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if _, err := codec.Decode(tok); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for foreign issuer, got %v", err)
	}
}

func TestJWTDecodeRejectsAlgConfusion(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	codec, err := NewJWTCodec(JWTConfig{
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
	})
	if err != nil {
		t.Fatalf("new jwt codec: %v", err)
	}

	// An HS256 token signed with the public key as the shared secret must be
	// rejected by method allow-listing, not reach key verification at all.
	claims := sessionClaims{
		SID: freshSessionID(t),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(pub))
	if err != nil {
		t.Fatalf("sign forged token: %v", err)
	}

	if _, err := codec.Decode(forged); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for alg confusion, got %v", err)
	}
}

func TestJWTDecodeRejectsMissingSID(t *testing.T) {
	codec := newHS256Codec(t)

	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    "cookieauth-test",
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret('k'))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := codec.Decode(tok); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for missing sid, got %v", err)
	}
}
