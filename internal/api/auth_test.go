package api

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func signedToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func validClaims(sub string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub": sub,
		"aud": "api://aud",
		"iss": "https://issuer/",
		"exp": time.Now().Add(5 * time.Minute).Unix(),
		"nbf": time.Now().Add(-time.Minute).Unix(),
		"iat": time.Now().Add(-time.Minute).Unix(),
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{"ok", "Bearer header.payload.signature", "header.payload.signature", nil},
		{"padded", "  Bearer a.b.c  ", "a.b.c", nil},
		{"missing", "", "", errMissingAuthorization},
		{"blank", "   ", "", errMissingAuthorization},
		{"basic", "Basic a.b.c", "", errBadAuthorization},
		{"prefix only", "Bearer ", "", errBadAuthorization},
		{"many periods", "Bearer " + strings.Repeat(".", 1000), "", errBadAuthorization},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := bearerToken(tc.header)
			if err != tc.wantErr {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Fatalf("token = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestUserIDFromAuthHeaderHS256(t *testing.T) {
	secret := []byte("test-secret")
	auth := NewTestAuth(secret, "api://aud", "https://issuer/")

	userID, err := auth.UserIDFromAuthHeader("Bearer " + signedToken(t, secret, validClaims("user-123")))
	if err != nil {
		t.Fatalf("unexpected error verifying token: %v", err)
	}
	if userID != "user-123" {
		t.Fatalf("unexpected user id: %s", userID)
	}
}

func TestUserIDFromBearerRejects(t *testing.T) {
	secret := []byte("test-secret")
	auth := NewTestAuth(secret, "api://aud", "https://issuer/")

	expired := validClaims("u")
	expired["exp"] = time.Now().Add(-5 * time.Minute).Unix()
	otherAud := validClaims("u")
	otherAud["aud"] = "api://other"
	noSub := validClaims("")

	cases := map[string]string{
		"wrong secret": signedToken(t, []byte("nope"), validClaims("u")),
		"expired":      signedToken(t, secret, expired),
		"audience":     signedToken(t, secret, otherAud),
		"no subject":   signedToken(t, secret, noSub),
		"garbage":      "not-a-token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := auth.UserIDFromBearer(token); err == nil {
				t.Fatalf("expected token to be rejected")
			}
		})
	}
}

func TestRS256WithoutJWKSFails(t *testing.T) {
	auth := NewAuth(nil, "api://aud", "", time.Minute)
	token := signedToken(t, []byte("s"), validClaims("u"))
	if _, err := auth.UserIDFromBearer(token); err == nil {
		t.Fatalf("HS256 token must not pass an RS256 validator")
	}
}

func TestSignTestTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	token, err := SignTestToken(secret, "perf-user-1", "api://aud", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	userID, err := NewTestAuth(secret, "api://aud", "").UserIDFromBearer(token)
	if err != nil || userID != "perf-user-1" {
		t.Fatalf("round trip failed: %q %v", userID, err)
	}
	if _, err := SignTestToken(nil, "u", "", time.Hour); err == nil {
		t.Fatalf("expected error without secret")
	}
}
