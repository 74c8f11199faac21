package gateway_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"vexoj/internal/gateway"
	appErr "vexoj/pkg/errors"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestVerifyValidToken(t *testing.T) {
	verifier := gateway.NewJWTVerifier(testSecret)
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": "user-42",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	userID, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if userID != "user-42" {
		t.Fatalf("user id = %q, want user-42", userID)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	verifier := gateway.NewJWTVerifier(testSecret)
	token := signToken(t, "other-secret", jwt.MapClaims{
		"sub": "user-42",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := verifier.Verify(token)
	if appErr.GetCode(err) != appErr.TokenInvalid {
		t.Fatalf("error code = %d, want %d", appErr.GetCode(err), appErr.TokenInvalid)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	verifier := gateway.NewJWTVerifier(testSecret)
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": "user-42",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := verifier.Verify(token)
	if appErr.GetCode(err) != appErr.TokenExpired {
		t.Fatalf("error code = %d, want %d", appErr.GetCode(err), appErr.TokenExpired)
	}
}

func TestVerifyMissingSubject(t *testing.T) {
	verifier := gateway.NewJWTVerifier(testSecret)
	token := signToken(t, testSecret, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := verifier.Verify(token)
	if appErr.GetCode(err) != appErr.TokenInvalid {
		t.Fatalf("error code = %d, want %d", appErr.GetCode(err), appErr.TokenInvalid)
	}
}

func TestVerifyGarbage(t *testing.T) {
	verifier := gateway.NewJWTVerifier(testSecret)
	if _, err := verifier.Verify("not.a.jwt"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}
