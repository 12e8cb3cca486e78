package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/ims-backend/pkg/config"
	"github.com/angelmondragon/ims-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func testJWTConfig(minutes int) config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "ims",
		ExpirationMinutes: minutes,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig(30)
	now := time.Now().UTC()
	employeeID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{
		EmployeeID: employeeID,
		Role:       enums.EmployeeRoleManager,
		JTI:        "session-1",
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims.EmployeeID != employeeID {
		t.Fatalf("expected employee_id %s, got %s", employeeID, claims.EmployeeID)
	}
	if claims.Role != enums.EmployeeRoleManager {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.ID != "session-1" {
		t.Fatalf("expected jti session-1, got %q", claims.ID)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}

	exp := now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v (diff %v)", exp.UTC(), claims.ExpiresAt.UTC(), diff)
	}
}

func TestMintAccessTokenGeneratesJTI(t *testing.T) {
	cfg := testJWTConfig(5)
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		EmployeeID: uuid.New(),
		Role:       enums.EmployeeRoleEmployee,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if _, err := uuid.Parse(claims.ID); err != nil {
		t.Fatalf("expected uuid jti, got %q", claims.ID)
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := testJWTConfig(10)
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		EmployeeID: uuid.New(),
		Role:       enums.EmployeeRoleAdmin,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err := ParseAccessToken(cfg, token+"x"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected invalid signature error, got %v", err)
	}

	other := cfg
	other.Secret = "other"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected wrong secret to fail")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := testJWTConfig(15)
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{
		EmployeeID: uuid.New(),
		Role:       enums.EmployeeRoleEmployee,
		JTI:        "old-session",
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	_, err = ParseAccessToken(cfg, token)
	if err == nil {
		t.Fatal("expected expiration error")
	}
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := ParseAccessTokenAllowExpired(cfg, token)
	if err != nil {
		t.Fatalf("allow expired parse failed: %v", err)
	}
	if claims.ID != "old-session" {
		t.Fatalf("expected jti old-session, got %q", claims.ID)
	}
}

func TestMintAccessTokenValidatesPayload(t *testing.T) {
	cfg := testJWTConfig(5)
	now := time.Now()

	if _, err := MintAccessToken(cfg, now, AccessTokenPayload{EmployeeID: uuid.New()}); err == nil {
		t.Fatal("expected invalid role error")
	}
	if _, err := MintAccessToken(cfg, now, AccessTokenPayload{Role: enums.EmployeeRoleAdmin}); err == nil {
		t.Fatal("expected missing employee id error")
	}
	if _, err := MintAccessToken(config.JWTConfig{Issuer: "ims", ExpirationMinutes: 5}, now, AccessTokenPayload{
		EmployeeID: uuid.New(),
		Role:       enums.EmployeeRoleAdmin,
	}); err == nil {
		t.Fatal("expected missing secret error")
	}
}

func TestParseRejectsForeignIssuerAndAlgorithm(t *testing.T) {
	cfg := testJWTConfig(5)
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{EmployeeID: uuid.New(), Role: enums.EmployeeRoleAdmin})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	other := cfg
	other.Issuer = "someone-else"
	if _, err := ParseAccessToken(other, token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected issuer mismatch, got %v", err)
	}
	if _, err := ParseAccessTokenAllowExpired(other, token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected issuer mismatch on lenient parse, got %v", err)
	}

	employeeID := uuid.New()
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, AccessTokenClaims{
		EmployeeID: employeeID,
		Role:       enums.EmployeeRoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   employeeID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("build unsigned token: %v", err)
	}
	if _, err := ParseAccessToken(cfg, unsigned); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected alg none to be rejected, got %v", err)
	}
}

func TestParseToleratesSmallClockSkew(t *testing.T) {
	cfg := testJWTConfig(5)
	token, err := MintAccessToken(cfg, time.Now().Add(10*time.Second), AccessTokenPayload{EmployeeID: uuid.New(), Role: enums.EmployeeRoleEmployee})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	if _, err := ParseAccessToken(cfg, token); err != nil {
		t.Fatalf("token minted slightly ahead should parse: %v", err)
	}
	if TTL(cfg) != 5*time.Minute {
		t.Fatalf("unexpected ttl %v", TTL(cfg))
	}
}
