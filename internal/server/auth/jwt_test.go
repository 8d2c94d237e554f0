package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestIssuer(accessTTL, refreshTTL time.Duration) *Issuer {
	return NewIssuer([]byte("access-secret"), []byte("refresh-secret"), accessTTL, refreshTTL)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	i := newTestIssuer(time.Hour, 72*time.Hour)

	token, err := i.IssueAccessToken("u-1", "alice", "alice@x.com", "Alice A")
	if err != nil {
		t.Fatalf("IssueAccessToken error: %v", err)
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}

	claims, err := i.VerifyAccess(token)
	if err != nil {
		t.Fatalf("VerifyAccess error: %v", err)
	}
	if claims.Subject != "u-1" || claims.Username != "alice" ||
		claims.Email != "alice@x.com" || claims.Fullname != "Alice A" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	i := newTestIssuer(time.Hour, 72*time.Hour)

	token, err := i.IssueRefreshToken("u-1")
	if err != nil {
		t.Fatalf("IssueRefreshToken error: %v", err)
	}

	id, err := i.VerifyRefresh(token)
	if err != nil {
		t.Fatalf("VerifyRefresh error: %v", err)
	}
	if id != "u-1" {
		t.Fatalf("expected account id u-1, got %q", id)
	}
}

func TestRefreshTokensAreUniquePerIssue(t *testing.T) {
	i := newTestIssuer(time.Hour, 72*time.Hour)

	// iat/exp only resolve to the second; the jti must keep tokens minted
	// back to back from serializing identically
	seen := make(map[string]bool)
	for n := 0; n < 10; n++ {
		token, err := i.IssueRefreshToken("u-1")
		if err != nil {
			t.Fatalf("IssueRefreshToken error: %v", err)
		}
		if seen[token] {
			t.Fatalf("issued a duplicate refresh token: %q", token)
		}
		seen[token] = true
	}
}

func TestSecretsAreDistinct(t *testing.T) {
	i := newTestIssuer(time.Hour, 72*time.Hour)

	refresh, err := i.IssueRefreshToken("u-1")
	if err != nil {
		t.Fatalf("IssueRefreshToken error: %v", err)
	}
	if _, err := i.VerifyAccess(refresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access secret accepted a refresh token: %v", err)
	}

	access, err := i.IssueAccessToken("u-1", "alice", "alice@x.com", "Alice A")
	if err != nil {
		t.Fatalf("IssueAccessToken error: %v", err)
	}
	if _, err := i.VerifyRefresh(access); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh secret accepted an access token: %v", err)
	}
}

func TestExpiredTokenIsDistinguishable(t *testing.T) {
	i := newTestIssuer(-time.Minute, -time.Minute)

	access, err := i.IssueAccessToken("u-1", "alice", "alice@x.com", "Alice A")
	if err != nil {
		t.Fatalf("IssueAccessToken error: %v", err)
	}
	if _, err := i.VerifyAccess(access); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	refresh, err := i.IssueRefreshToken("u-1")
	if err != nil {
		t.Fatalf("IssueRefreshToken error: %v", err)
	}
	if _, err := i.VerifyRefresh(refresh); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTamperedTokenIsInvalid(t *testing.T) {
	i := newTestIssuer(time.Hour, 72*time.Hour)

	token, err := i.IssueAccessToken("u-1", "alice", "alice@x.com", "Alice A")
	if err != nil {
		t.Fatalf("IssueAccessToken error: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := i.VerifyAccess(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	if _, err := i.VerifyAccess("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestOtherIssuerSignatureRejected(t *testing.T) {
	ours := newTestIssuer(time.Hour, 72*time.Hour)
	theirs := NewIssuer([]byte("other-access"), []byte("other-refresh"), time.Hour, 72*time.Hour)

	token, err := theirs.IssueRefreshToken("u-1")
	if err != nil {
		t.Fatalf("IssueRefreshToken error: %v", err)
	}
	if _, err := ours.VerifyRefresh(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign signature, got %v", err)
	}
}
