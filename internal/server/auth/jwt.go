// Package auth implements the credential primitives of the account service:
// bcrypt password hashing and HS256-signed access/refresh tokens.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenExpired marks a token whose signature is fine but whose expiry
	// has passed. Callers log it apart from ErrInvalidToken; both end up as
	// an unauthorized outcome at the boundary.
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidToken marks a malformed token or a bad signature.
	ErrInvalidToken = errors.New("invalid token")
)

// AccessClaims are the claims carried by an access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Email    string `json:"email"`
	Fullname string `json:"fullname"`
}

// Issuer signs and verifies tokens. Access and refresh tokens use distinct
// secrets so possession of one never lets a holder forge the other. Secrets
// and lifetimes are injected at construction; rotating a secret invalidates
// every outstanding token signed with the old one.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewIssuer constructs an Issuer from the configured secrets and lifetimes.
func NewIssuer(accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// IssueAccessToken mints a short-lived token carrying the account's identity
// claims, signed with the access secret.
func (i *Issuer) IssueAccessToken(accountID, username, email, fullname string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
		},
		Username: username,
		Email:    email,
		Fullname: fullname,
	})
	return token.SignedString(i.accessSecret)
}

// IssueRefreshToken mints a long-lived token carrying the account id and a
// unique token id, signed with the refresh secret. The jti makes every issued
// token distinct: iat/exp have second granularity, so without it two tokens
// minted within the same second would serialize identically and rotation
// could hand back the very token it was meant to supersede.
func (i *Issuer) IssueRefreshToken(accountID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   accountID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.refreshTTL)),
	})
	return token.SignedString(i.refreshSecret)
}

// VerifyAccess checks signature and expiry of an access token and returns its
// claims. Expired tokens yield ErrTokenExpired, anything else ErrInvalidToken.
func (i *Issuer) VerifyAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := i.verify(tokenString, claims, i.accessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefresh checks signature and expiry of a refresh token and returns
// the account id it was issued for.
func (i *Issuer) VerifyRefresh(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	if err := i.verify(tokenString, claims, i.refreshSecret); err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (i *Issuer) verify(tokenString string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrInvalidToken
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
