// Package utils holds the token and password primitives behind /api/auth.
package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kangminhyuk1111/hoops/internal/model"
)

// ErrInvalidToken covers every access token that cannot be trusted.
var ErrInvalidToken = errors.New("invalid access token")

const refreshBytes = 48

// AccessToken is a signed HS256 JWT and the moment it stops being accepted.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// RefreshToken is an opaque hex string.  Only HashRefreshRaw(Raw) is persisted.
type RefreshToken struct {
	Raw string
	Exp time.Time
}

// Claims carries the nickname next to the subject so hosts and applicants
// can be stamped on rows without a user lookup.
type Claims struct {
	Nickname string `json:"nickname"`
	jwt.RegisteredClaims
}

func NewAccessToken(secret string, userID uint64, nickname string, ttlMin int) (AccessToken, error) {
	issued := time.Now().UTC()
	exp := issued.Add(time.Duration(ttlMin) * time.Minute)

	var rc jwt.RegisteredClaims
	rc.Subject = strconv.FormatUint(userID, 10)
	rc.IssuedAt = jwt.NewNumericDate(issued)
	rc.ExpiresAt = jwt.NewNumericDate(exp)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Nickname: nickname, RegisteredClaims: rc}).
		SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken returns the principal named by raw.  Tokens without an
// expiry, with a non-HMAC algorithm or with a non-numeric subject are refused.
func ParseAccessToken(secret, raw string) (model.Principal, error) {
	keyFn := func(t *jwt.Token) (interface{}, error) {
		if _, hmac := t.Method.(*jwt.SigningMethodHMAC); !hmac {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}
	claims := new(Claims)
	if _, err := jwt.ParseWithClaims(raw, claims, keyFn, jwt.WithExpirationRequired()); err != nil {
		return model.Principal{}, ErrInvalidToken
	}
	uid, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || uid == 0 {
		return model.Principal{}, ErrInvalidToken
	}
	return model.Principal{UserID: uid, Nickname: claims.Nickname}, nil
}

func NewRefreshToken(ttlDays int) (RefreshToken, error) {
	b := make([]byte, refreshBytes)
	if _, err := rand.Read(b); err != nil {
		return RefreshToken{}, err
	}
	exp := time.Now().UTC().AddDate(0, 0, ttlDays)
	return RefreshToken{Raw: hex.EncodeToString(b), Exp: exp}, nil
}

// HashRefreshRaw is the lookup key stored in refresh_tokens.token_hash.
func HashRefreshRaw(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}
