package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrManifestInvalid = errors.New("backup manifest is invalid")
	ErrDigestMismatch  = errors.New("backup digest does not match manifest")
	ErrNoSigningSecret = errors.New("backup signing secret is not configured")
)

const manifestIssuer = "ontrakk-backup"

// Manifest describes a mirrored bundle.
type Manifest struct {
	BackupID  string `json:"backupId"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
	Entries   int    `json:"entries"`
	Workouts  int    `json:"workouts"`
	Digest    string `json:"digest"`
}

type manifestClaims struct {
	Manifest
	jwt.RegisteredClaims
}

// Digest returns the hex sha256 of the bundle bytes.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SignManifest выпускает HS256 токен с описанием бэкапа.
func SignManifest(secret []byte, m Manifest, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", ErrNoSigningSecret
	}
	claims := manifestClaims{
		Manifest: m,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   manifestIssuer,
			Subject:  m.BackupID,
			ID:       m.Digest,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign manifest: %w", err)
	}
	return signed, nil
}

// VerifyManifest checks the token signature and that bundle hashes to the
// digest it carries.
func VerifyManifest(secret []byte, tokenString string, bundle []byte) (Manifest, error) {
	if len(secret) == 0 {
		return Manifest{}, ErrNoSigningSecret
	}
	claims := &manifestClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(manifestIssuer))
	if err != nil || !token.Valid {
		return Manifest{}, fmt.Errorf("%w: %v", ErrManifestInvalid, err)
	}
	if claims.Digest != Digest(bundle) {
		return claims.Manifest, ErrDigestMismatch
	}
	return claims.Manifest, nil
}
