package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"qrattend/internal/apperr"
)

// Token stages. Each step of the two-factor protocol issues a token tagged
// with the stage it belongs to; a token is only accepted at its own stage.
const (
	StageRegister = "register"
	StageLogin    = "login"
	StageSession  = "session"
)

// Claims is the JWT payload shared by all three token stages. Subject holds
// the provisional id at the register stage and the teacher id afterwards.
type Claims struct {
	Stage    string `json:"stage"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

func issueToken(stage, subject, email, fullName, issuer, key string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	exp := now.Add(ttl)
	claims := Claims{
		Stage:    stage,
		Email:    email,
		FullName: fullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// ParseToken validates a token and requires it to carry the wanted stage.
func ParseToken(tokenStr, key, issuer, wantStage string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, apperr.Auth("session expired, please start again")
		}
		return Claims{}, apperr.Auth("invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, apperr.Auth("invalid token")
	}
	if issuer != "" && claims.Issuer != issuer {
		return Claims{}, apperr.Auth("invalid token")
	}
	if claims.Stage != wantStage {
		return Claims{}, apperr.Auth("invalid token")
	}
	return *claims, nil
}
