package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Secret is the HS256 signing key, set from config at startup.
var Secret = []byte("dev-secret-change-me")

const tokenTTL = 24 * time.Hour

type Claims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

// SignToken issues a session token for a user.
func SignToken(userID int) (string, error) {
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "chatrelay",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(Secret)
}

// VerifyToken validates a session token and returns the user id it carries.
func VerifyToken(tokenString string) (int, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return Secret, nil
	})
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return 0, jwt.ErrSignatureInvalid
	}
	if claims.UserID == 0 {
		return 0, errors.New("token missing user id")
	}
	return claims.UserID, nil
}
