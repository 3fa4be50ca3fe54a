package fakeapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// newID returns an ObjectID in hex, the id shape the real backend stores.
func newID() string {
	return primitive.NewObjectID().Hex()
}

func (b *Backend) generateToken(user *userRecord) (string, error) {
	return b.sign(user, b.opts.TokenTTL)
}

// IssueToken signs a token for an existing user. A negative ttl yields an
// already expired token.
func (b *Backend) IssueToken(userID string, ttl time.Duration) (string, error) {
	b.mu.Lock()
	user, ok := b.users[userID]
	b.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("user %s not found", userID)
	}
	return b.sign(user, ttl)
}

func (b *Backend) sign(user *userRecord, ttl time.Duration) (string, error) {
	now := b.opts.Now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        newID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(b.opts.Secret)
}

func (b *Backend) validateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return b.opts.Secret, nil
	}, jwt.WithTimeFunc(b.opts.Now))
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
