package auth

import (
	"strconv"
	"time"

	"quiz-backend/internal/domain"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// TokenIssuer signs HS256 bearer tokens carrying the user id as subject.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (i *TokenIssuer) Issue(userID int64) (string, domain.TokenClaims, error) {
	now := i.now()
	claims := domain.TokenClaims{
		UserID:    userID,
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(i.ttl).Truncate(time.Second),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ID:        claims.TokenID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", domain.TokenClaims{}, err
	}
	return signed, claims, nil
}

// Parse verifies signature and expiry. Every failure maps to domain.ErrInvalidToken.
func (i *TokenIssuer) Parse(tokenString string) (domain.TokenClaims, error) {
	var rc jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &rc, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid || rc.ExpiresAt == nil {
		return domain.TokenClaims{}, domain.ErrInvalidToken
	}
	userID, err := strconv.ParseInt(rc.Subject, 10, 64)
	if err != nil || userID <= 0 || rc.ID == "" {
		return domain.TokenClaims{}, domain.ErrInvalidToken
	}
	return domain.TokenClaims{
		UserID:    userID,
		TokenID:   rc.ID,
		ExpiresAt: rc.ExpiresAt.Time,
	}, nil
}
