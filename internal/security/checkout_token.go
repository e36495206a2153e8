package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidCheckoutToken = errors.New("invalid checkout session token")

type CheckoutClaims struct {
	MerchantID string `json:"mid"`
	TokenType  string `json:"token_type"`
	jwt.RegisteredClaims
}

// CheckoutTokenManager signs the short-lived tokens a hosted checkout page
// presents instead of an API key. Subject is the checkout session id.
type CheckoutTokenManager struct {
	issuer string
	secret []byte
}

func NewCheckoutTokenManager(issuer, secret string) *CheckoutTokenManager {
	return &CheckoutTokenManager{issuer: issuer, secret: []byte(secret)}
}

func (m *CheckoutTokenManager) SignSessionToken(sessionID, merchantID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := CheckoutClaims{
		MerchantID: merchantID,
		TokenType:  "checkout_session",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *CheckoutTokenManager) ParseSessionToken(raw string) (*CheckoutClaims, error) {
	claims := &CheckoutClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrInvalidCheckoutToken
	}
	if claims.TokenType != "checkout_session" || claims.Subject == "" {
		return nil, ErrInvalidCheckoutToken
	}
	return claims, nil
}
