package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims is the caller identity carried by a bearer token. DoctorUID is
// the opaque subject identifier every persisted artifact is scoped by.
type Claims struct {
	DoctorUID string `json:"doctor_uid"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	jwtlib.RegisteredClaims
}

func GenerateToken(doctorUID, email, name string, secret []byte, ttl time.Duration) (string, error) {
	claims := Claims{
		DoctorUID: doctorUID,
		Email:     email,
		Name:      name,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(time.Now()),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func ParseToken(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(tokenString, &Claims{}, func(token *jwtlib.Token) (interface{}, error) {
		if token.Method.Alg() != jwtlib.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.DoctorUID == "" {
		return nil, errors.New("token missing subject")
	}
	return claims, nil
}
