package gateway

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	appErr "vexoj/pkg/errors"
)

// TokenVerifier validates a bearer token and returns the user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// JWTVerifier verifies HS256-signed JWTs.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, appErr.Newf(appErr.TokenInvalid, "unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", appErr.Wrap(err, appErr.TokenExpired)
		}
		if appErr.GetCode(err) == appErr.TokenInvalid {
			return "", err
		}
		return "", appErr.Wrap(err, appErr.TokenInvalid)
	}
	if !token.Valid {
		return "", appErr.New(appErr.TokenInvalid)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", appErr.New(appErr.TokenInvalid).WithMessage("missing claims")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", appErr.New(appErr.TokenInvalid).WithMessage("missing subject")
	}
	return sub, nil
}

var _ TokenVerifier = (*JWTVerifier)(nil)
