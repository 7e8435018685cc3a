package auth

import (
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domain "taskhive/domain/realtime"
	"taskhive/errors"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// Verifier decides, once per handshake, what kind of connection is asking to
// be admitted: a user token yields a User kind carrying the verified
// identity, the worker shared secret yields the privileged Worker kind.
// Anything else is refused before any state is created.
type Verifier struct {
	jwtKey       []byte
	workerSecret []byte
}

func NewVerifier(jwtKey, workerSecret string) *Verifier {
	return &Verifier{jwtKey: []byte(jwtKey), workerSecret: []byte(workerSecret)}
}

// VerifyToken parses and validates the signature and expiration of a JWT
// string and returns the user connection kind for its identity.
func (v *Verifier) VerifyToken(tokenString string) (domain.ConnectionKind, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.jwtKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.ConnectionKind{}, fmt.Errorf("%w: %w", errors.ErrAuthRejected, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return domain.ConnectionKind{}, errors.ErrAuthRejected
	}
	return domain.UserKind(domain.Identity(claims.UserID)), nil
}

// VerifyWorkerSecret admits the privileged worker channel. Constant-time
// compare; an empty configured secret disables the channel entirely.
func (v *Verifier) VerifyWorkerSecret(secret string) (domain.ConnectionKind, error) {
	if len(v.workerSecret) == 0 {
		return domain.ConnectionKind{}, fmt.Errorf("%w: worker channel disabled", errors.ErrAuthRejected)
	}
	if subtle.ConstantTimeCompare([]byte(secret), v.workerSecret) != 1 {
		return domain.ConnectionKind{}, fmt.Errorf("%w: bad worker secret", errors.ErrAuthRejected)
	}
	return domain.WorkerKind(), nil
}

// GenerateToken creates a signed JWT for a specific user. Kept alongside the
// verifier so the worker binary and the tests mint tokens the same way the
// platform's auth service does.
func GenerateToken(jwtKey, userID string, roles []string,
	authTokenDuration time.Duration) (string, error) {
	expirationTime := time.Now().Add(authTokenDuration)

	claims := &CustomClaims{
		UserID: userID,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "taskhive",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtKey))
}
