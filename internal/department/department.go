package department

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Department identifies an authenticated acting department. Core services
// never read this from ambient state; handlers resolve it from the request
// context and pass it down explicitly.
type Department struct {
	Code     string `json:"department_code"`
	Name     string `json:"department_name"`
	Username string `json:"username"`
}

// Credential is one configured department account.
type Credential struct {
	Department
	PasswordHash string
}

type ctxKey string

const contextDepartmentKey ctxKey = "department"

func FromContext(ctx context.Context) (*Department, bool) {
	d, ok := ctx.Value(contextDepartmentKey).(*Department)
	return d, ok
}

func NewContext(ctx context.Context, d *Department) context.Context {
	return context.WithValue(ctx, contextDepartmentKey, d)
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrUnknownDepartment  = errors.New("unknown department")
)

// Claims are the JWT claims carried by both token kinds.
type Claims struct {
	DepartmentCode string `json:"department_code"`
	DepartmentName string `json:"department_name"`
	Username       string `json:"username"`
	jwt.RegisteredClaims
}

// TokenGenerator creates and validates department tokens.
type TokenGenerator interface {
	GenerateAccessToken(d Department) (string, error)
	GenerateRefreshToken(d Department) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
}

func NewJWTTokenGenerator(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		AccessTokenSecret:  []byte(accessSecret),
		RefreshTokenSecret: []byte(refreshSecret),
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
	}
}

func (j *JWTTokenGenerator) GenerateAccessToken(d Department) (string, error) {
	return j.sign(d, j.AccessTokenTTL, j.AccessTokenSecret)
}

func (j *JWTTokenGenerator) GenerateRefreshToken(d Department) (string, error) {
	return j.sign(d, j.RefreshTokenTTL, j.RefreshTokenSecret)
}

func (j *JWTTokenGenerator) sign(d Department, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := &Claims{
		DepartmentCode: d.Code,
		DepartmentName: d.Name,
		Username:       d.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   d.Code,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken parses a token against either secret. Long-lived tokens are
// checked against the refresh secret, everything else against the access
// secret.
func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		if claims, ok := token.Claims.(*Claims); ok && claims.ExpiresAt != nil {
			if time.Until(claims.ExpiresAt.Time) > j.AccessTokenTTL {
				return j.RefreshTokenSecret, nil
			}
		}
		return j.AccessTokenSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}
