package jwtPkg

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"HotelGate/internal/entity"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const OperatorLocalsKey = "operator"

var (
	ErrEmptyHeader    = errors.New("empty Authorization header")
	ErrInvalidFormat  = errors.New("invalid Authorization format")
	ErrEmptyToken     = errors.New("empty token")
	ErrNoSecret       = errors.New("JWT secret not configured")
	ErrInvalidClaims  = errors.New("token claims are missing required fields")
	ErrNoOperatorData = errors.New("no operator on request")
)

func Sign(data map[string]interface{}, expiresIn time.Duration, secretEnvKey string) (string, int64, error) {
	expiredAt := time.Now().Add(expiresIn).Unix()

	secret := os.Getenv(secretEnvKey)
	if secret == "" {
		return "", 0, fmt.Errorf("%s not set", secretEnvKey)
	}

	claims := jwt.MapClaims{}
	claims["exp"] = expiredAt

	for k, v := range data {
		claims[k] = v
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		logrus.WithError(err).Error("Failed to sign token")
		return "", 0, err
	}

	return signed, expiredAt, nil
}

// VerifyTokenHeader reads a Bearer token from the Authorization header.
func VerifyTokenHeader(c *fiber.Ctx, secretEnvKey string) (*jwt.Token, error) {
	header := c.Get("Authorization")
	if header == "" {
		return nil, ErrEmptyHeader
	}

	if !strings.HasPrefix(header, "Bearer ") {
		return nil, ErrInvalidFormat
	}

	return VerifyToken(strings.TrimPrefix(header, "Bearer "), secretEnvKey)
}

func VerifyToken(raw string, secretEnvKey string) (*jwt.Token, error) {
	log := logrus.WithField("func", "VerifyToken")

	accessToken := strings.TrimSpace(raw)
	if accessToken == "" {
		return nil, ErrEmptyToken
	}

	secret := os.Getenv(secretEnvKey)
	if secret == "" {
		log.Errorf("%s environment variable not set", secretEnvKey)
		return nil, ErrNoSecret
	}

	token, err := jwt.Parse(accessToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		log.WithError(err).Debug("Failed to parse JWT token")
		return nil, err
	}

	return token, nil
}

// OperatorFromToken extracts the operator identity. id and role are required.
func OperatorFromToken(token *jwt.Token) (entity.OperatorLoginData, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return entity.OperatorLoginData{}, ErrInvalidClaims
	}

	id, _ := claims["id"].(string)
	role, _ := claims["role"].(string)
	email, _ := claims["email"].(string)
	if id == "" || role == "" {
		return entity.OperatorLoginData{}, ErrInvalidClaims
	}

	return entity.OperatorLoginData{
		ID:    id,
		Email: email,
		Role:  role,
	}, nil
}

func GetOperatorLoginData(c *fiber.Ctx) (entity.OperatorLoginData, error) {
	operator, ok := c.Locals(OperatorLocalsKey).(entity.OperatorLoginData)
	if !ok {
		return entity.OperatorLoginData{}, ErrNoOperatorData
	}

	return operator, nil
}
