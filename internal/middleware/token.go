package middleware

import (
	jwtPkg "HotelGate/pkg/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const (
	AccessTokenSecret = "JWT_ACCESS_TOKEN_SECRET"
	AccessTokenQuery  = "access_token"
)

// NewTokenMiddleware authenticates the operator. Browsers cannot set headers
// on a WebSocket upgrade, so the token may also come as ?access_token=.
func (m *middleware) NewTokenMiddleware(ctx *fiber.Ctx) error {
	var (
		token *jwt.Token
		err   error
	)
	if ctx.Get("Authorization") != "" {
		token, err = jwtPkg.VerifyTokenHeader(ctx, AccessTokenSecret)
	} else {
		token, err = jwtPkg.VerifyToken(ctx.Query(AccessTokenQuery), AccessTokenSecret)
	}
	if err != nil {
		m.log.WithFields(logrus.Fields{
			"path":      ctx.Path(),
			"client_ip": ctx.IP(),
			"error":     err.Error(),
		}).Warn("Token verification failed")
		return unauthorized(ctx)
	}

	operator, err := jwtPkg.OperatorFromToken(token)
	if err != nil {
		m.log.WithFields(logrus.Fields{
			"path":  ctx.Path(),
			"error": err.Error(),
		}).Warn("Token claims check")
		return unauthorized(ctx)
	}

	ctx.Locals(jwtPkg.OperatorLocalsKey, operator)
	ctx.Locals("operator_id", operator.ID)

	m.log.WithFields(logrus.Fields{
		"operator_id": operator.ID,
		"role":        operator.Role,
	}).Debug("Authentication successful")

	return ctx.Next()
}

// RequireRole must run after NewTokenMiddleware.
func (m *middleware) RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(ctx *fiber.Ctx) error {
		operator, err := jwtPkg.GetOperatorLoginData(ctx)
		if err != nil {
			return unauthorized(ctx)
		}

		if _, ok := allowed[operator.Role]; !ok {
			m.log.WithFields(logrus.Fields{
				"operator_id": operator.ID,
				"role":        operator.Role,
				"path":        ctx.Path(),
			}).Warn("Operator role not allowed")
			return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden, role not allowed",
				"code":  "FORBIDDEN",
			})
		}

		return ctx.Next()
	}
}

func unauthorized(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Unauthorized, access token invalid or expired",
		"code":  "UNAUTHORIZED",
	})
}
