// Package middleware provides authentication, logging, tracing and rate limiting for the HTTP layer.
package middleware

import (
	"errors"
	"strconv"
	"strings"

	"seniority/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var cfg *config.Config

var (
	errMissingSubject = errors.New("invalid token structure - missing subject")
	errBadSubject     = errors.New("invalid user ID in token")
)

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// ParseUserID validates a signed token and returns the user id in its "sub" claim.
func ParseUserID(tokenString string) (uint, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil || !token.Valid {
		return 0, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.New("invalid token claims")
	}

	// Subject claim per RFC 7519.
	subStr, ok := claims["sub"].(string)
	if !ok || subStr == "" {
		return 0, errMissingSubject
	}

	userID, err := strconv.ParseUint(subStr, 10, 32)
	if err != nil || userID == 0 {
		return 0, errBadSubject
	}
	return uint(userID), nil
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	parts := strings.Split(c.Get("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(c *fiber.Ctx) error {
	if c.Get("Authorization") == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authorization header required",
		})
	}

	token, ok := bearerToken(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid authorization header format",
		})
	}

	userID, err := ParseUserID(token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Locals("userID", userID)
	return c.Next()
}

// WebSocketAuthRequired validates JWT tokens from the query string for WebSocket
// upgrades, falling back to the Authorization header.
func WebSocketAuthRequired(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		var ok bool
		if token, ok = bearerToken(c); !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Token required",
			})
		}
	}

	userID, err := ParseUserID(token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Locals("userID", userID)
	return c.Next()
}
