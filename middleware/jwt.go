package middleware

import (
	"context"
	"fmt"
	"strings"
	"time"

	"govdocs/config"
	"govdocs/identity"
	"govdocs/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

const tokenTTL = 24 * time.Hour

// AccountCheck re-validates a token's caller against the current account
// state, so deactivation takes effect before the token expires.
type AccountCheck func(ctx context.Context, id identity.Identity) error

var accountCheck AccountCheck

// SetAccountCheck installs the check JWTMiddleware runs after a token parses.
func SetAccountCheck(check AccountCheck) {
	accountCheck = check
}

func jwtSecret() []byte {
	return []byte(config.AppConfig.JWTKey)
}

// GenerateJWT generates a JWT token for the user
func GenerateJWT(u models.User) (string, error) {
	claims := jwt.MapClaims{
		"userId": u.ID,
		"name":   u.Name,
		"role":   string(u.Role),
		"email":  u.Email,
		"iat":    time.Now().Unix(),               // issued at
		"exp":    time.Now().Add(tokenTTL).Unix(), // expiry 24h
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

// ParseJWT validates tokenString and resolves the caller it names.
func ParseJWT(tokenString string) (identity.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret(), nil
	})
	if err != nil || !token.Valid {
		return identity.Identity{}, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return identity.Identity{}, fmt.Errorf("invalid token payload")
	}
	// JWT numbers decode as float64.
	userID, ok := claims["userId"].(float64)
	if !ok || userID <= 0 {
		return identity.Identity{}, fmt.Errorf("invalid token payload")
	}
	roleName, _ := claims["role"].(string)
	role, ok := identity.ParseRole(roleName)
	if !ok {
		return identity.Identity{}, fmt.Errorf("invalid token role")
	}
	email, _ := claims["email"].(string)
	return identity.Identity{UserID: uint(userID), Role: role, Email: email}, nil
}

// JWTMiddleware is a middleware to check for valid JWT token in the request
func JWTMiddleware(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return JsonResponse(c, fiber.StatusUnauthorized, false, "Missing or invalid Authorization header", nil)
	}

	// The token should be prefixed with "Bearer "
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid Authorization header format", nil)
	}

	id, err := ParseJWT(authHeader[len("Bearer "):])
	if err != nil {
		return JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid or expired token", nil)
	}
	if accountCheck != nil {
		if err := accountCheck(c.UserContext(), id); err != nil {
			return ErrorResponse(c, err)
		}
	}

	c.Locals("userId", id.UserID)
	c.Locals("role", id.Role)
	c.Locals("identity", id)
	return c.Next()
}

// CurrentIdentity returns the caller resolved by JWTMiddleware.
func CurrentIdentity(c *fiber.Ctx) identity.Identity {
	id, _ := c.Locals("identity").(identity.Identity)
	return id
}
