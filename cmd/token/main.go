package main

import (
	"flag"
	"fmt"
	"time"

	"HotelGate/internal/middleware"
	jwtPkg "HotelGate/pkg/jwt"
	"HotelGate/pkg/log"
	"github.com/joho/godotenv"
)

// Issues an operator access token for a kiosk or security console.
func main() {
	logger := log.NewLogger()
	if err := godotenv.Load(); err != nil {
		logger.Warnf("No .env file loaded, using process environment: %v", err)
	}

	id := flag.String("id", "", "operator id")
	role := flag.String("role", "security", "operator role (security or admin)")
	email := flag.String("email", "", "operator email")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	if *id == "" {
		logger.Fatal("-id is required")
	}
	if *role != "security" && *role != "admin" {
		logger.Fatalf("unsupported role %q", *role)
	}

	token, expiresAt, err := jwtPkg.Sign(map[string]interface{}{
		"id":    *id,
		"role":  *role,
		"email": *email,
	}, *ttl, middleware.AccessTokenSecret)
	if err != nil {
		logger.Fatalf("Failed to sign operator token: %v", err)
	}

	log.Info(log.Fields{
		"operator_id": *id,
		"role":        *role,
		"expires_at":  time.Unix(expiresAt, 0).Format(time.RFC3339),
	}, "Operator token issued")

	fmt.Println(token)
}
