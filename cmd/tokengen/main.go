// Command tokengen prints an admin token for the management API.
//
// Usage:
//
//	ADMIN_SECRET=... tokengen -sub ops -ttl 24h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/MikhailRaia/urlshort/internal/auth"
)

func main() {
	subject := flag.String("sub", "admin", "Token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	role := flag.String("role", auth.RoleAdmin, "Token role")
	flag.Parse()

	_ = godotenv.Load()

	secret := os.Getenv("ADMIN_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "ADMIN_SECRET is not set")
		os.Exit(2)
	}

	token, err := auth.NewJWTService(secret).GenerateToken(*subject, *role, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
