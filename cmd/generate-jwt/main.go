package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Generates an admin bearer token for the reserve-ledger API.
func main() {
	secret := flag.String("secret", "", "admin JWT secret (or ADMIN_JWT_SECRET)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *secret == "" {
		*secret = os.Getenv("ADMIN_JWT_SECRET")
	}
	if *secret == "" {
		fmt.Println("Error: -secret or ADMIN_JWT_SECRET is required")
		os.Exit(1)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"role": "admin",
		"iss":  "zenbridge-backend",
		"iat":  jwt.NewNumericDate(now),
		"nbf":  jwt.NewNumericDate(now),
		"exp":  jwt.NewNumericDate(now.Add(*ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(*secret))
	if err != nil {
		fmt.Printf("Error generating token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("============================================================")
	fmt.Println("Admin JWT Token")
	fmt.Println("============================================================")
	fmt.Println()
	fmt.Println(tokenString)
	fmt.Println()
	fmt.Printf("Expires: %s\n", now.Add(*ttl).Format(time.RFC3339))
}
