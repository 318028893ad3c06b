// Command tokengen mints an access token for local development.
//
//	go run ./cmd/tokengen -user 42 -role admin
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kirinyoku/cinebook/internal/auth"
	"github.com/kirinyoku/cinebook/internal/domain"
)

func main() {
	_ = godotenv.Load()

	userID := flag.Int64("user", 1, "user id carried as the token subject")
	role := flag.String("role", "user", "user or admin")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "signing secret, defaults to $JWT_SECRET")
	flag.Parse()

	if len(*secret) < 16 {
		fmt.Fprintln(os.Stderr, "tokengen: secret must be at least 16 characters")
		os.Exit(2)
	}

	r, err := domain.ParseRole(*role)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tokengen:", err)
		os.Exit(2)
	}

	tok, exp, err := auth.NewManager(*secret, *ttl).Issue(domain.Principal{UserID: *userID, Role: r})
	if err != nil {
		fmt.Fprintln(os.Stderr, "tokengen:", err)
		os.Exit(1)
	}

	fmt.Println(tok)
	fmt.Fprintf(os.Stderr, "expires %s\n", exp.Format(time.RFC3339))
}
