// Command token prints an access token for a player id, signed with JWT_SECRET.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/sumire/homestead/internal/service"
)

func main() {
	player := flag.Int64("player", 0, "player id to issue the token for")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if err := run(*player, *ttl); err != nil {
		fmt.Fprintln(os.Stderr, "token:", err)
		os.Exit(1)
	}
}

func run(player int64, ttl time.Duration) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	if player <= 0 {
		return errors.New("-player must be a positive id")
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return errors.New("JWT_SECRET is required")
	}

	token, err := service.NewTokenService(secret, ttl).IssueAccessToken(player)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
