// Command creatorfin-token issues a signed bearer token for local testing
// against a server running with AUTH_MODE=jwt.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"creatorfin/internal/cli"
	"creatorfin/internal/config"
	"creatorfin/internal/identity"
	"creatorfin/internal/log"
)

func main() {
	user := flag.String("user", "", "user id placed in the subject claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat).WithComponent(log.ComponentIdentity)

	if *user == "" {
		logger.Error("Missing -user")
		os.Exit(2)
	}
	if cfg.JWTSecret == "" {
		logger.Error("JWT_SECRET is not set")
		os.Exit(1)
	}

	token, err := identity.IssueToken(cfg.JWTSecret, cfg.JWTIssuer, *user, *ttl)
	if err != nil {
		logger.Error("Failed to issue token", log.FieldError, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
