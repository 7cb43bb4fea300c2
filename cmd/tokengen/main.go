// Package main prints signed development tokens for the etatcivil API.
// Tokens use the dev signing key unless JWT_SIGNING_KEY is set and will NOT
// work against a production deployment.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	jwttoken "etatcivil/internal/jwt_token"
	"etatcivil/internal/platform/config"
	"etatcivil/internal/seeder"
	id "etatcivil/pkg/domain"
)

const (
	defaultIssuer   = "etatcivil"
	defaultTokenTTL = time.Hour
)

type tokenOutput struct {
	Token     string            `json:"token"`
	ExpiresIn string            `json:"expires_in"`
	Claims    map[string]string `json:"claims"`
	Usage     map[string]string `json:"usage"`
}

// demoUsers are the identities seeded into the in-memory directory.
var demoUsers = map[id.Role]id.UserID{
	id.RoleParent:   seeder.DemoParent,
	id.RoleMairie:   seeder.DemoMairieAgent,
	id.RoleHospital: seeder.DemoHospitalAgent,
}

func main() {
	role := flag.String("role", string(id.RoleParent), "Role: parent, mairie or hospital")
	userID := flag.String("user-id", "", "User ID (UUID). Defaults to the seeded demo user for the role.")
	issuer := flag.String("issuer", envOr("JWT_ISSUER", defaultIssuer), "Token issuer")
	ttl := flag.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	jsonOutput := flag.Bool("json", false, "Output as JSON")
	flag.Usage = printUsage
	flag.Parse()

	actor, err := resolveActor(*userID, id.Role(*role))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	signingKey, keyType := os.Getenv("JWT_SIGNING_KEY"), "env"
	if signingKey == "" {
		signingKey, keyType = config.DevJWTSigningKey, "dev"
	}

	token, err := jwttoken.NewJWTService(signingKey, *issuer, *ttl).GenerateToken(context.Background(), actor)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	if *jsonOutput {
		printJSON(tokenOutput{
			Token:     token,
			ExpiresIn: ttl.String(),
			Claims: map[string]string{
				"sub":  actor.UserID.String(),
				"role": string(actor.Role),
				"iss":  *issuer,
			},
			Usage: map[string]string{
				"header":      "Authorization: Bearer <token>",
				"signing_key": keyType,
			},
		})
		return
	}

	fmt.Println("Identity Token (JWT)")
	fmt.Println("====================")
	fmt.Printf("Signing Key: %s\n", keyType)
	fmt.Printf("Expires In:  %s\n", *ttl)
	fmt.Printf("User ID:     %s\n", actor.UserID)
	fmt.Printf("Role:        %s\n", actor.Role)
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" http://localhost:8080/declarations")
}

func resolveActor(rawUserID string, role id.Role) (id.Actor, error) {
	if !role.IsValid() {
		return id.Actor{}, fmt.Errorf("unknown role %q", role)
	}
	if rawUserID == "" {
		return id.Actor{UserID: demoUsers[role], Role: role}, nil
	}
	parsed, err := uuid.Parse(rawUserID)
	if err != nil {
		return id.Actor{}, fmt.Errorf("invalid user-id UUID %q", rawUserID)
	}
	return id.Actor{UserID: id.UserID(parsed), Role: role}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `tokengen - Generate development tokens for the etatcivil API

WARNING: Tokens use the dev signing key unless JWT_SIGNING_KEY is set.

Usage:
  tokengen [flags]

Examples:
  # Token for the seeded demo parent
  tokengen

  # Token for the seeded mairie agent, valid 8h
  tokengen -role mairie -ttl 8h

  # Token for a specific hospital agent, as JSON
  tokengen -role hospital -user-id "c0000000-0000-4000-8000-000000000002" -json

Flags:`)
	flag.PrintDefaults()
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
