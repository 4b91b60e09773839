// Command portalctl performs operator tasks against the portal database:
// creating profiles and minting session tokens for them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studystem/tutoring/internal/auth"
	"github.com/studystem/tutoring/internal/calendar"
	"github.com/studystem/tutoring/internal/config"
	"github.com/studystem/tutoring/internal/persistence"
	"github.com/studystem/tutoring/internal/persistence/sqlite"
	"github.com/studystem/tutoring/internal/persistence/sqlite/migration"
)

const usage = `usage: portalctl <command> [flags]

commands:
  add-profile  -name NAME -role student|tutor|admin [-email EMAIL] [-id ID]
  issue-token  -profile ID
`

var errUsage = errors.New("invalid usage")

func main() {
	if err := config.LoadDotEnv(""); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := run(context.Background(), os.Args[1:], os.Getenv, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "portalctl:", err)
		}
		os.Exit(2)
	}
}

// run dispatches a subcommand. getenv supplies PORTAL_SQLITE_DSN,
// PORTAL_TOKEN_SECRET and PORTAL_TOKEN_TTL.
func run(ctx context.Context, args []string, getenv func(string) string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errUsage
	}

	switch args[0] {
	case "add-profile":
		return addProfile(ctx, args[1:], getenv, stdout, stderr)
	case "issue-token":
		return issueToken(ctx, args[1:], getenv, stdout, stderr)
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprintf(stderr, "unknown command %q\n%s", args[0], usage)
		return errUsage
	}
}

func addProfile(ctx context.Context, args []string, getenv func(string) string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("add-profile", flag.ContinueOnError)
	fs.SetOutput(stderr)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address (optional)")
	role := fs.String("role", string(calendar.RoleStudent), "student, tutor or admin")
	id := fs.String("id", "", "profile id (defaults to a random UUID)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	displayName := strings.TrimSpace(*name)
	profileRole := calendar.Role(strings.ToLower(strings.TrimSpace(*role)))
	if displayName == "" {
		return fmt.Errorf("-name is required")
	}
	if !profileRole.Valid() {
		return fmt.Errorf("-role must be student, tutor or admin")
	}

	profileID := strings.TrimSpace(*id)
	if profileID == "" {
		profileID = uuid.NewString()
	}

	store, err := openStore(ctx, getenv)
	if err != nil {
		return err
	}
	defer store.Close()

	profile := persistence.Profile{
		ID:          profileID,
		DisplayName: displayName,
		Role:        string(profileRole),
	}
	if trimmed := strings.TrimSpace(*email); trimmed != "" {
		profile.Email = &trimmed
	}
	if err := store.CreateProfile(ctx, profile); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}

	fmt.Fprintln(stdout, profileID)
	return nil
}

func issueToken(ctx context.Context, args []string, getenv func(string) string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	profileID := fs.String("profile", "", "profile id the token is issued for")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if strings.TrimSpace(*profileID) == "" {
		return fmt.Errorf("-profile is required")
	}

	ttl := 24 * time.Hour
	if value := strings.TrimSpace(getenv("PORTAL_TOKEN_TTL")); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil || parsed <= 0 {
			return fmt.Errorf("PORTAL_TOKEN_TTL is invalid")
		}
		ttl = parsed
	}
	tokens, err := auth.NewTokens(getenv("PORTAL_TOKEN_SECRET"), ttl, time.Now)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, getenv)
	if err != nil {
		return err
	}
	defer store.Close()

	profile, err := store.GetProfile(ctx, strings.TrimSpace(*profileID))
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return fmt.Errorf("profile %q does not exist", *profileID)
		}
		return fmt.Errorf("load profile: %w", err)
	}

	token, expiresAt, err := tokens.Issue(profile.ID)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, token)
	fmt.Fprintf(stderr, "issued for %s (%s), expires %s\n", profile.DisplayName, profile.Role, expiresAt.Format(time.RFC3339))
	return nil
}

func openStore(ctx context.Context, getenv func(string) string) (*sqlite.Storage, error) {
	dsn := strings.TrimSpace(getenv("PORTAL_SQLITE_DSN"))
	if dsn == "" {
		dsn = "portal.db"
	}

	store, err := sqlite.Open(ctx, migration.DefaultSQLiteConfig(dsn))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
