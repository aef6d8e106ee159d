// Command goodshelf-cli exercises a GoodShelf session from the terminal:
// log in through the browser, inspect the current identity, and read the
// account profile through the authenticated API client.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	goodshelf "github.com/goodshelf/goodshelf-go"
	"github.com/goodshelf/goodshelf-go/api"
	"github.com/goodshelf/goodshelf-go/credstore"
)

type subCommand struct {
	Name        string
	Description string
	Run         func(ctx context.Context, env *cmdEnv, args []string) error
}

// cmdEnv is the wiring shared by all subcommands.
type cmdEnv struct {
	client  *goodshelf.Client
	manager *goodshelf.TokenManager
	store   credstore.Store
	api     *api.Client

	authURL     string
	redirectURL string
}

type baseOpts struct {
	AuthURL      string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	APIURL       string
	AccountURL   string
	StorePath    string
}

func main() {
	ctx := context.Background()

	// A .env alongside the binary is a convenience for local stacks; its
	// absence is fine.
	_ = godotenv.Load()

	baseFlags := baseOpts{
		AuthURL:      os.Getenv("GOODSHELF_AUTH_URL"),
		ClientID:     os.Getenv("GOODSHELF_CLIENT_ID"),
		ClientSecret: os.Getenv("GOODSHELF_CLIENT_SECRET"),
		RedirectURL:  os.Getenv("GOODSHELF_REDIRECT_URL"),
		APIURL:       os.Getenv("GOODSHELF_API_URL"),
		AccountURL:   os.Getenv("GOODSHELF_ACCOUNT_URL"),
	}
	if baseFlags.RedirectURL == "" {
		baseFlags.RedirectURL = "http://127.0.0.1:8910/oauth/callback"
	}

	baseFs := flag.NewFlagSet("goodshelf-cli", flag.ExitOnError)
	baseFs.StringVar(&baseFlags.AuthURL, "auth-url", baseFlags.AuthURL, "Authorization server base URL (required)")
	baseFs.StringVar(&baseFlags.ClientID, "client-id", baseFlags.ClientID, "OAuth2 client ID (required)")
	baseFs.StringVar(&baseFlags.ClientSecret, "client-secret", baseFlags.ClientSecret, "OAuth2 client secret")
	baseFs.StringVar(&baseFlags.RedirectURL, "redirect-url", baseFlags.RedirectURL, "Registered redirect URL; its host/port is bound locally during login")
	baseFs.StringVar(&baseFlags.APIURL, "api-url", baseFlags.APIURL, "Resource server API base URL")
	baseFs.StringVar(&baseFlags.AccountURL, "account-url", baseFlags.AccountURL, "Auth server account API base URL (defaults to auth-url + /api)")
	baseFs.StringVar(&baseFlags.StorePath, "store", baseFlags.StorePath, "Path to the credential store file (defaults to the user config dir)")

	subcommands := []*subCommand{
		{Name: "login", Description: "Log in through the browser and persist the session", Run: runLogin},
		{Name: "whoami", Description: "Show the identity in the current access token", Run: runWhoami},
		{Name: "profile", Description: "Fetch the account profile over the authenticated API", Run: runProfile},
		{Name: "logout", Description: "Clear the stored session", Run: runLogout},
	}

	if err := baseFs.Parse(os.Args[1:]); err != nil {
		fmt.Printf("failed parsing args: %v\n", err)
		os.Exit(1)
	}

	if len(baseFs.Args()) < 1 {
		fmt.Print("error: subcommand required\n\n")
		printUsage(baseFs, subcommands)
		os.Exit(1)
	}

	var missingFlags []string
	if baseFlags.AuthURL == "" {
		missingFlags = append(missingFlags, "auth-url")
	}
	if baseFlags.ClientID == "" {
		missingFlags = append(missingFlags, "client-id")
	}
	if len(missingFlags) > 0 {
		fmt.Printf("error: missing required flags: %v\n\n", missingFlags)
		printUsage(baseFs, subcommands)
		os.Exit(1)
	}

	env, err := buildEnv(baseFlags)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}

	var cmd *subCommand
	for _, sc := range subcommands {
		if sc.Name == baseFs.Arg(0) {
			cmd = sc
		}
	}
	if cmd == nil {
		fmt.Printf("error: unknown subcommand %q\n\n", baseFs.Arg(0))
		printUsage(baseFs, subcommands)
		os.Exit(1)
	}

	if err := cmd.Run(ctx, env, baseFs.Args()[1:]); err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}
}

func buildEnv(flags baseOpts) (*cmdEnv, error) {
	storePath := flags.StorePath
	if storePath == "" {
		cfgDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("finding config dir: %w", err)
		}
		storePath = filepath.Join(cfgDir, "goodshelf", "credentials.json")
	}

	store, err := credstore.NewJSONFile(storePath)
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}

	client, err := goodshelf.NewClient(goodshelf.Config{
		AuthServerURL: flags.AuthURL,
		ClientID:      flags.ClientID,
		ClientSecret:  flags.ClientSecret,
		RedirectURL:   flags.RedirectURL,
	}, store)
	if err != nil {
		return nil, err
	}

	manager := goodshelf.NewTokenManager(client)

	accountURL := flags.AccountURL
	if accountURL == "" {
		accountURL = flags.AuthURL + "/api"
	}

	return &cmdEnv{
		client:      client,
		manager:     manager,
		store:       store,
		api:         api.New(flags.APIURL, accountURL, goodshelf.NewHTTPClient(manager)),
		authURL:     flags.AuthURL,
		redirectURL: flags.RedirectURL,
	}, nil
}

func runWhoami(ctx context.Context, env *cmdEnv, args []string) error {
	ts, err := env.store.GetTokenSet()
	if err != nil {
		return err
	}
	if ts == nil || ts.AccessToken == "" {
		return fmt.Errorf("not logged in, run login first")
	}

	id, err := goodshelf.DecodeIdentity(ts.AccessToken)
	if err != nil {
		// An undecodable token is as good as no session.
		_ = env.store.Clear()
		return err
	}

	fmt.Printf("user:  %s (id %s)\n", id.Username, id.UserID)
	fmt.Printf("roles: %v\n", id.Roles)
	fmt.Printf("admin: %t\n", id.IsAdmin())
	fmt.Printf("token expires: %s\n", ts.ExpiresAt.Local())
	return nil
}

func runProfile(ctx context.Context, env *cmdEnv, args []string) error {
	user, err := env.api.Profile(ctx)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runLogout(ctx context.Context, env *cmdEnv, args []string) error {
	logoutURL, err := env.client.Logout()
	if err != nil {
		return err
	}
	fmt.Println("session cleared")
	fmt.Printf("to end the server-side session too, visit: %s\n", logoutURL)
	return nil
}

func printUsage(fs *flag.FlagSet, subcommands []*subCommand) {
	fmt.Printf("Usage: %s [flags] <subcommand>\n\nSubcommands:\n", fs.Name())
	for _, sc := range subcommands {
		fmt.Printf("  %-8s %s\n", sc.Name, sc.Description)
	}
	fmt.Print("\nFlags:\n")
	fs.PrintDefaults()
}
