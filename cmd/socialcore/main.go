// ABOUTME: Entry point for the socialcore identity and moderation server
// ABOUTME: Dispatches serve, init, bootstrap, keygen, token, admin-hash and health commands

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/socialcore/internal/auth"
	"github.com/2389/socialcore/internal/config"
	"github.com/2389/socialcore/internal/gateway"
	"github.com/2389/socialcore/internal/token"
)

// version is printed in the banner; release builds override it with -ldflags "-X main.version=...".
var version = "dev"

const banner = `
                _       _
  ___  ___  ___(_) __ _| | ___ ___  _ __ ___ 
 / __|/ _ \/ __| |/ _' | |/ __/ _ \| '__/ _ \
 \__ \ (_) | (__| | (_| | | (_| (_) | | |  __/
 |___/\___/ \___|_|\__,_|_|\___\___/|_|  \___|
`

// getConfigPath returns the path to the config file.
// Priority: SOCIALCORE_CONFIG env var > XDG_CONFIG_HOME/socialcore/config.yaml > ~/.config/socialcore/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("SOCIALCORE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "socialcore", "config.yaml")
}

// getDataPath returns the path to the socialcore data directory.
// Priority: XDG_DATA_HOME/socialcore > ~/.local/share/socialcore
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "socialcore")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: socialcore <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                   Start the server")
		fmt.Println("  init                    Create a new config file interactively")
		fmt.Println("  bootstrap               Create the founder identity from config")
		fmt.Println("  keygen                  Print a new SSO shared key")
		fmt.Println("  token --username NAME   Mint an SSO token for NAME")
		fmt.Println("  admin-hash              Print the founder hash for admin requests")
		fmt.Println("  health                  Check server health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "bootstrap":
		err = runBootstrap(ctx)
	case "keygen":
		err = runKeygen()
	case "token":
		err = runToken(os.Args[2:])
	case "admin-hash":
		err = runAdminHash()
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s ", cfg.Database.Path)
	gray.Printf("(%s)\n", cfg.Database.Driver)
	green.Print("    ▶ ")
	fmt.Printf("Admin:     %s\n", cfg.Admin.Mode)
	green.Print("    ▶ ")
	fmt.Printf("SSO:       ")
	if cfg.SSO.TokenKey != "" {
		cyan.Println("enabled")
	} else {
		yellow.Println("disabled")
	}
	fmt.Println()

	logger.Info("starting socialcore",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
	)

	gw, err := gateway.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	if cfg.Founder.Email != "" {
		founder, created, err := gw.EnsureFounder(ctx)
		if err != nil {
			_ = gw.Close()
			return fmt.Errorf("ensuring founder: %w", err)
		}
		if created {
			logger.Info("founder bootstrapped", "id", founder.ID)
		}
	}

	return gw.Run(ctx)
}

// runBootstrap creates the founder identity named in config and records it
// on the graph root. Running it again reports the existing founder.
func runBootstrap(ctx context.Context) error {
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Founder.Username == "" || cfg.Founder.Email == "" || cfg.Founder.Password == "" {
		return fmt.Errorf("founder.username, founder.email and founder.password must be set in %s", configPath)
	}

	gw, err := gateway.New(ctx, cfg, setupLogger(cfg.Logging))
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}
	defer gw.Close()

	founder, created, err := gw.EnsureFounder(ctx)
	if err != nil {
		return fmt.Errorf("ensuring founder: %w", err)
	}

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	if created {
		green.Println("  ✓ Founder created")
	} else {
		cyan.Println("  Founder already exists")
	}
	fmt.Printf("  ID:       %s\n", founder.ID)
	fmt.Printf("  Username: %s\n", founder.Username)
	fmt.Printf("  Email:    %s\n", founder.Email)
	return nil
}

func runKeygen() error {
	key, err := token.GenerateKey()
	if err != nil {
		return err
	}
	fmt.Println(key)
	return nil
}

// parseUsernameFlag accepts "--username value", "--username=value" and the -u forms.
func parseUsernameFlag(args []string) (string, error) {
	var username string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--username" || arg == "-u":
			if i+1 >= len(args) {
				return "", fmt.Errorf("--username requires a value")
			}
			username = args[i+1]
			i++
		case strings.HasPrefix(arg, "--username="):
			username = strings.TrimPrefix(arg, "--username=")
		case strings.HasPrefix(arg, "-u="):
			username = strings.TrimPrefix(arg, "-u=")
		case strings.HasPrefix(arg, "-"):
			return "", fmt.Errorf("unknown flag: %s", arg)
		default:
			return "", fmt.Errorf("unexpected argument: %s", arg)
		}
	}
	if strings.TrimSpace(username) == "" {
		return "", fmt.Errorf("--username flag is required")
	}
	return username, nil
}

// runToken mints an SSO token the way a trusted upstream would.
func runToken(args []string) error {
	username, err := parseUsernameFlag(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.SSO.TokenKey == "" {
		return fmt.Errorf("sso.token_key is not configured")
	}

	key, err := token.LoadKey(cfg.SSO.TokenKey)
	if err != nil {
		return err
	}
	codec, err := token.NewCodec(key)
	if err != nil {
		return err
	}
	tok, err := codec.Encrypt(username)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

func runAdminHash() error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Founder.Email == "" || cfg.Founder.Password == "" {
		return fmt.Errorf("founder.email and founder.password are not configured")
	}
	fmt.Println(auth.Digest(cfg.Founder.Email, cfg.Founder.Password))
	return nil
}

func runHealth(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}
