// ABOUTME: Interactive config file creation for the socialcore command
// ABOUTME: Generates the SSO key, cookie key and JWT secret so a fresh install starts secure

package main

import (
	"bufio"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/2389/socialcore/internal/token"
)

// initAnswers are the values runInit collects before rendering the file.
type initAnswers struct {
	HTTPAddr        string
	DBPath          string
	FounderUsername string
	FounderEmail    string
	AdminMode       string
	SessionMode     string
	PasscodeBackend string
	PasscodeDir     string
	RedisURL        string
	EnableSSO       bool
	LogLevel        string
	LogFormat       string
}

func isYes(s string) bool {
	s = strings.ToLower(s)
	return s == "yes" || s == "y"
}

func randomSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// renderConfig writes the YAML for a. Secrets are generated fresh; the
// founder password is read from the environment at load time.
func renderConfig(w io.Writer, a initAnswers) error {
	jwtSecret, err := randomSecret(32)
	if err != nil {
		return err
	}
	cookieKey, err := randomSecret(32)
	if err != nil {
		return err
	}

	var cfg strings.Builder
	cfg.WriteString("# socialcore configuration\n")
	cfg.WriteString("# Generated by socialcore init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: \"%s\"\n\n", a.HTTPAddr))

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: \"%s\"\n", a.DBPath))
	cfg.WriteString("  driver: \"sqlite\"\n\n")

	if a.EnableSSO {
		key, err := token.GenerateKey()
		if err != nil {
			return err
		}
		cfg.WriteString("sso:\n")
		cfg.WriteString(fmt.Sprintf("  token_key: \"%s\"\n\n", key))
	}

	cfg.WriteString("founder:\n")
	cfg.WriteString(fmt.Sprintf("  username: \"%s\"\n", a.FounderUsername))
	cfg.WriteString(fmt.Sprintf("  email: \"%s\"\n", a.FounderEmail))
	cfg.WriteString("  password: \"${SOCIALCORE_FOUNDER_PASSWORD}\"\n\n")

	cfg.WriteString("session:\n")
	cfg.WriteString(fmt.Sprintf("  mode: \"%s\"\n", a.SessionMode))
	cfg.WriteString(fmt.Sprintf("  keys: [\"%s\"]\n\n", cookieKey))

	cfg.WriteString("auth:\n")
	cfg.WriteString(fmt.Sprintf("  jwt_secret: \"%s\"\n", jwtSecret))
	cfg.WriteString("  token_ttl: \"24h\"\n\n")

	cfg.WriteString("admin:\n")
	cfg.WriteString(fmt.Sprintf("  mode: \"%s\"\n\n", a.AdminMode))

	cfg.WriteString("passcode:\n")
	cfg.WriteString(fmt.Sprintf("  backend: \"%s\"\n", a.PasscodeBackend))
	switch a.PasscodeBackend {
	case "file":
		cfg.WriteString(fmt.Sprintf("  dir: \"%s\"\n", a.PasscodeDir))
	case "redis":
		cfg.WriteString(fmt.Sprintf("  redis_url: \"%s\"\n", a.RedisURL))
	}
	cfg.WriteString("  validity: \"7m\"\n")
	cfg.WriteString("  retention: \"24h\"\n\n")

	cfg.WriteString("mail:\n")
	cfg.WriteString("  host: \"${SOCIALCORE_SMTP_HOST}\"\n")
	cfg.WriteString("  user: \"${SOCIALCORE_SMTP_USER}\"\n")
	cfg.WriteString("  password: \"${SOCIALCORE_SMTP_PASSWORD}\"\n")
	cfg.WriteString("  from_address: \"${SOCIALCORE_MAIL_FROM}\"\n\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", a.LogLevel))
	cfg.WriteString(fmt.Sprintf("  format: \"%s\"\n\n", a.LogFormat))

	cfg.WriteString("metrics:\n")
	cfg.WriteString("  enabled: false\n")
	cfg.WriteString("  path: \"/metrics\"\n")

	_, err = io.WriteString(w, cfg.String())
	return err
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("socialcore configuration setup")
	fmt.Println("==============================")
	fmt.Println()

	defaultConfigPath := getConfigPath()
	defaultDataPath := getDataPath()

	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	if _, err := os.Stat(outputFile); err == nil {
		if !isYes(prompt(reader, "File exists. Overwrite?", "no")) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	var a initAnswers

	fmt.Println("\n--- Server Configuration ---")
	a.HTTPAddr = prompt(reader, "HTTP address", "localhost:8080")

	fmt.Println("\n--- Database Configuration ---")
	a.DBPath = prompt(reader, "SQLite database path", filepath.Join(defaultDataPath, "graph.db"))

	fmt.Println("\n--- Founder ---")
	a.FounderUsername = prompt(reader, "Founder username", "founder")
	a.FounderEmail = prompt(reader, "Founder email", "")

	fmt.Println("\n--- Access ---")
	a.AdminMode = prompt(reader, "Admin gate (hash/role/either)", "hash")
	a.SessionMode = prompt(reader, "Session mode (cookie/token/both)", "cookie")
	a.EnableSSO = isYes(prompt(reader, "Enable single sign-on tokens?", "no"))

	fmt.Println("\n--- Password Reset ---")
	a.PasscodeBackend = prompt(reader, "Passcode store (memory/file/redis)", "memory")
	switch a.PasscodeBackend {
	case "file":
		a.PasscodeDir = prompt(reader, "Passcode directory", filepath.Join(defaultDataPath, "reminders"))
	case "redis":
		a.RedisURL = prompt(reader, "Redis URL", "redis://localhost:6379/0")
	}

	fmt.Println("\n--- Logging Configuration ---")
	a.LogLevel = prompt(reader, "Log level (debug/info/warn/error)", "info")
	a.LogFormat = prompt(reader, "Log format (text/json)", "text")

	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.OpenFile(outputFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	if err := renderConfig(f, a); err != nil {
		f.Close()
		return fmt.Errorf("writing config file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	dataDir := filepath.Dir(a.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Printf("Data directory: %s\n", dataDir)
	fmt.Println("\nSet SOCIALCORE_FOUNDER_PASSWORD, then:")
	fmt.Println("  socialcore bootstrap")
	fmt.Println("  socialcore serve")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
