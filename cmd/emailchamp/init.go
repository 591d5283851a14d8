package main

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foxzi/emailchamp/internal/config"
)

var (
	initOutput     string
	initDataDir    string
	initListenAddr string
	initAPIKey     string
	initLLMKey     string
	initPublicURL  string
	initQuota      bool
	initForce      bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize emailchamp configuration",
	Long: `Interactive wizard to create an emailchamp configuration file.

Examples:
  # Interactive mode - prompts for missing values
  emailchamp init

  # Non-interactive
  emailchamp init --data-dir ./data --llm-key sk-or-... -o emailchamp.yaml`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initOutput, "output", "o", "config.yaml", "Output configuration file path")
	initCmd.Flags().StringVar(&initDataDir, "data-dir", "/var/lib/emailchamp", "Data directory for the database")
	initCmd.Flags().StringVar(&initListenAddr, "listen", ":8080", "API listen address")
	initCmd.Flags().StringVar(&initAPIKey, "api-key", "", "API key (auto-generated if not provided)")
	initCmd.Flags().StringVar(&initLLMKey, "llm-key", "", "OpenRouter API key (may be left empty and set via "+config.EnvLLMAPIKey+")")
	initCmd.Flags().StringVar(&initPublicURL, "public-url", "", "Public URL sent to the provider as HTTP-Referer")
	initCmd.Flags().BoolVar(&initQuota, "quota", false, "Enable default generation quotas")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config file")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("emailchamp Configuration Wizard")
	fmt.Println("===============================")
	fmt.Println()

	initDataDir = prompt(reader, "Data directory", initDataDir)
	initListenAddr = prompt(reader, "API listen address", initListenAddr)

	if initLLMKey == "" && os.Getenv(config.EnvLLMAPIKey) == "" {
		initLLMKey = prompt(reader, "OpenRouter API key (empty to set later)", "")
	}

	if !initQuota {
		answer := prompt(reader, "Limit generations per hour/day? [y/N]", "n")
		initQuota = strings.ToLower(answer) == "y" || strings.ToLower(answer) == "yes"
	}

	if initAPIKey == "" {
		initAPIKey = generateRandomString(32)
		fmt.Printf("  Generated API key: %s\n", initAPIKey)
	}

	if !initForce {
		if _, err := os.Stat(initOutput); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", initOutput)
		}
	}

	fmt.Println()
	fmt.Println("Creating configuration...")

	if err := os.MkdirAll(initDataDir, 0755); err != nil {
		fmt.Printf("  Warning: Could not create data directory: %v\n", err)
	}

	if err := os.WriteFile(initOutput, []byte(generateConfig()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("  Configuration saved to: %s\n", initOutput)
	fmt.Println()

	printNextSteps()
	return nil
}

func prompt(reader *bufio.Reader, question, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", question, defaultValue)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultValue
	}
	return input
}

func generateRandomString(length int) string {
	bytes := make([]byte, length/2)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func generateConfig() string {
	llmKey := `  # api_key is read from ` + config.EnvLLMAPIKey + ` when empty
  api_key: ""`
	if initLLMKey != "" {
		llmKey = fmt.Sprintf(`  api_key: "%s"`, initLLMKey)
	}

	quotaSection := `quota:
  enabled: false
  # global:
  #   per_hour: 60
  #   per_day: 500`
	if initQuota {
		quotaSection = `quota:
  enabled: true
  global:
    per_hour: 60
    per_day: 500
  per_client:
    per_hour: 20
    per_day: 100`
	}

	return fmt.Sprintf(`# emailchamp configuration
# Generated by emailchamp init

server:
  name: "emailchamp"
  public_url: "%s"

api:
  listen_addr: "%s"
  api_key: "%s"
  # cors_origins:
  #   - "http://localhost:5173"

storage:
  path: "%s"

logging:
  level: "info"
  format: "json"

llm:
%s
  model: "anthropic/claude-3.5-sonnet-20240620"
  timeout: 2m

editor:
  autosave_delay: 2s

%s

metrics:
  enabled: false
  listen_addr: ":9090"
  path: "/metrics"
`, initPublicURL, initListenAddr, initAPIKey, filepath.Join(initDataDir, "emailchamp.db"), llmKey, quotaSection)
}

func printNextSteps() {
	fmt.Println("Next Steps")
	fmt.Println("==========")
	fmt.Println()
	fmt.Println("1. Start the server:")
	fmt.Printf("   emailchamp serve -c %s\n", initOutput)
	fmt.Println()
	fmt.Println("2. Generate a campaign sequence:")
	fmt.Printf("   curl -X POST http://localhost%s/api/v1/generate/sequence \\\n", initListenAddr)
	fmt.Printf("     -H \"Authorization: Bearer %s\" \\\n", initAPIKey)
	fmt.Println("     -H \"Content-Type: application/json\" \\")
	fmt.Println(`     -d '{"businessName": "Acme", "campaignGoal": "Welcome new customers", "emailCount": 3}'`)
	fmt.Println()
	fmt.Println("Credentials")
	fmt.Println("-----------")
	fmt.Printf("API Key: %s\n", initAPIKey)
	fmt.Println()
}
