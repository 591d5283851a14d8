package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	bolt "go.etcd.io/bbolt"

	"github.com/foxzi/emailchamp/internal/app"
	"github.com/foxzi/emailchamp/internal/campaign"
	"github.com/foxzi/emailchamp/internal/config"
	"github.com/foxzi/emailchamp/internal/editor"
	"github.com/foxzi/emailchamp/internal/generator"
	"github.com/foxzi/emailchamp/internal/llm"
	"github.com/foxzi/emailchamp/internal/manager"
	"github.com/foxzi/emailchamp/internal/quota"
	"github.com/foxzi/emailchamp/internal/storage"
	"github.com/foxzi/emailchamp/internal/template"
)

var (
	genDescription  string
	genName         string
	genLogoURL      string
	genTemplateFile string
	genTemplateID   string
	genOutput       string

	genBusiness string
	genIndustry string
	genProduct  string
	genAudience string
	genGoal     string
	genCount    int
	genSave     bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate email content with the configured model",
}

var generateEmailCmd = &cobra.Command{
	Use:   "email",
	Short: "Generate a single HTML email",
	Long: `Generate a single HTML email from a business description.

The description may contain labelled lines such as "Business Name: Acme",
"Address: 1 Main St" and "Phone: 555-0100"; they fill the matching fields.`,
	RunE: runGenerateEmail,
}

var generateSequenceCmd = &cobra.Command{
	Use:   "sequence",
	Short: "Generate a campaign email sequence",
	RunE:  runGenerateSequence,
}

func init() {
	generateEmailCmd.Flags().StringVar(&genDescription, "description", "", "Business description (required)")
	generateEmailCmd.Flags().StringVar(&genName, "name", "", "Business name")
	generateEmailCmd.Flags().StringVar(&genLogoURL, "logo-url", "", "Logo URL")
	generateEmailCmd.Flags().StringVar(&genTemplateFile, "template-file", "", "Custom HTML layout file")
	generateEmailCmd.Flags().StringVar(&genTemplateID, "template-id", "", "Stored template id or name")
	generateEmailCmd.Flags().StringVarP(&genOutput, "output", "o", "", "Output file (default stdout)")
	generateEmailCmd.MarkFlagRequired("description")
	generateEmailCmd.MarkFlagsMutuallyExclusive("template-file", "template-id")

	generateSequenceCmd.Flags().StringVar(&genBusiness, "business", "", "Business name (required)")
	generateSequenceCmd.Flags().StringVar(&genIndustry, "industry", "", "Industry")
	generateSequenceCmd.Flags().StringVar(&genProduct, "product", "", "Product description")
	generateSequenceCmd.Flags().StringVar(&genAudience, "audience", "", "Target audience")
	generateSequenceCmd.Flags().StringVar(&genGoal, "goal", "", "Campaign goal (required)")
	generateSequenceCmd.Flags().IntVar(&genCount, "count", 3, "Number of emails")
	generateSequenceCmd.Flags().BoolVar(&genSave, "save", false, "Store the generated campaigns")
	generateSequenceCmd.MarkFlagRequired("business")
	generateSequenceCmd.MarkFlagRequired("goal")

	generateCmd.AddCommand(generateEmailCmd, generateSequenceCmd)
	rootCmd.AddCommand(generateCmd)
}

// generation bundles what a generate command needs; db is nil unless
// the command touches storage.
type generation struct {
	cfg       *config.Config
	db        *bolt.DB
	generator *generator.Generator
	limiter   *quota.Limiter
	logger    *slog.Logger
}

func newGeneration(needStorage bool) (*generation, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.HasLLM() {
		return nil, fmt.Errorf("no LLM API key configured (set llm.api_key or %s)", config.EnvLLMAPIKey)
	}

	logger := app.SetupLogger(config.LoggingConfig{Level: cfg.Logging.Level, Format: "text"}, os.Stderr)
	g := &generation{cfg: cfg, logger: logger}

	var opts []generator.Option
	if needStorage || cfg.Quota.Enabled {
		g.db, err = storage.Open(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
	}
	if cfg.Quota.Enabled {
		g.limiter, err = quota.NewLimiter(g.db, cfg.QuotaLimits(), logger.With("component", "quota"))
		if err != nil {
			g.close()
			return nil, fmt.Errorf("failed to create quota limiter: %w", err)
		}
		opts = append(opts, generator.WithLimiter(g.limiter))
	}

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Referer: cfg.Server.PublicURL,
		Title:   cfg.Server.Name,
		Timeout: cfg.LLM.Timeout,
	}, logger.With("component", "llm"))

	g.generator, err = generator.New(client, logger.With("component", "generator"), opts...)
	if err != nil {
		g.close()
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}
	return g, nil
}

func (g *generation) close() {
	if g.limiter != nil {
		g.limiter.Stop()
	}
	if g.db != nil {
		g.db.Close()
	}
}

func runGenerateEmail(cmd *cobra.Command, args []string) error {
	g, err := newGeneration(genTemplateID != "")
	if err != nil {
		return err
	}
	defer g.close()

	layout := ""
	switch {
	case genTemplateFile != "":
		data, err := os.ReadFile(genTemplateFile)
		if err != nil {
			return fmt.Errorf("failed to read template file: %w", err)
		}
		layout = string(data)
	case genTemplateID != "":
		templates, err := template.NewStorage(g.db)
		if err != nil {
			return fmt.Errorf("failed to create template storage: %w", err)
		}
		tmpl, err := findTemplate(cmd, templates, genTemplateID)
		if err != nil {
			return err
		}
		layout = tmpl.HTML
	}

	html, err := g.generator.GenerateEmail(cmd.Context(), generator.BusinessInfo{
		Name:        genName,
		Description: genDescription,
		LogoURL:     genLogoURL,
	}, layout)
	if err != nil {
		return err
	}

	if genOutput == "" {
		fmt.Println(html)
		return nil
	}
	if err := os.WriteFile(genOutput, []byte(html), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", genOutput, err)
	}
	fmt.Printf("Email written to %s\n", genOutput)
	return nil
}

func runGenerateSequence(cmd *cobra.Command, args []string) error {
	info := generator.CampaignInfo{
		BusinessName:       genBusiness,
		Industry:           genIndustry,
		ProductDescription: genProduct,
		TargetAudience:     genAudience,
		CampaignGoal:       genGoal,
		EmailCount:         genCount,
	}
	if err := info.Validate(); err != nil {
		return err
	}

	g, err := newGeneration(genSave)
	if err != nil {
		return err
	}
	defer g.close()

	campaigns, err := g.generator.GenerateSequence(cmd.Context(), info)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDAY\tTYPE\tTIME\tSUBJECT")
	for _, c := range campaigns {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", c.ID, c.SendDay, campaign.Classify(c), c.PreferredTime, c.Subject)
	}
	w.Flush()

	if !genSave {
		return nil
	}

	store, err := campaign.NewStore(g.db, g.logger.With("component", "campaign_store"))
	if err != nil {
		return fmt.Errorf("failed to create campaign store: %w", err)
	}
	drafts, err := editor.NewDraftStore(g.db)
	if err != nil {
		return fmt.Errorf("failed to open drafts: %w", err)
	}
	mgr := manager.New(store, drafts, editor.SessionOptions{Delay: g.cfg.Editor.AutosaveDelay}, g.logger.With("component", "manager"))
	defer mgr.Close()

	if err := mgr.SaveSequence(cmd.Context(), campaigns); err != nil {
		return fmt.Errorf("failed to save sequence: %w", err)
	}
	fmt.Printf("\nSaved %d campaigns\n", len(campaigns))
	return nil
}
