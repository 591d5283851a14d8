package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	bolt "go.etcd.io/bbolt"

	"github.com/foxzi/emailchamp/internal/campaign"
	"github.com/foxzi/emailchamp/internal/editor"
	"github.com/foxzi/emailchamp/internal/storage"
)

var (
	campaignSearch string
	campaignOutput string
	campaignForce  bool
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Campaign management commands",
}

var campaignListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored campaigns",
	RunE:  runCampaignList,
}

var campaignShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show campaign details",
	Args:  cobra.ExactArgs(1),
	RunE:  runCampaignShow,
}

var campaignDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a campaign and its editor draft",
	Args:  cobra.ExactArgs(1),
	RunE:  runCampaignDelete,
}

var campaignExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Write the campaign HTML to a file or stdout",
	Args:  cobra.ExactArgs(1),
	RunE:  runCampaignExport,
}

var campaignBlocksCmd = &cobra.Command{
	Use:   "blocks <id>",
	Short: "Print the editor blocks of a campaign as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runCampaignBlocks,
}

func init() {
	campaignListCmd.Flags().StringVar(&campaignSearch, "search", "", "Filter by subject, purpose or content")
	campaignExportCmd.Flags().StringVarP(&campaignOutput, "output", "o", "", "Output file (default stdout)")
	campaignDeleteCmd.Flags().BoolVar(&campaignForce, "force", false, "Do not fail when the campaign does not exist")

	campaignCmd.AddCommand(campaignListCmd, campaignShowCmd, campaignDeleteCmd, campaignExportCmd, campaignBlocksCmd)
	rootCmd.AddCommand(campaignCmd)
}

// openStorage opens the database named in the config file.
// The server holds an exclusive lock, so these commands run while it is stopped.
func openStorage() (*bolt.DB, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}

	return db, func() { db.Close() }, nil
}

func getCampaignStore() (*campaign.Store, *bolt.DB, func(), error) {
	db, cleanup, err := openStorage()
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := campaign.NewStore(db, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("failed to create campaign store: %w", err)
	}
	return store, db, cleanup, nil
}

func runCampaignList(cmd *cobra.Command, args []string) error {
	store, _, cleanup, err := getCampaignStore()
	if err != nil {
		return err
	}
	defer cleanup()

	campaigns := store.Search(cmd.Context(), campaignSearch)
	if len(campaigns) == 0 {
		fmt.Println("No campaigns found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDAY\tTYPE\tTIME\tSUBJECT")
	for _, c := range campaigns {
		subject := c.Subject
		if len(subject) > 50 {
			subject = subject[:47] + "..."
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
			c.ID,
			c.SendDay,
			campaign.Classify(c),
			c.PreferredTime,
			subject,
		)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d campaigns\n", len(campaigns))
	return nil
}

func runCampaignShow(cmd *cobra.Command, args []string) error {
	store, _, cleanup, err := getCampaignStore()
	if err != nil {
		return err
	}
	defer cleanup()

	c := store.Get(cmd.Context(), args[0])
	if c == nil {
		return fmt.Errorf("campaign not found: %s", args[0])
	}

	fmt.Printf("ID:        %s\n", c.ID)
	fmt.Printf("Subject:   %s\n", c.Subject)
	fmt.Printf("Type:      %s\n", campaign.Classify(c))
	fmt.Printf("Send day:  %d\n", c.SendDay)
	fmt.Printf("Delay:     %d\n", c.Delay)
	fmt.Printf("Time:      %s\n", c.PreferredTime)
	if c.BusinessName != "" {
		fmt.Printf("Business:  %s\n", c.BusinessName)
	}
	fmt.Printf("\nPurpose:\n  %s\n", c.Purpose)
	if c.Reasoning != "" {
		fmt.Printf("\nReasoning:\n  %s\n", c.Reasoning)
	}
	fmt.Printf("\nContent: %d bytes (use 'campaign export %s' to view)\n", len(c.Content), c.ID)
	return nil
}

func runCampaignDelete(cmd *cobra.Command, args []string) error {
	store, db, cleanup, err := getCampaignStore()
	if err != nil {
		return err
	}
	defer cleanup()

	id := args[0]
	if store.Get(cmd.Context(), id) == nil && !campaignForce {
		return fmt.Errorf("campaign not found: %s", id)
	}

	store.Delete(cmd.Context(), id)

	drafts, err := editor.NewDraftStore(db)
	if err != nil {
		return fmt.Errorf("failed to open drafts: %w", err)
	}
	if err := drafts.Delete(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}

	fmt.Printf("Campaign %s deleted\n", id)
	return nil
}

func runCampaignExport(cmd *cobra.Command, args []string) error {
	store, _, cleanup, err := getCampaignStore()
	if err != nil {
		return err
	}
	defer cleanup()

	c := store.Get(cmd.Context(), args[0])
	if c == nil {
		return fmt.Errorf("campaign not found: %s", args[0])
	}

	if campaignOutput == "" {
		_, err := io.WriteString(os.Stdout, c.Content)
		return err
	}

	if err := os.WriteFile(campaignOutput, []byte(c.Content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", campaignOutput, err)
	}
	fmt.Printf("Exported %s to %s\n", c.ID, campaignOutput)
	return nil
}

func runCampaignBlocks(cmd *cobra.Command, args []string) error {
	store, db, cleanup, err := getCampaignStore()
	if err != nil {
		return err
	}
	defer cleanup()

	id := args[0]
	c := store.Get(cmd.Context(), id)
	if c == nil {
		return fmt.Errorf("campaign not found: %s", id)
	}

	drafts, err := editor.NewDraftStore(db)
	if err != nil {
		return fmt.Errorf("failed to open drafts: %w", err)
	}

	components, ok, err := drafts.Load(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to load draft: %w", err)
	}
	if !ok {
		components = editor.Deserialize(c.Content)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(components)
}
