package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/foxzi/emailchamp/internal/template"
)

var (
	templateName        string
	templateDescription string
	templateHTMLFile    string
	templateOutput      string
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Custom email layout commands",
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all templates",
	RunE:  runTemplateList,
}

var templateShowCmd = &cobra.Command{
	Use:   "show <id|name>",
	Short: "Show template details",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateShow,
}

var templateImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a template from an HTML file",
	RunE:  runTemplateImport,
}

var templateDeleteCmd = &cobra.Command{
	Use:   "delete <id|name>",
	Short: "Delete a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateDelete,
}

var templateExportCmd = &cobra.Command{
	Use:   "export <id|name>",
	Short: "Export template HTML to a file or stdout",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateExport,
}

func init() {
	templateImportCmd.Flags().StringVar(&templateName, "name", "", "Template name (required)")
	templateImportCmd.Flags().StringVar(&templateDescription, "description", "", "Template description")
	templateImportCmd.Flags().StringVar(&templateHTMLFile, "html", "", "HTML file (required)")
	templateImportCmd.MarkFlagRequired("name")
	templateImportCmd.MarkFlagRequired("html")

	templateExportCmd.Flags().StringVarP(&templateOutput, "output", "o", "", "Output file (default stdout)")

	templateCmd.AddCommand(templateListCmd, templateShowCmd, templateImportCmd, templateDeleteCmd, templateExportCmd)
	rootCmd.AddCommand(templateCmd)
}

func getTemplateStorage() (*template.Storage, func(), error) {
	db, cleanup, err := openStorage()
	if err != nil {
		return nil, nil, err
	}

	templateStorage, err := template.NewStorage(db)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to create template storage: %w", err)
	}

	return templateStorage, cleanup, nil
}

// findTemplate looks the argument up by id, then by name
func findTemplate(cmd *cobra.Command, storage *template.Storage, ref string) (*template.Template, error) {
	tmpl, err := storage.Get(cmd.Context(), ref)
	if errors.Is(err, template.ErrNotFound) {
		tmpl, err = storage.GetByName(cmd.Context(), ref)
	}
	if errors.Is(err, template.ErrNotFound) {
		return nil, fmt.Errorf("template not found: %s", ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return tmpl, nil
}

func runTemplateList(cmd *cobra.Command, args []string) error {
	storage, cleanup, err := getTemplateStorage()
	if err != nil {
		return err
	}
	defer cleanup()

	templates, err := storage.List(cmd.Context(), template.ListFilter{})
	if err != nil {
		return fmt.Errorf("failed to list templates: %w", err)
	}

	if len(templates) == 0 {
		fmt.Println("No templates found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tFILLABLE\tVERSION\tUPDATED")
	for _, tmpl := range templates {
		fmt.Fprintf(w, "%s\t%s\t%t\t%d\t%s\n",
			tmpl.ID[:8],
			tmpl.Name,
			template.Inspect(tmpl.HTML).Fillable,
			tmpl.Version,
			tmpl.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d templates\n", len(templates))
	return nil
}

func runTemplateShow(cmd *cobra.Command, args []string) error {
	storage, cleanup, err := getTemplateStorage()
	if err != nil {
		return err
	}
	defer cleanup()

	tmpl, err := findTemplate(cmd, storage, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("ID:          %s\n", tmpl.ID)
	fmt.Printf("Name:        %s\n", tmpl.Name)
	fmt.Printf("Description: %s\n", tmpl.Description)
	fmt.Printf("Version:     %d\n", tmpl.Version)
	fmt.Printf("Created:     %s\n", tmpl.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Updated:     %s\n", tmpl.UpdatedAt.Format("2006-01-02 15:04:05"))

	printReport(template.Inspect(tmpl.HTML))

	fmt.Printf("\nHTML:\n")
	lines := strings.Split(tmpl.HTML, "\n")
	if len(lines) > 20 {
		for _, line := range lines[:20] {
			fmt.Printf("  %s\n", line)
		}
		fmt.Printf("  ... (%d more lines)\n", len(lines)-20)
	} else {
		for _, line := range lines {
			fmt.Printf("  %s\n", line)
		}
	}

	return nil
}

func printReport(report template.Report) {
	fmt.Printf("\nPlaceholders: %s\n", strings.Join(report.Placeholders, " "))
	if len(report.Missing) > 0 {
		fmt.Printf("Missing:      %s\n", strings.Join(report.Missing, " "))
	}
	if !report.Fillable {
		fmt.Printf("Warning: no {{welcomeMessage}} placeholder, generated content will not appear\n")
	}
}

func runTemplateImport(cmd *cobra.Command, args []string) error {
	storage, cleanup, err := getTemplateStorage()
	if err != nil {
		return err
	}
	defer cleanup()

	data, err := os.ReadFile(templateHTMLFile)
	if err != nil {
		return fmt.Errorf("failed to read HTML file: %w", err)
	}

	tmpl := &template.Template{
		Name:        templateName,
		Description: templateDescription,
		HTML:        string(data),
	}
	if err := storage.Create(cmd.Context(), tmpl); err != nil {
		return fmt.Errorf("failed to import template: %w", err)
	}

	fmt.Printf("Template imported successfully\n")
	fmt.Printf("  ID:   %s\n", tmpl.ID)
	fmt.Printf("  Name: %s\n", tmpl.Name)
	printReport(template.Inspect(tmpl.HTML))
	return nil
}

func runTemplateDelete(cmd *cobra.Command, args []string) error {
	storage, cleanup, err := getTemplateStorage()
	if err != nil {
		return err
	}
	defer cleanup()

	tmpl, err := findTemplate(cmd, storage, args[0])
	if err != nil {
		return err
	}

	if err := storage.Delete(cmd.Context(), tmpl.ID); err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}

	fmt.Printf("Template %s deleted\n", tmpl.Name)
	return nil
}

func runTemplateExport(cmd *cobra.Command, args []string) error {
	storage, cleanup, err := getTemplateStorage()
	if err != nil {
		return err
	}
	defer cleanup()

	tmpl, err := findTemplate(cmd, storage, args[0])
	if err != nil {
		return err
	}

	if templateOutput == "" {
		fmt.Print(tmpl.HTML)
		return nil
	}

	if err := os.WriteFile(templateOutput, []byte(tmpl.HTML), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", templateOutput, err)
	}
	fmt.Printf("Exported %s to %s\n", tmpl.Name, templateOutput)
	return nil
}
