package main

import (
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-stepform/pkg/openapi"
)

var (
	importOperation    string
	importFormat       string
	importSectionTitle string
	importValidate     bool
)

var importCmd = &cobra.Command{
	Use:   "import <openapi-document>",
	Short: "Convert an OpenAPI operation's request body into a form schema",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	importCmd.Flags().StringVar(&importOperation, "operation", "", "Operation ID to convert (required)")
	importCmd.Flags().StringVar(&importFormat, "format", "json", "Output format (json, yaml)")
	importCmd.Flags().StringVar(&importSectionTitle, "section-title", "", "Title of the section holding top-level fields")
	importCmd.Flags().BoolVar(&importValidate, "validate", true, "Validate the OpenAPI document first")
	_ = importCmd.MarkFlagRequired("operation")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	src, err := openapi.ParseSource(args[0])
	if err != nil {
		return err
	}

	loader := openapi.NewLoader(openapi.WithHTTPFallback(30 * time.Second))
	data, err := loader.Load(ctx, src)
	if err != nil {
		return err
	}

	schema, err := openapi.SchemaFromOperation(ctx, data, importOperation, openapi.Options{
		DefaultSectionTitle: importSectionTitle,
		Validate:            importValidate,
		Logger:              logger.Named("openapi"),
	})
	if err != nil {
		return err
	}

	var out []byte
	switch strings.ToLower(importFormat) {
	case "json":
		out, err = json.MarshalIndent(schema, "", "  ")
	case "yaml", "yml":
		out, err = yaml.Marshal(schema)
	default:
		return fmt.Errorf("unknown output format %q", importFormat)
	}
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(string(out), "\n"))
	return err
}
