package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-stepform/pkg/model"
)

var errLintFailed = errors.New("one or more schemas are invalid")

var lintCmd = &cobra.Command{
	Use:   "lint <schema>...",
	Short: "Validate form schema documents (JSON or YAML)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLint,
}

func runLint(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	failed := false
	for _, path := range args {
		schema, err := model.LoadSchemaFile(path)
		if err == nil {
			if lintErr := schema.Lint(); lintErr != nil {
				err = fmt.Errorf("%s: %w", path, lintErr)
			}
		}
		if err != nil {
			failed = true
			fmt.Fprintf(out, "FAIL %v\n", err)
			continue
		}
		fields := 0
		for _, section := range schema.Sections {
			fields += len(section.Fields)
		}
		fmt.Fprintf(out, "ok   %s (%s v%s: %d sections, %d fields)\n", path, schema.ID, schema.Version, len(schema.Sections), fields)
	}
	if failed {
		return errLintFailed
	}
	return nil
}
