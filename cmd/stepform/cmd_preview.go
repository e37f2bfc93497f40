package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-stepform/pkg/model"
	"github.com/goliatone/go-stepform/pkg/navigator"
	"github.com/goliatone/go-stepform/pkg/render"
	"github.com/goliatone/go-stepform/pkg/renderers/tui"
	"github.com/goliatone/go-stepform/pkg/renderers/vanilla"
)

var (
	previewRenderer string
	previewSection  int
	previewOutput   string
)

var previewCmd = &cobra.Command{
	Use:   "preview <schema>",
	Short: "Render one section of a schema file without a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

func init() {
	previewCmd.Flags().StringVarP(&previewRenderer, "renderer", "r", "vanilla", "Renderer to use (vanilla, tui)")
	previewCmd.Flags().IntVar(&previewSection, "section", 1, "1-based section to render")
	previewCmd.Flags().StringVarP(&previewOutput, "output", "o", "", "Output file (stdout if empty)")
}

func newRendererRegistry() (*render.Registry, error) {
	html, err := vanilla.New()
	if err != nil {
		return nil, err
	}
	text, err := tui.New(tui.WithLogger(logger.Named("tui")))
	if err != nil {
		return nil, err
	}
	return render.NewRegistry(html, text)
}

func runPreview(cmd *cobra.Command, args []string) error {
	schema, err := model.LoadSchemaFile(args[0])
	if err != nil {
		return err
	}
	if previewSection < 1 || previewSection > len(schema.Sections) {
		return fmt.Errorf("section %d out of range (1-%d)", previewSection, len(schema.Sections))
	}

	registry, err := newRendererRegistry()
	if err != nil {
		return err
	}
	renderer, err := registry.Get(previewRenderer)
	if err != nil {
		return err
	}

	index := previewSection - 1
	page := render.BuildSectionPage(render.SectionPage{
		Schema:   schema,
		Index:    index,
		Controls: navigator.ControlsAt(index, len(schema.Sections)),
	})
	out, err := renderer.Render(cmd.Context(), page)
	if err != nil {
		return err
	}

	if previewOutput != "" {
		if err := os.WriteFile(previewOutput, out, 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Preview written to %s\n", previewOutput)
		return nil
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
