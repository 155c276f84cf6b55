package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
)

var sourceImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Add or update sources from a YAML or TOML file",
	Long: `Import source definitions from a file. Existing sources with the same ID
are updated; the rest are added.

Example sources.yaml:
  sources:
    - id: notes
      kind: local
      paths: [~/notes]
      include: ["*.md"]
      schedule: interval
      interval_minutes: 30
    - id: mail
      kind: mail
      paths: [~/Mail]
      schedule: daily
      start: "02:30"`,
	Args: cobra.ExactArgs(1),
	RunE: runSourceImport,
}

// sourceFile is the top-level layout of an import file.
type sourceFile struct {
	Sources []sourceEntry `yaml:"sources" toml:"sources"`
}

// parseSourceFile decodes data as TOML for .toml files and YAML otherwise.
func parseSourceFile(name string, data []byte) ([]sourceEntry, error) {
	var f sourceFile
	switch strings.ToLower(filepath.Ext(name)) {
	case ".toml":
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrInvalidInput, name, err)
		}
	default:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrInvalidInput, name, err)
		}
	}
	return f.Sources, nil
}

func runSourceImport(cmd *cobra.Command, args []string) error {
	if err := requireSources(); err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	entries, err := parseSourceFile(args[0], data)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w: %s defines no sources", domain.ErrInvalidInput, args[0])
	}

	// Validate everything before touching the store.
	sources := make([]domain.Source, len(entries))
	for i, entry := range entries {
		src, err := entry.toSource()
		if err != nil {
			return fmt.Errorf("source %d (%s): %w", i+1, entry.ID, err)
		}
		sources[i] = src
	}

	ctx := cmd.Context()
	var added, updated int
	for _, src := range sources {
		if src.ID != "" {
			existing, err := sourceService.Get(ctx, src.ID)
			switch {
			case err == nil:
				src.CreatedAt = existing.CreatedAt
				if err := sourceService.Update(ctx, src); err != nil {
					return fmt.Errorf("update %s: %w", src.ID, err)
				}
				updated++
				continue
			case !errors.Is(err, domain.ErrNotFound):
				return fmt.Errorf("get %s: %w", src.ID, err)
			}
		}
		if _, err := sourceService.Add(ctx, src); err != nil {
			return fmt.Errorf("add %s: %w", src.Name, err)
		}
		added++
	}

	cmd.Printf("Imported %d source(s): %d added, %d updated\n", added+updated, added, updated)
	return nil
}
