// This file seeds the reference tables on first attach.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

// referenceSeed mirrors seed.yaml.
type referenceSeed struct {
	BaseSizes []struct {
		Name      string `yaml:"name"`
		SortOrder int    `yaml:"sort_order"`
	} `yaml:"base_sizes"`
	PaintedBy []string `yaml:"painted_by"`
}

func loadReferenceSeed() (*referenceSeed, error) {
	var seed referenceSeed
	if err := yaml.Unmarshal(seedYAML, &seed); err != nil {
		return nil, fmt.Errorf("parsing seed.yaml: %w", err)
	}
	return &seed, nil
}

// seedReferenceData fills base_sizes and painted_by when each is empty.
// Tables that already hold rows are left alone, so user edits survive
// restarts.
func seedReferenceData(ctx context.Context, db *sql.DB) error {
	seed, err := loadReferenceSeed()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer tx.Rollback()

	n, err := count(ctx, tx, "SELECT COUNT(*) FROM base_sizes")
	if err != nil {
		return fmt.Errorf("counting base sizes: %w", err)
	}
	if n == 0 {
		for _, s := range seed.BaseSizes {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO base_sizes (name, sort_order) VALUES (?, ?)", s.Name, s.SortOrder); err != nil {
				return fmt.Errorf("seeding base size %s: %w", s.Name, err)
			}
		}
	}

	n, err = count(ctx, tx, "SELECT COUNT(*) FROM painted_by")
	if err != nil {
		return fmt.Errorf("counting painted-by values: %w", err)
	}
	if n == 0 {
		for _, name := range seed.PaintedBy {
			if _, err := tx.ExecContext(ctx, "INSERT INTO painted_by (name) VALUES (?)", name); err != nil {
				return fmt.Errorf("seeding painted-by %s: %w", name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing seed transaction: %w", err)
	}
	return nil
}
