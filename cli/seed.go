package cli

import (
	"fmt"

	"github.com/richinex/themescout/config"
	"github.com/richinex/themescout/source"
)

// SeedSchema creates the source tables in the configured database.
// Data loading is external; this only prepares the schema so fixtures
// can be imported with the sqlite3 CLI or any ETL job.
func SeedSchema(opts Options) error {
	settings, err := config.New(defaultProviderName(opts.Provider))
	if err != nil {
		return err
	}

	db, err := source.DB(settings.Pipeline.DataSourcePath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := source.CreateSourceSchema(db); err != nil {
		return fmt.Errorf("failed to create source schema: %w", err)
	}
	if err := source.CreateContentSchema(db); err != nil {
		return fmt.Errorf("failed to create content schema: %w", err)
	}

	fmt.Printf("Schema ready in %s\n", settings.Pipeline.DataSourcePath)
	return nil
}
