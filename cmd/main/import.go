package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"alias-service/internal/fileio"
	"alias-service/internal/store/postgres"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		opt       postgres.ImportOptions
		file      string
		headerRow int
	)
	cmd := &cobra.Command{
		Use:     "import",
		Short:   "Upsert a scraped product file into a store table (keyed by url)",
		Example: "  alias-service import --store pricesmart --label PriceSmart --file pricesmart-groceries.json",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := postgres.ValidTable(opt.Table); err != nil {
				return err
			}
			fh, err := os.Open(file)
			if err != nil {
				return errors.Wrap(err, "open import file")
			}
			defer fh.Close()

			listings, err := fileio.ReadListings(fh, file, headerRow)
			if err != nil {
				return errors.Wrapf(err, "read %s", file)
			}
			a.logger.Info().Int("items", len(listings)).Str("file", file).Msg("importing")

			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			_, err = postgres.NewImporter(db, a.logger).Upsert(cmd.Context(), opt, listings)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&opt.Table, "store", "", "target store table")
	f.StringVar(&opt.Label, "label", "", "value for the store column (default: table name)")
	f.StringVar(&opt.Category, "category", "", "category for new rows (default: uncategorized)")
	f.StringVar(&file, "file", "", "JSON array or CSV/XLS/XLSX file")
	f.IntVar(&headerRow, "header-row", 1, "header row for tabular files (1-based)")
	_ = cmd.MarkFlagRequired("store")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
