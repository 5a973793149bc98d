package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"alias-service/internal/alias/model"
	aliasSvc "alias-service/internal/alias/service"
	"alias-service/internal/fileio"
	"alias-service/internal/search"
	"alias-service/internal/store/postgres"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		threshold float64
		dryRun    bool
		report    string
		files     []string
		cols      fileio.Columns
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Resolve aliases over all stores and write them to the target store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := a.cfg
			if cmd.Flags().Changed("threshold") {
				cfg.Threshold = threshold
			}

			var (
				src    aliasSvc.Source
				writer aliasSvc.AliasWriter
				pg     *postgres.Store
			)
			if !dryRun || len(files) == 0 {
				if err := cfg.Validate(); err != nil {
					return err
				}
				db, err := a.openDB(ctx)
				if err != nil {
					return err
				}
				defer db.Close()
				if pg, err = postgres.NewStore(db, cfg.Stores, cfg.TargetStore, a.logger); err != nil {
					return err
				}
				src, writer = pg, pg
			}

			// 1) файлы вместо таблиц
			if len(files) > 0 {
				sfs := make([]fileio.StoreFile, 0, len(files))
				for _, f := range files {
					sf, err := fileio.ParseStoreFile(f)
					if err != nil {
						return err
					}
					sfs = append(sfs, sf)
				}
				src = fileio.NewSnapshot(sfs, cols)
			}
			// 2) dry-run: ничего не пишем
			if dryRun {
				writer = aliasSvc.NewReportWriter()
			}

			svc := aliasSvc.New(src, writer, cfg.AliasOptions(), a.logger)
			if cfg.MeiliURL != "" && !dryRun {
				svc.WithPublisher(search.NewMeiliPublisher(cfg.MeiliURL, cfg.MeiliAPIKey, cfg.MeiliIndex, a.logger))
			}

			out, err := svc.Run(ctx)
			if out == nil {
				return err
			}
			if report != "" {
				if rerr := writeReport(report, out); rerr != nil {
					return rerr
				}
			}
			if err != nil {
				return err
			}
			return persistError(out.Persist, out.Plan.Stats.Targets)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&threshold, "threshold", 0, "similarity threshold in [0,1], overrides ALIAS_THRESHOLD (0.7 when unset)")
	f.BoolVar(&dryRun, "dry-run", false, "plan only, do not write aliases")
	f.StringVar(&report, "report", "", "write the run result as JSON to this path (- for stdout)")
	f.StringArrayVar(&files, "file", nil, "read a store from a file instead of Postgres: store=path (repeatable)")
	f.StringVar(&cols.Name, "name-column", "", "name column in --file tables")
	f.StringVar(&cols.ID, "id-column", "", "id column in --file tables")
	f.IntVar(&cols.HeaderRow, "header-row", 1, "header row of --file tables (1-based)")
	return cmd
}

// persistError fails the run when any target row was left unwritten.
func persistError(rep model.PersistReport, targets int) error {
	failed := len(rep.Failures)
	switch {
	case failed > 0 && rep.Skipped > 0:
		return fmt.Errorf("%d of %d alias writes failed, %d skipped", failed, targets, rep.Skipped)
	case failed > 0:
		return fmt.Errorf("%d of %d alias writes failed", failed, targets)
	case rep.Skipped > 0:
		return fmt.Errorf("%d of %d alias writes skipped", rep.Skipped, targets)
	}
	return nil
}

func writeReport(path string, v any) error {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
