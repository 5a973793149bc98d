package postgres

import (
	"context"
	"strings"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"alias-service/internal/alias/model"
	"alias-service/internal/metrics"
)

const (
	defaultType     = "grocery"
	defaultCategory = "uncategorized"
)

var upsertCols = []string{
	"name", "type", "category", "price", "description", "store",
	"parish", "on_deal", "old_price", "image_url", "url", "created_at",
}

const onConflictURL = "ON CONFLICT (url) DO UPDATE SET " +
	"name = EXCLUDED.name, price = EXCLUDED.price, image_url = EXCLUDED.image_url, " +
	"store = EXCLUDED.store, category = EXCLUDED.category, created_at = EXCLUDED.created_at"

type ImportOptions struct {
	Table    string // store table, e.g. pricesmart
	Label    string // value of the store column, e.g. PriceSmart
	Category string
}

type Importer struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

func NewImporter(db *sqlx.DB, logger zerolog.Logger) *Importer {
	return &Importer{db: db, logger: logger}
}

// UpsertQuery builds the insert for one listing keyed on url.
func UpsertQuery(opt ImportOptions, l model.Listing) (string, []interface{}) {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(opt.Table)
	ib.Cols(upsertCols...)
	ib.Values(
		strings.TrimSpace(l.Name), defaultType, opt.Category, l.Price, nil, opt.Label,
		nil, false, nil, l.ImageURL, l.URL, sqlbuilder.Raw("CURRENT_DATE"),
	)
	ib.SQL(onConflictURL)
	return ib.Build()
}

// Upsert writes all listings in one transaction. Listings without a name
// or url are skipped; any failed statement rolls back the whole batch.
func (im *Importer) Upsert(ctx context.Context, opt ImportOptions, listings []model.Listing) (model.ImportReport, error) {
	rep := model.ImportReport{Store: opt.Table}
	if err := ValidTable(opt.Table); err != nil {
		return rep, err
	}
	if opt.Label == "" {
		opt.Label = opt.Table
	}
	if opt.Category == "" {
		opt.Category = defaultCategory
	}

	tx, err := im.db.BeginTxx(ctx, nil)
	if err != nil {
		return rep, errors.Wrap(err, "begin import tx")
	}
	defer func() { _ = tx.Rollback() }()

	for _, l := range listings {
		if strings.TrimSpace(l.Name) == "" || strings.TrimSpace(l.URL) == "" {
			rep.Skipped++
			continue
		}
		query, args := UpsertQuery(opt, l)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			metrics.ImportedRows.WithLabelValues(opt.Table, "failed").Inc()
			return model.ImportReport{Store: opt.Table}, errors.Wrapf(err, "upsert %s url=%s", opt.Table, l.URL)
		}
		rep.Upserted++
	}
	if err := tx.Commit(); err != nil {
		return model.ImportReport{Store: opt.Table}, errors.Wrap(err, "commit import tx")
	}

	metrics.ImportedRows.WithLabelValues(opt.Table, "upserted").Add(float64(rep.Upserted))
	metrics.ImportedRows.WithLabelValues(opt.Table, "skipped").Add(float64(rep.Skipped))
	im.logger.Info().
		Str("store", opt.Table).
		Int("upserted", rep.Upserted).
		Int("skipped", rep.Skipped).
		Msg("import finished")
	return rep, nil
}
