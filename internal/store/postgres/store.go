package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"alias-service/internal/alias/model"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrBadTable       = errors.New("invalid store table name")
)

// store tables are interpolated into SQL, so only plain identifiers pass
var reIdent = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

func ValidTable(name string) error {
	if !reIdent.MatchString(name) {
		return errors.Wrapf(ErrBadTable, "%q", name)
	}
	return nil
}

// Store is both the snapshot source and the alias writer.
type Store struct {
	db     *sqlx.DB
	stores []string
	target string
	logger zerolog.Logger
}

func NewStore(db *sqlx.DB, stores []string, target string, logger zerolog.Logger) (*Store, error) {
	if len(stores) == 0 {
		return nil, errors.New("no store tables configured")
	}
	for _, s := range append([]string{target}, stores...) {
		if err := ValidTable(s); err != nil {
			return nil, err
		}
	}
	return &Store{db: db, stores: stores, target: target, logger: logger}, nil
}

// SnapshotQuery is one SELECT per store table glued with UNION ALL.
func SnapshotQuery(stores []string) string {
	parts := make([]string, 0, len(stores))
	for _, s := range stores {
		sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
		sb.Select(
			"id::text AS id",
			"COALESCE(name, '') AS name",
			"COALESCE(norm_name, '') AS norm_name",
			fmt.Sprintf("'%s' AS store_table", s),
		)
		sb.From(s)
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, " UNION ALL ")
}

func (s *Store) LoadProducts(ctx context.Context) ([]model.ProductRecord, error) {
	var out []model.ProductRecord
	if err := s.db.SelectContext(ctx, &out, SnapshotQuery(s.stores)); err != nil {
		return nil, errors.Wrap(err, "select store snapshot")
	}
	s.logger.Debug().Int("rows", len(out)).Strs("stores", s.stores).Msg("snapshot loaded")
	return out, nil
}

// WriteAlias overwrites alias and alias_confidence on one target row.
// A missing row is permanent and is not retried.
func (s *Store) WriteAlias(ctx context.Context, a model.AliasAssignment) error {
	table := a.Store
	if table == "" {
		table = s.target
	}
	if table != s.target {
		return backoff.Permanent(errors.Errorf("alias for %s/%s outside target store %s", table, a.RecordID, s.target))
	}

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(
		ub.Assign("alias", a.CanonicalName),
		ub.Assign("alias_confidence", a.Confidence),
	)
	ub.Where(ub.Equal("id", a.RecordID))

	query, args := ub.Build()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(err, "update %s id=%s", table, a.RecordID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return backoff.Permanent(errors.Wrapf(ErrRecordNotFound, "%s id=%s", table, a.RecordID))
	}
	return nil
}
