package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alias-service/internal/alias/model"
)

func TestUpsertQuery(t *testing.T) {
	q, args := UpsertQuery(ImportOptions{Table: "pricesmart", Label: "PriceSmart", Category: "uncategorized"},
		model.Listing{Name: " Member's Mark Rice ", Price: 12.5, URL: "https://ps/rice", ImageURL: "https://ps/rice.jpg"})

	assert.True(t, strings.HasPrefix(q, "INSERT INTO pricesmart (name, type, category, price, description, store, parish, on_deal, old_price, image_url, url, created_at) VALUES ("))
	assert.Contains(t, q, "$11, CURRENT_DATE)")
	assert.True(t, strings.HasSuffix(q, onConflictURL))
	assert.Equal(t, []interface{}{
		"Member's Mark Rice", "grocery", "uncategorized", 12.5, nil, "PriceSmart",
		nil, false, nil, "https://ps/rice.jpg", "https://ps/rice",
	}, args)
}

func TestImporterUpsert(t *testing.T) {
	db, mock := newMock(t)
	im := NewImporter(db, zerolog.Nop())

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO pricesmart .* ON CONFLICT \(url\) DO UPDATE SET`).
		WithArgs("Rice 2kg", "grocery", "uncategorized", 3.99, nil, "PriceSmart", nil, false, nil, "", "https://ps/1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO pricesmart`).
		WithArgs("Flour", "grocery", "uncategorized", 0.0, nil, "PriceSmart", nil, false, nil, "img", "https://ps/2").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	rep, err := im.Upsert(context.Background(), ImportOptions{Table: "pricesmart", Label: "PriceSmart"}, []model.Listing{
		{Name: "Rice 2kg", Price: 3.99, URL: "https://ps/1"},
		{Name: "", URL: "https://ps/x"},
		{Name: "No url"},
		{Name: "Flour", URL: "https://ps/2", ImageURL: "img"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.ImportReport{Store: "pricesmart", Upserted: 2, Skipped: 2}, rep)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImporterUpsert_RollsBack(t *testing.T) {
	db, mock := newMock(t)
	im := NewImporter(db, zerolog.Nop())

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO sampars`).WillReturnError(errors.New("value too long"))
	mock.ExpectRollback()

	rep, err := im.Upsert(context.Background(), ImportOptions{Table: "sampars"}, []model.Listing{
		{Name: "A", URL: "u1"}, {Name: "B", URL: "u2"},
	})
	require.Error(t, err)
	assert.Zero(t, rep.Upserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImporterUpsert_BadTable(t *testing.T) {
	db, mock := newMock(t)
	_, err := NewImporter(db, zerolog.Nop()).Upsert(context.Background(), ImportOptions{Table: "x;y"}, nil)
	assert.ErrorIs(t, err, ErrBadTable)
	assert.NoError(t, mock.ExpectationsWereMet())
}
