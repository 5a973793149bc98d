package fileio

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	excelize "github.com/xuri/excelize/v2"

	"alias-service/internal/alias/model"
)

func TestResolveKey(t *testing.T) {
	rec := map[string]string{"Product Name": "", "Norm_Name": "", "SKU": "", "Price (JMD)": ""}

	assert.Equal(t, "Product Name", resolveKey(rec, "", nameColumns...))
	assert.Equal(t, "Norm_Name", resolveKey(rec, "", normColumns...))
	assert.Equal(t, "SKU", resolveKey(rec, "", idColumns...))
	assert.Equal(t, "Price (JMD)", resolveKey(rec, "price"))
	assert.Equal(t, "SKU", resolveKey(rec, "code|sku"), "alternatives")
	assert.Equal(t, "", resolveKey(rec, "barcode"))
	assert.Equal(t, "", resolveKey(rec, ""))
}

func TestResolveKey_ShortAlternativeWholeWord(t *testing.T) {
	rec := map[string]string{"Amount Paid": "", "Valid Until": "", "Name": ""}
	assert.Equal(t, "", resolveKey(rec, "", idColumns...))

	rec["Product ID"] = ""
	assert.Equal(t, "Product ID", resolveKey(rec, "", idColumns...))

	assert.Equal(t, "Name", resolveKey(map[string]string{"Name": "", "Product Name": ""}, "", nameColumns...))
}

func TestReadRecords_PaidColumnIsNotID(t *testing.T) {
	csv := "name,paid\nMilk 1L,yes\nBread,no\n"
	got, err := ReadRecords(strings.NewReader(csv), "gibbo.csv", "gibbo", Columns{})
	require.NoError(t, err)
	assert.Equal(t, []model.ProductRecord{
		{ID: "gibbo-1", Name: "Milk 1L", Store: "gibbo"},
		{ID: "gibbo-2", Name: "Bread", Store: "gibbo"},
	}, got)
}

func TestReadRecords_CSV(t *testing.T) {
	csv := "id,name,norm_name\n1,Milk 1L,milk 1l\n2,,\n,Hardo Bread,\n"
	got, err := ReadRecords(strings.NewReader(csv), "gibbo.csv", "gibbo", Columns{})
	require.NoError(t, err)
	assert.Equal(t, []model.ProductRecord{
		{ID: "1", Name: "Milk 1L", NormName: "milk 1l", Store: "gibbo"},
		{ID: "2", Name: "", Store: "gibbo"},
		{ID: "gibbo-3", Name: "Hardo Bread", Store: "gibbo"},
	}, got)
}

func TestReadRecords_HeaderRowAndColumns(t *testing.T) {
	csv := "Sampars export,,\nCode,Description,Qty\nA1,Rice 2kg,3\n"
	got, err := ReadRecords(strings.NewReader(csv), "s.csv", "sampars", Columns{ID: "Code", Name: "Description", HeaderRow: 2})
	require.NoError(t, err)
	assert.Equal(t, []model.ProductRecord{{ID: "A1", Name: "Rice 2kg", Store: "sampars"}}, got)
}

func TestReadRecords_Errors(t *testing.T) {
	_, err := ReadRecords(strings.NewReader("qty\n1\n"), "x.csv", "gibbo", Columns{})
	assert.ErrorContains(t, err, "no name column")

	_, err = ReadRecords(strings.NewReader("name\nA\n"), "x.csv", "", Columns{})
	assert.Error(t, err)

	_, err = ReadRecords(strings.NewReader("{}"), "x.txt", "gibbo", Columns{})
	assert.ErrorContains(t, err, "unsupported file")
}

func TestReadRecords_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"SKU", "Name"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"p-1", "Corn Beef Tin 200g"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"p-2", "Men's Tee"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	got, err := ReadRecords(bytes.NewReader(buf.Bytes()), "pricesmart.xlsx", "pricesmart", Columns{})
	require.NoError(t, err)
	assert.Equal(t, []model.ProductRecord{
		{ID: "p-1", Name: "Corn Beef Tin 200g", Store: "pricesmart"},
		{ID: "p-2", Name: "Men's Tee", Store: "pricesmart"},
	}, got)
}

const scrape = `[
  {"name": "Member's Mark Rice 2kg", "price": "$1,234.50", "url": "https://ps/rice", "image": "https://ps/rice.jpg"},
  {"name": "Flour", "price": 3.5, "url": "https://ps/flour", "image": null},
  {"name": "", "price": "9", "url": "https://ps/blank"}
]`

func TestReadListings_JSON(t *testing.T) {
	got, err := ReadListings(strings.NewReader(scrape), "pricesmart-groceries.json", 1)
	require.NoError(t, err)
	assert.Equal(t, []model.Listing{
		{Name: "Member's Mark Rice 2kg", Price: 1234.5, URL: "https://ps/rice", ImageURL: "https://ps/rice.jpg"},
		{Name: "Flour", Price: 3.5, URL: "https://ps/flour"},
		{Name: "", Price: 9, URL: "https://ps/blank"},
	}, got)
}

func TestReadListings_NotArray(t *testing.T) {
	_, err := ReadListings(strings.NewReader(`{"name":"x"}`), "a.json", 1)
	assert.Error(t, err)
}

func TestReadRecords_JSONUsesURLAsID(t *testing.T) {
	got, err := ReadRecords(strings.NewReader(scrape), "p.json", "pricesmart", Columns{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "https://ps/rice", got[0].ID)
	assert.Equal(t, "Member's Mark Rice 2kg", got[0].Name)
}

func TestParseStoreFile(t *testing.T) {
	sf, err := ParseStoreFile("gibbo=data/gibbo.csv")
	require.NoError(t, err)
	assert.Equal(t, StoreFile{Store: "gibbo", Path: "data/gibbo.csv"}, sf)

	for _, bad := range []string{"gibbo", "=x.csv", "gibbo=", ""} {
		_, err := ParseStoreFile(bad)
		assert.Error(t, err, bad)
	}
}

func TestSnapshotLoadProducts(t *testing.T) {
	dir := t.TempDir()
	g := filepath.Join(dir, "gibbo.csv")
	s := filepath.Join(dir, "sampars.csv")
	require.NoError(t, os.WriteFile(g, []byte("id,name\ng1,Milk 1L\n"), 0o644))
	require.NoError(t, os.WriteFile(s, []byte("id,name\ns1,Milk 1 Liter\ns2,Milk 1 Liter\n"), 0o644))

	snap := NewSnapshot([]StoreFile{{Store: "gibbo", Path: g}, {Store: "sampars", Path: s}}, Columns{})
	got, err := snap.LoadProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.ProductRecord{
		{ID: "g1", Name: "Milk 1L", Store: "gibbo"},
		{ID: "s1", Name: "Milk 1 Liter", Store: "sampars"},
		{ID: "s2", Name: "Milk 1 Liter", Store: "sampars"},
	}, got)

	_, err = NewSnapshot([]StoreFile{{Store: "gibbo", Path: filepath.Join(dir, "missing.csv")}}, Columns{}).
		LoadProducts(context.Background())
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = snap.LoadProducts(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadRecords_SemicolonCSV(t *testing.T) {
	csv := "id;name\n10;Ackee 540g\n11;\"Salt; Fine\"\n"
	got, err := ReadRecords(strings.NewReader(csv), "loshusans.csv", "loshusans", Columns{})
	require.NoError(t, err)
	assert.Equal(t, []model.ProductRecord{
		{ID: "10", Name: "Ackee 540g", Store: "loshusans"},
		{ID: "11", Name: "Salt; Fine", Store: "loshusans"},
	}, got)
}
