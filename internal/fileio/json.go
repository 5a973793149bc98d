package fileio

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"alias-service/internal/alias/model"
	"alias-service/internal/utils"
)

// readJSON reads a scrape dump: a top-level array of flat objects.
// Nested values are kept as their JSON text.
func readJSON(r io.Reader) ([]map[string]string, error) {
	var items []map[string]json.RawMessage
	dec := json.NewDecoder(r)
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("decode json array: %w", err)
	}
	out := make([]map[string]string, 0, len(items))
	for _, it := range items {
		m := make(map[string]string, len(it))
		for k, raw := range it {
			m[k] = rawText(raw)
		}
		out = append(out, m)
	}
	return out, nil
}

func rawText(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "null" {
		return ""
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err == nil {
			return str
		}
	}
	return s
}

// ReadListings reads a scraped product file (JSON array with name, price,
// url, image, or a table with resolvable columns) into listings.
// Rows are returned as-is; the importer decides what to skip.
func ReadListings(r io.Reader, filename string, headerRow int) ([]model.Listing, error) {
	rows, err := ReadAnyMaps(r, filename, headerRow)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	var (
		nameKey  = resolveKey(rows[0], "", nameColumns...)
		priceKey = resolveKey(rows[0], "", "price", "цена", "cost")
		urlKey   = resolveKey(rows[0], "", "url", "link", "href")
		imageKey = resolveKey(rows[0], "", "image", "image_url", "img")
	)

	out := make([]model.Listing, 0, len(rows))
	for _, row := range rows {
		price, _ := utils.ParsePrice(row[priceKey])
		out = append(out, model.Listing{
			Name:     strings.TrimSpace(row[nameKey]),
			Price:    price,
			URL:      strings.TrimSpace(row[urlKey]),
			ImageURL: strings.TrimSpace(row[imageKey]),
		})
	}
	return out, nil
}
