// Package search publishes resolved aliases to Meilisearch.
package search

import (
	"context"
	"fmt"
	"regexp"

	"github.com/meilisearch/meilisearch-go"
	"github.com/rs/zerolog"

	"alias-service/internal/alias/model"
)

const batchSize = 1000

var reDocID = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// MeiliPublisher pushes one document per alias assignment, so the search
// side can look products up by canonical name.
type MeiliPublisher struct {
	client meilisearch.ServiceManager
	index  string
	logger zerolog.Logger
}

func NewMeiliPublisher(url, apiKey, index string, logger zerolog.Logger) *MeiliPublisher {
	return &MeiliPublisher{
		client: meilisearch.New(url, meilisearch.WithAPIKey(apiKey)),
		index:  index,
		logger: logger,
	}
}

func docID(store, recordID string) string {
	return reDocID.ReplaceAllString(store+"_"+recordID, "_")
}

// Documents flattens a plan into index documents. Member names of the
// cluster go along as synonyms for search.
func Documents(res *model.Result) []map[string]interface{} {
	names := make(map[string][]string, len(res.Clusters))
	for _, c := range res.Clusters {
		if !c.Resolved {
			continue
		}
		seen := map[string]bool{}
		var ns []string
		for _, m := range c.Members {
			if m.Name != "" && !seen[m.Name] {
				seen[m.Name] = true
				ns = append(ns, m.Name)
			}
		}
		for _, m := range c.Members {
			names[m.Store+"\x00"+m.ID] = ns
		}
	}

	docs := make([]map[string]interface{}, 0, len(res.Assignments))
	for _, a := range res.Assignments {
		docs = append(docs, map[string]interface{}{
			"id":            docID(a.Store, a.RecordID),
			"recordId":      a.RecordID,
			"store":         a.Store,
			"canonicalName": a.CanonicalName,
			"confidence":    a.Confidence,
			"memberNames":   names[a.Store+"\x00"+a.RecordID],
		})
	}
	return docs
}

func (p *MeiliPublisher) Publish(ctx context.Context, res *model.Result) error {
	docs := Documents(res)
	if len(docs) == 0 {
		return nil
	}

	// индекс мог уже существовать, ошибку создания игнорируем
	_, _ = p.client.CreateIndex(&meilisearch.IndexConfig{Uid: p.index, PrimaryKey: "id"})
	index := p.client.Index(p.index)

	settings := meilisearch.Settings{
		SearchableAttributes: []string{"canonicalName", "memberNames"},
		FilterableAttributes: []string{"store"},
		SortableAttributes:   []string{"confidence"},
	}
	if _, err := index.UpdateSettings(&settings); err != nil {
		p.logger.Warn().Err(err).Str("index", p.index).Msg("meili settings not applied")
	}

	for start := 0; start < len(docs); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+batchSize, len(docs))
		if _, err := index.AddDocuments(docs[start:end], nil); err != nil {
			return fmt.Errorf("meili add documents [%d:%d]: %w", start, end, err)
		}
	}
	p.logger.Info().Int("documents", len(docs)).Str("index", p.index).Msg("aliases published")
	return nil
}
