package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"alias-service/internal/alias/model"
	aliasSvc "alias-service/internal/alias/service"
	"alias-service/internal/config"
	"alias-service/internal/fileio"
	"alias-service/internal/metrics"
	"alias-service/internal/middleware"
)

// Preview plans aliases for uploaded store files without touching any
// database. Each multipart file part is named by its store tag:
//
//	curl -F gibbo=@gibbo.csv -F sampars=@sampars.xlsx -F threshold=0.6 .../alias/preview
func Preview(cfg config.Config, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := logger.With().Str("rid", middleware.GetRequestID(r)).Logger()

		fail := func(code int, msg string) {
			metrics.PreviewRequests.WithLabelValues(strconv.Itoa(code)).Inc()
			writeJSON(w, code, errorBody{Error: msg, RequestID: middleware.GetRequestID(r)}, log)
		}

		maxMem := int64(cfg.MaxUploadMB) << 20
		if maxMem <= 0 {
			maxMem = 32 << 20
		}
		if err := r.ParseMultipartForm(maxMem); err != nil {
			fail(http.StatusBadRequest, "bad multipart form: "+err.Error())
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		stores := storeOrder(r.MultipartForm.File, splitList(r.FormValue("stores")), cfg.Stores)
		if len(stores) == 0 {
			fail(http.StatusBadRequest, "no store files: send one file part per store, e.g. -F gibbo=@gibbo.csv")
			return
		}

		// 1) опции: дефолты из конфига, поверх поля формы
		opt := cfg.AliasOptions()
		opt.Threshold = toFloat(r.FormValue("threshold"), opt.Threshold)
		opt.TargetStore = orDefault(r.FormValue("target_store"), opt.TargetStore)
		opt.ConfidenceMode = orDefault(r.FormValue("confidence_mode"), opt.ConfidenceMode)
		opt.Strategy = orDefault(r.FormValue("strategy"), opt.Strategy)

		cols := fileio.Columns{
			ID:        r.FormValue("id_column"),
			Name:      r.FormValue("name_column"),
			NormName:  r.FormValue("norm_column"),
			HeaderRow: atoi(r.FormValue("header_row"), 1),
		}

		// 2) чтение файлов в порядке магазинов
		var records []model.ProductRecord
		for _, store := range stores {
			for _, fh := range r.MultipartForm.File[store] {
				recs, err := readPart(fh, store, cols)
				if err != nil {
					fail(http.StatusBadRequest, err.Error())
					return
				}
				records = append(records, recs...)
			}
		}

		// 3) план
		res, err := aliasSvc.Plan(r.Context(), records, opt)
		switch {
		case errors.Is(err, aliasSvc.ErrInvalidOptions):
			fail(http.StatusBadRequest, err.Error())
			return
		case err != nil:
			log.Error().Err(err).Msg("preview plan")
			fail(http.StatusInternalServerError, "plan failed")
			return
		}

		metrics.PreviewRequests.WithLabelValues("200").Inc()
		writeJSON(w, http.StatusOK, res, log)

		log.Info().
			Strs("stores", stores).
			Int("records", res.Stats.Records).
			Int("clusters", res.Stats.Clusters).
			Int("targets", res.Stats.Targets).
			Dur("elapsed", time.Since(start)).
			Msg("preview done")
	}
}

func readPart(fh *multipart.FileHeader, store string, cols fileio.Columns) ([]model.ProductRecord, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	recs, err := fileio.ReadRecords(f, fh.Filename, store, cols)
	if err != nil {
		return nil, fmt.Errorf("read %s (%s): %w", store, fh.Filename, err)
	}
	return recs, nil
}

// storeOrder fixes the order files are concatenated in, since canonical
// tie-breaks depend on it: explicit list first, then configured stores,
// then any other parts alphabetically.
func storeOrder(files map[string][]*multipart.FileHeader, explicit, configured []string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(s string) {
		if !seen[s] && len(files[s]) > 0 {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range explicit {
		add(s)
	}
	for _, s := range configured {
		add(s)
	}
	rest := make([]string, 0, len(files))
	for s := range files {
		rest = append(rest, s)
	}
	sort.Strings(rest)
	for _, s := range rest {
		add(s)
	}
	return out
}
