package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"alias-service/internal/alias/model"
	"alias-service/internal/metrics"
)

var ErrInvalidOptions = errors.New("invalid alias options")

// Source loads the unified snapshot of all store rows.
type Source interface {
	LoadProducts(ctx context.Context) ([]model.ProductRecord, error)
}

// AliasWriter persists one alias onto one target-store row. Writes fully
// overwrite alias and confidence, so repeating one is safe.
type AliasWriter interface {
	WriteAlias(ctx context.Context, a model.AliasAssignment) error
}

// Publisher pushes a finished plan somewhere else (search index etc.).
type Publisher interface {
	Publish(ctx context.Context, res *model.Result) error
}

func ValidateOptions(opt model.Options) error {
	switch {
	case opt.Threshold < 0 || opt.Threshold > 1:
		return fmt.Errorf("%w: threshold %.4f outside [0,1]", ErrInvalidOptions, opt.Threshold)
	case opt.TargetStore == "":
		return fmt.Errorf("%w: target store is empty", ErrInvalidOptions)
	case opt.Confidence < 0 || opt.Confidence > 1:
		return fmt.Errorf("%w: confidence %.4f outside [0,1]", ErrInvalidOptions, opt.Confidence)
	}
	switch opt.ConfidenceMode {
	case model.ConfidenceFixed, model.ConfidenceSimilarity:
	default:
		return fmt.Errorf("%w: unknown confidence mode %q", ErrInvalidOptions, opt.ConfidenceMode)
	}
	switch opt.Strategy {
	case model.StrategyBruteForce, model.StrategyIndexed:
	default:
		return fmt.Errorf("%w: unknown cluster strategy %q", ErrInvalidOptions, opt.Strategy)
	}
	return nil
}

// Plan runs normalize → score → cluster → select over one snapshot.
// It has no side effects; equal snapshots give equal plans.
func Plan(ctx context.Context, records []model.ProductRecord, opt model.Options) (model.Result, error) {
	if err := ValidateOptions(opt); err != nil {
		return model.Result{}, err
	}

	// 1) нормализация
	norms := make([]model.NormalizedName, len(records))
	tokens := make([][]string, len(records))
	for i := range records {
		norms[i] = Normalize(records[i].Name)
		tokens[i] = norms[i].Tokens
	}

	// 2) кластеры
	var (
		clusters []model.Cluster
		err      error
	)
	if opt.Strategy == model.StrategyBruteForce {
		clusters, err = BuildClusters(ctx, tokens, opt.Threshold, opt.Workers)
	} else {
		clusters, err = BuildClustersIndexed(ctx, tokens, opt.Threshold, opt.Workers)
	}
	if err != nil {
		return model.Result{}, err
	}

	// 3) канонические имена
	sets := toSets(tokens)
	res := model.Result{
		Clusters:    make([]model.ClusterView, 0, len(clusters)),
		Assignments: make([]model.AliasAssignment, 0),
		Opts:        opt,
	}
	res.Stats.Records = len(records)
	res.Stats.Clusters = len(clusters)

	for _, c := range clusters {
		name, ok := SelectCanonical(records, c.Members, opt.TargetStore)
		view := model.ClusterView{Root: c.Root, CanonicalName: name, Resolved: ok}
		if len(c.Members) == 1 {
			res.Stats.Singletons++
		}
		if !ok {
			res.Stats.Unresolved++
		}

		conf := clusterConfidence(sets, c.Members, opt)
		for _, i := range c.Members {
			r := records[i]
			view.Members = append(view.Members, model.Member{
				ID:          r.ID,
				Store:       r.Store,
				Name:        r.Name,
				Normalized:  displayNorm(r, norms[i]),
				Fingerprint: norms[i].Fingerprint,
			})
			if ok && r.Store == opt.TargetStore {
				res.Assignments = append(res.Assignments, model.AliasAssignment{
					RecordID:      r.ID,
					Store:         r.Store,
					CanonicalName: name,
					Confidence:    conf,
				})
			}
		}
		res.Clusters = append(res.Clusters, view)
	}
	res.Stats.Targets = len(res.Assignments)
	return res, nil
}

// precomputed norm_name wins for display, tokens always come from the raw name
func displayNorm(r model.ProductRecord, n model.NormalizedName) string {
	if r.NormName != "" {
		return r.NormName
	}
	return n.Text
}

type Service struct {
	src    Source
	writer AliasWriter
	pub    Publisher
	opt    model.Options
	logger zerolog.Logger
}

type RunResult struct {
	RunID   string              `json:"runId"`
	Plan    model.Result        `json:"plan"`
	Persist model.PersistReport `json:"persist"`
	Elapsed time.Duration       `json:"elapsed"`
}

func New(src Source, writer AliasWriter, opt model.Options, logger zerolog.Logger) *Service {
	return &Service{src: src, writer: writer, opt: opt, logger: logger}
}

// WithPublisher sets an optional publisher called after persistence.
func (s *Service) WithPublisher(p Publisher) *Service {
	s.pub = p
	return s
}

// Run performs one full batch pass. Source errors abort before any
// clustering; write errors are reported per record. When ctx ends during
// write-back the partial result is returned together with the ctx error.
func (s *Service) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	out := &RunResult{RunID: uuid.NewString()}
	log := s.logger.With().Str("run_id", out.RunID).Logger()

	if err := ValidateOptions(s.opt); err != nil {
		return nil, err
	}

	records, err := s.src.LoadProducts(ctx)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("source_error").Inc()
		return nil, fmt.Errorf("load products: %w", err)
	}
	log.Info().Int("records", len(records)).Msg("loaded products from all stores")

	plan, err := Plan(ctx, records, s.opt)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("plan_error").Inc()
		return nil, fmt.Errorf("plan aliases: %w", err)
	}
	out.Plan = plan
	metrics.ClustersFound.Set(float64(plan.Stats.Clusters))
	log.Info().
		Int("clusters", plan.Stats.Clusters).
		Int("singletons", plan.Stats.Singletons).
		Int("unresolved", plan.Stats.Unresolved).
		Int("targets", plan.Stats.Targets).
		Msg("clusters built")

	out.Persist = Persist(ctx, s.writer, plan.Assignments, s.opt, log)
	log.Info().
		Int("written", out.Persist.Written).
		Int("failed", len(out.Persist.Failures)).
		Int("skipped", out.Persist.Skipped).
		Str("target_store", s.opt.TargetStore).
		Msg("alias write-back done")

	// прервано сигналом: отчёт отдаём, но запуск неуспешен
	if err := ctx.Err(); err != nil {
		out.Elapsed = time.Since(start)
		metrics.RunDuration.Observe(out.Elapsed.Seconds())
		metrics.RunsTotal.WithLabelValues("interrupted").Inc()
		return out, fmt.Errorf("alias write-back interrupted: %w", err)
	}

	if s.pub != nil {
		if err := s.pub.Publish(ctx, &out.Plan); err != nil {
			// индекс вторичен: запись в БД уже прошла
			log.Error().Err(err).Msg("publish aliases")
		}
	}

	out.Elapsed = time.Since(start)
	metrics.RunDuration.Observe(out.Elapsed.Seconds())
	status := "ok"
	if len(out.Persist.Failures) > 0 || out.Persist.Skipped > 0 {
		status = "partial"
	}
	metrics.RunsTotal.WithLabelValues(status).Inc()
	return out, nil
}
