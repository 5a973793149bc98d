package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alias-service/internal/alias/model"
)

type fakeSource struct {
	records []model.ProductRecord
	err     error
}

func (f *fakeSource) LoadProducts(context.Context) ([]model.ProductRecord, error) {
	return f.records, f.err
}

type countingWriter struct {
	mu    sync.Mutex
	calls map[string]int
	last  map[string]model.AliasAssignment
}

func newCountingWriter() *countingWriter {
	return &countingWriter{calls: map[string]int{}, last: map[string]model.AliasAssignment{}}
}

func (w *countingWriter) WriteAlias(_ context.Context, a model.AliasAssignment) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls[a.RecordID]++
	w.last[a.RecordID] = a
	return nil
}

type recordingPublisher struct {
	got *model.Result
	err error
}

func (p *recordingPublisher) Publish(_ context.Context, res *model.Result) error {
	p.got = res
	return p.err
}

func snapshot() []model.ProductRecord {
	return []model.ProductRecord{
		{ID: "g1", Store: "gibbo", Name: "Milk 1L"},
		{ID: "s1", Store: "sampars", Name: "Milk 1 Liter"},
		{ID: "s2", Store: "sampars", Name: "Milk 1 Liter"},
		{ID: "g2", Store: "gibbo", Name: "Cornbeef 200g Tin"},
		{ID: "p1", Store: "pricesmart", Name: "Corn Beef Tin 200g"},
		{ID: "l1", Store: "loshusans", Name: "Hardo Bread"},
		{ID: "g3", Store: "gibbo", Name: ""},
		{ID: "g4", Store: "gibbo", Name: "Men's Tee - Blue, XL", NormName: "mens tee"},
	}
}

func TestPlan(t *testing.T) {
	opt := model.DefaultOptions()
	opt.Threshold = 0.5

	res, err := Plan(context.Background(), snapshot(), opt)
	require.NoError(t, err)

	byID := map[string]model.AliasAssignment{}
	for _, a := range res.Assignments {
		assert.Equal(t, "gibbo", a.Store, "only target rows get aliases")
		assert.Equal(t, 0.85, a.Confidence)
		byID[a.RecordID] = a
	}

	// "milk 1l" vs "milk 1 liter": 1/4, so g1 is still alone at 0.5
	assert.Equal(t, "Milk 1L", byID["g1"].CanonicalName)
	assert.Equal(t, "Corn Beef Tin 200g", byID["g2"].CanonicalName)
	assert.Equal(t, "Men's Tee - Blue, XL", byID["g4"].CanonicalName)
	assert.NotContains(t, byID, "g3", "blank-only cluster is unresolved")

	assert.Equal(t, 8, res.Stats.Records)
	assert.Equal(t, 1, res.Stats.Unresolved)
	assert.Equal(t, 3, res.Stats.Targets)
	assert.Equal(t, len(res.Clusters), res.Stats.Clusters)

	var g4 model.Member
	for _, c := range res.Clusters {
		for _, m := range c.Members {
			if m.ID == "g4" {
				g4 = m
			}
		}
	}
	assert.Equal(t, "mens tee", g4.Normalized, "precomputed norm_name is displayed")
	assert.Equal(t, "men s shirt t", g4.Fingerprint)
}

func TestPlan_CanonicalExample(t *testing.T) {
	records := []model.ProductRecord{
		{ID: "1", Store: "gibbo", Name: "Milk 1L"},
		{ID: "2", Store: "storeB", Name: "Milk 1 Liter"},
		{ID: "3", Store: "storeB", Name: "Milk 1 Liter"},
	}
	opt := model.DefaultOptions()
	opt.Threshold = 0.2 // force one cluster

	res, err := Plan(context.Background(), records, opt)
	require.NoError(t, err)
	require.Len(t, res.Clusters, 1)
	assert.Equal(t, []model.AliasAssignment{
		{RecordID: "1", Store: "gibbo", CanonicalName: "Milk 1 Liter", Confidence: 0.85},
	}, res.Assignments)
}

func TestPlan_Idempotent(t *testing.T) {
	opt := model.DefaultOptions()
	opt.Workers = 4
	first, err := Plan(context.Background(), snapshot(), opt)
	require.NoError(t, err)
	second, err := Plan(context.Background(), snapshot(), opt)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	opt.Strategy = model.StrategyBruteForce
	brute, err := Plan(context.Background(), snapshot(), opt)
	require.NoError(t, err)
	assert.Equal(t, first.Assignments, brute.Assignments)
	assert.Equal(t, first.Clusters, brute.Clusters)
}

func TestPlan_Empty(t *testing.T) {
	res, err := Plan(context.Background(), nil, model.DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, res.Clusters)
	assert.Empty(t, res.Assignments)
}

func TestValidateOptions(t *testing.T) {
	mutate := []func(*model.Options){
		func(o *model.Options) { o.Threshold = 1.5 },
		func(o *model.Options) { o.Threshold = -0.1 },
		func(o *model.Options) { o.TargetStore = "" },
		func(o *model.Options) { o.Confidence = 2 },
		func(o *model.Options) { o.ConfidenceMode = "avg" },
		func(o *model.Options) { o.Strategy = "lsh" },
	}
	require.NoError(t, ValidateOptions(model.DefaultOptions()))
	for i, m := range mutate {
		opt := model.DefaultOptions()
		m(&opt)
		assert.ErrorIs(t, ValidateOptions(opt), ErrInvalidOptions, "case %d", i)
	}
}

func TestServiceRun(t *testing.T) {
	src := &fakeSource{records: snapshot()}
	w := newCountingWriter()
	pub := &recordingPublisher{}
	opt := model.DefaultOptions()
	opt.WriteWorkers = 3

	svc := New(src, w, opt, zerolog.Nop()).WithPublisher(pub)
	out, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, out.Plan.Stats.Targets, out.Persist.Written)
	assert.Empty(t, out.Persist.Failures)

	// ровно одна запись на каждую строку целевого магазина
	for _, id := range []string{"g1", "g2", "g4"} {
		assert.Equal(t, 1, w.calls[id], id)
	}
	for _, id := range []string{"s1", "s2", "p1", "l1", "g3"} {
		assert.Zero(t, w.calls[id], id)
	}
	require.NotNil(t, pub.got)
	assert.Equal(t, out.Plan.Assignments, pub.got.Assignments)
}

func TestServiceRun_RerunSameValues(t *testing.T) {
	src := &fakeSource{records: snapshot()}
	w := newCountingWriter()
	svc := New(src, w, model.DefaultOptions(), zerolog.Nop())

	_, err := svc.Run(context.Background())
	require.NoError(t, err)
	first := map[string]model.AliasAssignment{}
	for k, v := range w.last {
		first[k] = v
	}

	_, err = svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, w.last)
}

func TestServiceRun_SourceErrorAborts(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	w := newCountingWriter()

	_, err := New(src, w, model.DefaultOptions(), zerolog.Nop()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Empty(t, w.calls)
}

func TestServiceRun_PublishErrorIsNotFatal(t *testing.T) {
	src := &fakeSource{records: snapshot()}
	pub := &recordingPublisher{err: errors.New("meili down")}

	out, err := New(src, NewReportWriter(), model.DefaultOptions(), zerolog.Nop()).WithPublisher(pub).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, out.Plan.Stats.Targets, out.Persist.Written)
}

func TestServiceRun_InterruptedWriteBackFails(t *testing.T) {
	zeroBackOff(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pub := &recordingPublisher{}
	opt := model.DefaultOptions()
	opt.WriteWorkers = 1

	out, err := New(&fakeSource{records: snapshot()}, &cancelOnWrite{cancel: cancel}, opt, zerolog.Nop()).
		WithPublisher(pub).
		Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, out)
	assert.Equal(t, 1, out.Persist.Written)
	assert.Equal(t, out.Plan.Stats.Targets-1, out.Persist.Skipped)
	assert.Empty(t, out.Persist.Failures)
	assert.Nil(t, pub.got, "interrupted run is not published")
}
