package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/catalog-migrate/internal/migrate"
	"github.com/sells-group/catalog-migrate/internal/model"
	"github.com/sells-group/catalog-migrate/internal/snapshot"
	"github.com/sells-group/catalog-migrate/internal/target"
	"github.com/sells-group/catalog-migrate/internal/transform"
	"github.com/sells-group/catalog-migrate/pkg/segwik"
	"github.com/sells-group/catalog-migrate/pkg/woocommerce"
)

var fixedNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

// fakeStore is an in-memory woocommerce.Client.
type fakeStore struct {
	customers []woocommerce.Customer
	products  []woocommerce.Product
	users     []woocommerce.User
	err       error

	mu    sync.Mutex
	calls map[string]int
	last  woocommerce.ListOptions
}

func (f *fakeStore) hit(name string, opts woocommerce.ListOptions) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
	if name == "customers" {
		f.last = opts
	}
}

func (f *fakeStore) ListCustomers(_ context.Context, opts woocommerce.ListOptions) ([]woocommerce.Customer, error) {
	f.hit("customers", opts)
	return f.customers, f.err
}

func (f *fakeStore) ListProducts(_ context.Context, opts woocommerce.ListOptions) ([]woocommerce.Product, error) {
	f.hit("products", opts)
	return f.products, f.err
}

func (f *fakeStore) ListOrders(_ context.Context, opts woocommerce.ListOptions) ([]woocommerce.Order, error) {
	f.hit("orders", opts)
	return nil, f.err
}

func (f *fakeStore) ListUsers(_ context.Context, opts woocommerce.ListOptions) ([]woocommerce.User, error) {
	f.hit("users", opts)
	return f.users, f.err
}

// recordingUpserter succeeds for every payload unless fail says otherwise.
type recordingUpserter struct {
	mu   sync.Mutex
	seen []model.TargetPayload
	fail func(model.TargetPayload) bool
}

func (r *recordingUpserter) Upsert(_ context.Context, p model.TargetPayload) (migrate.UpsertResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, p)
	if r.fail != nil && r.fail(p) {
		return migrate.UpsertResult{}, errors.New("segwik: status 422: invalid phone")
	}
	return migrate.UpsertResult{TargetID: "t-" + p.SourceID}, nil
}

func newTestPipeline(t *testing.T, store woocommerce.Client, up migrate.Upserter, opts ...Option) (*Pipeline, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	out := &bytes.Buffer{}
	cache := snapshot.NewCache(snapshot.NewMemoryStore(), snapshot.WithClock(func() time.Time { return fixedNow }))
	engine := migrate.NewEngine(up, migrate.WithClock(func() time.Time { return fixedNow }))
	base := []Option{
		WithLedgerDir(filepath.Join(dir, "ledgers")),
		WithReportDir(filepath.Join(dir, "reports")),
		WithOutput(out),
		WithClock(func() time.Time { return fixedNow }),
	}
	return New(store, cache, transform.New(transform.Options{Source: "wordpress"}), engine, append(base, opts...)...), out
}

func jessBeebe() woocommerce.Customer {
	return woocommerce.Customer{
		ID:        4012,
		Email:     "jess.beebe@example.com",
		FirstName: "Jess",
		LastName:  "Beebe",
		Role:      "vendor_admin",
		Billing: woocommerce.Address{
			FirstName: "Jess",
			LastName:  "Beebe",
			Email:     "jess.beebe@example.com",
			Phone:     "555-010-2233",
		},
	}
}

func TestMigrateCustomers_EndToEndSegwik(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customer/add", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true,"customer_id":98765,"is_exist":false,"message":"Customer added"}`))
	}))
	defer srv.Close()

	client := segwik.NewClient("tok", segwik.WithBaseURL(srv.URL), segwik.WithRateLimit(0))
	store := &fakeStore{customers: []woocommerce.Customer{jessBeebe()}}
	p, out := newTestPipeline(t, store, target.NewSegwik(client))

	res, err := p.MigrateCustomers(context.Background(), EngineOptions{})
	require.NoError(t, err)

	require.Len(t, res.Ledger.Records, 1)
	rec := res.Ledger.Records[0]
	assert.Equal(t, model.OutcomeCreated, rec.Outcome)
	assert.Equal(t, "98765", rec.TargetID)
	assert.Equal(t, 1, res.Ledger.Counts.Created)

	assert.Equal(t, float64(segwik.PersonaAuthor), got["custbase_id"])
	assert.Equal(t, "tok", got["token"])
	assert.Equal(t, "Jess", got["firstname"])

	assert.Equal(t, []string{"all"}, store.last.Params["role"])
	_, statErr := os.Stat(res.LedgerPath)
	assert.NoError(t, statErr)
	assert.Contains(t, out.String(), "Created:    1")
}

func TestMigrateCustomers_SkipsAndFailures(t *testing.T) {
	noContact := woocommerce.Customer{ID: 7, FirstName: "Ghost"}
	bad := woocommerce.Customer{ID: 8, Email: "bad@example.com"}
	store := &fakeStore{customers: []woocommerce.Customer{jessBeebe(), noContact, bad}}
	up := &recordingUpserter{fail: func(p model.TargetPayload) bool { return p.SourceEmail == "bad@example.com" }}
	p, out := newTestPipeline(t, store, up)

	res, err := p.MigrateCustomers(context.Background(), EngineOptions{})
	require.NoError(t, err)

	assert.Len(t, up.seen, 2)
	assert.Equal(t, 2, res.Ledger.Counts.Attempted)
	assert.Equal(t, 1, res.Ledger.Counts.Created)
	assert.Equal(t, 1, res.Ledger.Counts.Failed)
	assert.Equal(t, 1, res.Ledger.Counts.Skipped)
	require.Len(t, res.Ledger.Skipped, 1)
	assert.Equal(t, "7", res.Ledger.Skipped[0].SourceID)
	assert.Contains(t, out.String(), "Failed records:")

	saved, err := migrate.ReadLedger(res.LedgerPath)
	require.NoError(t, err)
	assert.Equal(t, res.Ledger.Counts, saved.Counts)
}

func TestMigrateCustomers_DryRunCallsNothing(t *testing.T) {
	store := &fakeStore{customers: []woocommerce.Customer{jessBeebe()}}
	up := &recordingUpserter{}
	p, out := newTestPipeline(t, store, up)

	res, err := p.MigrateCustomers(context.Background(), EngineOptions{DryRun: true})
	require.NoError(t, err)
	assert.Empty(t, up.seen)
	assert.Equal(t, 1, res.Ledger.Counts.DryRun)
	assert.Contains(t, out.String(), "(DRY RUN)")
}

func TestMigrateCustomers_LimitPassedToStore(t *testing.T) {
	store := &fakeStore{customers: []woocommerce.Customer{jessBeebe()}}
	p, _ := newTestPipeline(t, store, &recordingUpserter{})

	_, err := p.MigrateCustomers(context.Background(), EngineOptions{Limit: 5, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 5, store.last.Limit)
}

func TestMigrateCustomers_FetchError(t *testing.T) {
	store := &fakeStore{err: errors.New("woocommerce: status 500")}
	p, _ := newTestPipeline(t, store, &recordingUpserter{})

	_, err := p.MigrateCustomers(context.Background(), EngineOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch customers")
}

func authorStore() *fakeStore {
	acf := func(author string) json.RawMessage {
		b, _ := json.Marshal(map[string]string{woocommerce.AuthorFieldKey: author})
		return b
	}
	return &fakeStore{
		products: []woocommerce.Product{
			{ID: 11, Name: "Night Song", ACF: acf("Dee Knight")},
			{ID: 12, Name: "Ghost Notes", ACF: acf("Dan Flanigan, Unknown Bard")},
			{ID: 13, Name: "Ghost Notes II", ACF: acf("Dan Flanigan")},
			{ID: 14, Name: "No Credit"},
		},
		users: []woocommerce.User{
			{ID: 3137, Name: "Dee Knight", FirstName: "Dee", LastName: "Knight", Slug: "dee-knight", Email: "dee@example.com"},
		},
	}
}

func clientListFetcher(calls *int) snapshot.Fetcher {
	return func(context.Context) ([]model.ReferenceRecord, error) {
		*calls++
		return []model.ReferenceRecord{
			{ID: "1", Name: "Dan Flanigan", Email: "dan@example.com", Origin: model.OriginClientList},
		}, nil
	}
}

func TestReconcileAuthors_Report(t *testing.T) {
	var calls int
	p, out := newTestPipeline(t, authorStore(), &recordingUpserter{},
		WithSource(model.OriginClientList, clientListFetcher(&calls)))

	res, err := p.ReconcileAuthors(context.Background(), ReconcileOptions{})
	require.NoError(t, err)
	assert.Nil(t, res.Run)

	rep := res.Report
	assert.Equal(t, 3, rep.Total)
	require.Len(t, rep.Matched, 1)
	assert.Equal(t, "Dee Knight", rep.Matched[0].Name)
	require.Len(t, rep.Secondary, 1)
	assert.Equal(t, "Dan Flanigan", rep.Secondary[0].Name)
	assert.Equal(t, 2, rep.Secondary[0].ProductCount())
	require.Len(t, rep.Orphans, 1)
	assert.Equal(t, "Unknown Bard", rep.Orphans[0].Name)
	assert.Equal(t, []model.Origin{model.OriginWPUsers, model.OriginClientList}, rep.Sources)

	assert.Equal(t, "orphan-authors-report-2026-10-15.md", filepath.Base(res.ReportPath))
	assert.Contains(t, out.String(), "Total unique authors in products: 3")
}

func TestReconcileAuthors_UsesCacheUntilRefresh(t *testing.T) {
	var calls int
	store := authorStore()
	p, _ := newTestPipeline(t, store, &recordingUpserter{},
		WithSource(model.OriginClientList, clientListFetcher(&calls)))

	_, err := p.ReconcileAuthors(context.Background(), ReconcileOptions{})
	require.NoError(t, err)
	_, err = p.ReconcileAuthors(context.Background(), ReconcileOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, store.calls["products"])

	_, err = p.ReconcileAuthors(context.Background(), ReconcileOptions{Refresh: true})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, store.calls["users"])
}

func TestReconcileAuthors_MigratesSecondaryMatches(t *testing.T) {
	var calls int
	up := &recordingUpserter{}
	p, _ := newTestPipeline(t, authorStore(), up,
		WithSource(model.OriginClientList, clientListFetcher(&calls)))

	res, err := p.ReconcileAuthors(context.Background(), ReconcileOptions{Migrate: true})
	require.NoError(t, err)
	require.NotNil(t, res.Run)

	require.Len(t, up.seen, 1)
	payload := up.seen[0]
	assert.Equal(t, "author:Dan Flanigan", payload.SourceID)
	assert.Equal(t, segwik.PersonaAuthor, payload.Fields.Persona)
	assert.Equal(t, "dan@example.com", payload.KeyValue())
	assert.Equal(t, KindAuthors, res.Run.Ledger.Kind)
	assert.Equal(t, 1, res.Run.Ledger.Counts.Created)
}

func TestReconcileAuthors_UnknownSource(t *testing.T) {
	p, _ := newTestPipeline(t, authorStore(), &recordingUpserter{})

	_, err := p.ReconcileAuthors(context.Background(), ReconcileOptions{
		Sources: []model.Origin{model.OriginWPUsers, model.OriginNotionClients},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion_clients")
}

func TestReconcileAuthors_UnknownSourceFetchesNothing(t *testing.T) {
	var calls int
	store := authorStore()
	p, _ := newTestPipeline(t, store, &recordingUpserter{},
		WithSource(model.OriginClientList, clientListFetcher(&calls)))

	_, err := p.ReconcileAuthors(context.Background(), ReconcileOptions{
		Sources: []model.Origin{model.OriginClientList, model.OriginNotionClients},
	})
	require.Error(t, err)
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, store.calls["products"])
}

func TestReconcileAuthors_UncachedSourceNotPersisted(t *testing.T) {
	cache := snapshot.NewCache(snapshot.NewMemoryStore(), snapshot.WithClock(func() time.Time { return fixedNow }))
	build := func(opt Option) *Pipeline {
		dir := t.TempDir()
		return New(authorStore(), cache, transform.New(transform.Options{Source: "wordpress"}),
			migrate.NewEngine(&recordingUpserter{}),
			WithLedgerDir(filepath.Join(dir, "ledgers")),
			WithReportDir(filepath.Join(dir, "reports")),
			WithOutput(&bytes.Buffer{}),
			WithClock(func() time.Time { return fixedNow }),
			opt,
		)
	}
	empty := func(context.Context) ([]model.ReferenceRecord, error) { return nil, nil }

	res, err := build(WithUncachedSource(model.OriginClientList, empty)).
		ReconcileAuthors(context.Background(), ReconcileOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Report.Secondary)
	require.Len(t, res.Report.Orphans, 2)

	var calls int
	res, err = build(WithSource(model.OriginClientList, clientListFetcher(&calls))).
		ReconcileAuthors(context.Background(), ReconcileOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	require.Len(t, res.Report.Secondary, 1)
	assert.Equal(t, "Dan Flanigan", res.Report.Secondary[0].Name)
}

func TestReconcileAuthors_FetchFailureIsFatal(t *testing.T) {
	failing := func(context.Context) ([]model.ReferenceRecord, error) {
		return nil, errors.New("sheet unavailable")
	}
	p, _ := newTestPipeline(t, authorStore(), &recordingUpserter{},
		WithSource(model.OriginClientList, failing))

	_, err := p.ReconcileAuthors(context.Background(), ReconcileOptions{})
	var fe *snapshot.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, model.OriginClientList, fe.Origin)
}

func TestRetry_ReplaysFailedOnly(t *testing.T) {
	dir := t.TempDir()
	prev := &model.RunLedger{RunID: "prev", Kind: KindCustomers, StartedAt: fixedNow.Add(-time.Hour)}
	prev.Append(model.MigrationRecord{SourceID: "1", Outcome: model.OutcomeCreated,
		Payload: model.TargetPayload{SourceID: "1"}})
	prev.Append(model.MigrationRecord{SourceID: "2", Outcome: model.OutcomeFailed,
		Payload: model.TargetPayload{SourceID: "2"}, Error: "boom"})
	path, err := migrate.WriteLedger(dir, prev)
	require.NoError(t, err)

	up := &recordingUpserter{}
	p, _ := newTestPipeline(t, &fakeStore{}, up)

	res, err := p.Retry(context.Background(), path, EngineOptions{})
	require.NoError(t, err)
	require.Len(t, up.seen, 1)
	assert.Equal(t, "2", up.seen[0].SourceID)
	assert.Equal(t, "customers-retry", res.Ledger.Kind)
	assert.Equal(t, 1, res.Ledger.Counts.Created)
}

func TestRetry_NothingToDo(t *testing.T) {
	dir := t.TempDir()
	prev := &model.RunLedger{RunID: "prev", Kind: KindCustomers, StartedAt: fixedNow}
	prev.Append(model.MigrationRecord{SourceID: "1", Outcome: model.OutcomeCreated})
	path, err := migrate.WriteLedger(dir, prev)
	require.NoError(t, err)

	up := &recordingUpserter{}
	p, out := newTestPipeline(t, &fakeStore{}, up)

	res, err := p.Retry(context.Background(), path, EngineOptions{})
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Empty(t, up.seen)
	assert.Contains(t, out.String(), "No failed records")
}
