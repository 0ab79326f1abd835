package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calygofire/calygo"
	"github.com/calygofire/calygo/offline"
	"github.com/calygofire/calygo/sqlite"
)

type fakeQueue struct {
	mu      sync.Mutex
	online  bool
	queued  []calygo.PendingRequest
	flushed int
}

func (q *fakeQueue) Enqueue(_ context.Context, url, method string, headers map[string]string, body string) calygo.PendingRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	req := calygo.PendingRequest{URL: url, Method: method, Headers: headers, Body: body}
	q.queued = append(q.queued, req)
	return req
}

func (q *fakeQueue) IsOnline() bool {
	return q.online
}

func (q *fakeQueue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queued)
}

func (q *fakeQueue) Flush(context.Context) (int, error) {
	if !q.online {
		return 0, offline.ErrOffline
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.queued)
	q.queued = nil
	q.flushed += n
	return n, nil
}

type received struct {
	method string
	path   string
	body   string
}

type fakeServer struct {
	*httptest.Server
	mu        sync.Mutex
	requests  []received
	addresses []calygo.ExistingAddressRecord
	status    int
	statusFor map[string]int
}

func newFakeServer(t *testing.T) *fakeServer {
	s := &fakeServer{status: http.StatusCreated}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.requests = append(s.requests, received{method: r.Method, path: r.URL.Path, body: string(b)})
		status := s.status
		if st, ok := s.statusFor[r.URL.Path]; ok {
			status = st
		}
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/addresses":
			_ = json.NewEncoder(w).Encode(s.addresses)
		case r.Method == http.MethodGet && r.URL.Path == "/api/tournees":
			_, _ = w.Write([]byte(`[{"id":1,"name":"Nord","status":"planned","addressIds":[2,1]}]`))
		default:
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *fakeServer) writes() []received {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []received
	for _, r := range s.requests {
		if r.method != http.MethodGet {
			out = append(out, r)
		}
	}
	return out
}

func newTestSvc(t *testing.T, serverURL string, q *fakeQueue) *fieldSvc {
	transport, err := offline.NewHTTPTransport(&http.Client{Timeout: time.Second}, serverURL)
	require.NoError(t, err)
	svc := NewFieldSvc(transport, q, 7, calygo.NopLogger{}).(*fieldSvc)
	svc.now = func() time.Time { return time.Date(2025, 11, 20, 10, 0, 0, 0, time.UTC) }
	return svc
}

func coords(lat, lon float64) (*float64, *float64) {
	return &lat, &lon
}

func address(id int, lat, lon float64) calygo.ExistingAddressRecord {
	a := calygo.ExistingAddressRecord{ID: id}
	a.FullAddress = "rue"
	a.Latitude, a.Longitude = coords(lat, lon)
	return a
}

func TestRecordSaleOnlinePostsSaleAndSoldVisit(t *testing.T) {
	srv := newFakeServer(t)
	q := &fakeQueue{online: true}
	svc := newTestSvc(t, srv.URL, q)

	res, err := svc.RecordSale(context.Background(), 3, 1250, "cash")
	require.NoError(t, err)
	assert.False(t, res.Queued)
	assert.Empty(t, q.queued)

	writes := srv.writes()
	require.Len(t, writes, 2)
	assert.Equal(t, "/api/sales", writes[0].path)
	assert.Equal(t, "/api/visits", writes[1].path)

	var sale calygo.SaleRecord
	require.NoError(t, json.Unmarshal([]byte(writes[0].body), &sale))
	assert.Equal(t, 3, sale.AddressID)
	assert.Equal(t, 7, sale.PompierID)
	assert.Equal(t, int64(1250), sale.Amount)

	var visit calygo.VisitRecord
	require.NoError(t, json.Unmarshal([]byte(writes[1].body), &visit))
	assert.Equal(t, calygo.StatusSold, visit.Status)
	assert.Equal(t, int64(1250), visit.Amount)
}

func TestRecordSaleOfflineIsQueued(t *testing.T) {
	srv := newFakeServer(t)
	q := &fakeQueue{online: false}
	svc := newTestSvc(t, srv.URL, q)

	res, err := svc.RecordSale(context.Background(), 3, 1000, "check")
	require.NoError(t, err)
	assert.True(t, res.Queued)
	assert.Empty(t, srv.writes())

	require.Len(t, q.queued, 2)
	assert.Equal(t, "/api/sales", q.queued[0].URL)
	assert.Equal(t, http.MethodPost, q.queued[0].Method)
	assert.Equal(t, "application/json", q.queued[0].Headers["Content-Type"])
	assert.Equal(t, "/api/visits", q.queued[1].URL)
}

func TestRecordVisitUnreachableServerIsQueued(t *testing.T) {
	srv := newFakeServer(t)
	url := srv.URL
	srv.Close()

	q := &fakeQueue{online: true}
	svc := newTestSvc(t, url, q)

	res, err := svc.RecordVisit(context.Background(), 4, calygo.StatusAbsent)
	require.NoError(t, err)
	assert.True(t, res.Queued)
	require.Len(t, q.queued, 1)

	var visit calygo.VisitRecord
	require.NoError(t, json.Unmarshal([]byte(q.queued[0].Body), &visit))
	assert.Equal(t, calygo.StatusAbsent, visit.Status)
	assert.Equal(t, 4, visit.AddressID)
}

func TestRecordVisitServerRejectionIsNotQueued(t *testing.T) {
	srv := newFakeServer(t)
	srv.status = http.StatusNotFound
	q := &fakeQueue{online: true}
	svc := newTestSvc(t, srv.URL, q)

	_, err := svc.RecordVisit(context.Background(), 99, calygo.StatusRefused)
	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusNotFound, serverErr.Status)
	assert.Empty(t, q.queued)
}

func TestRecordVisitRejectsUnknownStatus(t *testing.T) {
	q := &fakeQueue{online: true}
	svc := newTestSvc(t, "http://localhost:1", q)

	_, err := svc.RecordVisit(context.Background(), 1, "maybe")
	require.ErrorIs(t, err, calygo.ErrInvalid)
	assert.Empty(t, q.queued)
}

func TestRecordSaleRejectsNonPositiveAmount(t *testing.T) {
	q := &fakeQueue{online: true}
	svc := newTestSvc(t, "http://localhost:1", q)

	_, err := svc.RecordSale(context.Background(), 1, 0, "cash")
	require.ErrorIs(t, err, calygo.ErrInvalid)
}

func TestPlanTourneeOrdersAndSkips(t *testing.T) {
	srv := newFakeServer(t)
	noCoords := calygo.ExistingAddressRecord{ID: 4}
	srv.addresses = []calygo.ExistingAddressRecord{
		address(1, 47.100, -1.850),
		address(2, 47.110, -1.850),
		address(3, 47.101, -1.850),
		noCoords,
		address(5, 0, 0),
	}
	q := &fakeQueue{online: true}
	svc := newTestSvc(t, srv.URL, q)

	date := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	plan, err := svc.PlanTournee(context.Background(), "Nord", date, []int{1, 2, 3, 4, 5})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3, 2}, plan.Tournee.AddressIDs)
	assert.Equal(t, []int{4, 5}, plan.Skipped)
	assert.Empty(t, plan.OutsideArea)
	assert.Equal(t, calygo.TourneePlanned, plan.Tournee.Status)
	assert.Equal(t, 7, plan.Tournee.PompierID)
	assert.Greater(t, plan.DistanceKm, 0.0)
	assert.False(t, plan.Queued)

	writes := srv.writes()
	require.Len(t, writes, 1)
	assert.Equal(t, "/api/tournees", writes[0].path)
	var saved calygo.TourneeRecord
	require.NoError(t, json.Unmarshal([]byte(writes[0].body), &saved))
	assert.Equal(t, []int{1, 3, 2}, saved.AddressIDs)
	assert.Equal(t, "Nord", saved.Name)
}

func TestPlanTourneeFlagsStopsOutsideArea(t *testing.T) {
	srv := newFakeServer(t)
	srv.addresses = []calygo.ExistingAddressRecord{
		address(1, 47.100, -1.850),
		address(2, 48.8566, 2.3522),
	}
	svc := newTestSvc(t, srv.URL, &fakeQueue{online: true})

	plan, err := svc.PlanTournee(context.Background(), "Nord", time.Now(), []int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, plan.Tournee.AddressIDs, "still routed")
	assert.Equal(t, []int{2}, plan.OutsideArea)
}

func TestRecordSaleVisitRejectedAfterSaleSaved(t *testing.T) {
	srv := newFakeServer(t)
	srv.statusFor = map[string]int{"/api/visits": http.StatusBadRequest}
	q := &fakeQueue{online: true}
	svc := newTestSvc(t, srv.URL, q)

	_, err := svc.RecordSale(context.Background(), 3, 1000, "cash")
	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Contains(t, err.Error(), "sale saved, but failed to record sold visit")
	assert.Len(t, srv.writes(), 2)
	assert.Empty(t, q.queued)
}

func TestRecordVisitTimeoutIsPersisted(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "calygo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(sqlite.Migrations))
	tx, dbGetter := txStdLib.NewTransactor(db.DB(), txStdLib.NestedTransactionsSavepoints)
	repo := sqlite.NewPendingRequestRepo(dbGetter, calygo.NopLogger{})

	transport, err := offline.NewHTTPTransport(&http.Client{Timeout: 5 * time.Second}, srv.URL)
	require.NoError(t, err)
	queue := offline.NewQueue(context.Background(), repo, transport, onlineSource{}, offline.WithTransactor(tx))
	svc := NewFieldSvc(transport, queue, 7, calygo.NopLogger{})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	res, err := svc.RecordVisit(ctx, 4, calygo.StatusRevisit)
	require.NoError(t, err)
	assert.True(t, res.Queued)

	stored, err := repo.GetAllPending(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "/api/visits", stored[0].URL)
}

type onlineSource struct{}

func (onlineSource) Online(context.Context) bool { return true }

func (onlineSource) Watch(ctx context.Context) <-chan bool {
	ch := make(chan bool)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}

func TestPlanTourneeUnknownAddress(t *testing.T) {
	srv := newFakeServer(t)
	srv.addresses = []calygo.ExistingAddressRecord{address(1, 47.1, -1.85)}
	svc := newTestSvc(t, srv.URL, &fakeQueue{online: true})

	_, err := svc.PlanTournee(context.Background(), "Nord", time.Now(), []int{1, 2})
	require.ErrorIs(t, err, calygo.ErrInvalid)
	assert.Empty(t, srv.writes())
}

func TestPlanTourneeNoCoordinates(t *testing.T) {
	srv := newFakeServer(t)
	srv.addresses = []calygo.ExistingAddressRecord{{ID: 1}}
	svc := newTestSvc(t, srv.URL, &fakeQueue{online: true})

	_, err := svc.PlanTournee(context.Background(), "Nord", time.Now(), []int{1})
	require.ErrorIs(t, err, calygo.ErrInvalid)
}

func TestPlanTourneeOffline(t *testing.T) {
	svc := newTestSvc(t, "http://localhost:1", &fakeQueue{online: false})

	_, err := svc.PlanTournee(context.Background(), "Nord", time.Now(), []int{1})
	require.True(t, errors.Is(err, offline.ErrOffline))
}

func TestGetTournees(t *testing.T) {
	srv := newFakeServer(t)
	svc := newTestSvc(t, srv.URL, &fakeQueue{online: true})

	tournees, err := svc.GetTournees(context.Background())
	require.NoError(t, err)
	require.Len(t, tournees, 1)
	assert.Equal(t, "Nord", tournees[0].Name)
	assert.Equal(t, []int{2, 1}, tournees[0].AddressIDs)
}
