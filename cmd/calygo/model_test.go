package main

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calygofire/calygo"
	"github.com/calygofire/calygo/offline"
)

type stubSvc struct {
	FieldSvc
	sales    []saleArgs
	visits   []visitArgs
	queued   bool
	tournees []calygo.ExistingTourneeRecord
	offline  bool
}

func (s *stubSvc) RecordSale(_ context.Context, addressID int, amount int64, method string) (WriteResult, error) {
	s.sales = append(s.sales, saleArgs{addressID: addressID, amount: amount, paymentMethod: method})
	return WriteResult{Queued: s.queued}, nil
}

func (s *stubSvc) RecordVisit(_ context.Context, addressID int, status calygo.AddressStatus) (WriteResult, error) {
	s.visits = append(s.visits, visitArgs{addressID: addressID, status: status})
	return WriteResult{Queued: s.queued}, nil
}

func (s *stubSvc) GetTournees(context.Context) ([]calygo.ExistingTourneeRecord, error) {
	if s.offline {
		return nil, offline.ErrOffline
	}
	return s.tournees, nil
}

func (s *stubSvc) GetAddresses(context.Context) ([]calygo.ExistingAddressRecord, error) {
	return []calygo.ExistingAddressRecord{
		address(1, 47.10, -1.85),
		address(2, 47.11, -1.85),
	}, nil
}

func newTestModel(svc FieldSvc, q *fakeQueue) model {
	m := newModel(calygo.NopLogger{}, svc, q, time.Second)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	return updated.(model)
}

func submit(t *testing.T, m model, input string) (model, tea.Msg) {
	t.Helper()
	m.userinput.SetValue(input)
	updated, cmd := m.updateParent(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		return updated, nil
	}
	msg := cmd()
	next, _ := updated.updateParent(msg)
	return next, msg
}

func TestModelRecordSaleQueued(t *testing.T) {
	svc := &stubSvc{queued: true}
	m := newTestModel(svc, &fakeQueue{online: false})

	m, msg := submit(t, m, "/s 1 12.50 cash")
	require.IsType(t, WriteMsg{}, msg)
	require.Len(t, svc.sales, 1)
	assert.Equal(t, int64(1250), svc.sales[0].amount)
	assert.Contains(t, strings.Join(m.alerts, "\n"), savedOffline)
}

func TestModelRecordVisitUpdatesLocalStatus(t *testing.T) {
	svc := &stubSvc{tournees: []calygo.ExistingTourneeRecord{
		{ID: 1, TourneeRecord: calygo.TourneeRecord{Name: "Nord", Status: calygo.TourneePlanned, AddressIDs: []int{2, 1}}},
	}}
	m := newTestModel(svc, &fakeQueue{online: true})
	next, _ := m.updateParent(m.loadTournees())
	m = next
	require.NotNil(t, m.tournee)

	m, _ = submit(t, m, "/v 2 refused")
	require.Len(t, svc.visits, 1)
	assert.Equal(t, calygo.StatusRefused, m.addresses[2].Status)
	assert.Contains(t, m.renderTournee(), "refused")
	assert.Contains(t, strings.Join(m.alerts, "\n"), "visit saved")
}

func TestModelUsageAlerts(t *testing.T) {
	svc := &stubSvc{}
	m := newTestModel(svc, &fakeQueue{online: true})

	m, msg := submit(t, m, "/s 1")
	assert.Nil(t, msg)
	assert.Contains(t, strings.Join(m.alerts, "\n"), "usage: /s")

	m, msg = submit(t, m, "/nope")
	assert.Nil(t, msg)
	assert.Contains(t, strings.Join(m.alerts, "\n"), "unknown command")
	assert.Empty(t, svc.sales)
}

func TestModelFlush(t *testing.T) {
	q := &fakeQueue{online: true}
	q.Enqueue(context.Background(), "/api/sales", "POST", nil, "{}")
	m := newTestModel(&stubSvc{}, q)

	m, msg := submit(t, m, "/y")
	assert.Equal(t, FlushMsg{removed: 1}, msg)
	assert.Contains(t, strings.Join(m.alerts, "\n"), "synced 1")
}

func TestModelFlushOffline(t *testing.T) {
	m := newTestModel(&stubSvc{}, &fakeQueue{online: false})

	m, msg := submit(t, m, "/y")
	assert.Nil(t, msg)
	assert.Contains(t, strings.Join(m.alerts, "\n"), "offline")
}

func TestModelQueueEvents(t *testing.T) {
	m := newTestModel(&stubSvc{offline: true}, &fakeQueue{online: false})
	assert.Contains(t, m.renderFooter(), "offline")

	next, cmd := m.updateParent(QueueEventMsg{event: offline.Event{Kind: offline.EventPending, Pending: 3}})
	assert.Nil(t, cmd)
	assert.Contains(t, next.renderFooter(), "(3 pending)")

	// reconnecting without a tournée loaded triggers a reload
	next, cmd = next.updateParent(QueueEventMsg{event: offline.Event{Kind: offline.EventConnectivity, IsOnline: true, Pending: 0}})
	require.NotNil(t, cmd)
	assert.Contains(t, next.renderFooter(), "online")
	assert.NotContains(t, next.renderFooter(), "pending")
}

func TestLoadTourneesOffline(t *testing.T) {
	m := newTestModel(&stubSvc{offline: true}, &fakeQueue{online: false})

	msg := m.loadTournees()
	require.IsType(t, AlertMsg{}, msg)
	assert.Contains(t, msg.(AlertMsg).err.Error(), "offline")
}

func TestCurrentTournee(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, 12, d, 0, 0, 0, 0, time.UTC) }
	tournees := []calygo.ExistingTourneeRecord{
		{ID: 1, TourneeRecord: calygo.TourneeRecord{ScheduledDate: day(1), Status: calygo.TourneeCompleted}},
		{ID: 2, TourneeRecord: calygo.TourneeRecord{ScheduledDate: day(5), Status: calygo.TourneePlanned}},
		{ID: 3, TourneeRecord: calygo.TourneeRecord{ScheduledDate: day(3), Status: calygo.TourneeInProgress}},
	}

	current := currentTournee(tournees)
	require.NotNil(t, current)
	assert.Equal(t, 3, current.ID)
	assert.Nil(t, currentTournee(nil))
}
