package reminders

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ayesh156/eco-system-sub002/internal/customers"
	"github.com/ayesh156/eco-system-sub002/internal/money"
	"github.com/ayesh156/eco-system-sub002/internal/settlement"
)

type memoryRepo struct {
	nextID    int64
	reminders map[int64]*Reminder
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1, reminders: map[int64]*Reminder{}}
}

func (m *memoryRepo) Insert(_ context.Context, r Reminder) (int64, error) {
	id := m.nextID
	m.nextID++
	r.ID = id
	m.reminders[id] = &r
	return id, nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*Reminder, error) {
	r, ok := m.reminders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memoryRepo) MarkSent(_ context.Context, id int64, at time.Time) error {
	r, ok := m.reminders[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = StatusSent
	r.SentAt = &at
	return nil
}

func (m *memoryRepo) MarkFailed(_ context.Context, id int64, reason string) error {
	r, ok := m.reminders[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = StatusFailed
	r.Error = &reason
	return nil
}

func (m *memoryRepo) ListRecent(_ context.Context, _ int) ([]Reminder, error) {
	var out []Reminder
	for _, r := range m.reminders {
		out = append(out, *r)
	}
	return out, nil
}

type fakeDirectory struct {
	overdue   []customers.Customer
	summaries map[int64]*customers.CreditSummary
}

func (f *fakeDirectory) Get(_ context.Context, id int64) (*customers.Customer, error) {
	for i := range f.overdue {
		if f.overdue[i].ID == id {
			return &f.overdue[i], nil
		}
	}
	return nil, customers.ErrNotFound
}

func (f *fakeDirectory) ListOverdue(_ context.Context) ([]customers.Customer, error) {
	return f.overdue, nil
}

func (f *fakeDirectory) GetCreditSummary(_ context.Context, id int64) (*customers.CreditSummary, error) {
	s, ok := f.summaries[id]
	if !ok {
		return nil, customers.ErrNotFound
	}
	return s, nil
}

type fakeQueue struct {
	tasks []SendPayload
	fail  bool
}

func (f *fakeQueue) Enqueue(_ context.Context, taskType string, payload []byte) error {
	if f.fail {
		return errors.New("queue down")
	}
	if taskType != TaskSend {
		return errors.New("unexpected task type " + taskType)
	}
	var p SendPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}
	f.tasks = append(f.tasks, p)
	return nil
}

type fakeSender struct {
	sent []string
	fail bool
}

func (f *fakeSender) Send(_ context.Context, phone, message string) error {
	if f.fail {
		return errors.New("gateway unreachable")
	}
	f.sent = append(f.sent, phone+": "+message)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func phone(s string) *string { return &s }

func overdueCustomer(id int64, name string, whatsapp *string, balance money.Cents) customers.Customer {
	return customers.Customer{
		ID:            id,
		Name:          name,
		WhatsAppPhone: whatsapp,
		CreditBalance: balance,
		CreditStatus:  settlement.CreditOverdue,
		IsActive:      true,
	}
}

func TestScanQueuesRemindersOncePerWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	due := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	dir := &fakeDirectory{
		overdue: []customers.Customer{
			overdueCustomer(1, "Nimal Stores", phone("+94771234567"), 1_250_050),
			overdueCustomer(2, "No Phone Shop", nil, 5_000),
		},
		summaries: map[int64]*customers.CreditSummary{
			1: {CustomerID: 1, CreditBalance: 1_250_050, OldestDueDate: &due},
		},
	}
	repo := newMemoryRepo()
	queue := &fakeQueue{}
	svc := NewService(testLogger(), repo, dir, cache, queue, &fakeSender{}, time.Hour)

	result, err := svc.Scan(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, result.Overdue)
	require.Equal(t, 1, result.Queued)
	require.Equal(t, 1, result.NoPhone)
	require.Len(t, queue.tasks, 1)

	rem, err := repo.Get(context.Background(), queue.tasks[0].ReminderID)
	require.NoError(t, err)
	require.Equal(t, StatusQueued, rem.Status)
	require.Contains(t, rem.Message, "Nimal Stores")
	require.Contains(t, rem.Message, "12,500.50")
	require.Contains(t, rem.Message, "2026-07-01")

	// The second scan inside the cooldown window queues nothing.
	result, err = svc.Scan(context.Background())
	require.NoError(t, err)
	require.Zero(t, result.Queued)
	require.Equal(t, 1, result.Skipped)

	// After the window expires the customer is eligible again.
	mr.FastForward(2 * time.Hour)
	result, err = svc.Scan(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Queued)
}

func TestRemindBypassesCooldownWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	dir := &fakeDirectory{
		overdue: []customers.Customer{
			overdueCustomer(1, "Nimal Stores", phone("+94771234567"), 5_000),
			overdueCustomer(2, "No Phone Shop", nil, 2_000),
		},
		summaries: map[int64]*customers.CreditSummary{
			1: {CustomerID: 1, CreditBalance: 5_000},
		},
	}
	repo := newMemoryRepo()
	queue := &fakeQueue{}
	svc := NewService(testLogger(), repo, dir, cache, queue, &fakeSender{}, time.Hour)

	// Scan claims the customer's window first.
	_, err := svc.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, queue.tasks, 1)

	// A manual reminder queues again inside the same window.
	rem, err := svc.Remind(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, StatusQueued, rem.Status)
	require.Len(t, queue.tasks, 2)

	_, err = svc.Remind(context.Background(), 2)
	require.ErrorIs(t, err, ErrNoPhone)

	_, err = svc.Remind(context.Background(), 99)
	require.ErrorIs(t, err, customers.ErrNotFound)
}

func TestScanMarksFailedOnEnqueueError(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	dir := &fakeDirectory{
		overdue: []customers.Customer{
			overdueCustomer(1, "Nimal Stores", phone("+94771234567"), 5_000),
		},
		summaries: map[int64]*customers.CreditSummary{
			1: {CustomerID: 1, CreditBalance: 5_000},
		},
	}
	repo := newMemoryRepo()
	svc := NewService(testLogger(), repo, dir, cache, &fakeQueue{fail: true}, &fakeSender{}, time.Hour)

	_, err := svc.Scan(context.Background())
	require.Error(t, err)

	rem, err := repo.Get(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, rem.Status)
}

func TestDeliver(t *testing.T) {
	repo := newMemoryRepo()
	sender := &fakeSender{}
	svc := NewService(testLogger(), repo, &fakeDirectory{}, nil, &fakeQueue{}, sender, time.Hour)

	id, err := repo.Insert(context.Background(), Reminder{
		CustomerID: 1, Phone: "+94771234567", Message: "pay up", Status: StatusQueued,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Deliver(context.Background(), id))
	rem, _ := repo.Get(context.Background(), id)
	require.Equal(t, StatusSent, rem.Status)
	require.NotNil(t, rem.SentAt)
	require.Len(t, sender.sent, 1)

	// Re-delivery of a sent reminder is a no-op.
	require.NoError(t, svc.Deliver(context.Background(), id))
	require.Len(t, sender.sent, 1)
}

func TestDeliverMarksFailed(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(testLogger(), repo, &fakeDirectory{}, nil, &fakeQueue{}, &fakeSender{fail: true}, time.Hour)

	id, err := repo.Insert(context.Background(), Reminder{
		CustomerID: 1, Phone: "+94771234567", Message: "pay up", Status: StatusQueued,
	})
	require.NoError(t, err)

	require.Error(t, svc.Deliver(context.Background(), id))
	rem, _ := repo.Get(context.Background(), id)
	require.Equal(t, StatusFailed, rem.Status)
	require.NotNil(t, rem.Error)
}
