package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebook/carebook-api/internal/models"
	appErrors "github.com/carebook/carebook-api/pkg/errors"
	"github.com/carebook/carebook-api/pkg/jobs"
)

type mockNotificationStore struct {
	mu      sync.Mutex
	created []*models.Notification
	rows    []models.Notification
	total   int
	filter  models.NotificationFilter
	marked  [][2]string
	markErr error
}

func (m *mockNotificationStore) Create(_ context.Context, notification *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, notification)
	return nil
}

func (m *mockNotificationStore) List(_ context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	m.filter = filter
	return m.rows, m.total, nil
}

func (m *mockNotificationStore) MarkRead(_ context.Context, id, userID string) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.marked = append(m.marked, [2]string{id, userID})
	return nil
}

func (m *mockNotificationStore) createdCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.created)
}

func TestNotificationServiceDispatchDelivers(t *testing.T) {
	store := &mockNotificationStore{}
	svc := NewNotificationService(store, jobs.QueueConfig{Workers: 1}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	svc.Dispatch("user-1", "You have a new appointment request", models.NotificationData{"appointment_id": "apt-1"})

	require.Eventually(t, func() bool { return store.createdCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	store.mu.Lock()
	defer store.mu.Unlock()
	notification := store.created[0]
	assert.Equal(t, "user-1", notification.UserID)
	assert.Equal(t, "You have a new appointment request", notification.Message)
	assert.Equal(t, "apt-1", notification.Data["appointment_id"])
	assert.NotEmpty(t, notification.ID)
}

func TestNotificationServiceListScopesToUser(t *testing.T) {
	store := &mockNotificationStore{
		rows:  []models.Notification{{ID: "n-1", UserID: "user-1"}},
		total: 41,
	}
	svc := NewNotificationService(store, jobs.QueueConfig{}, nil)

	rows, pagination, err := svc.List(context.Background(), "user-1", models.NotificationFilter{Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, "user-1", store.filter.UserID)
	assert.Len(t, rows, 1)
	assert.Equal(t, 2, pagination.Page)
	assert.Equal(t, 10, pagination.PageSize)
	assert.Equal(t, 41, pagination.TotalCount)
}

func TestNotificationServiceListDefaultsPagination(t *testing.T) {
	store := &mockNotificationStore{}
	svc := NewNotificationService(store, jobs.QueueConfig{}, nil)

	_, pagination, err := svc.List(context.Background(), "user-1", models.NotificationFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
}

func TestNotificationServiceMarkRead(t *testing.T) {
	store := &mockNotificationStore{}
	svc := NewNotificationService(store, jobs.QueueConfig{}, nil)

	require.NoError(t, svc.MarkRead(context.Background(), "n-1", "user-1"))
	require.Len(t, store.marked, 1)
	assert.Equal(t, [2]string{"n-1", "user-1"}, store.marked[0])

	store.markErr = sql.ErrNoRows
	err := svc.MarkRead(context.Background(), "missing", "user-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
