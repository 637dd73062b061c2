package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	byNumber  map[string]*Order
	getErr    error
	updateErr error

	updatedID   string
	updatedFrom Status
	updatedTo   Status
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	m.byNumber[o.Number] = o
	return nil
}

func (m *mockOrderRepo) GetByNumber(_ context.Context, number string) (*Order, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	o, ok := m.byNumber[number]
	if !ok {
		return nil, ErrNotFound
	}
	c := *o
	return &c, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, from, to Status, _ time.Time) error {
	m.updatedID, m.updatedFrom, m.updatedTo = id, from, to
	return m.updateErr
}

func (m *mockOrderRepo) LatestNumber(_ context.Context, _ string) (string, error) {
	return "", nil
}

func (m *mockOrderRepo) NextSequence(_ context.Context, _ string) (int, error) {
	return 1, nil
}

func newOrderRepo(orders ...*Order) *mockOrderRepo {
	m := &mockOrderRepo{byNumber: make(map[string]*Order)}
	for _, o := range orders {
		m.byNumber[o.Number] = o
	}
	return m
}

// --- Tests ---

func TestUpdateStatus(t *testing.T) {
	fixedNow := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		{name: "pending to confirmed", from: StatusPending, to: StatusConfirmed},
		{name: "pending to cancelled", from: StatusPending, to: StatusCancelled},
		{name: "shipped to delivered", from: StatusShipped, to: StatusDelivered},
		{name: "pending to shipped skips steps", from: StatusPending, to: StatusShipped, wantErr: true},
		{name: "delivered is terminal", from: StatusDelivered, to: StatusCancelled, wantErr: true},
		{name: "cancelled is terminal", from: StatusCancelled, to: StatusPending, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newOrderRepo(&Order{ID: "o1", Number: "KAT-260301-0001", Status: tt.from})
			svc := NewService(repo)
			svc.now = func() time.Time { return fixedNow }

			got, err := svc.UpdateStatus(context.Background(), "KAT-260301-0001", tt.to)
			if tt.wantErr {
				var itErr *InvalidTransitionError
				require.ErrorAs(t, err, &itErr)
				assert.Equal(t, tt.from, itErr.From)
				assert.Equal(t, tt.to, itErr.To)
				assert.Empty(t, repo.updatedID, "nothing must be written")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.to, got.Status)
			assert.Equal(t, fixedNow, got.UpdatedAt)
			assert.Equal(t, "o1", repo.updatedID)
			assert.Equal(t, tt.from, repo.updatedFrom)
			assert.Equal(t, tt.to, repo.updatedTo)
		})
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	svc := NewService(newOrderRepo())

	_, err := svc.UpdateStatus(context.Background(), "KAT-000000-0001", StatusConfirmed)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatus_Conflict(t *testing.T) {
	repo := newOrderRepo(&Order{ID: "o1", Number: "N1", Status: StatusPending})
	repo.updateErr = ErrConflict
	svc := NewService(repo)

	_, err := svc.UpdateStatus(context.Background(), "N1", StatusConfirmed)
	require.ErrorIs(t, err, ErrConflict)
}

func TestGet_RepoError(t *testing.T) {
	repo := newOrderRepo()
	repo.getErr = errors.New("db down")
	svc := NewService(repo)

	_, err := svc.Get(context.Background(), "N1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get order")
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus(" shipped ")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, st)

	_, err = ParseStatus("LOST")
	require.ErrorIs(t, err, ErrUnknownStatus)
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPending.Terminal())
}
