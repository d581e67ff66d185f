package memory

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-rewards-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-rewards-ledger/pkg/wal"
)

// flakyJournal 可以指定寫入失敗的記憶體 journal
type flakyJournal struct {
	mu    sync.Mutex
	lines [][]byte
	fail  bool
}

func (j *flakyJournal) Write(v any) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.fail {
		return assert.AnError
	}
	w, err := json.Marshal(v)
	if err != nil {
		return err
	}
	j.lines = append(j.lines, w)
	return nil
}

func (j *flakyJournal) ReadAll(callback func([]byte) error) error {
	for _, l := range j.lines {
		if err := callback(l); err != nil {
			return err
		}
	}
	return nil
}

func payload(name string) domain.CreateUserPayload {
	return domain.CreateUserPayload{
		FirstName:   name,
		LastName:    "Tester",
		Email:       name + "@example.com",
		PhoneNumber: "+10000000",
	}
}

func TestAccountStore_CreateAssignsMonotonicIDs(t *testing.T) {
	ctx := context.Background()
	store, err := NewAccountStore(nil)
	require.NoError(t, err)

	var last uint64
	for i := 0; i < 5; i++ {
		acc, err := store.Create(ctx, payload("user"))
		require.NoError(t, err)
		assert.Greater(t, acc.ID, last)
		assert.Zero(t, acc.Balance)
		assert.Zero(t, acc.Points)
		assert.False(t, acc.CreatedAt.IsZero())
		last = acc.ID
	}
	assert.Equal(t, uint64(5), last)

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 5)
	for i, acc := range list {
		assert.Equal(t, uint64(i+1), acc.ID)
	}
}

func TestAccountStore_CreateRejectsInvalidPayload(t *testing.T) {
	store, err := NewAccountStore(nil)
	require.NoError(t, err)

	p := payload("bad")
	p.Email = "no-at-sign"
	_, err = store.Create(context.Background(), p)
	assert.ErrorIs(t, err, domain.ErrValidation)

	list, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAccountStore_Mutations(t *testing.T) {
	ctx := context.Background()
	store, err := NewAccountStore(nil)
	require.NoError(t, err)
	acc, err := store.Create(ctx, payload("alice"))
	require.NoError(t, err)

	updated, err := store.CreditBalance(ctx, acc.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), updated.Balance)

	_, err = store.DebitBalance(ctx, acc.ID, 101)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	updated, err = store.DebitBalance(ctx, acc.ID, 30)
	require.NoError(t, err)
	assert.Equal(t, uint64(70), updated.Balance)

	_, err = store.DebitPoints(ctx, acc.ID, 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientPoints)

	updated, err = store.CreditPoints(ctx, acc.ID, 15)
	require.NoError(t, err)
	assert.Equal(t, uint64(15), updated.Points)

	updated, err = store.DebitPoints(ctx, acc.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), updated.Points)

	_, err = store.CreditBalance(ctx, 999, 1)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = store.Get(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestAccountStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store, err := NewAccountStore(nil)
	require.NoError(t, err)
	acc, err := store.Create(ctx, payload("bob"))
	require.NoError(t, err)

	acc.Balance = 1_000_000
	got, err := store.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Balance)
}

func TestAccountStore_WALFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	journal := &flakyJournal{}
	store, err := NewAccountStore(journal)
	require.NoError(t, err)
	acc, err := store.Create(ctx, payload("carol"))
	require.NoError(t, err)
	_, err = store.CreditBalance(ctx, acc.ID, 50)
	require.NoError(t, err)

	journal.fail = true
	_, err = store.CreditBalance(ctx, acc.ID, 10)
	assert.ErrorIs(t, err, domain.ErrWALWriteFailed)
	_, err = store.Create(ctx, payload("dave"))
	assert.ErrorIs(t, err, domain.ErrWALWriteFailed)

	got, err := store.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), got.Balance)

	// 失敗的建立不會消耗 ID
	journal.fail = false
	next, err := store.Create(ctx, payload("dave"))
	require.NoError(t, err)
	assert.Equal(t, acc.ID+1, next.ID)
}

func TestAccountStore_RecoverFromWAL(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "accounts.wal")

	w, err := wal.NewWAL(path)
	require.NoError(t, err)
	store, err := NewAccountStore(w)
	require.NoError(t, err)

	a, err := store.Create(ctx, payload("alice"))
	require.NoError(t, err)
	b, err := store.Create(ctx, payload("bob"))
	require.NoError(t, err)
	_, err = store.CreditBalance(ctx, a.ID, 500)
	require.NoError(t, err)
	_, err = store.CreditPoints(ctx, b.ID, 7)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	w, err = wal.NewWAL(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	recovered, err := NewAccountStore(w)
	require.NoError(t, err)

	gotA, err := recovered.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), gotA.Balance)
	assert.Equal(t, "alice", gotA.FirstName)
	assert.True(t, a.CreatedAt.Equal(gotA.CreatedAt))

	gotB, err := recovered.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), gotB.Points)

	// 計數器從 WAL 重建，ID 不會重複使用
	c, err := recovered.Create(ctx, payload("carol"))
	require.NoError(t, err)
	assert.Equal(t, b.ID+1, c.ID)
}

func TestTransactionStore_AppendAndList(t *testing.T) {
	ctx := context.Background()
	store, err := NewTransactionStore(nil)
	require.NoError(t, err)

	dep, err := store.Append(ctx, domain.TransactionKindDeposit, nil, 1, 100)
	require.NoError(t, err)
	tr, err := store.Append(ctx, domain.TransactionKindTransfer, domain.UserID(1), 2, 40)
	require.NoError(t, err)
	red, err := store.Append(ctx, domain.TransactionKindRedeem, nil, 2, 5)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), dep.ID)
	assert.Equal(t, uint64(2), tr.ID)
	assert.Equal(t, uint64(3), red.ID)
	assert.Nil(t, dep.FromUserID)
	require.NotNil(t, tr.FromUserID)
	assert.Equal(t, uint64(1), *tr.FromUserID)

	list1, err := store.ListForUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, ids(list1))

	list2, err := store.ListForUser(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3}, ids(list2))

	empty, err := store.ListForUser(ctx, 3)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	assert.Equal(t, 3, store.Len())
}

func TestTransactionStore_TimestampsNeverGoBackwards(t *testing.T) {
	ctx := context.Background()
	store, err := NewTransactionStore(nil)
	require.NoError(t, err)

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }
	first, err := store.Append(ctx, domain.TransactionKindDeposit, nil, 1, 1)
	require.NoError(t, err)

	store.now = func() time.Time { return base.Add(-time.Hour) }
	second, err := store.Append(ctx, domain.TransactionKindDeposit, nil, 1, 1)
	require.NoError(t, err)

	assert.False(t, second.Timestamp.Before(first.Timestamp))
}

func TestTransactionStore_RejectsUnknownKind(t *testing.T) {
	store, err := NewTransactionStore(nil)
	require.NoError(t, err)

	_, err = store.Append(context.Background(), domain.TransactionKind(42), nil, 1, 1)
	assert.Error(t, err)
	assert.Zero(t, store.Len())
}

func TestTransactionStore_SnapshotIsIsolated(t *testing.T) {
	ctx := context.Background()
	store, err := NewTransactionStore(nil)
	require.NoError(t, err)
	_, err = store.Append(ctx, domain.TransactionKindTransfer, domain.UserID(1), 2, 10)
	require.NoError(t, err)

	snapshot, err := store.ListForUser(ctx, 1)
	require.NoError(t, err)
	*snapshot[0].FromUserID = 77
	snapshot[0].Amount = 0

	_, err = store.Append(ctx, domain.TransactionKindDeposit, nil, 1, 5)
	require.NoError(t, err)

	again, err := store.ListForUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, again, 2)
	assert.Equal(t, uint64(1), *again[0].FromUserID)
	assert.Equal(t, uint64(10), again[0].Amount)
	assert.Len(t, snapshot, 1)
}

func TestTransactionStore_WALFailure(t *testing.T) {
	journal := &flakyJournal{fail: true}
	store, err := NewTransactionStore(journal)
	require.NoError(t, err)

	_, err = store.Append(context.Background(), domain.TransactionKindDeposit, nil, 1, 1)
	assert.ErrorIs(t, err, domain.ErrWALWriteFailed)
	assert.Zero(t, store.Len())
}

func TestTransactionStore_RecoverFromWAL(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "transactions.wal")

	w, err := wal.NewWAL(path)
	require.NoError(t, err)
	store, err := NewTransactionStore(w)
	require.NoError(t, err)
	_, err = store.Append(ctx, domain.TransactionKindDeposit, nil, 1, 100)
	require.NoError(t, err)
	_, err = store.Append(ctx, domain.TransactionKindTransfer, domain.UserID(1), 2, 30)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	w, err = wal.NewWAL(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	recovered, err := NewTransactionStore(w)
	require.NoError(t, err)

	list, err := recovered.ListForUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.TransactionKindTransfer, list[1].Kind)
	require.NotNil(t, list[1].FromUserID)
	assert.Equal(t, uint64(1), *list[1].FromUserID)

	next, err := recovered.Append(ctx, domain.TransactionKindDeposit, nil, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), next.ID)
}

func ids(list []domain.Transaction) []uint64 {
	out := make([]uint64, 0, len(list))
	for _, tran := range list {
		out = append(out, tran.ID)
	}
	return out
}
