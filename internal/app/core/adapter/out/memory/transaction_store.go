package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/JoeShih716/go-rewards-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-rewards-ledger/internal/app/core/usecase"
)

// TransactionStore 是只能追加的記憶體交易紀錄
type TransactionStore struct {
	mu sync.RWMutex
	// 依 ID 遞增
	transactions []domain.Transaction
	// 使用者 ID -> transactions 的索引
	byUser  map[uint64][]int
	nextID  uint64
	journal Journal
	now     func() time.Time
}

// NewTransactionStore 建立 TransactionStore，並從 journal 重放恢復資料
func NewTransactionStore(journal Journal) (*TransactionStore, error) {
	s := &TransactionStore{
		byUser:  make(map[uint64][]int),
		nextID:  1,
		journal: journal,
		now:     time.Now,
	}
	if err := s.recoverFromWAL(); err != nil {
		return nil, fmt.Errorf("recover transactions: %w", err)
	}
	return s, nil
}

func (s *TransactionStore) recoverFromWAL() error {
	if s.journal == nil {
		return nil
	}
	return s.journal.ReadAll(func(jsonRaw []byte) error {
		var tran domain.Transaction
		if err := json.Unmarshal(jsonRaw, &tran); err != nil {
			return err
		}
		if tran.ID < s.nextID {
			return fmt.Errorf("transaction id %d out of order (expected >= %d)", tran.ID, s.nextID)
		}
		s.index(tran)
		s.nextID = tran.ID + 1
		return nil
	})
}

// Append 分配下一個 ID 並寫入，時間戳不會早於上一筆
func (s *TransactionStore) Append(_ context.Context, kind domain.TransactionKind, from *uint64, to uint64, amount uint64) (*domain.Transaction, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown transaction kind %d", kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UTC()
	if n := len(s.transactions); n > 0 && ts.Before(s.transactions[n-1].Timestamp) {
		ts = s.transactions[n-1].Timestamp
	}

	tran := domain.Transaction{
		ID:        s.nextID,
		ToUserID:  to,
		Amount:    amount,
		Timestamp: ts,
		Kind:      kind,
	}
	if from != nil {
		tran.FromUserID = domain.UserID(*from)
	}

	if s.journal != nil {
		if err := s.journal.Write(tran); err != nil {
			return nil, fmt.Errorf("%w: transaction %d: %v", domain.ErrWALWriteFailed, tran.ID, err)
		}
	}

	s.index(tran)
	s.nextID++
	c := tran.Clone()
	return &c, nil
}

// ListForUser 回傳呼叫當下的快照
func (s *TransactionStore) ListForUser(_ context.Context, userID uint64) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	indexes := s.byUser[userID]
	list := make([]domain.Transaction, 0, len(indexes))
	for _, i := range indexes {
		list = append(list, s.transactions[i].Clone())
	}
	return list, nil
}

// Len 交易總筆數
func (s *TransactionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.transactions)
}

func (s *TransactionStore) index(tran domain.Transaction) {
	i := len(s.transactions)
	s.transactions = append(s.transactions, tran)
	s.byUser[tran.ToUserID] = append(s.byUser[tran.ToUserID], i)
	if tran.FromUserID != nil && *tran.FromUserID != tran.ToUserID {
		s.byUser[*tran.FromUserID] = append(s.byUser[*tran.FromUserID], i)
	}
}

var _ usecase.TransactionStore = (*TransactionStore)(nil)
