package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JoeShih716/go-rewards-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-rewards-ledger/internal/app/core/usecase"
)

// Journal 是 store 的持久化介面，*wal.WAL 即為實作
type Journal interface {
	Write(v any) error
	ReadAll(callback func(jsonRaw []byte) error) error
}

// AccountStore 是記憶體帳戶儲存，每次變更先寫 WAL 再更新 Map
//
// 結構:
//
//	accounts: 帳戶資料 Map
//	order: 依 ID 遞增排列的帳戶 ID
//	nextID: 下一個帳戶 ID (從 WAL 重建)
//	journal: Write-Ahead Log，nil 表示純記憶體
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[uint64]*domain.Account
	order    []uint64
	nextID   uint64
	journal  Journal
	now      func() time.Time
}

// NewAccountStore 建立 AccountStore，並從 journal 重放恢復資料
//
// 參數:
//
//	journal: WAL 實例，可為 nil
//
// 回傳:
//
//	*AccountStore: AccountStore 實例
//	error: 恢復失敗
func NewAccountStore(journal Journal) (*AccountStore, error) {
	s := &AccountStore{
		accounts: make(map[uint64]*domain.Account),
		nextID:   1,
		journal:  journal,
		now:      time.Now,
	}
	if err := s.recoverFromWAL(); err != nil {
		return nil, fmt.Errorf("recover accounts: %w", err)
	}
	return s, nil
}

// recoverFromWAL WAL 中每一行都是帳戶變更後的完整快照，後寫入的覆蓋先寫入的
// 只有建構時呼叫，無需 Lock
func (s *AccountStore) recoverFromWAL() error {
	if s.journal == nil {
		return nil
	}
	err := s.journal.ReadAll(func(jsonRaw []byte) error {
		var acc domain.Account
		if err := json.Unmarshal(jsonRaw, &acc); err != nil {
			return err
		}
		if acc.ID == 0 {
			return fmt.Errorf("account snapshot without id: %s", jsonRaw)
		}
		if _, ok := s.accounts[acc.ID]; !ok {
			s.order = append(s.order, acc.ID)
		}
		s.accounts[acc.ID] = &acc
		if acc.ID >= s.nextID {
			s.nextID = acc.ID + 1
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Slice(s.order, func(i, j int) bool { return s.order[i] < s.order[j] })
	return nil
}

// Create 驗證 payload 並建立帳戶
func (s *AccountStore) Create(_ context.Context, payload domain.CreateUserPayload) (*domain.Account, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc := domain.NewAccount(s.nextID, payload, s.now().UTC())
	if err := s.persist(acc); err != nil {
		return nil, err
	}

	s.accounts[acc.ID] = acc
	s.order = append(s.order, acc.ID)
	s.nextID++
	return acc.Clone(), nil
}

// Get 取得帳戶副本
func (s *AccountStore) Get(_ context.Context, id uint64) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return acc.Clone(), nil
}

// List 依 ID 遞增列出所有帳戶副本
func (s *AccountStore) List(_ context.Context) ([]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*domain.Account, 0, len(s.order))
	for _, id := range s.order {
		list = append(list, s.accounts[id].Clone())
	}
	return list, nil
}

func (s *AccountStore) CreditBalance(_ context.Context, id uint64, amount uint64) (*domain.Account, error) {
	return s.mutate(id, func(acc *domain.Account) error { return acc.CreditBalance(amount) })
}

func (s *AccountStore) DebitBalance(_ context.Context, id uint64, amount uint64) (*domain.Account, error) {
	return s.mutate(id, func(acc *domain.Account) error { return acc.DebitBalance(amount) })
}

func (s *AccountStore) CreditPoints(_ context.Context, id uint64, points uint64) (*domain.Account, error) {
	return s.mutate(id, func(acc *domain.Account) error { return acc.CreditPoints(points) })
}

func (s *AccountStore) DebitPoints(_ context.Context, id uint64, points uint64) (*domain.Account, error) {
	return s.mutate(id, func(acc *domain.Account) error { return acc.DebitPoints(points) })
}

// mutate 在副本上套用變更，寫入 WAL 成功後才替換，確保單筆帳戶的原子性
func (s *AccountStore) mutate(id uint64, apply func(acc *domain.Account) error) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}

	next := current.Clone()
	if err := apply(next); err != nil {
		return nil, err
	}
	if err := s.persist(next); err != nil {
		return nil, err
	}

	s.accounts[id] = next
	return next.Clone(), nil
}

func (s *AccountStore) persist(acc *domain.Account) error {
	if s.journal == nil {
		return nil
	}
	if err := s.journal.Write(acc); err != nil {
		return fmt.Errorf("%w: account %d: %v", domain.ErrWALWriteFailed, acc.ID, err)
	}
	return nil
}

var _ usecase.AccountStore = (*AccountStore)(nil)
