package usecase

import (
	"context"

	"github.com/JoeShih716/go-rewards-ledger/internal/app/core/domain"
)

// AccountStore 帳戶儲存的介面
//
// 每個方法對單一帳戶是原子的：要嘛完整套用並持久化，要嘛完全不變
type AccountStore interface {
	// Create 驗證 payload、分配下一個 ID 並儲存帳戶
	Create(ctx context.Context, payload domain.CreateUserPayload) (*domain.Account, error)
	// Get 取得帳戶，不存在時回傳 domain.ErrUserNotFound
	Get(ctx context.Context, id uint64) (*domain.Account, error)
	// List 依 ID 遞增順序列出所有帳戶
	List(ctx context.Context) ([]*domain.Account, error)
	CreditBalance(ctx context.Context, id uint64, amount uint64) (*domain.Account, error)
	DebitBalance(ctx context.Context, id uint64, amount uint64) (*domain.Account, error)
	CreditPoints(ctx context.Context, id uint64, points uint64) (*domain.Account, error)
	DebitPoints(ctx context.Context, id uint64, points uint64) (*domain.Account, error)
}

// TransactionStore 只能追加的交易紀錄
type TransactionStore interface {
	// Append 分配下一個交易 ID 與時間戳並寫入
	Append(ctx context.Context, kind domain.TransactionKind, from *uint64, to uint64, amount uint64) (*domain.Transaction, error)
	// ListForUser 回傳該使用者參與的所有交易 (ID 遞增)，呼叫當下的快照
	ListForUser(ctx context.Context, userID uint64) ([]domain.Transaction, error)
}
