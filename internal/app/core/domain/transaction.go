package domain

import "time"

// TransactionKind 交易類型
// 為了節省空間，使用 uint8
type TransactionKind uint8

const (
	// 存款
	TransactionKindDeposit TransactionKind = 1
	// 轉帳
	TransactionKindTransfer TransactionKind = 2
	// 點數兌換
	TransactionKindRedeem TransactionKind = 3
)

func (k TransactionKind) String() string {
	switch k {
	case TransactionKindDeposit:
		return "deposit"
	case TransactionKindTransfer:
		return "transfer"
	case TransactionKindRedeem:
		return "redeem"
	default:
		return "unknown"
	}
}

// Valid 是否為已定義的交易類型
func (k TransactionKind) Valid() bool {
	return k >= TransactionKindDeposit && k <= TransactionKindRedeem
}

// Transaction 交易紀錄，寫入後不可修改
type Transaction struct {
	// ID: 由 TransactionStore 分配，單調遞增，與帳戶 ID 各自獨立
	ID uint64 `json:"id"`
	// FromUserID: 存款與兌換時為 nil
	FromUserID *uint64 `json:"from_user_id,omitempty"`
	// ToUserID: 入帳帳戶 (兌換時為兌換者)
	ToUserID uint64 `json:"to_user_id"`
	// Amount: 餘額變動量，兌換時為入帳金額而非消耗點數
	Amount    uint64          `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
	Kind      TransactionKind `json:"kind"`
}

// Involves 該使用者是否為交易的付款方或收款方
func (t *Transaction) Involves(userID uint64) bool {
	if t.ToUserID == userID {
		return true
	}
	return t.FromUserID != nil && *t.FromUserID == userID
}

// Clone 回傳深拷貝 (含 FromUserID 指標)
func (t *Transaction) Clone() Transaction {
	c := *t
	if t.FromUserID != nil {
		from := *t.FromUserID
		c.FromUserID = &from
	}
	return c
}

// UserID 把 id 轉成 FromUserID 需要的指標
func UserID(id uint64) *uint64 {
	return &id
}
