package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-rewards-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-rewards-ledger/internal/app/core/usecase"
)

// sqlAccount 對應資料庫的 accounts 表
type sqlAccount struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	FirstName   string    `gorm:"size:100;not null"`
	LastName    string    `gorm:"size:100;not null"`
	Username    string    `gorm:"size:40;index"`
	Email       string    `gorm:"size:255;not null"`
	PhoneNumber string    `gorm:"size:32;not null"`
	Balance     uint64    `gorm:"not null;default:0"`
	Points      uint64    `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"type:datetime(6)"`
	UpdatedAt   int64     `gorm:"autoUpdateTime:milli"` // 自動更新時間
}

func (*sqlAccount) TableName() string {
	return "accounts"
}

func (a *sqlAccount) toDomain() *domain.Account {
	return &domain.Account{
		ID:          a.ID,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		Username:    a.Username,
		Email:       a.Email,
		PhoneNumber: a.PhoneNumber,
		Balance:     a.Balance,
		Points:      a.Points,
		CreatedAt:   a.CreatedAt.UTC(),
	}
}

// sqlTransaction 對應資料庫的 transactions 表
type sqlTransaction struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	FromUserID *uint64   `gorm:"index"`
	ToUserID   uint64    `gorm:"index;not null"`
	Amount     uint64    `gorm:"not null"`
	Kind       uint8     `gorm:"not null"`
	Timestamp  time.Time `gorm:"type:datetime(6);not null"`
}

func (*sqlTransaction) TableName() string {
	return "transactions"
}

func (t *sqlTransaction) toDomain() domain.Transaction {
	tran := domain.Transaction{
		ID:        t.ID,
		ToUserID:  t.ToUserID,
		Amount:    t.Amount,
		Timestamp: t.Timestamp.UTC(),
		Kind:      domain.TransactionKind(t.Kind),
	}
	if t.FromUserID != nil {
		tran.FromUserID = domain.UserID(*t.FromUserID)
	}
	return tran
}

// Migrate 建立或更新 accounts 與 transactions 表
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&sqlAccount{}, &sqlTransaction{}); err != nil {
		return fmt.Errorf("%w: migrate: %v", domain.ErrStorage, err)
	}
	return nil
}

// storageError 把 gorm 錯誤包成 domain.ErrStorage，業務錯誤原樣回傳
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsBusinessError(err) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrStorage, op, err)
}

// AccountStore 以 MySQL 儲存帳戶，ID 由 AUTO_INCREMENT 分配
//
// 每次變更在一個資料庫交易內以 SELECT ... FOR UPDATE 鎖住該列 (悲觀鎖)，
// 在 domain.Account 上套用後再寫回，失敗時整筆 rollback
type AccountStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAccountStore(db *gorm.DB) *AccountStore {
	return &AccountStore{
		db:  db,
		now: time.Now,
	}
}

func (s *AccountStore) Create(ctx context.Context, payload domain.CreateUserPayload) (*domain.Account, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	acc := domain.NewAccount(0, payload, s.now().UTC())
	row := sqlAccount{
		FirstName:   acc.FirstName,
		LastName:    acc.LastName,
		Username:    acc.Username,
		Email:       acc.Email,
		PhoneNumber: acc.PhoneNumber,
		CreatedAt:   acc.CreatedAt.Truncate(time.Microsecond),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, storageError("create account", err)
	}
	return row.toDomain(), nil
}

func (s *AccountStore) Get(ctx context.Context, id uint64) (*domain.Account, error) {
	var row sqlAccount
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, storageError("get account", err)
	}
	return row.toDomain(), nil
}

func (s *AccountStore) List(ctx context.Context) ([]*domain.Account, error) {
	var rows []sqlAccount
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, storageError("list accounts", err)
	}
	list := make([]*domain.Account, 0, len(rows))
	for i := range rows {
		list = append(list, rows[i].toDomain())
	}
	return list, nil
}

func (s *AccountStore) CreditBalance(ctx context.Context, id uint64, amount uint64) (*domain.Account, error) {
	return s.mutate(ctx, id, func(acc *domain.Account) error { return acc.CreditBalance(amount) })
}

func (s *AccountStore) DebitBalance(ctx context.Context, id uint64, amount uint64) (*domain.Account, error) {
	return s.mutate(ctx, id, func(acc *domain.Account) error { return acc.DebitBalance(amount) })
}

func (s *AccountStore) CreditPoints(ctx context.Context, id uint64, points uint64) (*domain.Account, error) {
	return s.mutate(ctx, id, func(acc *domain.Account) error { return acc.CreditPoints(points) })
}

func (s *AccountStore) DebitPoints(ctx context.Context, id uint64, points uint64) (*domain.Account, error) {
	return s.mutate(ctx, id, func(acc *domain.Account) error { return acc.DebitPoints(points) })
}

func (s *AccountStore) mutate(ctx context.Context, id uint64, apply func(acc *domain.Account) error) (*domain.Account, error) {
	var updated *domain.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row sqlAccount
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return err
		}

		acc := row.toDomain()
		if err := apply(acc); err != nil {
			return err
		}

		if err := tx.Model(&row).Updates(map[string]any{
			"balance": acc.Balance,
			"points":  acc.Points,
		}).Error; err != nil {
			return err
		}
		updated = acc
		return nil
	})
	if err != nil {
		return nil, storageError("update account", err)
	}
	return updated, nil
}

// TransactionStore 以 MySQL 儲存交易紀錄，只有 INSERT 沒有 UPDATE
type TransactionStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewTransactionStore(db *gorm.DB) *TransactionStore {
	return &TransactionStore{
		db:  db,
		now: time.Now,
	}
}

// Append 寫入交易，時間戳不會早於目前最後一筆
func (s *TransactionStore) Append(ctx context.Context, kind domain.TransactionKind, from *uint64, to uint64, amount uint64) (*domain.Transaction, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown transaction kind %d", kind)
	}

	row := sqlTransaction{
		ToUserID: to,
		Amount:   amount,
		Kind:     uint8(kind),
	}
	if from != nil {
		row.FromUserID = domain.UserID(*from)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last []sqlTransaction
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Order("id DESC").
			Limit(1).
			Find(&last).Error; err != nil {
			return err
		}

		row.Timestamp = s.now().UTC().Truncate(time.Microsecond)
		if len(last) > 0 && row.Timestamp.Before(last[0].Timestamp) {
			row.Timestamp = last[0].Timestamp.UTC()
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, storageError("append transaction", err)
	}

	tran := row.toDomain()
	return &tran, nil
}

func (s *TransactionStore) ListForUser(ctx context.Context, userID uint64) ([]domain.Transaction, error) {
	var rows []sqlTransaction
	err := s.db.WithContext(ctx).
		Where("to_user_id = ? OR from_user_id = ?", userID, userID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, storageError("list transactions", err)
	}

	list := make([]domain.Transaction, 0, len(rows))
	for i := range rows {
		list = append(list, rows[i].toDomain())
	}
	return list, nil
}

var (
	_ usecase.AccountStore     = (*AccountStore)(nil)
	_ usecase.TransactionStore = (*TransactionStore)(nil)
)
