package domain

import (
	"math"
	"strings"
	"time"
)

// usernameMaxLen username 最多保留的字元數
const usernameMaxLen = 10

// Account 使用者帳戶
//
// Balance 與 Points 皆為 uint64，任何扣款都必須先檢查，不允許透支
type Account struct {
	ID          uint64    `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	Balance     uint64    `json:"balance"`
	Points      uint64    `json:"points"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewAccount 依照已驗證的 payload 建立帳戶，餘額與點數皆為 0
func NewAccount(id uint64, payload CreateUserPayload, now time.Time) *Account {
	return &Account{
		ID:          id,
		FirstName:   payload.FirstName,
		LastName:    payload.LastName,
		Username:    MakeUsername(payload.FirstName, payload.LastName),
		Email:       payload.Email,
		PhoneNumber: payload.PhoneNumber,
		CreatedAt:   now,
	}
}

// MakeUsername 小寫 first+last name，取前 10 個字元
func MakeUsername(firstName, lastName string) string {
	runes := []rune(strings.ToLower(firstName + lastName))
	if len(runes) > usernameMaxLen {
		runes = runes[:usernameMaxLen]
	}
	return string(runes)
}

// Clone 回傳副本，store 不把內部指標交給外部
func (a *Account) Clone() *Account {
	c := *a
	return &c
}

// CreditBalance 存入餘額
func (a *Account) CreditBalance(amount uint64) error {
	next, err := addChecked(a.Balance, amount)
	if err != nil {
		return err
	}
	a.Balance = next
	return nil
}

// DebitBalance 扣除餘額，不足時不改變狀態
func (a *Account) DebitBalance(amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	if a.Balance < amount {
		return ErrInsufficientFunds
	}
	a.Balance -= amount
	return nil
}

// CreditPoints 增加點數
func (a *Account) CreditPoints(points uint64) error {
	next, err := addChecked(a.Points, points)
	if err != nil {
		return err
	}
	a.Points = next
	return nil
}

// DebitPoints 扣除點數，不足時不改變狀態
func (a *Account) DebitPoints(points uint64) error {
	if points == 0 {
		return ErrInvalidAmount
	}
	if a.Points < points {
		return ErrInsufficientPoints
	}
	a.Points -= points
	return nil
}

func addChecked(current, delta uint64) (uint64, error) {
	if delta == 0 {
		return 0, ErrInvalidAmount
	}
	if current > math.MaxUint64-delta {
		return 0, ErrAmountOverflow
	}
	return current + delta, nil
}
