package proto

import "time"

// Account 帳戶資料
type Account struct {
	Id          uint64    `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	Balance     uint64    `json:"balance"`
	Points      uint64    `json:"points"`
	CreatedAt   time.Time `json:"created_at"`
}

// Transaction 交易紀錄，Kind 為 deposit / transfer / redeem
type Transaction struct {
	Id         uint64    `json:"id"`
	FromUserId *uint64   `json:"from_user_id,omitempty"`
	ToUserId   uint64    `json:"to_user_id"`
	Amount     uint64    `json:"amount"`
	Timestamp  time.Time `json:"timestamp"`
	Kind       string    `json:"kind"`
}

type CreateUserRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
}

type DepositRequest struct {
	UserId uint64 `json:"user_id"`
	Amount uint64 `json:"amount"`
}

type TransactionRequest struct {
	FromUserId uint64 `json:"from_user_id"`
	ToUserId   uint64 `json:"to_user_id"`
	Amount     uint64 `json:"amount"`
}

type PointsRequest struct {
	UserId uint64 `json:"user_id"`
	Points uint64 `json:"points"`
}

type UserRequest struct {
	UserId uint64 `json:"user_id"`
}

// AccountResponse 寫入類 RPC 的回應，帶回操作後的帳戶
type AccountResponse struct {
	Account *Account `json:"account"`
}

type HistoryResponse struct {
	Transactions []*Transaction `json:"transactions"`
}

type BalanceResponse struct {
	UserId  uint64 `json:"user_id"`
	Balance uint64 `json:"balance"`
}

type PointsResponse struct {
	UserId uint64 `json:"user_id"`
	Points uint64 `json:"points"`
}
