package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation 建立帳戶的資料格式錯誤 (空欄位、Email 格式錯誤)
	ErrValidation = errors.New("validation failed")

	// ErrUserNotFound 找不到帳戶
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidAmount 金額或點數必須為正數
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidTransaction 無效的轉帳 (例如轉給自己)
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrInsufficientFunds 餘額不足
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientPoints 點數不足
	ErrInsufficientPoints = errors.New("insufficient points")

	// ErrAmountOverflow 入帳後超出 uint64 可表示範圍
	ErrAmountOverflow = errors.New("amount overflow")

	// ErrWALWriteFailed 寫入 WAL 失敗
	ErrWALWriteFailed = errors.New("wal write failed")

	// ErrStorage 底層儲存錯誤
	ErrStorage = errors.New("storage error")
)

// ValidationError 描述哪個欄位不合法，errors.Is(err, ErrValidation) 成立
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// reasons 穩定的錯誤名稱，給 metrics label 與 gRPC ErrorInfo 使用
var reasons = []struct {
	err    error
	reason string
}{
	{ErrValidation, "VALIDATION_ERROR"},
	{ErrUserNotFound, "USER_NOT_FOUND"},
	{ErrInvalidAmount, "INVALID_AMOUNT"},
	{ErrInvalidTransaction, "INVALID_TRANSACTION"},
	{ErrInsufficientFunds, "INSUFFICIENT_FUNDS"},
	{ErrInsufficientPoints, "INSUFFICIENT_POINTS"},
	{ErrAmountOverflow, "AMOUNT_OVERFLOW"},
	{ErrWALWriteFailed, "WAL_WRITE_FAILED"},
	{ErrStorage, "STORAGE_ERROR"},
}

// Reason 回傳錯誤的穩定名稱；nil 為 "OK"，無法辨識為 "INTERNAL"
func Reason(err error) string {
	if err == nil {
		return "OK"
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "INTERNAL"
}

// IsBusinessError 是否為呼叫端造成的業務錯誤 (非基礎設施故障)
func IsBusinessError(err error) bool {
	switch Reason(err) {
	case "OK", "WAL_WRITE_FAILED", "STORAGE_ERROR", "INTERNAL":
		return false
	default:
		return true
	}
}
