package domain

import (
	"errors"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

// CreateUserPayload 建立帳戶請求
type CreateUserPayload struct {
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	Email       string `json:"email" validate:"required,ledger_email"`
	PhoneNumber string `json:"phone_number" validate:"required"`
}

// DepositPayload 存款請求
type DepositPayload struct {
	UserID uint64 `json:"user_id"`
	Amount uint64 `json:"amount"`
}

// TransactionPayload 轉帳請求
type TransactionPayload struct {
	FromUserID uint64 `json:"from_user_id"`
	ToUserID   uint64 `json:"to_user_id"`
	Amount     uint64 `json:"amount"`
}

// PointsPayload 點數兌換請求
type PointsPayload struct {
	UserID uint64 `json:"user_id"`
	Points uint64 `json:"points"`
}

var payloadValidator = newPayloadValidator()

func newPayloadValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// 錯誤訊息使用 json 欄位名稱
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	if err := v.RegisterValidation("ledger_email", func(fl validator.FieldLevel) bool {
		return IsValidEmail(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// IsValidEmail 只做最基本的 local@domain 檢查：恰好一個 @，兩邊都不為空
func IsValidEmail(email string) bool {
	if strings.Count(email, "@") != 1 {
		return false
	}
	local, domainPart, _ := strings.Cut(email, "@")
	return local != "" && domainPart != ""
}

// Validate 檢查四個欄位皆不為空且 Email 格式正確
//
// 回傳:
//
//	error: *ValidationError (errors.Is(err, ErrValidation))
func (p CreateUserPayload) Validate() error {
	err := payloadValidator.Struct(p)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		reason := "is required"
		if fe.Tag() == "ledger_email" {
			reason = "is not a valid email address"
		}
		return &ValidationError{Field: fe.Field(), Reason: reason}
	}
	return &ValidationError{Field: "payload", Reason: err.Error()}
}
