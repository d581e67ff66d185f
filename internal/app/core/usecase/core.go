package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/bits"
	"time"

	"github.com/JoeShih716/go-rewards-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-rewards-ledger/pkg/metrics"
)

// DefaultUnitsPerPoint 預設兌換率：1 點 = 1 單位餘額
const DefaultUnitsPerPoint uint64 = 1

// Option 設定 TransactionEngine
type Option func(*TransactionEngine)

// WithExecutor 指定執行模型，預設為 MutexExecutor
func WithExecutor(exec Executor) Option {
	return func(e *TransactionEngine) {
		if exec != nil {
			e.exec = exec
		}
	}
}

// WithLogger 指定 logger
func WithLogger(log *slog.Logger) Option {
	return func(e *TransactionEngine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithUnitsPerPoint 設定兌換率 (每 1 點可換多少餘額)，0 會被忽略
func WithUnitsPerPoint(units uint64) Option {
	return func(e *TransactionEngine) {
		if units > 0 {
			e.unitsPerPoint = units
		}
	}
}

// WithTransferRewardDivisor 轉帳每 divisor 單位回饋付款方 1 點，0 表示不回饋
func WithTransferRewardDivisor(divisor uint64) Option {
	return func(e *TransactionEngine) {
		e.rewardDivisor = divisor
	}
}

// TransactionEngine 是核心業務邏輯層
//
// 自己不持有任何持久狀態，只透過 AccountStore 與 TransactionStore 的操作改變帳本；
// 每個寫入操作都在 Executor.Update 內跑完，中途失敗時以補償動作還原
type TransactionEngine struct {
	accounts      AccountStore
	transactions  TransactionStore
	exec          Executor
	log           *slog.Logger
	unitsPerPoint uint64
	rewardDivisor uint64
}

// NewTransactionEngine 建立交易引擎
func NewTransactionEngine(accounts AccountStore, transactions TransactionStore, opts ...Option) *TransactionEngine {
	e := &TransactionEngine{
		accounts:      accounts,
		transactions:  transactions,
		exec:          NewMutexExecutor(),
		log:           slog.Default(),
		unitsPerPoint: DefaultUnitsPerPoint,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// UnitsPerPoint 回傳目前的兌換率
func (e *TransactionEngine) UnitsPerPoint() uint64 {
	return e.unitsPerPoint
}

// CreateUser 建立帳戶
func (e *TransactionEngine) CreateUser(ctx context.Context, payload domain.CreateUserPayload) (acc *domain.Account, err error) {
	defer e.observe(ctx, "create_user", time.Now(), &err)

	if err = payload.Validate(); err != nil {
		return nil, err
	}

	err = e.atomically(ctx, "create_user", func(ctx context.Context, _ *undoLog) error {
		created, cErr := e.accounts.Create(ctx, payload)
		if cErr != nil {
			return fmt.Errorf("create account: %w", cErr)
		}
		acc = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncAccounts()
	e.log.InfoContext(ctx, "account created",
		slog.Uint64("user_id", acc.ID),
		slog.String("username", acc.Username),
		slog.String("email", acc.Email),
	)
	return acc, nil
}

// DepositFunds 存款
//
// 流程: 檢查金額 -> 確認帳戶 -> 入帳 -> 寫交易紀錄 -> 回傳最新帳戶
func (e *TransactionEngine) DepositFunds(ctx context.Context, payload domain.DepositPayload) (acc *domain.Account, err error) {
	defer e.observe(ctx, "deposit_funds", time.Now(), &err)

	if payload.Amount == 0 {
		return nil, domain.ErrInvalidAmount
	}

	userID, amount := payload.UserID, payload.Amount
	err = e.atomically(ctx, "deposit_funds", func(ctx context.Context, undo *undoLog) error {
		if _, gErr := e.accounts.Get(ctx, userID); gErr != nil {
			return fmt.Errorf("user %d: %w", userID, gErr)
		}

		updated, cErr := e.accounts.CreditBalance(ctx, userID, amount)
		if cErr != nil {
			return fmt.Errorf("credit user %d: %w", userID, cErr)
		}
		undo.push(func(ctx context.Context) error {
			_, rbErr := e.accounts.DebitBalance(ctx, userID, amount)
			return rbErr
		})

		if _, aErr := e.transactions.Append(ctx, domain.TransactionKindDeposit, nil, userID, amount); aErr != nil {
			return fmt.Errorf("append deposit: %w", aErr)
		}
		undo.commit()

		acc = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordAmount(domain.TransactionKindDeposit.String(), amount)
	e.log.InfoContext(ctx, "funds deposited",
		slog.Uint64("user_id", userID),
		slog.Uint64("amount", amount),
		slog.Uint64("balance", acc.Balance),
	)
	return acc, nil
}

// SendTransaction 轉帳，回傳付款方最新帳戶
//
// 扣款成功後若入帳或寫紀錄失敗，會先把款項還給付款方再回傳錯誤
func (e *TransactionEngine) SendTransaction(ctx context.Context, payload domain.TransactionPayload) (acc *domain.Account, err error) {
	defer e.observe(ctx, "send_transaction", time.Now(), &err)

	if payload.Amount == 0 {
		return nil, domain.ErrInvalidAmount
	}
	if payload.FromUserID == payload.ToUserID {
		return nil, fmt.Errorf("%w: sender and recipient are the same account", domain.ErrInvalidTransaction)
	}

	from, to, amount := payload.FromUserID, payload.ToUserID, payload.Amount
	err = e.atomically(ctx, "send_transaction", func(ctx context.Context, undo *undoLog) error {
		current, gErr := e.accounts.Get(ctx, from)
		if gErr != nil {
			return fmt.Errorf("sender %d: %w", from, gErr)
		}
		recipient, gErr := e.accounts.Get(ctx, to)
		if gErr != nil {
			return fmt.Errorf("recipient %d: %w", to, gErr)
		}
		if current.Balance < amount {
			return fmt.Errorf("debit sender %d: %w", from, domain.ErrInsufficientFunds)
		}
		if recipient.Balance > math.MaxUint64-amount {
			return fmt.Errorf("credit recipient %d: %w", to, domain.ErrAmountOverflow)
		}

		sender, dErr := e.accounts.DebitBalance(ctx, from, amount)
		if dErr != nil {
			return fmt.Errorf("debit sender %d: %w", from, dErr)
		}
		undo.push(func(ctx context.Context) error {
			_, rbErr := e.accounts.CreditBalance(ctx, from, amount)
			return rbErr
		})

		if _, cErr := e.accounts.CreditBalance(ctx, to, amount); cErr != nil {
			return fmt.Errorf("credit recipient %d: %w", to, cErr)
		}
		undo.push(func(ctx context.Context) error {
			_, rbErr := e.accounts.DebitBalance(ctx, to, amount)
			return rbErr
		})

		if _, aErr := e.transactions.Append(ctx, domain.TransactionKindTransfer, domain.UserID(from), to, amount); aErr != nil {
			return fmt.Errorf("append transfer: %w", aErr)
		}
		undo.commit()

		acc = e.rewardSender(ctx, sender, amount)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordAmount(domain.TransactionKindTransfer.String(), amount)
	e.log.InfoContext(ctx, "transfer completed",
		slog.Uint64("from_user_id", from),
		slog.Uint64("to_user_id", to),
		slog.Uint64("amount", amount),
	)
	return acc, nil
}

// rewardSender 依轉帳金額回饋點數給付款方，失敗不影響已完成的轉帳
func (e *TransactionEngine) rewardSender(ctx context.Context, sender *domain.Account, amount uint64) *domain.Account {
	if e.rewardDivisor == 0 {
		return sender
	}
	points := amount / e.rewardDivisor
	if points == 0 {
		return sender
	}

	rewarded, err := e.accounts.CreditPoints(ctx, sender.ID, points)
	if err != nil {
		e.log.WarnContext(ctx, "transfer reward skipped",
			slog.Uint64("user_id", sender.ID),
			slog.Uint64("points", points),
			slog.Any("error", err),
		)
		return sender
	}
	return rewarded
}

// RedeemPoints 以固定兌換率把點數換成餘額
func (e *TransactionEngine) RedeemPoints(ctx context.Context, payload domain.PointsPayload) (acc *domain.Account, err error) {
	defer e.observe(ctx, "redeem_points", time.Now(), &err)

	if payload.Points == 0 {
		return nil, domain.ErrInvalidAmount
	}

	userID, points := payload.UserID, payload.Points
	var amount uint64
	err = e.atomically(ctx, "redeem_points", func(ctx context.Context, undo *undoLog) error {
		current, gErr := e.accounts.Get(ctx, userID)
		if gErr != nil {
			return fmt.Errorf("user %d: %w", userID, gErr)
		}
		if current.Points < points {
			return fmt.Errorf("debit points of user %d: %w", userID, domain.ErrInsufficientPoints)
		}

		hi, lo := bits.Mul64(points, e.unitsPerPoint)
		if hi != 0 || current.Balance > math.MaxUint64-lo {
			return fmt.Errorf("redeem %d points for user %d: %w", points, userID, domain.ErrAmountOverflow)
		}
		amount = lo

		if _, dErr := e.accounts.DebitPoints(ctx, userID, points); dErr != nil {
			return fmt.Errorf("debit points of user %d: %w", userID, dErr)
		}
		undo.push(func(ctx context.Context) error {
			_, rbErr := e.accounts.CreditPoints(ctx, userID, points)
			return rbErr
		})

		updated, cErr := e.accounts.CreditBalance(ctx, userID, amount)
		if cErr != nil {
			return fmt.Errorf("credit user %d: %w", userID, cErr)
		}
		undo.push(func(ctx context.Context) error {
			_, rbErr := e.accounts.DebitBalance(ctx, userID, amount)
			return rbErr
		})

		if _, aErr := e.transactions.Append(ctx, domain.TransactionKindRedeem, nil, userID, amount); aErr != nil {
			return fmt.Errorf("append redeem: %w", aErr)
		}
		undo.commit()

		acc = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordAmount(domain.TransactionKindRedeem.String(), amount)
	e.log.InfoContext(ctx, "points redeemed",
		slog.Uint64("user_id", userID),
		slog.Uint64("points", points),
		slog.Uint64("amount", amount),
	)
	return acc, nil
}

// GetTransactionHistory 回傳使用者參與的所有交易 (ID 遞增)
//
// 沒有交易時回傳空 slice；帳戶不存在時回傳 domain.ErrUserNotFound
func (e *TransactionEngine) GetTransactionHistory(ctx context.Context, userID uint64) (history []domain.Transaction, err error) {
	defer e.observe(ctx, "get_transaction_history", time.Now(), &err)

	err = e.exec.View(ctx, func() error {
		if _, gErr := e.accounts.Get(ctx, userID); gErr != nil {
			return fmt.Errorf("user %d: %w", userID, gErr)
		}
		list, lErr := e.transactions.ListForUser(ctx, userID)
		if lErr != nil {
			return fmt.Errorf("list transactions of user %d: %w", userID, lErr)
		}
		history = list
		return nil
	})
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []domain.Transaction{}
	}
	return history, nil
}

// GetAccount 取得帳戶
func (e *TransactionEngine) GetAccount(ctx context.Context, userID uint64) (acc *domain.Account, err error) {
	defer e.observe(ctx, "get_account", time.Now(), &err)
	return e.view(ctx, userID)
}

// CheckBalance 查詢餘額
func (e *TransactionEngine) CheckBalance(ctx context.Context, userID uint64) (balance uint64, err error) {
	defer e.observe(ctx, "check_balance", time.Now(), &err)

	acc, err := e.view(ctx, userID)
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

// CheckPoints 查詢點數
func (e *TransactionEngine) CheckPoints(ctx context.Context, userID uint64) (points uint64, err error) {
	defer e.observe(ctx, "check_points", time.Now(), &err)

	acc, err := e.view(ctx, userID)
	if err != nil {
		return 0, err
	}
	return acc.Points, nil
}

func (e *TransactionEngine) view(ctx context.Context, userID uint64) (*domain.Account, error) {
	var acc *domain.Account
	err := e.exec.View(ctx, func() error {
		got, gErr := e.accounts.Get(ctx, userID)
		if gErr != nil {
			return fmt.Errorf("user %d: %w", userID, gErr)
		}
		acc = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// undoLog 記錄已生效變更的補償動作
type undoLog struct {
	steps []func(ctx context.Context) error
}

func (u *undoLog) push(step func(ctx context.Context) error) {
	u.steps = append(u.steps, step)
}

// commit 交易紀錄寫入後操作即生效，之後的錯誤不再補償
func (u *undoLog) commit() {
	u.steps = nil
}

// atomically 在 Executor.Update 內執行一個寫入操作
//
// fn 拿到的 context 不會被取消：操作一旦開始就會跑到成功或完整還原，
// 客戶端斷線不會讓補償動作半途失敗。fn 回傳錯誤或 panic 時，
// 依相反順序執行 undo 中登記的補償動作
func (e *TransactionEngine) atomically(ctx context.Context, operation string, fn func(ctx context.Context, undo *undoLog) error) error {
	opCtx := context.WithoutCancel(ctx)
	return e.exec.Update(ctx, func() (err error) {
		undo := &undoLog{}
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in %s: %v", operation, r)
			}
			if err != nil && len(undo.steps) > 0 {
				err = e.compensate(opCtx, operation, err, undo.steps)
			}
		}()
		return fn(opCtx, undo)
	})
}

// compensate 依相反順序執行補償動作，回傳原本的錯誤；補償本身失敗時一併回傳
func (e *TransactionEngine) compensate(ctx context.Context, operation string, cause error, steps []func(ctx context.Context) error) error {
	metrics.RecordCompensation(operation)

	var rbErrs []error
	for i := len(steps) - 1; i >= 0; i-- {
		if err := steps[i](ctx); err != nil {
			rbErrs = append(rbErrs, err)
		}
	}

	if len(rbErrs) == 0 {
		e.log.WarnContext(ctx, "operation rolled back",
			slog.String("operation", operation),
			slog.Any("error", cause),
		)
		return cause
	}

	rbErr := errors.Join(rbErrs...)
	e.log.ErrorContext(ctx, "compensating rollback failed, ledger needs manual repair",
		slog.String("operation", operation),
		slog.Any("error", cause),
		slog.Any("rollback_error", rbErr),
	)
	return errors.Join(cause, fmt.Errorf("rollback: %w", rbErr))
}

func (e *TransactionEngine) observe(ctx context.Context, operation string, start time.Time, errp *error) {
	err := *errp
	metrics.RecordOperation(operation, domain.Reason(err), time.Since(start))

	if err != nil && !domain.IsBusinessError(err) {
		e.log.ErrorContext(ctx, "ledger operation failed",
			slog.String("operation", operation),
			slog.Any("error", err),
		)
	}
}
