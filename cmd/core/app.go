package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	memory_adapter "github.com/JoeShih716/go-rewards-ledger/internal/app/core/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-rewards-ledger/internal/app/core/adapter/out/mysql"
	"github.com/JoeShih716/go-rewards-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-rewards-ledger/pkg/config"
	"github.com/JoeShih716/go-rewards-ledger/pkg/metrics"
	"github.com/JoeShih716/go-rewards-ledger/pkg/mysql"
	"github.com/JoeShih716/go-rewards-ledger/pkg/wal"
)

const (
	accountsWALFile     = "accounts.wal"
	transactionsWALFile = "transactions.wal"
)

// ledger 組裝好的交易引擎，以及關閉時需要釋放的資源
type ledger struct {
	engine  *usecase.TransactionEngine
	closers []io.Closer
}

func (l *ledger) Close() error {
	var errs []error
	for i := len(l.closers) - 1; i >= 0; i-- {
		if err := l.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// buildLedger 依設定選擇儲存後端與執行模型
//
// sequencer 模式的核心迴圈綁定 ctx，ctx 結束後停止接受請求
func buildLedger(ctx context.Context, cfg *config.Config, log *slog.Logger) (*ledger, error) {
	l := &ledger{}

	var accounts usecase.AccountStore
	var transactions usecase.TransactionStore

	switch cfg.Storage.Driver {
	case config.StorageMemory:
		accountWAL, err := wal.NewWAL(filepath.Join(cfg.Storage.DataDir, accountsWALFile))
		if err != nil {
			return nil, fmt.Errorf("init accounts wal: %w", err)
		}
		l.closers = append(l.closers, accountWAL)

		transactionWAL, err := wal.NewWAL(filepath.Join(cfg.Storage.DataDir, transactionsWALFile))
		if err != nil {
			_ = l.Close()
			return nil, fmt.Errorf("init transactions wal: %w", err)
		}
		l.closers = append(l.closers, transactionWAL)

		accountStore, err := memory_adapter.NewAccountStore(accountWAL)
		if err != nil {
			_ = l.Close()
			return nil, err
		}
		transactionStore, err := memory_adapter.NewTransactionStore(transactionWAL)
		if err != nil {
			_ = l.Close()
			return nil, err
		}
		accounts, transactions = accountStore, transactionStore
		log.InfoContext(ctx, "memory storage recovered from wal",
			slog.String("data_dir", cfg.Storage.DataDir),
			slog.Int("transactions", transactionStore.Len()),
		)

	case config.StorageMySQL:
		client, err := mysql.NewClient(ctx, cfg.MySQL, log)
		if err != nil {
			return nil, err
		}
		l.closers = append(l.closers, client)
		if cfg.Storage.AutoMigrate {
			if err := mysql_adapter.Migrate(client.DB()); err != nil {
				_ = l.Close()
				return nil, err
			}
		}
		accounts = mysql_adapter.NewAccountStore(client.DB())
		transactions = mysql_adapter.NewTransactionStore(client.DB())
		log.InfoContext(ctx, "connected to mysql")

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	var exec usecase.Executor
	switch cfg.Engine.Mode {
	case config.EngineModeSequencer:
		seq := usecase.NewSequencerExecutor(cfg.Engine.QueueSize)
		seq.Start(ctx)
		exec = seq
	default:
		exec = usecase.NewMutexExecutor()
	}

	list, err := accounts.List(ctx)
	if err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	metrics.SetAccounts(len(list))
	log.InfoContext(ctx, "accounts loaded", slog.Int("count", len(list)))

	l.engine = usecase.NewTransactionEngine(accounts, transactions,
		usecase.WithExecutor(exec),
		usecase.WithLogger(log),
		usecase.WithUnitsPerPoint(cfg.Engine.UnitsPerPoint),
		usecase.WithTransferRewardDivisor(cfg.Engine.TransferRewardDivisor),
	)
	return l, nil
}
