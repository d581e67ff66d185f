package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrSequencerStopped sequencer 尚未啟動或已關閉
var ErrSequencerStopped = errors.New("sequencer stopped")

// Executor 決定帳本操作的執行模型
//
// Update 內的函式彼此不會交錯 (run-to-completion)，
// View 可以彼此並行，但不會看到 Update 執行到一半的狀態
type Executor interface {
	Update(ctx context.Context, fn func() error) error
	View(ctx context.Context, fn func() error) error
}

// MutexExecutor 使用 RWMutex 實現單一寫入者
type MutexExecutor struct {
	mu sync.RWMutex
}

// NewMutexExecutor 建立 MutexExecutor
func NewMutexExecutor() *MutexExecutor {
	return &MutexExecutor{}
}

// Update 取得寫鎖後執行
func (m *MutexExecutor) Update(_ context.Context, fn func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn()
}

// View 取得讀鎖後執行
func (m *MutexExecutor) View(_ context.Context, fn func() error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn()
}

// sequencerRequest 包裝要在核心迴圈執行的函式，讓呼叫端可以等待結果
type sequencerRequest struct {
	fn     func() error
	result chan error
}

// SequencerExecutor 單一 goroutine 依序處理所有請求 (LMAX 風格)
//
// Update(等待) -> Channel -> Run Loop -> fn() -> Result Channel -> Update(收到結果)
// 讀取也走同一條輸送帶，因此永遠看不到寫到一半的狀態
type SequencerExecutor struct {
	requests chan *sequencerRequest
	// Pool 減少 GC 壓力
	requestPool sync.Pool

	startOnce sync.Once
	done      chan struct{}
	running   chan struct{}
}

// NewSequencerExecutor 建立 SequencerExecutor，需呼叫 Start 後才會開始處理
//
// 參數:
//
//	queueSize: 輸送帶緩衝大小
func NewSequencerExecutor(queueSize int) *SequencerExecutor {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &SequencerExecutor{
		requests: make(chan *sequencerRequest, queueSize),
		requestPool: sync.Pool{
			New: func() any {
				return &sequencerRequest{result: make(chan error, 1)}
			},
		},
		done:    make(chan struct{}),
		running: make(chan struct{}),
	}
}

// Start 啟動核心迴圈 (非同步)，ctx 結束時處理完剩下的請求後停止
func (s *SequencerExecutor) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		close(s.running)
		go s.run(ctx)
	})
}

// Done 核心迴圈結束後關閉
func (s *SequencerExecutor) Done() <-chan struct{} {
	return s.done
}

func (s *SequencerExecutor) Update(ctx context.Context, fn func() error) error {
	return s.submit(ctx, fn)
}

func (s *SequencerExecutor) View(ctx context.Context, fn func() error) error {
	return s.submit(ctx, fn)
}

func (s *SequencerExecutor) submit(ctx context.Context, fn func() error) error {
	select {
	case <-s.running:
	default:
		return ErrSequencerStopped
	}

	req := s.requestPool.Get().(*sequencerRequest)
	req.fn = fn

	// 只在放上輸送帶之前可以放棄，一旦開始執行就一定跑完
	select {
	case s.requests <- req:
	case <-ctx.Done():
		req.fn = nil
		s.requestPool.Put(req)
		return ctx.Err()
	case <-s.done:
		return ErrSequencerStopped
	}

	select {
	case err := <-req.result:
		req.fn = nil
		s.requestPool.Put(req)
		return err
	case <-s.done:
		// 迴圈已停止，但結果可能已經送出
		select {
		case err := <-req.result:
			return err
		default:
			return ErrSequencerStopped
		}
	}
}

func (s *SequencerExecutor) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			// 收到關閉信號，把剩下的請求處理完
			s.drain()
			return
		case req := <-s.requests:
			s.process(req)
		}
	}
}

func (s *SequencerExecutor) drain() {
	for {
		select {
		case req := <-s.requests:
			s.process(req)
		default:
			return
		}
	}
}

// process 執行單一請求；panic 只轉成錯誤讓核心迴圈繼續，帳本的補償由 TransactionEngine 負責
func (s *SequencerExecutor) process(req *sequencerRequest) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("sequencer: panic in ledger operation: %v", r)
			}
		}()
		err = req.fn()
	}()
	req.result <- err
}

var (
	_ Executor = (*MutexExecutor)(nil)
	_ Executor = (*SequencerExecutor)(nil)
)
