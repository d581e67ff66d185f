package wal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// 自己定義常用的權限常量
const (
	// rw-r--r-- (擁有者讀寫，其他人唯讀)
	FileModeReadOnly fs.FileMode = 0644

	// rwxr-xr-x 資料目錄使用
	FileModeDir fs.FileMode = 0755
)

// ErrBroken 寫入失敗後無法把檔案還原，WAL 拒絕後續寫入
var ErrBroken = errors.New("wal: broken after failed write")

// logFile 是 WAL 用到的檔案操作，*os.File 即為實作
type logFile interface {
	io.ReadWriteSeeker
	Sync() error
	Truncate(size int64) error
	Stat() (os.FileInfo, error)
	Name() string
	Close() error
}

// WAL 以 JSON Lines 格式追加寫入的日誌檔
type WAL struct {
	file   logFile
	mu     sync.Mutex
	broken error
}

// NewWAL 開啟或建立一個 WAL 檔案，上層目錄不存在時會一併建立
// O_RDWR讀寫模式
// O_APPEND 每次寫入時自動跳到文件末尾
// O_CREATE 如果文件不存在則建立
func NewWAL(path string) (*WAL, error) {
	if err := os.MkdirAll(filepath.Dir(path), FileModeDir); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModeReadOnly)
	if err != nil {
		return nil, err
	}
	return &WAL{file: file}, nil
}

// Write 寫入一筆資料並刷入硬碟，回傳 nil 代表資料已持久化
//
// 寫入或 Sync 失敗時把檔案截回寫入前的長度，失敗的紀錄不會在重放時出現；
// 連截斷都失敗時 WAL 進入 broken 狀態，之後的寫入一律回傳 ErrBroken
func (w *WAL) Write(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.broken != nil {
		return w.broken
	}

	info, err := w.file.Stat()
	if err != nil {
		return err
	}
	offset := info.Size()

	if _, err := w.file.Write(line); err != nil {
		return w.rollback(offset, err)
	}
	if err := w.file.Sync(); err != nil {
		return w.rollback(offset, err)
	}
	return nil
}

// rollback 把檔案截回 offset，呼叫端需持有 mu
func (w *WAL) rollback(offset int64, cause error) error {
	if err := w.file.Truncate(offset); err != nil {
		w.broken = fmt.Errorf("%w: %v", ErrBroken, err)
		return errors.Join(cause, w.broken)
	}
	return cause
}

// Path 回傳檔案路徑
func (w *WAL) Path() string {
	return w.file.Name()
}

// Close 關閉檔案
func (w *WAL) Close() error {
	return w.file.Close()
}

// ReadAll 從頭讀取所有資料
// callback 接收每一行的原始 JSON，避免一次將所有資料載入記憶體
//
// 最後一行沒有換行代表寫到一半就中斷，該行會被丟棄並從檔案截掉；
// 中間的行格式錯誤則視為檔案損毀，回傳錯誤
func (w *WAL) ReadAll(callback func(jsonRaw []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	// 確保從頭讀取
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	reader := bufio.NewReader(w.file)
	var offset int64
	for lineNo := 1; ; lineNo++ {
		line, err := reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			if len(line) > 0 {
				return w.file.Truncate(offset)
			}
			return nil
		}
		if err != nil {
			return err
		}
		offset += int64(len(line))

		raw := bytes.TrimSpace(line)
		if len(raw) == 0 {
			continue
		}
		if !json.Valid(raw) {
			return fmt.Errorf("wal: %s line %d is corrupted", w.file.Name(), lineNo)
		}
		if err := callback(raw); err != nil {
			return err
		}
	}
}
