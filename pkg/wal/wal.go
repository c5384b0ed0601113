// Package wal 提供以 JSON Lines 格式追加寫入的 Write-Ahead Log。
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
	"sync"
)

const (
	// FileModeReadOnly rw-r--r--
	FileModeReadOnly fs.FileMode = 0644
	// FileModePrivate rw-------
	FileModePrivate fs.FileMode = 0600
)

// ErrCorrupt 完整的一行 (以換行結尾) 卻不是合法的 JSON
var ErrCorrupt = errors.New("wal: corrupt record")

// WAL 每筆紀錄一行，寫入後立即 fsync
type WAL struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// NewWAL 開啟或建立 WAL 檔案，寫入一律追加到檔尾
func NewWAL(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModeReadOnly)
	if err != nil {
		return nil, fmt.Errorf("open wal %s: %w", path, err)
	}
	return &WAL{path: path, file: file}, nil
}

// Write 將 v 編碼成一行並刷入硬碟；整行以單次 write 寫入
func (w *WAL) Write(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode wal record: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.file.Write(line); err != nil {
		return err
	}
	return w.file.Sync()
}

func (w *WAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Sync()
}

func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// ReadAll 從頭依序將每一筆紀錄交給 callback
//
// 最後一行若沒有換行 (寫到一半就中止)，視為未提交：不交給 callback，
// 並把檔案截斷到最後一筆完整紀錄，之後的追加才不會接在殘缺的資料後面。
func (w *WAL) ReadAll(callback func(jsonRaw []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	r := bufio.NewReader(w.file)
	var offset int64
	for lineNo := 1; ; lineNo++ {
		line, err := r.ReadBytes('\n')
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
			return fmt.Errorf("%w: line %d", ErrCorrupt, lineNo)
		}
		if err := callback(raw); err != nil {
			return err
		}
	}
}
