package wal

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type record struct {
	Seq  int    `json:"seq"`
	Note string `json:"note"`
}

func readRecords(t *testing.T, w *WAL) []record {
	t.Helper()
	var out []record
	err := w.ReadAll(func(raw []byte) error {
		var r record
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadAll err=%v", err)
	}
	return out
}

func TestWriteAndReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := NewWAL(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 3; i++ {
		if err := w.Write(record{Seq: i, Note: "n"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	// 重新開啟後應讀到相同資料，並可以繼續追加
	w, err = NewWAL(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	got := readRecords(t, w)
	if len(got) != 3 || got[0].Seq != 1 || got[2].Seq != 3 {
		t.Fatalf("unexpected records %+v", got)
	}
	if err := w.Write(record{Seq: 4}); err != nil {
		t.Fatal(err)
	}
	if got := readRecords(t, w); len(got) != 4 {
		t.Fatalf("want 4 records after append, got %d", len(got))
	}
}

func TestReadAllIgnoresTornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	content := `{"seq":1,"note":"ok"}` + "\n" + `{"seq":2,"no`
	if err := os.WriteFile(path, []byte(content), FileModePrivate); err != nil {
		t.Fatal(err)
	}
	w, err := NewWAL(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	got := readRecords(t, w)
	if len(got) != 1 || got[0].Seq != 1 {
		t.Fatalf("unexpected records %+v", got)
	}

	// 殘缺的尾巴已被截掉，新的紀錄從新的一行開始
	if err := w.Write(record{Seq: 2, Note: "retry"}); err != nil {
		t.Fatal(err)
	}
	got = readRecords(t, w)
	if len(got) != 2 || got[1].Seq != 2 || got[1].Note != "retry" {
		t.Fatalf("unexpected records after append %+v", got)
	}
}

func TestReadAllRejectsCorruptRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	content := `{"seq":1}` + "\n" + `{"seq":` + "\n" + `{"seq":3}` + "\n"
	if err := os.WriteFile(path, []byte(content), FileModePrivate); err != nil {
		t.Fatal(err)
	}
	w, err := NewWAL(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	n := 0
	err = w.ReadAll(func([]byte) error {
		n++
		return nil
	})
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("err=%v, want ErrCorrupt", err)
	}
	if n != 1 {
		t.Fatalf("callback called %d times before the corrupt line, want 1", n)
	}
}
