package mysql

import "testing"

func TestDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 3307, User: "bank", Password: "pw", DBName: "ledger"}
	want := "bank:pw@tcp(db:3307)/ledger?charset=utf8mb4&parseTime=True&loc=UTC"
	if got := cfg.DSN(); got != want {
		t.Fatalf("DSN()=%q, want %q", got, want)
	}
}

func TestNewLoggerLevels(t *testing.T) {
	for _, level := range []string{"info", "warn", "error", "silent", "", "unknown"} {
		if newLogger(level) == nil {
			t.Fatalf("newLogger(%q) returned nil", level)
		}
	}
}
