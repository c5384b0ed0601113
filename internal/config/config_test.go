package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("log:\n  level: debug\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":50051" || cfg.Storage.Driver != DriverMemory || cfg.Storage.WALPath != "wal.log" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.MySQL.Port != 3306 || cfg.MySQL.MaxOpenConns != 100 || cfg.MySQL.MaxIdleConns != 10 || cfg.MySQL.ConnMaxLifetime != 30*time.Minute {
		t.Fatalf("unexpected mysql defaults %+v", cfg.MySQL)
	}
	if cfg.Engine.MaxRetries != 3 || cfg.Engine.RetryBackoff != 20*time.Millisecond {
		t.Fatalf("unexpected engine defaults %+v", cfg.Engine)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log level=%q", cfg.Log.Level)
	}
}

func TestLoadFile(t *testing.T) {
	content := `
server:
  addr: "127.0.0.1:6000"
storage:
  driver: mysql
  acquire_timeout: 500ms
mysql:
  host: db
  port: 3307
  user: bank
  password: secret
  dbname: ledger
  log_level: warn
engine:
  max_retries: 5
  retry_backoff: 5ms
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != "127.0.0.1:6000" || cfg.Storage.Driver != DriverMySQL || cfg.Storage.AcquireTimeout != 500*time.Millisecond {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.MySQL.Host != "db" || cfg.MySQL.Port != 3307 || cfg.MySQL.DBName != "ledger" || cfg.MySQL.LogLevel != "warn" {
		t.Fatalf("unexpected mysql config %+v", cfg.MySQL)
	}
	if cfg.Engine.MaxRetries != 5 || cfg.Engine.RetryBackoff != 5*time.Millisecond {
		t.Fatalf("unexpected engine config %+v", cfg.Engine)
	}
}

func TestParseRejectsUnknownDriver(t *testing.T) {
	if _, err := Parse([]byte("storage:\n  driver: mongo\n")); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}
