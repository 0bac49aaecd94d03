package db

import (
	"context"
	"testing"

	"github.com/angelmondragon/gallery-backend/pkg/config"
	"github.com/angelmondragon/gallery-backend/pkg/logger"
)

func TestNewOpensSQLite(t *testing.T) {
	cfg := config.DBConfig{
		DSN:          "file::memory:",
		Driver:       config.DBDriverSQLite,
		MaxOpenConns: 1,
	}
	client, err := New(context.Background(), cfg, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}

	sqlDB, err := client.SQL()
	if err != nil {
		t.Fatalf("SQL returned error: %v", err)
	}
	if got := sqlDB.Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("expected pool settings applied, max open = %d", got)
	}
}

func TestNewRequiresDSN(t *testing.T) {
	if _, err := New(context.Background(), config.DBConfig{}, nil); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}

func TestPingAfterCloseFails(t *testing.T) {
	client, err := New(context.Background(), config.DBConfig{DSN: "file::memory:", Driver: config.DBDriverSQLite}, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected ping to fail on a closed pool")
	}
}
