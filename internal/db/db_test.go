package db

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMigrationFilesSortedAndEmbedded(t *testing.T) {
	files, err := MigrationFiles()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(files) == 0 {
		t.Fatal("expected at least one embedded migration")
	}
	if files[0] != "0001_init.sql" {
		t.Fatalf("expected 0001_init.sql first, got %s", files[0])
	}
	for i := 1; i < len(files); i++ {
		if files[i-1] > files[i] {
			t.Fatalf("migrations out of order: %v", files)
		}
	}

	body, err := migrations.ReadFile("migrations/" + files[0])
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	for _, table := range []string{"users", "debts", "installments", "payments", "witnesses", "notifications"} {
		if !strings.Contains(string(body), "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Errorf("initial migration does not create %s", table)
		}
	}
}

func TestConnectRequiresURL(t *testing.T) {
	_, err := Connect(context.Background(), Options{})
	if !errors.Is(err, ErrMissingURL) {
		t.Fatalf("expected ErrMissingURL, got %v", err)
	}
}
