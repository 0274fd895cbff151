package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"donorslot/internal/store"
	"donorslot/internal/store/storetest"
)

func TestPostgresIntegration_BackendSuite(t *testing.T) {
	databaseURL := strings.TrimSpace(os.Getenv("DONORSLOT_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("DONORSLOT_TEST_DATABASE_URL not set")
	}

	admin, err := Open(databaseURL, PoolConfig{MaxOpenConns: 2})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(admin)
	})

	var schemas []string
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, schema := range schemas {
			_, _ = admin.NewRaw("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Exec(ctx)
		}
	})

	suite.Run(t, &storetest.BackendSuite{
		NewBackend: func() (store.Backend, storetest.Seeder) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			schema := "donorslot_test_" + randomHex(t, 8)
			schemas = append(schemas, schema)
			if _, err := admin.NewRaw("CREATE SCHEMA " + schema).Exec(ctx); err != nil {
				t.Fatalf("create schema: %v", err)
			}

			db, err := Open(withSearchPath(t, databaseURL, schema), PoolConfig{MaxOpenConns: 8})
			if err != nil {
				t.Fatalf("Open error: %v", err)
			}
			if err := ApplyMigrations(ctx, db); err != nil {
				t.Fatalf("ApplyMigrations error: %v", err)
			}

			b := NewBackend(db)
			return b, b
		},
	})
}

func withSearchPath(t *testing.T, databaseURL, schema string) string {
	t.Helper()
	u, err := url.Parse(databaseURL)
	if err != nil {
		t.Fatalf("parse database url: %v", err)
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String()
}

func randomHex(t *testing.T, bytesLen int) string {
	t.Helper()
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read error: %v", err)
	}
	return hex.EncodeToString(b)
}
