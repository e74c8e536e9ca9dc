package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/wichananm65/storefront-backend/internal/cart"
	"github.com/wichananm65/storefront-backend/internal/order"
)

func TestMigrate_AppliesSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	for range schema {
		mock.ExpectExec(".+").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMigrate_StopsOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	boom := errors.New("permission denied")
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS products").WillReturnError(boom)
	if err := Migrate(context.Background(), db); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestOpenPostgres_RequiresURL(t *testing.T) {
	if _, err := OpenPostgres(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestIndexModels(t *testing.T) {
	models := IndexModels(7 * 24 * time.Hour)

	carts := models[cart.CollectionName]
	if len(carts) != 2 {
		t.Fatalf("expected 2 cart indexes, got %d", len(carts))
	}
	if !*carts[0].Options.Unique {
		t.Fatalf("sessionId index must be unique")
	}
	if got := *carts[1].Options.ExpireAfterSeconds; got != 604800 {
		t.Fatalf("expected 7 day ttl, got %d", got)
	}

	orders := models[order.CollectionName]
	if keys := orders[0].Keys.(bson.D); keys[0].Key != "orderNumber" || !*orders[0].Options.Unique {
		t.Fatalf("orderNumber index must be unique, got %+v", keys)
	}
}
