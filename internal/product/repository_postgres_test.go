package product

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var productCols = []string{"id", "name", "price", "category", "stock", "description", "image", "created_at", "updated_at"}

func newMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestPostgresList_FilterAndPaging(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()
	maxPrice := decimal.NewFromInt(20)
	f := Filter{Category: "Accessories", MaxPrice: &maxPrice, Search: "50%", Page: 2, Limit: 5}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM products WHERE category = \$1 AND price <= \$2 AND \(name ILIKE \$3 OR description ILIKE \$3\)`).
		WithArgs("Accessories", maxPrice, `%50\%%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(6))
	mock.ExpectQuery(`ORDER BY created_at DESC LIMIT \$4 OFFSET \$5`).
		WithArgs("Accessories", maxPrice, `%50\%%`, 5, 5).
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow(idCable, "USB-C Cable", "9.99", "Accessories", 100, "50% off", "", now, now))

	products, total, err := repo.List(context.Background(), f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 6 || len(products) != 1 {
		t.Fatalf("expected total 6 and one row, got %d / %d", total, len(products))
	}
	if !products[0].Price.Equal(decimal.RequireFromString("9.99")) {
		t.Fatalf("unexpected price %s", products[0].Price)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresGetByID_NotFound(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("SELECT .*FROM products").WithArgs(idCable).WillReturnRows(sqlmock.NewRows(productCols))

	if _, err := repo.GetByID(context.Background(), idCable); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresGetMany_UsesArray(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()
	ids := []string{idCable, idStand}

	mock.ExpectQuery(`WHERE id = ANY\(\$1::uuid\[\]\)`).
		WithArgs(pq.Array(ids)).
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow(idStand, "Laptop Stand", "49.99", "Accessories", 3, "", "", now, now))

	found, err := repo.GetMany(context.Background(), ids)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected one match, got %d", len(found))
	}
	if _, ok := found[idCable]; ok {
		t.Fatalf("deleted product must be absent")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresDecrementStock(t *testing.T) {
	repo, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE products SET stock = stock - \$2`).
		WithArgs(idCable, 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.DecrementStock(ctx, idCable, 2); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	mock.ExpectExec(`UPDATE products SET stock = stock - \$2`).
		WithArgs(idCable, 500, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(idCable).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	if err := repo.DecrementStock(ctx, idCable, 500); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	mock.ExpectExec(`UPDATE products SET stock = stock - \$2`).
		WithArgs(idStand, 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(idStand).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	if err := repo.DecrementStock(ctx, idStand, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresUpdate_NotFound(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(`UPDATE products`).
		WithArgs(idCable, "X", sqlmock.AnyArg(), "c", 1, "", "", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))

	_, err := repo.Update(context.Background(), Product{ID: idCable, Name: "X", Category: "c", Stock: 1})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresReset_Transaction(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM products`).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`INSERT INTO products`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Reset(context.Background(), []Product{{ID: idCable, Name: "USB-C Cable", Price: decimal.NewFromInt(9), Category: "Accessories", CreatedAt: now, UpdatedAt: now}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM products`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()
	if err := repo.Reset(context.Background(), nil); err == nil {
		t.Fatalf("expected error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
