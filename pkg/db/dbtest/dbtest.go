// Package dbtest opens isolated in-memory sqlite databases for package tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/angelmondragon/bitetrack-backend/pkg/db/models"
)

// Open returns a fresh shared-cache in-memory database migrated with the
// domain models. The pool is pinned to one connection so concurrent
// transactions serialize the way they would behind row locks.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:bitetrack_%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(
		&models.Product{},
		&models.Customer{},
		&models.Sale{},
		&models.SaleLineItem{},
		&models.InventoryDrop{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
	); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

// MustCreateProduct inserts a product with the given count and unit price.
func MustCreateProduct(t *testing.T, conn *gorm.DB, name string, count int, price string) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Count: count, Price: decimalFromString(t, price)}
	if err := conn.Create(p).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

// MustCreateCustomer inserts a customer with placeholder contact details.
func MustCreateCustomer(t *testing.T, conn *gorm.DB) *models.Customer {
	t.Helper()
	c := &models.Customer{FirstName: "Test", LastName: "Customer", Phone: "5550100"}
	if err := conn.Create(c).Error; err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return c
}

// ProductCount reads the committed count for a product.
func ProductCount(t *testing.T, conn *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var p models.Product
	if err := conn.First(&p, "id = ?", id).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return p.Count
}
