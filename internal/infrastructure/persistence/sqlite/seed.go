package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// SeedSummary describes a freshly created sample database
type SeedSummary struct {
	Path      string
	Customers int
	Products  int
	Orders    int
	Revenue   float64
}

var sampleSchema = []string{
	`CREATE TABLE customers (
		customer_id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		city TEXT,
		country TEXT,
		signup_date DATE
	)`,
	`CREATE TABLE products (
		product_id INTEGER PRIMARY KEY,
		product_name TEXT NOT NULL,
		category TEXT,
		price REAL
	)`,
	`CREATE TABLE orders (
		order_id INTEGER PRIMARY KEY,
		customer_id INTEGER,
		product_id INTEGER,
		order_date DATE,
		quantity INTEGER,
		total_amount REAL,
		status TEXT,
		FOREIGN KEY (customer_id) REFERENCES customers(customer_id),
		FOREIGN KEY (product_id) REFERENCES products(product_id)
	)`,
}

var sampleCustomers = [][]any{
	{1, "John Smith", "john@email.com", "New York", "USA", "2024-01-15"},
	{2, "Emma Wilson", "emma@email.com", "London", "UK", "2024-02-20"},
	{3, "Carlos Garcia", "carlos@email.com", "Madrid", "Spain", "2024-03-10"},
	{4, "Li Wei", "li@email.com", "Beijing", "China", "2024-04-05"},
	{5, "Sarah Johnson", "sarah@email.com", "Toronto", "Canada", "2024-05-12"},
	{6, "Ahmed Hassan", "ahmed@email.com", "Dubai", "UAE", "2024-06-18"},
	{7, "Maria Silva", "maria@email.com", "São Paulo", "Brazil", "2024-07-22"},
	{8, "Yuki Tanaka", "yuki@email.com", "Tokyo", "Japan", "2024-08-30"},
	{9, "Sophie Martin", "sophie@email.com", "Paris", "France", "2024-09-14"},
	{10, "David Brown", "david@email.com", "Sydney", "Australia", "2024-10-01"},
}

var sampleProducts = [][]any{
	{1, "Laptop Pro 15", "Electronics", 1299.99},
	{2, "Wireless Mouse", "Electronics", 29.99},
	{3, "Mechanical Keyboard", "Electronics", 89.99},
	{4, "Office Chair Premium", "Furniture", 299.99},
	{5, "Standing Desk", "Furniture", 499.99},
	{6, "LED Desk Lamp", "Furniture", 49.99},
	{7, "USB-C Cable", "Electronics", 12.99},
	{8, "Monitor 27 inch", "Electronics", 349.99},
	{9, "Webcam HD", "Electronics", 79.99},
	{10, "Noise Cancelling Headphones", "Electronics", 249.99},
}

var sampleOrders = [][]any{
	{1, 1, 1, "2024-10-01", 1, 1299.99, "completed"},
	{2, 1, 2, "2024-10-01", 2, 59.98, "completed"},
	{3, 2, 5, "2024-10-05", 1, 499.99, "completed"},
	{4, 3, 8, "2024-10-08", 1, 349.99, "completed"},
	{5, 4, 4, "2024-10-12", 1, 299.99, "completed"},
	{6, 5, 10, "2024-10-15", 1, 249.99, "completed"},
	{7, 2, 3, "2024-10-18", 1, 89.99, "completed"},
	{8, 6, 1, "2024-10-20", 1, 1299.99, "shipped"},
	{9, 7, 6, "2024-10-22", 2, 99.98, "completed"},
	{10, 8, 9, "2024-10-25", 1, 79.99, "completed"},
	{11, 9, 1, "2024-11-01", 1, 1299.99, "completed"},
	{12, 10, 7, "2024-11-02", 5, 64.95, "completed"},
	{13, 1, 8, "2024-11-05", 1, 349.99, "completed"},
	{14, 3, 2, "2024-11-06", 3, 89.97, "shipped"},
	{15, 4, 5, "2024-11-08", 1, 499.99, "pending"},
	{16, 5, 4, "2024-11-10", 2, 599.98, "completed"},
	{17, 2, 10, "2024-11-11", 1, 249.99, "completed"},
	{18, 6, 3, "2024-11-12", 1, 89.99, "processing"},
}

// ErrDatabaseExists is returned when seeding would overwrite a file
var ErrDatabaseExists = errors.New("database file already exists")

// SeedSampleDatabase writes the sample ecommerce data set (customers,
// products, orders) to a new SQLite file. An existing file is only
// replaced when overwrite is set.
func SeedSampleDatabase(ctx context.Context, path string, overwrite bool) (*SeedSummary, error) {
	if _, err := os.Stat(path); err == nil {
		if !overwrite {
			return nil, fmt.Errorf("%s: %w", path, ErrDatabaseExists)
		}
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("remove existing database: %w", err)
		}
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction failed: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range sampleSchema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("execute schema statement %d failed: %w", i, err)
		}
	}

	inserts := []struct {
		query string
		rows  [][]any
	}{
		{"INSERT INTO customers VALUES (?,?,?,?,?,?)", sampleCustomers},
		{"INSERT INTO products VALUES (?,?,?,?)", sampleProducts},
		{"INSERT INTO orders VALUES (?,?,?,?,?,?,?)", sampleOrders},
	}
	for _, ins := range inserts {
		for _, row := range ins.rows {
			if _, err := tx.ExecContext(ctx, ins.query, row...); err != nil {
				return nil, fmt.Errorf("insert sample row failed: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction failed: %w", err)
	}

	summary := &SeedSummary{Path: path}
	err = db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM customers),
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(*) FROM orders),
			(SELECT COALESCE(SUM(total_amount), 0) FROM orders)
	`).Scan(&summary.Customers, &summary.Products, &summary.Orders, &summary.Revenue)
	if err != nil {
		return nil, fmt.Errorf("summarize sample database: %w", err)
	}
	return summary, nil
}
