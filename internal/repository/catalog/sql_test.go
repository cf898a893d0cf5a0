package catalog

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := OpenSQL(DriverSQLite, filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("OpenSQL: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	_, err = conn.Exec(`CREATE TABLE products (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		title TEXT, description TEXT,
		price REAL, rating REAL, stock INTEGER,
		categories TEXT, images TEXT, image_url TEXT, url TEXT,
		embedding TEXT, source TEXT)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return conn
}

func TestSQLSource_FetchProducts(t *testing.T) {
	conn := openTestDB(t)
	_, err := conn.Exec(`INSERT INTO products (id, title, description, price, rating, stock, categories, embedding)
		VALUES ('z9', 'Kettle', 'Electric kettle', 25.5, 4.2, 5, 'kitchen|appliances', '[1,0]'),
		       ('a1', 'Toaster', NULL, 30, NULL, NULL, NULL, NULL)`)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	src, err := NewSQLSource(conn, "products", "seq")
	if err != nil {
		t.Fatalf("NewSQLSource: %v", err)
	}
	if err := src.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	recs, err := src.FetchProducts(context.Background())
	if err != nil {
		t.Fatalf("FetchProducts: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(recs))
	}
	if recs[0].ID != "z9" || recs[1].ID != "a1" {
		t.Fatalf("rows must follow the order column, got %q, %q", recs[0].ID, recs[1].ID)
	}
	if recs[0].Price != "25.5" || recs[0].Stock != "5" || recs[0].Categories != "kitchen|appliances" {
		t.Errorf("unexpected first row: %+v", recs[0])
	}
	if recs[1].Rating != "" || recs[1].Embedding != "" {
		t.Errorf("NULL columns must read as empty text: %+v", recs[1])
	}
}

func TestNewSQLSource_RejectsBadIdentifiers(t *testing.T) {
	if _, err := NewSQLSource(nil, "products; DROP TABLE x", ""); err == nil {
		t.Error("expected table name rejection")
	}
	if _, err := NewSQLSource(nil, "products", "id desc"); err == nil {
		t.Error("expected order column rejection")
	}
	if _, err := NewSQLSource(nil, "shop.products", ""); err != nil {
		t.Errorf("schema-qualified table should be accepted: %v", err)
	}
}

func TestOpenSQL_UnknownDriver(t *testing.T) {
	if _, err := OpenSQL("mysql", "dsn"); err == nil {
		t.Fatal("expected unsupported driver error")
	}
}
