package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/kailas-cloud/prodsearch/internal/domain/product"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SQLSource reads products from a relational table. Every column is read
// as text so numeric, quoted and blank values all reach the decoder.
type SQLSource struct {
	db    *sql.DB
	query string
}

// OpenSQL opens a database handle for one of the supported drivers.
func OpenSQL(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported catalog driver %q", driver)
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	return conn, nil
}

// NewSQLSource creates a table-backed source. orderBy fixes insertion order
// and defaults to the id column.
func NewSQLSource(conn *sql.DB, table, orderBy string) (*SQLSource, error) {
	if orderBy == "" {
		orderBy = "id"
	}
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid catalog table name %q", table)
	}
	if !identRe.MatchString(orderBy) {
		return nil, fmt.Errorf("invalid catalog order column %q", orderBy)
	}
	q := fmt.Sprintf(`SELECT id, title, description, price, rating, stock,
		categories, images, image_url, url, embedding, source
		FROM %s ORDER BY %s`, table, orderBy)
	return &SQLSource{db: conn, query: q}, nil
}

// FetchProducts returns all rows in table order.
func (s *SQLSource) FetchProducts(ctx context.Context) ([]product.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	out := []product.Record{}
	for rows.Next() {
		var c [12]sql.NullString
		if err := rows.Scan(&c[0], &c[1], &c[2], &c[3], &c[4], &c[5],
			&c[6], &c[7], &c[8], &c[9], &c[10], &c[11]); err != nil {
			return nil, fmt.Errorf("scan catalog row %d: %w", len(out), err)
		}
		out = append(out, product.Record{
			ID:          c[0].String,
			Title:       c[1].String,
			Description: c[2].String,
			Price:       c[3].String,
			Rating:      c[4].String,
			Stock:       c[5].String,
			Categories:  c[6].String,
			Images:      c[7].String,
			ImageURL:    c[8].String,
			URL:         c[9].String,
			Embedding:   c[10].String,
			Source:      c[11].String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog: %w", err)
	}
	return out, nil
}

// Ping checks the connection.
func (s *SQLSource) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping catalog db: %w", err)
	}
	return nil
}
