package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/table-joiner/internal/config"
	"github.com/GoogleCloudPlatform/table-joiner/internal/table"
)

// TableSource loads a database table as a table.Table.
type TableSource interface {
	LoadTable(ctx context.Context, tableName string, orderBy []string) (*table.Table, error)
	Ping(ctx context.Context) error
	Close() error
}

var _ TableSource = (*DB)(nil)

// DB holds the database connection pool and dialect handler.
type DB struct {
	Pool    *sql.DB
	Handler DialectHandler
	Config  config.DatabaseConfig
}

// DialectHandler opens connection pools and quotes identifiers for one dialect.
type DialectHandler interface {
	CreateCloudSQLPool(cfg config.DatabaseConfig) (*sql.DB, error)
	CreateStandardPool(cfg config.DatabaseConfig) (*sql.DB, error)
	QuoteIdentifier(name string) string
}

var (
	dialectHandlers = make(map[string]DialectHandler)
	mu              sync.RWMutex
)

func RegisterDialectHandler(dialect string, handler DialectHandler) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := dialectHandlers[dialect]; exists {
		zap.L().Warn("Dialect handler is being overwritten", zap.String("dialect", dialect))
	}
	dialectHandlers[dialect] = handler
}

func GetDialectHandler(dialect string) (DialectHandler, error) {
	mu.RLock()
	defer mu.RUnlock()
	handler, ok := dialectHandlers[dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported database dialect: %s", dialect)
	}
	return handler, nil
}

// New opens a pool for cfg.Dialect and verifies it with a ping.
func New(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	handler, err := GetDialectHandler(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	var pool *sql.DB
	if strings.HasPrefix(cfg.Dialect, "cloudsql") {
		pool, err = handler.CreateCloudSQLPool(cfg)
	} else {
		pool, err = handler.CreateStandardPool(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool for dialect %s: %w", cfg.Dialect, err)
	}

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database (ping failed) for dialect %s: %w", cfg.Dialect, err)
	}

	return &DB{
		Pool:    pool,
		Handler: handler,
		Config:  cfg,
	}, nil
}

func (db *DB) Ping(ctx context.Context) error {
	if db.Pool == nil {
		return fmt.Errorf("database connection pool is not initialized")
	}
	return db.Pool.PingContext(ctx)
}

func (db *DB) Close() error {
	if db.Pool != nil {
		return db.Pool.Close()
	}
	zap.L().Warn("Attempted to close a nil database connection pool")
	return nil
}

// LoadTable reads every row of tableName. The column list is read first so a
// missing orderBy column is reported as table.ErrMissingKeyColumn. Rows are
// ordered by the orderBy columns and then by every other column, so repeated
// loads return the same sequence even for rows sharing a key. NULL becomes
// the empty string.
func (db *DB) LoadTable(ctx context.Context, tableName string, orderBy []string) (*table.Table, error) {
	if db.Pool == nil {
		return nil, fmt.Errorf("database connection pool is not initialized")
	}
	if db.Handler == nil {
		return nil, fmt.Errorf("dialect handler not initialized")
	}

	columns, err := db.tableColumns(ctx, tableName)
	if err != nil {
		return nil, err
	}
	builder, err := table.NewBuilder(db.sourceName(tableName), columns)
	if err != nil {
		return nil, err
	}
	order, err := db.sortColumns(tableName, columns, orderBy)
	if err != nil {
		return nil, err
	}

	query := db.selectQuery(tableName, "", order)
	rows, err := db.Pool.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying table %s: %w", tableName, err)
	}
	defer rows.Close()

	got, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("error reading columns of table %s: %w", tableName, err)
	}
	if len(got) != len(columns) {
		return nil, fmt.Errorf("table %s changed while reading: expected %d columns, got %d", tableName, len(columns), len(got))
	}

	values := make([]sql.NullString, len(columns))
	dest := make([]interface{}, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("error scanning row of table %s: %w", tableName, err)
		}
		record := make([]string, len(values))
		for i, v := range values {
			if v.Valid {
				record[i] = v.String
			}
		}
		if err := builder.Append(record); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows of table %s: %w", tableName, err)
	}

	return builder.Build(), nil
}

// tableColumns returns the column names of tableName without reading any row.
func (db *DB) tableColumns(ctx context.Context, tableName string) ([]string, error) {
	rows, err := db.Pool.QueryContext(ctx, db.selectQuery(tableName, "1=0", nil))
	if err != nil {
		return nil, fmt.Errorf("error querying table %s: %w", tableName, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("error reading columns of table %s: %w", tableName, err)
	}
	return columns, nil
}

// sortColumns returns orderBy followed by the remaining columns in table order.
func (db *DB) sortColumns(tableName string, columns, orderBy []string) ([]string, error) {
	present := make(map[string]bool, len(columns))
	for _, col := range columns {
		present[col] = true
	}
	var missing []string
	listed := make(map[string]bool, len(orderBy))
	for _, col := range orderBy {
		if !present[col] {
			missing = append(missing, col)
		}
		listed[col] = true
	}
	if len(missing) > 0 {
		return nil, &table.ErrMissingKeyColumn{Table: db.sourceName(tableName), Columns: missing}
	}

	order := append([]string(nil), orderBy...)
	for _, col := range columns {
		if !listed[col] {
			order = append(order, col)
		}
	}
	return order, nil
}

// selectQuery builds a SELECT over tableName. A dotted table name is treated
// as schema.table and each part is quoted separately.
func (db *DB) selectQuery(tableName, where string, orderBy []string) string {
	parts := strings.Split(tableName, ".")
	for i, p := range parts {
		parts[i] = db.Handler.QuoteIdentifier(p)
	}
	query := "SELECT * FROM " + strings.Join(parts, ".")
	if where != "" {
		query += " WHERE " + where
	}
	if len(orderBy) > 0 {
		quoted := make([]string, len(orderBy))
		for i, col := range orderBy {
			quoted[i] = db.Handler.QuoteIdentifier(col)
		}
		query += " ORDER BY " + strings.Join(quoted, ", ")
	}
	return query
}

func (db *DB) sourceName(tableName string) string {
	if db.Config.DBName == "" {
		return fmt.Sprintf("%s:%s", db.Config.Dialect, tableName)
	}
	return fmt.Sprintf("%s:%s/%s", db.Config.Dialect, db.Config.DBName, tableName)
}
