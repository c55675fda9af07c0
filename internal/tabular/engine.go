package tabular

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"nexusai/internal/apperr"
	"nexusai/internal/database"
)

// TableName is the name the uploaded table is registered under.
const TableName = "df"

var readOnlyPrefix = regexp.MustCompile(`(?i)^(select|with)\b`)

// maxBoundArgs stays under SQLite's default limit of 32766 host parameters.
const maxBoundArgs = 30000

// Result is the outcome of a query.
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Engine holds an in-memory SQLite copy of one dataset. The connection is
// switched to query_only after loading, so statements cannot modify it.
type Engine struct {
	db *gorm.DB
}

// NewEngine loads ds into a fresh in-memory database.
func NewEngine(ctx context.Context, ds *Dataset) (*Engine, error) {
	db, err := database.Open("file::memory:", logger.Silent)
	if err != nil {
		return nil, apperr.Storage("open dataset engine", err)
	}
	e := &Engine{db: db}
	if err := e.load(ctx, ds); err != nil {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) load(ctx context.Context, ds *Dataset) error {
	cols := make([]string, len(ds.Columns))
	for i, c := range ds.Columns {
		cols[i] = fmt.Sprintf("%s %s", quoteIdent(c), ds.Types[i])
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", TableName, strings.Join(cols, ", "))

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(create).Error; err != nil {
			return err
		}
		placeholders := "(" + strings.TrimSuffix(strings.Repeat("?,", len(ds.Columns)), ",") + ")"
		batch := max(1, maxBoundArgs/len(ds.Columns))
		for start := 0; start < len(ds.Rows); start += batch {
			end := min(start+batch, len(ds.Rows))
			tuples := make([]string, 0, end-start)
			args := make([]any, 0, (end-start)*len(ds.Columns))
			for _, row := range ds.Rows[start:end] {
				tuples = append(tuples, placeholders)
				for i := range ds.Columns {
					args = append(args, ds.Value(row, i))
				}
			}
			stmt := fmt.Sprintf("INSERT INTO %s VALUES %s", TableName, strings.Join(tuples, ", "))
			if err := tx.Exec(stmt, args...).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperr.Storage("load dataset", err)
	}
	if err := e.db.WithContext(ctx).Exec("PRAGMA query_only = ON").Error; err != nil {
		return apperr.Storage("lock dataset", err)
	}
	log.WithFields(log.Fields{"dataset": ds.Name, "rows": len(ds.Rows)}).Debug("dataset loaded")
	return nil
}

// Query runs one SELECT or WITH statement against the dataset.
func (e *Engine) Query(ctx context.Context, sql string) (*Result, error) {
	stmt, err := ReadOnlyStatement(sql)
	if err != nil {
		return nil, err
	}

	rows, err := e.db.WithContext(ctx).Raw(stmt).Rows()
	if err != nil {
		return nil, apperr.Validationf("SQL execution error: %v", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, apperr.Validationf("SQL execution error: %v", err)
	}
	res := &Result{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		vals := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, apperr.Validationf("SQL execution error: %v", err)
		}
		for i, v := range vals {
			vals[i] = normalize(v)
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Validationf("SQL execution error: %v", err)
	}
	return res, nil
}

func (e *Engine) Close() error {
	sqlDB, err := e.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ReadOnlyStatement trims sql and checks it is a single SELECT or WITH
// statement. Trailing semicolons are dropped.
func ReadOnlyStatement(sql string) (string, error) {
	stmt := strings.TrimSpace(sql)
	for strings.HasSuffix(stmt, ";") {
		stmt = strings.TrimSpace(strings.TrimSuffix(stmt, ";"))
	}
	if stmt == "" {
		return "", apperr.Validation("SQL query is empty")
	}
	if strings.Contains(stmt, ";") {
		return "", apperr.Validation("Only a single SQL statement can be executed")
	}
	if !readOnlyPrefix.MatchString(stmt) {
		return "", apperr.Validation("Only SELECT queries can be executed")
	}
	return stmt, nil
}

func normalize(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(TimestampLayout)
	default:
		return x
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
