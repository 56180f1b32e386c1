package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/ictlab/backtest-engine-go/internal/models"
)

// DataAccessError wraps a failure of the execution adapter. The pipeline
// never interprets the cause; it only reads the retryable classification.
type DataAccessError struct {
	Function  string
	Retryable bool
	Cause     error
}

func (e *DataAccessError) Error() string {
	kind := "non-retryable"
	if e.Retryable {
		kind = "retryable"
	}
	return fmt.Sprintf("data access failure (%s) executing %s: %v", kind, e.Function, e.Cause)
}

func (e *DataAccessError) Unwrap() error {
	return e.Cause
}

// Querier is the subset of the pgx pool the executor needs. pgxmock
// satisfies it in tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Function names come from the registry, but the identifier check keeps a
// misconfigured catalog from ever reaching string interpolation.
var functionNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// FunctionExecutor runs analytical SQL functions through the connection
// pool. Parameters are passed as a single jsonb argument, matching the
// database-side function signatures.
type FunctionExecutor struct {
	db Querier
}

// NewFunctionExecutor creates an executor over the shared pool.
func NewFunctionExecutor(db *PostgresDB) *FunctionExecutor {
	var querier Querier
	if db != nil {
		querier = db.Pool
	}
	return &FunctionExecutor{db: querier}
}

// NewFunctionExecutorWithQuerier creates an executor with a custom querier (for tests).
func NewFunctionExecutorWithQuerier(db Querier) *FunctionExecutor {
	return &FunctionExecutor{db: db}
}

// Execute runs `SELECT * FROM <function>($1::jsonb)` and returns the rows
// as column-keyed maps. Failures come back as *DataAccessError.
func (e *FunctionExecutor) Execute(ctx context.Context, function string, params map[string]any) ([]models.Row, error) {
	if e.db == nil {
		return nil, &DataAccessError{
			Function: function,
			Cause:    errors.New("database is not available"),
		}
	}
	if !functionNamePattern.MatchString(function) {
		return nil, &DataAccessError{
			Function: function,
			Cause:    fmt.Errorf("invalid function name %q", function),
		}
	}

	paramJSON, err := json.Marshal(params)
	if err != nil {
		return nil, &DataAccessError{
			Function: function,
			Cause:    fmt.Errorf("failed to encode parameters: %w", err),
		}
	}

	start := time.Now()
	query := fmt.Sprintf("SELECT * FROM %s($1::jsonb)", function)

	rows, err := e.db.Query(ctx, query, string(paramJSON))
	if err != nil {
		return nil, &DataAccessError{
			Function:  function,
			Retryable: isRetryable(err),
			Cause:     err,
		}
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var records []models.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, &DataAccessError{
				Function:  function,
				Retryable: isRetryable(err),
				Cause:     err,
			}
		}
		record := make(models.Row, len(fields))
		for i, field := range fields {
			record[field.Name] = values[i]
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, &DataAccessError{
			Function:  function,
			Retryable: isRetryable(err),
			Cause:     err,
		}
	}

	logrus.WithFields(logrus.Fields{
		"function":    function,
		"rows":        len(records),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Executed analytical function")

	return records, nil
}

// isRetryable classifies transient failures: timeouts, connection loss,
// resource exhaustion, serialization conflicts.
func isRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "57014":
			return true
		}
		if len(pgErr.Code) >= 2 {
			switch pgErr.Code[:2] {
			case "08", "53":
				return true
			}
		}
	}
	return false
}
