// Package dbutil holds helpers shared by the SQL archive stores.
package dbutil

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// ParamSummary returns a privacy-conscious summary of a parameter for error
// messages. Values are never echoed except for numbers and booleans:
//   - name=null for nil, nil pointers and invalid sql.NullString
//   - name=empty for empty strings
//   - name=len=N for non-empty strings, byte payloads and slices
//   - name=V for integers, floats and booleans
//   - name=zero-time or name=non-zero-time for time.Time
func ParamSummary(name string, v any) string {
	switch x := v.(type) {
	case nil:
		return name + "=null"
	case sql.NullString:
		if !x.Valid {
			return name + "=null"
		}
		return ParamSummary(name, x.String)
	case time.Time:
		if x.IsZero() {
			return name + "=zero-time"
		}
		return name + "=non-zero-time"
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return name + "=null"
		}
		return ParamSummary(name, rv.Elem().Interface())
	}
	switch rv.Kind() {
	case reflect.String:
		if rv.Len() == 0 {
			return name + "=empty"
		}
		return fmt.Sprintf("%s=len=%d", name, rv.Len())
	case reflect.Slice, reflect.Array, reflect.Map:
		return fmt.Sprintf("%s=len=%d", name, rv.Len())
	case reflect.Bool:
		return fmt.Sprintf("%s=%t", name, rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fmt.Sprintf("%s=%d", name, rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fmt.Sprintf("%s=%d", name, rv.Uint())
	case reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%s=%g", name, rv.Float())
	default:
		return fmt.Sprintf("%s=%s", name, rv.Kind())
	}
}

// ErrWrap returns a formatted error with an operation label and optional summaries.
// Example: ErrWrap("archive.write", err, ParamSummary("type", typ), ParamSummary("records", recs))
func ErrWrap(op string, err error, parts ...string) error {
	if err == nil {
		return nil
	}
	if len(parts) == 0 {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w; %s", op, err, strings.Join(parts, ","))
}

// Rollback aborts a transaction that was not committed, ignoring the
// error from an already finished one.
func Rollback(tx interface{ Rollback() error }) {
	_ = tx.Rollback()
}
