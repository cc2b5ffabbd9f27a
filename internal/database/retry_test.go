package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"connection reset", errors.New("read tcp: connection reset by peer"), true},
		{"record not found", gorm.ErrRecordNotFound, false},
		{"ticket not found", fmt.Errorf("get: %w", errs.ErrTicketNotFound), false},
		{"canceled", context.Canceled, false},
		{"pg unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"pg foreign key violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503"}), false},
		{"pg numeric out of range", &pgconn.PgError{Code: "22003"}, false},
		{"pg admin shutdown", &pgconn.PgError{Code: "57P01"}, true},
		{"pg serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"sqlite constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, false},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"argument conversion", errors.New("sql: converting argument $1 type: uint64 values with high bit set are not supported"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryable(tt.err))
		})
	}
}
