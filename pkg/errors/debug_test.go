package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestLogFieldsNilError(t *testing.T) {
	if got := LogFields(nil); got != nil {
		t.Fatalf("expected nil fields for nil error, got %v", got)
	}
}

func TestLogFieldsTypedError(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("connection refused"), "db: conditional create")
	fields := LogFields(err)

	if fields["error_code"] != string(CodeDependency) {
		t.Fatalf("expected dependency code, got %v", fields["error_code"])
	}
	chain, ok := fields["error_cause_chain"].([]string)
	if !ok || len(chain) == 0 {
		t.Fatalf("expected a cause chain, got %v", fields["error_cause_chain"])
	}
	if chain[len(chain)-1] != "connection refused" {
		t.Fatalf("expected the root cause last, got %v", chain)
	}
}

func TestLogFieldsPostgresDiagnostics(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		Message:        "duplicate key value violates unique constraint",
		ConstraintName: "uq_products_barcode",
		TableName:      "products",
	}
	fields := LogFields(fmt.Errorf("insert product: %w", pgErr))

	if fields["pg_code"] != "23505" {
		t.Fatalf("expected pg_code 23505, got %v", fields["pg_code"])
	}
	if fields["pg_constraint"] != "uq_products_barcode" {
		t.Fatalf("expected constraint name, got %v", fields["pg_constraint"])
	}
	if fields["pg_table"] != "products" {
		t.Fatalf("expected table name, got %v", fields["pg_table"])
	}
	if _, present := fields["pg_detail"]; present {
		t.Fatal("empty diagnostics must not produce fields")
	}
}
