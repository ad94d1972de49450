package errors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// LogFields flattens an error into the structured fields the request logger
// records. Wrapped causes contribute a chain, and Postgres server errors
// surface their diagnostics so constraint violations are traceable from logs
// alone.
func LogFields(err error) map[string]any {
	if err == nil {
		return nil
	}

	fields := map[string]any{"error": err.Error()}
	if te := As(err); te != nil {
		fields["error_code"] = string(te.Code())
	}

	var chain []string
	for e := errors.Unwrap(err); e != nil; e = errors.Unwrap(e) {
		chain = append(chain, e.Error())
	}
	if len(chain) > 0 {
		fields["error_cause_chain"] = chain
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		fields["pg_code"] = pgErr.Code
		fields["pg_message"] = pgErr.Message
		if pgErr.ConstraintName != "" {
			fields["pg_constraint"] = pgErr.ConstraintName
		}
		if pgErr.TableName != "" {
			fields["pg_table"] = pgErr.TableName
		}
		if pgErr.Detail != "" {
			fields["pg_detail"] = pgErr.Detail
		}
	}
	return fields
}
