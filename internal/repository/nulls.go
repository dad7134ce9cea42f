package repository

import (
	"database/sql"

	"github.com/hitoshi/jobnudge/internal/model"
)

// nullString はOptional[string]をNULL許容カラムの値に変換する。
func nullString(o model.Optional[string]) sql.NullString {
	v, ok := o.Get()
	return sql.NullString{String: v, Valid: ok}
}

// nullInt はOptional[int]をNULL許容カラムの値に変換する。
func nullInt(o model.Optional[int]) sql.NullInt64 {
	v, ok := o.Get()
	return sql.NullInt64{Int64: int64(v), Valid: ok}
}

// optionalString はNULL許容カラムの値をOptional[string]に変換する。
func optionalString(n sql.NullString) model.Optional[string] {
	if !n.Valid {
		return model.None[string]()
	}
	return model.Some(n.String)
}

// optionalInt はNULL許容カラムの値をOptional[int]に変換する。
func optionalInt(n sql.NullInt64) model.Optional[int] {
	if !n.Valid {
		return model.None[int]()
	}
	return model.Some(int(n.Int64))
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// checkAffected は更新系SQLの影響行数を確認し、0件の場合はErrNotFoundを返す。
func checkAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
