package postgres

import (
	"errors"

	"github.com/lib/pq"
)

// PostgreSQLエラーコード
const (
	codeSerializationFailure = "40001"
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
)

// IsSerializationFailure は「could not serialize access」エラーかを返す
// SERIALIZABLE トランザクションの再試行判定に使う
func IsSerializationFailure(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == codeSerializationFailure
}

// IsUniqueViolation はユニーク制約違反かを返す
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == codeUniqueViolation
}

// IsCheckViolation はCHECK制約違反かを返す
func IsCheckViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == codeCheckViolation
}
