package services

import (
	"gorm.io/gorm"
)

// Denormalized counter columns. Every write to them goes through incrementCounter
// (or the reconciler) so the store evaluates the new value itself.
const (
	colPoints       = "points"
	colCommentCount = "comment_count"
)

// incrementCounter applies column = column + delta to the row id of model's table.
// Zero rows affected means the row vanished and the caller's transaction must roll back.
func incrementCounter(tx *gorm.DB, model any, id uint, column string, delta int, notFound error) error {
	res := tx.Model(model).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound
	}
	return nil
}
