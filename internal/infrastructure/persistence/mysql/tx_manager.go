package mysql

import (
	"context"

	"gorm.io/gorm"
)

// txContextKey carries the transaction *gorm.DB through the context.
type txContextKey struct{}

// TxManager runs a function inside one database transaction. Repositories
// called with the context handed to fn join it; nested calls use savepoints.
type TxManager struct {
	db *gorm.DB
}

// NewTxManager creates a TxManager on db.
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// Transaction commits when fn returns nil and rolls back otherwise.
//
//	err := txManager.Transaction(ctx, func(ctx context.Context) error {
//	    if err := orders.CreatePayment(ctx, p); err != nil {
//	        return err
//	    }
//	    _, err := orders.TransitionStatus(ctx, p.OrderID, order.ConfirmableStatuses, order.StatusFullyPaid)
//	    return err
//	})
func (m *TxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return getDB(ctx, m.db).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

// getDB returns the transaction in ctx, or db bound to ctx.
func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}
