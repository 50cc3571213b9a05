package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// FindForUpdate loads the (seller, month) row under a row lock when the
	// dialect supports one.
	FindForUpdate(ctx context.Context, tx *gorm.DB, sellerID, yearMonth string) (*SellerMonthlyTierState, error)
	Find(ctx context.Context, db *gorm.DB, sellerID, yearMonth string) (*SellerMonthlyTierState, error)
	// Insert writes the row if absent. Returns false when another resolution
	// created it first.
	Insert(ctx context.Context, tx *gorm.DB, state *SellerMonthlyTierState) (bool, error)
	Update(ctx context.Context, tx *gorm.DB, state *SellerMonthlyTierState) error

	// CountTransactions counts the seller's settled processor transactions
	// in [from, to), read from the payment ledger.
	CountTransactions(ctx context.Context, db *gorm.DB, sellerID string, from, to time.Time) (int64, error)
}
