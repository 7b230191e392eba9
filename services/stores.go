// Package services holds the rules of the portal: the loan lifecycle,
// inventory intake and the owner-gated publication workflow. Persistence
// and object storage are reached through the interfaces below.
package services

import (
	"context"
	"time"

	"research_portal_api/models"
)

type ItemStore interface {
	// CreateItems persists all items or none, assigning ID and Serial.
	CreateItems(ctx context.Context, items []*models.InventoryItem) error
	FindItemByID(ctx context.Context, id string) (*models.InventoryItem, error)
	ListItems(ctx context.Context, q models.ItemQuery) (models.ItemPage, error)
	UpdateItem(ctx context.Context, id string, fn func(it *models.InventoryItem) error) (*models.InventoryItem, error)
}

// LoanStore runs issue and return as single units of work with the item
// held exclusively for the duration of the callback.
type LoanStore interface {
	IssueLoan(ctx context.Context, itemID string, build func(it *models.InventoryItem) (*models.Loan, error)) (*models.Loan, error)
	ReturnLoan(ctx context.Context, loanID string, apply func(l *models.Loan, it *models.InventoryItem) error) (*models.Loan, error)
	FindLoanByID(ctx context.Context, id string) (*models.Loan, error)
	ListLoans(ctx context.Context, f models.LoanFilter) ([]models.Loan, error)
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

type PublicationStore[T any] interface {
	Create(ctx context.Context, rec *T) error
	FindByID(ctx context.Context, id uint) (*T, error)
	List(ctx context.Context, ownerUID string) ([]T, error)
	Save(ctx context.Context, rec *T) error
	Delete(ctx context.Context, rec *T) error
}
