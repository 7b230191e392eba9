package services

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"research_portal_api/apperr"
	"research_portal_api/authz"
	"research_portal_api/models"
)

type IssueLoanInput struct {
	ItemID   string          `json:"item_id"`
	Borrower models.Borrower `json:"borrower"`
	DueDate  time.Time       `json:"fecha_devolucion"`
}

type LoanService struct {
	store LoanStore
	log   *zap.Logger
	now   func() time.Time
}

func NewLoanService(store LoanStore, log *zap.Logger) *LoanService {
	return &LoanService{store: store, log: log, now: time.Now}
}

// Issue lends an item. Checks run in a fixed order and the first failure
// wins: item exists, item is loanable, item is not damaged, borrower
// fields, due date.
func (s *LoanService) Issue(ctx context.Context, p authz.Principal, in IssueLoanInput) (*models.Loan, error) {
	if err := authz.Can(p, authz.IssueLoan); err != nil {
		return nil, err
	}
	itemID := strings.TrimSpace(in.ItemID)
	if itemID == "" {
		return nil, apperr.Validation("item_id", "is required")
	}
	if _, err := uuid.Parse(itemID); err != nil {
		return nil, apperr.NotFound("item")
	}

	loan, err := s.store.IssueLoan(ctx, itemID, func(it *models.InventoryItem) (*models.Loan, error) {
		switch it.AdminStatus {
		case models.StatusLoaned:
			return nil, apperr.Conflict("item is already on loan")
		case models.StatusDoNotLoan:
			return nil, apperr.Conflict("item is marked as not loanable")
		}
		if it.PhysicalCondition == models.ConditionDamaged {
			return nil, apperr.Conflict("item is damaged")
		}
		borrower, err := cleanBorrower(in.Borrower)
		if err != nil {
			return nil, err
		}
		now := s.now().UTC()
		if !in.DueDate.After(now) {
			return nil, apperr.Validation("fecha_devolucion", "must be in the future")
		}

		l := &models.Loan{
			ID:       uuid.NewString(),
			ItemID:   it.ID,
			Borrower: borrower,
			LoanDate: now,
			DueDate:  in.DueDate.UTC(),
			Status:   models.LoanPending,
			Snapshot: models.SnapshotOf(it),
			IssuedBy: p.UID,
		}
		it.AdminStatus = models.StatusLoaned
		return l, nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("loan issued",
		zap.String("loan_id", loan.ID),
		zap.String("item_id", loan.ItemID),
		zap.String("serial", loan.Snapshot.Serial),
		zap.String("by", p.UID))
	return loan, nil
}

func cleanBorrower(b models.Borrower) (models.Borrower, error) {
	out := models.Borrower{
		Name:       strings.TrimSpace(b.Name),
		NationalID: strings.TrimSpace(b.NationalID),
		Phone:      strings.TrimSpace(b.Phone),
		Email:      strings.TrimSpace(b.Email),
		Address:    strings.TrimSpace(b.Address),
	}
	for _, f := range []struct{ name, value string }{
		{"nombre", out.Name},
		{"cedula", out.NationalID},
		{"telefono", out.Phone},
		{"correo", out.Email},
		{"direccion", out.Address},
	} {
		if f.value == "" {
			return models.Borrower{}, apperr.Validation("borrower."+f.name, "must not be empty")
		}
	}
	if addr, err := mail.ParseAddress(out.Email); err != nil || addr.Address != out.Email {
		return models.Borrower{}, apperr.Validation("borrower.correo", "is not a valid email address")
	}
	return out, nil
}

// Return closes a loan and makes the item available again. A second
// return of the same loan is a conflict.
func (s *LoanService) Return(ctx context.Context, p authz.Principal, loanID string) (*models.Loan, error) {
	if err := authz.Can(p, authz.ReturnLoan); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(loanID); err != nil {
		return nil, apperr.NotFound("loan")
	}
	loan, err := s.store.ReturnLoan(ctx, loanID, func(l *models.Loan, it *models.InventoryItem) error {
		if l.Status == models.LoanReturned {
			return apperr.Conflict("loan already returned")
		}
		now := s.now().UTC()
		uid := p.UID
		l.Status = models.LoanReturned
		l.ReturnDate = &now
		l.ReturnedBy = &uid
		it.AdminStatus = models.StatusAvailable
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("loan returned",
		zap.String("loan_id", loan.ID),
		zap.String("item_id", loan.ItemID),
		zap.String("by", p.UID))
	return loan, nil
}

func (s *LoanService) Get(ctx context.Context, p authz.Principal, id string) (*models.Loan, error) {
	if err := authz.Can(p, authz.ReadInventory); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.NotFound("loan")
	}
	return s.store.FindLoanByID(ctx, id)
}

// List refreshes overdue markers before reading.
func (s *LoanService) List(ctx context.Context, p authz.Principal, f models.LoanFilter) ([]models.Loan, error) {
	if err := authz.Can(p, authz.ReadInventory); err != nil {
		return nil, err
	}
	switch f.Status {
	case "", models.LoanPending, models.LoanReturned, models.LoanOverdue:
	default:
		return nil, apperr.Validation("status", "unknown loan status")
	}
	if f.ItemID != "" {
		if _, err := uuid.Parse(f.ItemID); err != nil {
			return nil, apperr.Validation("itemId", "is not a valid id")
		}
	}
	if _, err := s.RefreshOverdue(ctx); err != nil {
		s.log.Warn("mark overdue loans", zap.Error(err))
	}
	return s.store.ListLoans(ctx, f)
}

// RefreshOverdue flips open Pendiente loans past their due date to Vencido.
func (s *LoanService) RefreshOverdue(ctx context.Context) (int64, error) {
	n, err := s.store.MarkOverdue(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("loans marked overdue", zap.Int64("count", n))
	}
	return n, nil
}
