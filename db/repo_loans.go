package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"research_portal_api/apperr"
	"research_portal_api/models"
)

// IssueLoan 借出：原子操作 = 锁住 item → build 校验并生成 loan → 新建 loan → 写回 item 状态.
// build sees the locked item and may change its AdminStatus; returning an
// error rolls everything back.
func (r *Repo) IssueLoan(ctx context.Context, itemID string, build func(it *models.InventoryItem) (*models.Loan, error)) (*models.Loan, error) {
	var loan *models.Loan
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var it models.InventoryItem
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&it, "id = ?", itemID).Error; err != nil {
			return notFound(err, "item")
		}
		l, err := build(&it)
		if err != nil {
			return err
		}
		if err := tx.Create(l).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("item already has an open loan")
			}
			return err
		}
		if err := tx.Model(&models.InventoryItem{}).
			Where("id = ?", it.ID).
			Update("admin_status", it.AdminStatus).Error; err != nil {
			return err
		}
		loan = l
		return nil
	})
	return loan, err
}

// ReturnLoan 归还：锁住 loan 与 item，apply 修改二者后一并保存.
func (r *Repo) ReturnLoan(ctx context.Context, loanID string, apply func(l *models.Loan, it *models.InventoryItem) error) (*models.Loan, error) {
	var l models.Loan
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&l, "id = ?", loanID).Error; err != nil {
			return notFound(err, "loan")
		}
		var it models.InventoryItem
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&it, "id = ?", l.ItemID).Error; err != nil {
			return notFound(err, "item")
		}
		if err := apply(&l, &it); err != nil {
			return err
		}
		if err := tx.Model(&models.Loan{}).
			Where("id = ?", l.ID).
			Updates(map[string]any{
				"status":      l.Status,
				"return_date": l.ReturnDate,
				"returned_by": l.ReturnedBy,
			}).Error; err != nil {
			return err
		}
		return tx.Model(&models.InventoryItem{}).
			Where("id = ?", it.ID).
			Update("admin_status", it.AdminStatus).Error
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *Repo) FindLoanByID(ctx context.Context, id string) (*models.Loan, error) {
	var l models.Loan
	if err := r.DB.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "loan")
	}
	return &l, nil
}

func (r *Repo) ListLoans(ctx context.Context, f models.LoanFilter) ([]models.Loan, error) {
	q := r.DB.WithContext(ctx).Model(&models.Loan{}).Order("loan_date DESC")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ItemID != "" {
		q = q.Where("item_id = ?", f.ItemID)
	}
	if f.NationalID != "" {
		q = q.Where("borrower_national_id = ?", f.NationalID)
	}
	var ls []models.Loan
	if err := q.Find(&ls).Error; err != nil {
		return nil, err
	}
	return ls, nil
}

// MarkOverdue flips open Pendiente loans whose due date passed to Vencido.
func (r *Repo) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.Loan{}).
		Where("status = ? AND return_date IS NULL AND due_date < ?", models.LoanPending, now).
		Update("status", models.LoanOverdue)
	return res.RowsAffected, res.Error
}
