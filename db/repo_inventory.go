// db/repo_inventory.go
package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"research_portal_api/models"
)

// CreateItems inserts items in one transaction, assigning ids and serials.
// Serials come from a database sequence, so concurrent intakes never share
// one.
func (r *Repo) CreateItems(ctx context.Context, items []*models.InventoryItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, it := range items {
			var n int64
			if err := tx.Raw(fmt.Sprintf("SELECT nextval('%s')", models.ItemSerialSequence)).
				Scan(&n).Error; err != nil {
				return fmt.Errorf("next serial: %w", err)
			}
			it.ID = uuid.NewString()
			it.Serial = models.FormatSerial(n)
		}
		return tx.Create(items).Error
	})
}

func (r *Repo) FindItemByID(ctx context.Context, id string) (*models.InventoryItem, error) {
	var it models.InventoryItem
	if err := r.DB.WithContext(ctx).First(&it, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "item")
	}
	return &it, nil
}

func (r *Repo) ListItems(ctx context.Context, q models.ItemQuery) (models.ItemPage, error) {
	q.Normalize()

	qry := r.DB.WithContext(ctx).Model(&models.InventoryItem{})
	if s := strings.TrimSpace(q.Q); s != "" {
		pat := "%" + strings.ToLower(s) + "%"
		qry = qry.Where("LOWER(serial) LIKE ? OR LOWER(description) LIKE ?", pat, pat)
	}
	if q.Status != "" {
		qry = qry.Where("admin_status = ?", q.Status)
	}

	var total int64
	if err := qry.Count(&total).Error; err != nil {
		return models.ItemPage{}, err
	}
	var items []models.InventoryItem
	if err := qry.Order("serial ASC").
		Offset((q.Page - 1) * q.Size).
		Limit(q.Size).
		Find(&items).Error; err != nil {
		return models.ItemPage{}, err
	}
	return models.ItemPage{Total: total, Items: items}, nil
}

// UpdateItem locks the row, lets fn edit it and saves the result.
func (r *Repo) UpdateItem(ctx context.Context, id string, fn func(it *models.InventoryItem) error) (*models.InventoryItem, error) {
	var it models.InventoryItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&it, "id = ?", id).Error; err != nil {
			return notFound(err, "item")
		}
		if err := fn(&it); err != nil {
			return err
		}
		return tx.Save(&it).Error
	})
	if err != nil {
		return nil, err
	}
	return &it, nil
}
