package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"research_portal_api/apperr"
	"research_portal_api/authz"
	"research_portal_api/models"
)

type Repo struct{ DB *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{DB: db} }

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(what)
	}
	return err
}

// Users

// TouchUserSeen upserts the caller's mirror row and stamps last_seen_at.
func (r *Repo) TouchUserSeen(ctx context.Context, p authz.Principal) error {
	now := time.Now().UTC()
	u := models.User{
		UID:         p.UID,
		Email:       p.Email,
		DisplayName: p.Name,
		Role:        string(p.Role),
		LastSeenAt:  &now,
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uid"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "display_name", "role", "last_seen_at", "updated_at"}),
	}).Create(&u).Error
}

func (r *Repo) FindUserByID(ctx context.Context, uid string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).First(&u, "uid = ?", uid).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

// 列表（分页 + 关键词，关键词匹配邮箱/显示名）
func (r *Repo) ListUsers(ctx context.Context, q string, page, size int) (models.UserPage, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}

	tx := r.DB.WithContext(ctx).Model(&models.User{})
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		tx = tx.Where("LOWER(email) LIKE ? OR LOWER(display_name) LIKE ?", like, like)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return models.UserPage{}, err
	}

	var users []models.User
	if err := tx.
		Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&users).Error; err != nil {
		return models.UserPage{}, err
	}
	return models.UserPage{Users: users, Total: total}, nil
}

func (r *Repo) DeleteUserByID(ctx context.Context, uid string) error {
	res := r.DB.WithContext(ctx).Delete(&models.User{}, "uid = ?", uid)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user")
	}
	return nil
}
