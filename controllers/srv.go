// controllers/srv.go
package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"research_portal_api/app"
	"research_portal_api/apperr"
	"research_portal_api/db"
	"research_portal_api/models"
	"research_portal_api/services"
	"research_portal_api/storage"
)

// UserDirectory is the users table as the admin screens see it.
type UserDirectory interface {
	FindUserByID(ctx context.Context, uid string) (*models.User, error)
	ListUsers(ctx context.Context, q string, page, size int) (models.UserPage, error)
	DeleteUserByID(ctx context.Context, uid string) error
}

type TokenRevoker interface {
	RevokeAllForUser(ctx context.Context, uid string) error
}

type Srv struct {
	Users      UserDirectory
	Tokens     TokenRevoker
	Items      *services.ItemService
	Loans      *services.LoanService
	Objects    storage.ObjectStore
	Log        *zap.Logger
	PresignTTL time.Duration
}

func GetSrv(a *app.App) *Srv {
	repo := db.NewRepo(a.DB)
	return &Srv{
		Users:      repo,
		Tokens:     a.Tokens,
		Items:      services.NewItemService(repo, a.Objects, a.Log),
		Loans:      services.NewLoanService(repo, a.Log),
		Objects:    a.Objects,
		Log:        a.Log,
		PresignTTL: a.Config.PresignTTL,
	}
}

// --- helpers ---

// respondError writes err with the status its Kind maps to. Unexpected
// errors are logged with the route.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := app.StatusOf(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, app.ErrorBody(err))
}

func badBody(err error) error {
	return &apperr.Error{Kind: apperr.KindValidation, Field: "body", Message: "malformed request body", Err: err}
}

func queryInt(c *gin.Context, key string, def int) int {
	if n, err := strconv.Atoi(c.Query(key)); err == nil {
		return n
	}
	return def
}

// uintParam parses a numeric path id; anything else cannot name a row.
func uintParam(c *gin.Context, name, what string) (uint, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, apperr.NotFound(what)
	}
	return uint(n), nil
}
