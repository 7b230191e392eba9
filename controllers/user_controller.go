package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"research_portal_api/app"
	"research_portal_api/apperr"
	"research_portal_api/authz"
)

type UserController struct{ *Srv }

func NewUserController(s *Srv) *UserController { return &UserController{Srv: s} }

// GET /api/users/me  令牌里的身份 + 本地镜像（首次请求前可能还没有）
func (uc *UserController) Me(c *gin.Context) {
	p := app.PrincipalFrom(c)
	if p.UID == "" {
		respondError(c, uc.Log, apperr.Unauthenticated("authentication required"))
		return
	}
	body := app.H{"principal": p}
	if u, err := uc.Users.FindUserByID(c.Request.Context(), p.UID); err == nil {
		body["user"] = u
	} else if apperr.KindOf(err) != apperr.KindNotFound {
		uc.Log.Warn("load user mirror", zap.String("uid", p.UID), zap.Error(err))
	}
	c.JSON(http.StatusOK, body)
}

// GET /api/users?q=alice&page=1&size=20
func (uc *UserController) ListUsers(c *gin.Context) {
	if err := authz.Can(app.PrincipalFrom(c), authz.ManageUsers); err != nil {
		respondError(c, uc.Log, err)
		return
	}
	res, err := uc.Users.ListUsers(c.Request.Context(), c.Query("q"), queryInt(c, "page", 1), queryInt(c, "size", 20))
	if err != nil {
		respondError(c, uc.Log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"total": res.Total,
		"users": res.Users,
	})
}

// GET /api/users/:uid
func (uc *UserController) GetUser(c *gin.Context) {
	if err := authz.Can(app.PrincipalFrom(c), authz.ManageUsers); err != nil {
		respondError(c, uc.Log, err)
		return
	}
	user, err := uc.Users.FindUserByID(c.Request.Context(), c.Param("uid"))
	if err != nil {
		respondError(c, uc.Log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"user": user})
}

// DELETE /api/users/:uid
func (uc *UserController) DeleteUser(c *gin.Context) {
	p := app.PrincipalFrom(c)
	if err := authz.Can(p, authz.ManageUsers); err != nil {
		respondError(c, uc.Log, err)
		return
	}
	uid := c.Param("uid")
	// 不允许删除自己，避免锁死
	if uid == p.UID {
		respondError(c, uc.Log, apperr.Validation("uid", "cannot delete yourself"))
		return
	}
	if err := uc.Users.DeleteUserByID(c.Request.Context(), uid); err != nil {
		respondError(c, uc.Log, err)
		return
	}
	// 撤销该用户已缓存的令牌
	if err := uc.Tokens.RevokeAllForUser(c.Request.Context(), uid); err != nil {
		uc.Log.Warn("revoke cached tokens", zap.String("uid", uid), zap.Error(err))
	}
	uc.Log.Info("user deleted", zap.String("uid", uid), zap.String("by", p.UID))
	c.JSON(http.StatusOK, app.H{"ok": true})
}
