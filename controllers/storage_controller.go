package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"research_portal_api/app"
	"research_portal_api/apperr"
	"research_portal_api/authz"
	"research_portal_api/storage"
)

type StorageController struct{ *Srv }

func NewStorageController(s *Srv) *StorageController { return &StorageController{Srv: s} }

type presignRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
	Folder      string `json:"folder"`
}

// POST /api/storage/presign
// The returned path is what clients send back as image_path / file_path.
func (sc *StorageController) Presign(c *gin.Context) {
	if err := authz.Can(app.PrincipalFrom(c), authz.PresignUpload); err != nil {
		respondError(c, sc.Log, err)
		return
	}
	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, sc.Log, badBody(err))
		return
	}
	if strings.TrimSpace(req.Filename) == "" {
		respondError(c, sc.Log, apperr.Validation("filename", "is required"))
		return
	}
	key := storage.NewObjectKey(req.Folder, req.Filename)
	url, err := sc.Objects.PresignPut(c.Request.Context(), key, req.ContentType, sc.PresignTTL)
	if err != nil {
		respondError(c, sc.Log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"uploadUrl": url,
		"path":      key,
		"publicUrl": sc.Objects.PublicURL(key),
		"expiresIn": int(sc.PresignTTL.Seconds()),
	})
}

// GET /api/storage/objects?prefix=
func (sc *StorageController) ListObjects(c *gin.Context) {
	if err := authz.Can(app.PrincipalFrom(c), authz.ListObjects); err != nil {
		respondError(c, sc.Log, err)
		return
	}
	keys, err := sc.Objects.List(c.Request.Context(), c.Query("prefix"))
	if err != nil {
		respondError(c, sc.Log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"keys": keys})
}
