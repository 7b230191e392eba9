package controllers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"research_portal_api/app"
	"research_portal_api/models"
	"research_portal_api/services"
)

// PublicationController serves one publication type. The request body is
// decoded twice: once into the record, once for image_path / file_path.
type PublicationController[T any, P interface {
	*T
	models.Record
}] struct {
	svc *services.PublicationService[T, P]
	log *zap.Logger
}

func NewPublicationController[T any, P interface {
	*T
	models.Record
}](svc *services.PublicationService[T, P], log *zap.Logger) *PublicationController[T, P] {
	return &PublicationController[T, P]{svc: svc, log: log}
}

// MountPublication registers the CRUD routes of one type on g.
func MountPublication[T any, P interface {
	*T
	models.Record
}](g *gin.RouterGroup, svc *services.PublicationService[T, P], log *zap.Logger) {
	pc := NewPublicationController(svc, log)
	g.POST("", pc.Create)
	g.GET("", pc.ListAll)
	g.GET("/mine", pc.ListMine)
	g.GET("/:id", pc.Get)
	g.PATCH("/:id", pc.Update)
	g.PUT("/:id", pc.Update)
	g.DELETE("/:id", pc.Delete)
	g.DELETE("/:id/image", pc.DeleteImage)
	g.DELETE("/:id/file", pc.DeleteFile)
}

func readAttachments(body []byte) (services.Attachments, error) {
	var att services.Attachments
	if len(body) == 0 {
		return att, nil
	}
	if err := json.Unmarshal(body, &att); err != nil {
		return att, badBody(err)
	}
	return att, nil
}

func (pc *PublicationController[T, P]) Create(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, pc.log, badBody(err))
		return
	}
	rec := new(T)
	if err := json.Unmarshal(body, rec); err != nil {
		respondError(c, pc.log, badBody(err))
		return
	}
	att, err := readAttachments(body)
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	out, err := pc.svc.Create(c.Request.Context(), app.PrincipalFrom(c), rec, att)
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (pc *PublicationController[T, P]) ListAll(c *gin.Context) {
	rows, err := pc.svc.ListAll(c.Request.Context(), app.PrincipalFrom(c))
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": rows})
}

func (pc *PublicationController[T, P]) ListMine(c *gin.Context) {
	rows, err := pc.svc.ListMine(c.Request.Context(), app.PrincipalFrom(c))
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": rows})
}

func (pc *PublicationController[T, P]) Get(c *gin.Context) {
	id, err := uintParam(c, "id", "publication")
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	rec, err := pc.svc.Get(c.Request.Context(), app.PrincipalFrom(c), id)
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// PATCH: only the keys present in the body change.
func (pc *PublicationController[T, P]) Update(c *gin.Context) {
	id, err := uintParam(c, "id", "publication")
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, pc.log, badBody(err))
		return
	}
	if len(body) > 0 && !json.Valid(body) {
		respondError(c, pc.log, badBody(nil))
		return
	}
	att, err := readAttachments(body)
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	apply := func(rec *T) error {
		if len(body) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, rec); err != nil {
			return badBody(err)
		}
		return nil
	}
	rec, err := pc.svc.Update(c.Request.Context(), app.PrincipalFrom(c), id, apply, att)
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (pc *PublicationController[T, P]) Delete(c *gin.Context) {
	id, err := uintParam(c, "id", "publication")
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	if err := pc.svc.Delete(c.Request.Context(), app.PrincipalFrom(c), id); err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func (pc *PublicationController[T, P]) DeleteImage(c *gin.Context) {
	id, err := uintParam(c, "id", "publication")
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	rec, err := pc.svc.DetachImage(c.Request.Context(), app.PrincipalFrom(c), id)
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (pc *PublicationController[T, P]) DeleteFile(c *gin.Context) {
	id, err := uintParam(c, "id", "publication")
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	rec, err := pc.svc.DetachFile(c.Request.Context(), app.PrincipalFrom(c), id)
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
