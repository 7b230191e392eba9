// controllers/item_controller.go
package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"research_portal_api/app"
	"research_portal_api/models"
	"research_portal_api/services"
)

type ItemController struct{ *Srv }

func NewItemController(s *Srv) *ItemController { return &ItemController{Srv: s} }

// POST /api/items  单个模板（可带 cantidad / imagenes）或数组
func (ic *ItemController) Provision(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, ic.Log, badBody(err))
		return
	}
	items, err := ic.Items.Provision(c.Request.Context(), app.PrincipalFrom(c), body)
	if err != nil {
		respondError(c, ic.Log, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"count": len(items), "items": items})
}

// GET /api/items?q=&status=&page=&size=
func (ic *ItemController) ListItems(c *gin.Context) {
	q := models.ItemQuery{
		Q:      c.Query("q"),
		Status: models.AdminStatus(c.Query("status")),
		Page:   queryInt(c, "page", 1),
		Size:   queryInt(c, "size", 20),
	}
	page, err := ic.Items.List(c.Request.Context(), app.PrincipalFrom(c), q)
	if err != nil {
		respondError(c, ic.Log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (ic *ItemController) GetItem(c *gin.Context) {
	it, err := ic.Items.Get(c.Request.Context(), app.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, ic.Log, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

// PATCH /api/items/:id
func (ic *ItemController) UpdateItem(c *gin.Context) {
	var patch services.ItemPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondError(c, ic.Log, badBody(err))
		return
	}
	it, err := ic.Items.Update(c.Request.Context(), app.PrincipalFrom(c), c.Param("id"), patch)
	if err != nil {
		respondError(c, ic.Log, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

// DELETE /api/items/:id/image
func (ic *ItemController) DeleteImage(c *gin.Context) {
	it, err := ic.Items.DetachImage(c.Request.Context(), app.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, ic.Log, err)
		return
	}
	c.JSON(http.StatusOK, it)
}
