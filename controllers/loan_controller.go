// controllers/loan_controller.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"research_portal_api/app"
	"research_portal_api/models"
	"research_portal_api/services"
)

type LoanController struct{ *Srv }

func NewLoanController(s *Srv) *LoanController { return &LoanController{Srv: s} }

// POST /api/loans
func (lc *LoanController) Issue(c *gin.Context) {
	var in services.IssueLoanInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, lc.Log, badBody(err))
		return
	}
	loan, err := lc.Loans.Issue(c.Request.Context(), app.PrincipalFrom(c), in)
	if err != nil {
		respondError(c, lc.Log, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

// POST /api/loans/:id/return
func (lc *LoanController) Return(c *gin.Context) {
	loan, err := lc.Loans.Return(c.Request.Context(), app.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, lc.Log, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

func (lc *LoanController) GetLoan(c *gin.Context) {
	loan, err := lc.Loans.Get(c.Request.Context(), app.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, lc.Log, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

// GET /api/loans?status=&itemId=&cedula=
func (lc *LoanController) ListLoans(c *gin.Context) {
	f := models.LoanFilter{
		Status:     models.LoanStatus(c.Query("status")),
		ItemID:     c.Query("itemId"),
		NationalID: c.Query("cedula"),
	}
	ls, err := lc.Loans.List(c.Request.Context(), app.PrincipalFrom(c), f)
	if err != nil {
		respondError(c, lc.Log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": ls})
}
