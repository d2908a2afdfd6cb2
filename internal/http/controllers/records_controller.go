package controllers

import (
	"net/http"

	"school_asset_server/internal/models"
	"school_asset_server/internal/services"

	"github.com/gin-gonic/gin"
)

// SoftwareController handles software titles
type SoftwareController struct {
	baseController
	software *services.SoftwareService
}

func NewSoftwareController(software *services.SoftwareService) *SoftwareController {
	return &SoftwareController{software: software}
}

func (sc *SoftwareController) GetSoftware(c *gin.Context) {
	sc.respondRead(c, sc.software.List(c.Request.Context()))
}

func (sc *SoftwareController) CreateSoftware(c *gin.Context) {
	var sw models.Software
	if err := c.ShouldBindJSON(&sw); err != nil {
		sc.badRequest(c, "Invalid software data", err)
		return
	}
	sc.respond(c, http.StatusCreated, sc.software.Create(c.Request.Context(), sw))
}

func (sc *SoftwareController) UpdateSoftware(c *gin.Context) {
	var sw models.Software
	if err := c.ShouldBindJSON(&sw); err != nil {
		sc.badRequest(c, "Invalid software data", err)
		return
	}
	sc.respond(c, http.StatusOK, sc.software.Update(c.Request.Context(), c.Param("id"), sw))
}

func (sc *SoftwareController) DeleteSoftware(c *gin.Context) {
	sc.respond(c, http.StatusOK, sc.software.Delete(c.Request.Context(), c.Param("id")))
}

// AccountController handles service accounts
type AccountController struct {
	baseController
	accounts *services.AccountService
}

func NewAccountController(accounts *services.AccountService) *AccountController {
	return &AccountController{accounts: accounts}
}

func (ac *AccountController) GetAccounts(c *gin.Context) {
	ac.respondRead(c, ac.accounts.List(c.Request.Context()))
}

func (ac *AccountController) CreateAccount(c *gin.Context) {
	var a models.Account
	if err := c.ShouldBindJSON(&a); err != nil {
		ac.badRequest(c, "Invalid account data", err)
		return
	}
	ac.respond(c, http.StatusCreated, ac.accounts.Create(c.Request.Context(), a))
}

func (ac *AccountController) UpdateAccount(c *gin.Context) {
	var a models.Account
	if err := c.ShouldBindJSON(&a); err != nil {
		ac.badRequest(c, "Invalid account data", err)
		return
	}
	ac.respond(c, http.StatusOK, ac.accounts.Update(c.Request.Context(), c.Param("id"), a))
}

func (ac *AccountController) DeleteAccount(c *gin.Context) {
	ac.respond(c, http.StatusOK, ac.accounts.Delete(c.Request.Context(), c.Param("id")))
}

// LoanController handles lending devices out and taking them back
type LoanController struct {
	baseController
	loans *services.LoanService
}

func NewLoanController(loans *services.LoanService) *LoanController {
	return &LoanController{loans: loans}
}

func (lc *LoanController) GetLoans(c *gin.Context) {
	lc.respondRead(c, lc.loans.List(c.Request.Context()))
}

func (lc *LoanController) CreateLoan(c *gin.Context) {
	var loan models.Loan
	if err := c.ShouldBindJSON(&loan); err != nil {
		lc.badRequest(c, "Invalid loan data", err)
		return
	}
	lc.respond(c, http.StatusCreated, lc.loans.Create(c.Request.Context(), loan))
}

func (lc *LoanController) ReturnLoan(c *gin.Context) {
	lc.respond(c, http.StatusOK, lc.loans.Return(c.Request.Context(), c.Param("id")))
}
