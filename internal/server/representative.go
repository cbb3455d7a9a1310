package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/parsbill/parsbill/internal/ledger/domain"
	representativedomain "github.com/parsbill/parsbill/internal/representative/domain"
	"github.com/parsbill/parsbill/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

type createRepresentativeRequest struct {
	Code               string                          `json:"code"`
	Name               string                          `json:"name"`
	Phone              string                          `json:"phone"`
	TelegramID         string                          `json:"telegram_id"`
	SourcingType       string                          `json:"sourcing_type"`
	CollaboratorID     string                          `json:"collaborator_id"`
	PriceTable         representativedomain.PriceTable `json:"price_table"`
	CommissionOverride *string                         `json:"commission_override"`
}

func (s *Server) CreateRepresentative(c *gin.Context) {
	var req createRepresentativeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	domainReq := representativedomain.CreateRequest{
		Code:           strings.TrimSpace(req.Code),
		Name:           strings.TrimSpace(req.Name),
		Phone:          strings.TrimSpace(req.Phone),
		TelegramID:     strings.TrimSpace(req.TelegramID),
		SourcingType:   strings.TrimSpace(req.SourcingType),
		CollaboratorID: strings.TrimSpace(req.CollaboratorID),
		PriceTable:     req.PriceTable,
	}
	if req.CommissionOverride != nil {
		override, err := decimal.NewFromString(strings.TrimSpace(*req.CommissionOverride))
		if err != nil {
			AbortWithError(c, newValidationError("commission_override", "invalid_commission_override", "invalid commission_override"))
			return
		}
		domainReq.CommissionOverride = &override
	}

	resp, err := s.representativeSvc.Create(c.Request.Context(), domainReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListRepresentatives(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status         string `form:"status"`
		SourcingType   string `form:"sourcing_type"`
		CollaboratorID string `form:"collaborator_id"`
		CreatedFrom    string `form:"created_from"`
		CreatedTo      string `form:"created_to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	createdFrom, err := parseOptionalTime(query.CreatedFrom, false)
	if err != nil {
		AbortWithError(c, newValidationError("created_from", "invalid_created_from", "invalid created_from"))
		return
	}
	createdTo, err := parseOptionalTime(query.CreatedTo, true)
	if err != nil {
		AbortWithError(c, newValidationError("created_to", "invalid_created_to", "invalid created_to"))
		return
	}

	resp, err := s.representativeSvc.List(c.Request.Context(), representativedomain.ListRequest{
		PageToken:      query.PageToken,
		PageSize:       query.PageSize,
		Status:         strings.TrimSpace(query.Status),
		SourcingType:   strings.TrimSpace(query.SourcingType),
		CollaboratorID: strings.TrimSpace(query.CollaboratorID),
		CreatedFrom:    createdFrom,
		CreatedTo:      createdTo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRepresentative(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	resp, err := s.representativeSvc.GetByCode(c.Request.Context(), code)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateRepresentativePrices(c *gin.Context) {
	var req representativedomain.PriceTable
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	rep, err := s.representativeSvc.GetByCode(c.Request.Context(), strings.TrimSpace(c.Param("code")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.representativeSvc.UpdatePriceTable(c.Request.Context(), rep.ID.String(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateRepresentativeStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	rep, err := s.representativeSvc.GetByCode(c.Request.Context(), strings.TrimSpace(c.Param("code")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.representativeSvc.UpdateStatus(c.Request.Context(), rep.ID.String(), strings.TrimSpace(req.Status))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRepresentativeLedger(c *gin.Context) {
	rep, err := s.representativeSvc.GetByCode(c.Request.Context(), strings.TrimSpace(c.Param("code")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	entries, err := s.ledgerSvc.Entries(c.Request.Context(), rep.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (s *Server) GetRepresentativeBalance(c *gin.Context) {
	rep, err := s.representativeSvc.GetByCode(c.Request.Context(), strings.TrimSpace(c.Param("code")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	balance, err := s.ledgerSvc.CurrentBalance(c.Request.Context(), rep.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"representative_id": rep.ID.String(),
		"balance":           balance,
	}})
}

func (s *Server) ReconcileRepresentative(c *gin.Context) {
	rep, err := s.representativeSvc.GetByCode(c.Request.Context(), strings.TrimSpace(c.Param("code")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var result ledgerdomain.ReconcileResult
	if result, err = s.ledgerSvc.Reconcile(c.Request.Context(), rep.ID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
