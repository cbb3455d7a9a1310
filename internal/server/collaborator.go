package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	collaboratordomain "github.com/parsbill/parsbill/internal/collaborator/domain"
	"github.com/shopspring/decimal"
)

type createCollaboratorRequest struct {
	Code              string `json:"code"`
	Name              string `json:"name"`
	Phone             string `json:"phone"`
	TelegramID        string `json:"telegram_id"`
	CommissionPercent string `json:"commission_percent"`
}

func (s *Server) CreateCollaborator(c *gin.Context) {
	var req createCollaboratorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	percent := decimal.Zero
	if raw := strings.TrimSpace(req.CommissionPercent); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("commission_percent", "invalid_commission_percent", "invalid commission_percent"))
			return
		}
		percent = parsed
	}

	resp, err := s.collaboratorSvc.Create(c.Request.Context(), collaboratordomain.CreateRequest{
		Code:              strings.TrimSpace(req.Code),
		Name:              strings.TrimSpace(req.Name),
		Phone:             strings.TrimSpace(req.Phone),
		TelegramID:        strings.TrimSpace(req.TelegramID),
		CommissionPercent: percent,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCollaborators(c *gin.Context) {
	resp, err := s.collaboratorSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCollaborator(c *gin.Context) {
	resp, err := s.collaboratorSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type recordPayoutRequest struct {
	Amount int64  `json:"amount"`
	Note   string `json:"note"`
}

func (s *Server) RecordPayout(c *gin.Context) {
	var req recordPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.collaboratorSvc.RecordPayout(c.Request.Context(), collaboratordomain.RecordPayoutRequest{
		CollaboratorID: strings.TrimSpace(c.Param("id")),
		Amount:         req.Amount,
		Note:           strings.TrimSpace(req.Note),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPayouts(c *gin.Context) {
	resp, err := s.collaboratorSvc.ListPayouts(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCommissions(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid collaborator id"))
		return
	}

	resp, err := s.commissionSvc.ListByCollaborator(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
