package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/parsbill/parsbill/internal/invoice/domain"
	"github.com/parsbill/parsbill/pkg/db/pagination"
)

type createInvoiceRequest struct {
	InvoiceNo          string                      `json:"invoice_no"`
	RepresentativeCode string                      `json:"representative_code"`
	IssueDate          string                      `json:"issue_date"`
	DueDate            string                      `json:"due_date"`
	DiscountAmount     int64                       `json:"discount_amount"`
	TaxAmount          int64                       `json:"tax_amount"`
	Items              []invoicedomain.ItemRequest `json:"items"`
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	issueDate, err := parseOptionalTime(req.IssueDate, false)
	if err != nil {
		AbortWithError(c, newValidationError("issue_date", "invalid_issue_date", "invalid issue_date"))
		return
	}
	dueDate, err := parseOptionalTime(req.DueDate, true)
	if err != nil {
		AbortWithError(c, newValidationError("due_date", "invalid_due_date", "invalid due_date"))
		return
	}

	domainReq := invoicedomain.CreateRequest{
		InvoiceNo:          strings.TrimSpace(req.InvoiceNo),
		RepresentativeCode: strings.TrimSpace(req.RepresentativeCode),
		DiscountAmount:     req.DiscountAmount,
		TaxAmount:          req.TaxAmount,
		Items:              req.Items,
	}
	if issueDate != nil {
		domainReq.IssueDate = *issueDate
	}
	if dueDate != nil {
		domainReq.DueDate = *dueDate
	}

	resp, err := s.invoiceSvc.Create(c.Request.Context(), domainReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		pagination.Pagination
		RepresentativeCode string `form:"representative_code"`
		Status             string `form:"status"`
		IssuedFrom         string `form:"issued_from"`
		IssuedTo           string `form:"issued_to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	issuedFrom, err := parseOptionalTime(query.IssuedFrom, false)
	if err != nil {
		AbortWithError(c, newValidationError("issued_from", "invalid_issued_from", "invalid issued_from"))
		return
	}
	issuedTo, err := parseOptionalTime(query.IssuedTo, true)
	if err != nil {
		AbortWithError(c, newValidationError("issued_to", "invalid_issued_to", "invalid issued_to"))
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListRequest{
		PageToken:          query.PageToken,
		PageSize:           query.PageSize,
		RepresentativeCode: strings.TrimSpace(query.RepresentativeCode),
		Status:             strings.TrimSpace(query.Status),
		IssuedFrom:         issuedFrom,
		IssuedTo:           issuedTo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoice(c *gin.Context) {
	resp, err := s.invoiceSvc.GetByNo(c.Request.Context(), strings.TrimSpace(c.Param("invoice_no")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type recordPaymentRequest struct {
	Amount    int64  `json:"amount"`
	Method    string `json:"method"`
	Reference string `json:"reference"`
	Note      string `json:"note"`
	PaidAt    string `json:"paid_at"`
}

func (s *Server) RecordPayment(c *gin.Context) {
	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	paidAt, err := parseOptionalTime(req.PaidAt, false)
	if err != nil {
		AbortWithError(c, newValidationError("paid_at", "invalid_paid_at", "invalid paid_at"))
		return
	}

	domainReq := invoicedomain.RecordPaymentRequest{
		InvoiceNo: strings.TrimSpace(c.Param("invoice_no")),
		Amount:    req.Amount,
		Method:    strings.TrimSpace(req.Method),
		Reference: strings.TrimSpace(req.Reference),
		Note:      strings.TrimSpace(req.Note),
	}
	if paidAt != nil {
		domainReq.PaidAt = *paidAt
	}

	resp, err := s.invoiceSvc.RecordPayment(c.Request.Context(), domainReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelInvoice(c *gin.Context) {
	resp, err := s.invoiceSvc.Cancel(c.Request.Context(), strings.TrimSpace(c.Param("invoice_no")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
