package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ImportInvoices accepts a multipart xlsx upload and runs the import
// synchronously, returning the per-row report.
func (s *Server) ImportInvoices(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		AbortWithError(c, newValidationError("file", "missing_file", "missing xlsx file"))
		return
	}
	defer file.Close()

	rows, err := s.batchSvc.ReadInvoiceRows(file)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	report, err := s.batchSvc.ProcessInvoices(c.Request.Context(), header.Filename, rows)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (s *Server) ImportRepresentatives(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		AbortWithError(c, newValidationError("file", "missing_file", "missing xlsx file"))
		return
	}
	defer file.Close()

	rows, err := s.batchSvc.ReadRepresentativeRows(file)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	report, err := s.batchSvc.ProcessRepresentatives(c.Request.Context(), header.Filename, rows)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (s *Server) ListBatches(c *gin.Context) {
	resp, err := s.batchSvc.ListBatches(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetBatch(c *gin.Context) {
	resp, err := s.batchSvc.GetBatch(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
