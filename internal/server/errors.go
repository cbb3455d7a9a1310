package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	batchdomain "github.com/parsbill/parsbill/internal/batch/domain"
	collaboratordomain "github.com/parsbill/parsbill/internal/collaborator/domain"
	commissiondomain "github.com/parsbill/parsbill/internal/commission/domain"
	invoicedomain "github.com/parsbill/parsbill/internal/invoice/domain"
	ledgerdomain "github.com/parsbill/parsbill/internal/ledger/domain"
	pricingdomain "github.com/parsbill/parsbill/internal/pricing/domain"
	representativedomain "github.com/parsbill/parsbill/internal/representative/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   "request",
					Code:    err.Error(),
					Message: err.Error(),
				},
			},
		}
	}

	if isNotFoundError(err) {
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}
	}

	if isConflictError(err) {
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	}

	if isUnprocessableError(err) {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "unprocessable",
			Message: err.Error(),
		}
	}

	return http.StatusInternalServerError, errorPayload{
		Type:    "internal_error",
		Message: "internal server error",
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, representativedomain.ErrInvalidCode),
		errors.Is(err, representativedomain.ErrInvalidName),
		errors.Is(err, representativedomain.ErrInvalidSourcing),
		errors.Is(err, representativedomain.ErrInvalidCollaborator),
		errors.Is(err, representativedomain.ErrInvalidStatus),
		errors.Is(err, representativedomain.ErrInvalidPriceTable),
		errors.Is(err, representativedomain.ErrInvalidOverride),
		errors.Is(err, representativedomain.ErrInvalidID),
		errors.Is(err, collaboratordomain.ErrInvalidCode),
		errors.Is(err, collaboratordomain.ErrInvalidName),
		errors.Is(err, collaboratordomain.ErrInvalidPercent),
		errors.Is(err, collaboratordomain.ErrInvalidID),
		errors.Is(err, collaboratordomain.ErrInvalidAmount),
		errors.Is(err, invoicedomain.ErrInvalidInvoiceNo),
		errors.Is(err, invoicedomain.ErrInvalidItems),
		errors.Is(err, invoicedomain.ErrInvalidAmount),
		errors.Is(err, invoicedomain.ErrInvalidDates),
		errors.Is(err, ledgerdomain.ErrInvalidRepresentative),
		errors.Is(err, ledgerdomain.ErrInvalidEntryType),
		errors.Is(err, ledgerdomain.ErrInvalidAmount),
		errors.Is(err, ledgerdomain.ErrInvalidSource),
		errors.Is(err, pricingdomain.ErrInvalidServiceClass),
		errors.Is(err, pricingdomain.ErrInvalidDuration),
		errors.Is(err, commissiondomain.ErrInvalidBaseAmount),
		errors.Is(err, batchdomain.ErrEmptyBatch),
		errors.Is(err, batchdomain.ErrInvalidSheet),
		errors.Is(err, batchdomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, representativedomain.ErrNotFound),
		errors.Is(err, collaboratordomain.ErrNotFound),
		errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, invoicedomain.ErrRepresentativeMissing),
		errors.Is(err, batchdomain.ErrBatchNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, representativedomain.ErrDuplicateCode),
		errors.Is(err, collaboratordomain.ErrDuplicateCode),
		errors.Is(err, invoicedomain.ErrDuplicateInvoice),
		errors.Is(err, ledgerdomain.ErrLedgerConflict):
		return true
	default:
		return false
	}
}

func isUnprocessableError(err error) bool {
	switch {
	case errors.Is(err, collaboratordomain.ErrInsufficientPayoutBalance),
		errors.Is(err, commissiondomain.ErrCommissionSettled),
		errors.Is(err, invoicedomain.ErrCannotCancelPaid),
		errors.Is(err, invoicedomain.ErrAlreadyCancelled),
		errors.Is(err, pricingdomain.ErrPricingUnresolved):
		return true
	default:
		return false
	}
}
