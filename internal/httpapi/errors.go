package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/matheusmosca/order-inventory-core/internal/domain"
)

// Error codes carried in every error body.
const (
	CodeNotFound          = "not_found"
	CodeInsufficientStock = "insufficient_stock"
	CodeIllegalTransition = "illegal_transition"
	CodeValidation        = "validation"
	CodePersistence       = "persistence"
	CodeCorruptState      = "corrupt_state"
	CodeInternal          = "internal"
)

// ErrorResponse is the JSON body of a failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Field     string `json:"field,omitempty"`
	ProductID int64  `json:"product_id,omitempty"`
	Requested int    `json:"requested,omitempty"`
	Available *int   `json:"available,omitempty"`
}

// statusFor maps an error onto its HTTP status and code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusConflict, CodeInsufficientStock
	case errors.Is(err, domain.ErrIllegalTransition):
		return http.StatusConflict, CodeIllegalTransition
	case errors.Is(err, domain.ErrPersistence):
		return http.StatusServiceUnavailable, CodePersistence
	case errors.Is(err, domain.ErrCorruptState):
		return http.StatusInternalServerError, CodeCorruptState
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func writeError(c *gin.Context, err error) {
	status, code := statusFor(err)
	body := ErrorResponse{Error: err.Error(), Code: code}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body.Field = verr.Field
	}
	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		body.ProductID = stockErr.ProductID
		body.Requested = stockErr.Requested
		available := stockErr.Available
		body.Available = &available
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

// writeBindError reports a malformed request body or query.
func writeBindError(c *gin.Context, err error) {
	body := ErrorResponse{Error: err.Error(), Code: CodeValidation}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		body.Field = verrs[0].Namespace()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, body)
}
