package orderhttp

import (
	"errors"

	"github.com/gin-gonic/gin"

	orderhttpmapper "github.com/Apurer/storefront-orders/internal/domains/orders/adapters/http/mapper"
	ordersapp "github.com/Apurer/storefront-orders/internal/domains/orders/application"
	"github.com/Apurer/storefront-orders/internal/domains/orders/domain"
	"github.com/Apurer/storefront-orders/internal/domains/orders/ports"
	apierrors "github.com/Apurer/storefront-orders/internal/shared/errors"
)

// Problem types specific to the order lifecycle.
const (
	TypeInvalidTransition  = "/problems/orders/invalid-transition"
	TypeRefundNotEligible  = "/problems/orders/refund-not-eligible"
	TypeInvalidRefund      = "/problems/orders/invalid-refund-amount"
	TypeUnknownStatus      = "/problems/orders/unknown-status"
	TypeIdempotencyReplay  = "/problems/orders/idempotency-conflict"
	TypeConcurrentMutation = "/problems/orders/concurrent-modification"
)

// MapError converts order errors into problem documents. It reports false for errors it
// does not recognise so the chained responder can fall back to a 500.
func MapError(err error) (apierrors.ProblemDetail, bool) {
	var transition *domain.InvalidTransitionError
	var unknown *domain.UnknownStatusError
	var field *orderhttpmapper.FieldError
	switch {
	case errors.As(err, &transition):
		return apierrors.ErrUnprocessable.
			WithDetail(err.Error()).
			WithExtension("from", transition.From).
			WithExtension("to", transition.To).
			WithType(TypeInvalidTransition), true
	case errors.As(err, &unknown):
		return apierrors.ErrValidation.
			WithDetail(err.Error()).
			WithExtension("kind", unknown.Kind).
			WithExtension("value", unknown.Value).
			WithType(TypeUnknownStatus), true
	case errors.As(err, &field):
		return apierrors.NewValidationProblem(map[string]string{field.Field: field.Err.Error()}).
			WithDetail(err.Error()), true
	case errors.Is(err, domain.ErrRefundNotEligible):
		return apierrors.ErrUnprocessable.WithDetail(err.Error()).WithType(TypeRefundNotEligible), true
	case errors.Is(err, domain.ErrRefundInvalidAmount):
		return apierrors.ErrUnprocessable.WithDetail(err.Error()).WithType(TypeInvalidRefund), true
	case errors.Is(err, ordersapp.ErrInvalidInput):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	case errors.Is(err, ports.ErrNotFound), errors.Is(err, ports.ErrBulkOperationNotFound):
		return apierrors.ErrNotFound.WithDetail(err.Error()), true
	case errors.Is(err, ports.ErrIdempotencyConflict):
		return apierrors.ErrConflict.WithDetail(err.Error()).WithType(TypeIdempotencyReplay), true
	case errors.Is(err, ports.ErrConflict), errors.Is(err, ports.ErrLockNotAcquired):
		return apierrors.ErrConflict.WithDetail(err.Error()).WithType(TypeConcurrentMutation), true
	case errors.Is(err, ports.ErrDuplicate):
		return apierrors.ErrConflict.WithDetail(err.Error()), true
	default:
		return apierrors.ProblemDetail{}, false
	}
}

var responder = apierrors.NewChainedResponder("", MapError)

func respondError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	responder.RespondError(c, err)
}

func respondBadRequest(c *gin.Context, err error) {
	responder.BadRequest(c, err.Error())
}

func respondUnauthorized(c *gin.Context, detail string) {
	responder.Respond(c, apierrors.ErrUnauthorized.WithDetail(detail))
}
