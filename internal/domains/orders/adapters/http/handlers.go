// Package orderhttp exposes the order lifecycle over HTTP with gin.
package orderhttp

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"

	orderhttpmapper "github.com/Apurer/storefront-orders/internal/domains/orders/adapters/http/mapper"
	ordertypes "github.com/Apurer/storefront-orders/internal/domains/orders/application/types"
	"github.com/Apurer/storefront-orders/internal/domains/orders/domain"
	"github.com/Apurer/storefront-orders/internal/domains/orders/ports"
)

// OrdersAPI wires HTTP transport with the orders service and the bulk orchestrator.
type OrdersAPI struct {
	service ports.Service
	bulk    ports.BulkOrchestrator
	actors  *ActorResolver
}

// NewOrdersAPI creates an OrdersAPI. A nil bulk orchestrator runs bulk requests on service.
func NewOrdersAPI(service ports.Service, bulk ports.BulkOrchestrator, actors *ActorResolver) *OrdersAPI {
	if bulk == nil {
		bulk = service
	}
	if actors == nil {
		actors = NewActorResolver("")
	}
	return &OrdersAPI{service: service, bulk: bulk, actors: actors}
}

// Register mounts every order route on r.
func (api *OrdersAPI) Register(r gin.IRouter) {
	orders := r.Group("/orders", api.actors.Middleware())
	orders.POST("", api.CreateOrder)
	orders.GET("", api.ListOrders)
	orders.POST("/bulk/transitions", api.BulkTransition)
	orders.GET("/bulk/:operationId", api.GetBulkOperation)
	orders.GET("/:orderId", api.GetOrder)
	orders.GET("/:orderId/history", api.GetHistory)
	orders.GET("/:orderId/transitions", api.AllowedTransitions)
	orders.POST("/:orderId/transitions", api.TransitionOrder)
	orders.POST("/:orderId/payment-status", api.UpdatePaymentStatus)
	orders.PATCH("/:orderId/fulfillment", api.UpdateFulfillment)
	orders.POST("/:orderId/refunds", api.RequestRefund)
	orders.GET("/:orderId/refunds", api.ListRefunds)
	orders.POST("/:orderId/notes", api.AddNote)
	orders.GET("/:orderId/notes", api.ListNotes)
}

// Post /v1/orders
// Accepts an order from checkout
func (api *OrdersAPI) CreateOrder(c *gin.Context) {
	var payload orderhttpmapper.CreateOrder
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return
	}
	cmd, err := orderhttpmapper.ToCreateCommand(payload)
	if err != nil {
		respondError(c, err)
		return
	}
	order, err := api.service.CreateOrder(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, orderhttpmapper.FromDomainOrder(order))
}

// Get /v1/orders
// Lists orders filtered by status and priority
func (api *OrdersAPI) ListOrders(c *gin.Context) {
	query := c.Request.URL.Query()
	var statuses, priorities []string
	var limit int
	if err := runtime.BindQueryParameter("form", true, false, "status", query, &statuses); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "priority", query, &priorities); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", query, &limit); err != nil {
		respondBadRequest(c, err)
		return
	}
	filter := ports.ListFilter{Limit: limit}
	for _, raw := range statuses {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			respondError(c, err)
			return
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, raw := range priorities {
		priority, err := domain.ParsePriority(raw)
		if err != nil {
			respondError(c, err)
			return
		}
		filter.Priorities = append(filter.Priorities, priority)
	}
	orders, err := api.service.ListOrders(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderhttpmapper.FromDomainOrders(orders))
}

// Get /v1/orders/:orderId
func (api *OrdersAPI) GetOrder(c *gin.Context) {
	id, ok := pathParam(c, "orderId")
	if !ok {
		return
	}
	order, err := api.service.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderhttpmapper.FromDomainOrder(order))
}

// Get /v1/orders/:orderId/history
func (api *OrdersAPI) GetHistory(c *gin.Context) {
	id, ok := pathParam(c, "orderId")
	if !ok {
		return
	}
	order, err := api.service.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderhttpmapper.FromOrderHistory(order))
}

// Get /v1/orders/:orderId/transitions
// Lists the statuses the order may move to next
func (api *OrdersAPI) AllowedTransitions(c *gin.Context) {
	id, ok := pathParam(c, "orderId")
	if !ok {
		return
	}
	allowed, err := api.service.AllowedTransitions(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderhttpmapper.FromAllowed(id, allowed))
}

// Post /v1/orders/:orderId/transitions
func (api *OrdersAPI) TransitionOrder(c *gin.Context) {
	id, ok := pathParam(c, "orderId")
	if !ok {
		return
	}
	var payload orderhttpmapper.Transition
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return
	}
	order, err := api.service.TransitionOrder(c.Request.Context(), ordertypes.TransitionCommand{
		OrderID: id,
		To:      domain.Status(payload.ToStatus),
		Actor:   actorFrom(c),
		Reason:  payload.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderhttpmapper.FromDomainOrder(order))
}

// Post /v1/orders/:orderId/payment-status
func (api *OrdersAPI) UpdatePaymentStatus(c *gin.Context) {
	id, ok := pathParam(c, "orderId")
	if !ok {
		return
	}
	var payload orderhttpmapper.PaymentStatusChange
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return
	}
	order, err := api.service.UpdatePaymentStatus(c.Request.Context(), ordertypes.PaymentStatusCommand{
		OrderID: id,
		To:      domain.PaymentStatus(payload.PaymentStatus),
		Actor:   actorFrom(c),
		Reason:  payload.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderhttpmapper.FromDomainOrder(order))
}

// Patch /v1/orders/:orderId/fulfillment
// Updates tracking metadata; status is never changed here
func (api *OrdersAPI) UpdateFulfillment(c *gin.Context) {
	id, ok := pathParam(c, "orderId")
	if !ok {
		return
	}
	var payload orderhttpmapper.FulfillmentPatch
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return
	}
	order, err := api.service.UpdateFulfillment(c.Request.Context(), ordertypes.FulfillmentCommand{
		OrderID: id,
		Actor:   actorFrom(c),
		Update:  orderhttpmapper.ToFulfillmentUpdate(payload),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderhttpmapper.FromDomainOrder(order))
}

// Post /v1/orders/:orderId/refunds
// Creates a PENDING refund; honours the Idempotency-Key header
func (api *OrdersAPI) RequestRefund(c *gin.Context) {
	id, ok := pathParam(c, "orderId")
	if !ok {
		return
	}
	var payload orderhttpmapper.RefundRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return
	}
	cmd, err := orderhttpmapper.ToRefundCommand(id, actorFrom(c), c.GetHeader(HeaderIdempotencyKey), payload)
	if err != nil {
		respondError(c, err)
		return
	}
	refund, err := api.service.RequestRefund(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, orderhttpmapper.FromDomainRefund(*refund))
}

// Get /v1/orders/:orderId/refunds
func (api *OrdersAPI) ListRefunds(c *gin.Context) {
	id, ok := pathParam(c, "orderId")
	if !ok {
		return
	}
	refunds, err := api.service.ListRefunds(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderhttpmapper.FromDomainRefunds(refunds))
}

// Post /v1/orders/:orderId/notes
func (api *OrdersAPI) AddNote(c *gin.Context) {
	id, ok := pathParam(c, "orderId")
	if !ok {
		return
	}
	var payload orderhttpmapper.NoteRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return
	}
	note, err := api.service.AddNote(c.Request.Context(), ordertypes.NoteCommand{
		OrderID:  id,
		Author:   actorFrom(c),
		Body:     payload.Body,
		Internal: payload.Internal,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, orderhttpmapper.FromDomainNote(*note))
}

// Get /v1/orders/:orderId/notes
func (api *OrdersAPI) ListNotes(c *gin.Context) {
	id, ok := pathParam(c, "orderId")
	if !ok {
		return
	}
	notes, err := api.service.ListNotes(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderhttpmapper.FromDomainNotes(notes))
}

// Post /v1/orders/bulk/transitions
// Applies one transition to many orders; per-order failures are reported, never fatal
func (api *OrdersAPI) BulkTransition(c *gin.Context) {
	var payload orderhttpmapper.BulkTransition
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return
	}
	result, err := api.bulk.ApplyBulk(c.Request.Context(), orderhttpmapper.ToBulkCommand(actorFrom(c), payload))
	if err != nil && result == nil {
		respondError(c, err)
		return
	}
	// The items already ran when only the audit record failed; report them.
	c.JSON(http.StatusOK, result)
}

// Get /v1/orders/bulk/:operationId
func (api *OrdersAPI) GetBulkOperation(c *gin.Context) {
	id, ok := pathParam(c, "operationId")
	if !ok {
		return
	}
	op, err := api.service.GetBulkOperation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderhttpmapper.FromBulkOperation(op))
}

func pathParam(c *gin.Context, name string) (string, bool) {
	var value string
	err := runtime.BindStyledParameterWithOptions("simple", name, c.Param(name), &value, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		respondBadRequest(c, err)
		return "", false
	}
	return value, true
}
