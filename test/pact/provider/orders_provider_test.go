//go:build pact
// +build pact

package provider_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	pacttest "github.com/Apurer/storefront-orders/test/pact"

	orderhttp "github.com/Apurer/storefront-orders/internal/domains/orders/adapters/http"
	ordermemory "github.com/Apurer/storefront-orders/internal/domains/orders/adapters/memory"
	orderobs "github.com/Apurer/storefront-orders/internal/domains/orders/adapters/observability"
	ordersapp "github.com/Apurer/storefront-orders/internal/domains/orders/application"
	ordertypes "github.com/Apurer/storefront-orders/internal/domains/orders/application/types"
	"github.com/Apurer/storefront-orders/internal/domains/orders/domain"

	"github.com/gin-gonic/gin"
	"github.com/govalues/decimal"
	"github.com/pact-foundation/pact-go/v2/models"
	pactprovider "github.com/pact-foundation/pact-go/v2/provider"
	"github.com/stretchr/testify/require"
)

func TestOrdersProviderPact(t *testing.T) {
	gin.SetMode(gin.TestMode)

	app := newContractProviderApp(t)
	pactFile := filepath.ToSlash(pacttest.PactFile(t))
	if _, err := os.Stat(pactFile); errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pact file not found at %s - run the pact consumer tests first", pactFile)
	} else {
		require.NoError(t, err)
	}

	seed := func(id string, path ...domain.Status) models.StateHandler {
		return func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			service := app.reset()
			if setup && id != "" {
				seedOrder(t, service, id, path...)
			}
			return nil, nil
		}
	}
	stateHandlers := models.StateHandlers{
		pacttest.StateOrderPending: seed(pacttest.PendingOrderID),
		pacttest.StateOrderShipped: seed(pacttest.ShippedOrderID, domain.StatusConfirmed, domain.StatusProcessing, domain.StatusShipped),
		pacttest.StateOrderRefund:  seed(pacttest.DeliveredOrderID, domain.StatusConfirmed, domain.StatusProcessing, domain.StatusShipped, domain.StatusDelivered),
		pacttest.StateOrderMissing: seed(""),
	}

	verifier := pactprovider.NewVerifier()
	err := verifier.VerifyProvider(t, pactprovider.VerifyRequest{
		ProviderBaseURL: app.server.URL,
		Provider:        pacttest.ProviderName,
		PactFiles:       []string{pactFile},
		StateHandlers:   stateHandlers,
	})
	require.NoError(t, err)
}

// contractProviderApp swaps in a fresh in-memory service for every provider state.
type contractProviderApp struct {
	handler atomic.Value
	server  *httptest.Server
}

func newContractProviderApp(t testing.TB) *contractProviderApp {
	t.Helper()
	app := &contractProviderApp{}
	app.reset()
	app.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.handler.Load().(http.Handler).ServeHTTP(w, r)
	}))
	t.Cleanup(app.server.Close)
	return app
}

func (a *contractProviderApp) reset() *ordersapp.Service {
	core := ordersapp.NewService(
		ordermemory.NewRepository(),
		ordersapp.WithLocker(ordermemory.NewLocker()),
		ordersapp.WithIdempotencyStore(ordermemory.NewIdempotencyStore()),
	)
	router := gin.New()
	router.Use(gin.Recovery())
	orderhttp.NewOrdersAPI(orderobs.New(core), nil, orderhttp.NewActorResolver("")).Register(router.Group("/v1"))
	a.handler.Store(http.Handler(router))
	return core
}

func seedOrder(t testing.TB, service *ordersapp.Service, id string, path ...domain.Status) {
	t.Helper()
	ctx := context.Background()
	_, err := service.CreateOrder(ctx, ordertypes.CreateOrderCommand{
		ID:            id,
		Number:        "ORD-" + id,
		CustomerID:    "pact-customer",
		PaymentStatus: domain.PaymentPaid,
		Subtotal:      decimal.MustParse("140.00"),
		Shipping:      decimal.MustParse("10.00"),
		Total:         decimal.MustParse(pacttest.OrderTotal),
	})
	require.NoError(t, err)
	for _, next := range path {
		_, err := service.TransitionOrder(ctx, ordertypes.TransitionCommand{OrderID: id, To: next, Actor: "pact-seed"})
		require.NoError(t, err)
	}
}
