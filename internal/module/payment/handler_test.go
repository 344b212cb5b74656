package payment

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/creditlab/payment-service/internal/module/payment/provider"
	apperrors "github.com/creditlab/payment-service/internal/utils/errors"
	"github.com/creditlab/payment-service/internal/utils/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAuth injects an authenticated identity the way the JWT middleware
// would.
func fakeAuth(userID uuid.UUID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Set(middleware.RoleKey, role)
		c.Next()
	}
}

func noopGuard(c *gin.Context) { c.Next() }

func newTestRouter(h *Handler, userID uuid.UUID, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/payments", fakeAuth(userID, role))
	h.RegisterRoutes(group, noopGuard, noopGuard)
	return router
}

func performJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_CreatePayment(t *testing.T) {
	userID := uuid.New()

	t.Run("returns 201 with payment and client secret", func(t *testing.T) {
		repo := new(MockRepository)
		prov := new(MockProvider)
		svc := newTestService(repo, prov, new(MockCreditService), AccessPolicy{})
		router := newTestRouter(NewHandler(svc, zap.NewNop()), userID, "user")

		prov.On("CreatePaymentIntent", mock.Anything, int64(5000), "usd", mock.Anything).
			Return(&provider.PaymentIntent{ID: "pi_1", ClientSecret: "pi_1_secret"}, nil)
		repo.On("Create", mock.Anything, mock.Anything).Return(nil)

		w := performJSON(router, http.MethodPost, "/payments",
			`{"amount": 50, "currency": "usd", "provider": "stripe"}`)

		require.Equal(t, http.StatusCreated, w.Code)

		var resp CreatePaymentResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "pi_1_secret", resp.ClientSecret)
		require.NotNil(t, resp.Payment)
		assert.Equal(t, StatusPending, resp.Payment.Status)
	})

	t.Run("rejects missing amount", func(t *testing.T) {
		svc := newTestService(new(MockRepository), new(MockProvider), new(MockCreditService), AccessPolicy{})
		router := newTestRouter(NewHandler(svc, zap.NewNop()), userID, "user")

		w := performJSON(router, http.MethodPost, "/payments", `{"currency": "usd"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "BAD_REQUEST")
	})
}

func TestHandler_CreateCheckout(t *testing.T) {
	userID := uuid.New()

	repo := new(MockRepository)
	prov := new(MockProvider)
	svc := newTestService(repo, prov, new(MockCreditService), AccessPolicy{})
	router := newTestRouter(NewHandler(svc, zap.NewNop()), userID, "user")

	prov.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Return(&provider.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.com/c/cs_1"}, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	repo.On("SetTransactionID", mock.Anything, mock.Anything, "cs_1").Return(nil)

	w := performJSON(router, http.MethodPost, "/payments/checkout", `{"bundle": "20_credits"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"url": "https://checkout.stripe.com/c/cs_1"}`, w.Body.String())
}

func TestHandler_Transitions(t *testing.T) {
	userID := uuid.New()
	paymentID := uuid.New()

	t.Run("confirm", func(t *testing.T) {
		repo := new(MockRepository)
		credits := new(MockCreditService)
		svc := newTestService(repo, new(MockProvider), credits, AccessPolicy{})
		router := newTestRouter(NewHandler(svc, zap.NewNop()), userID, "admin")

		repo.On("GetByID", mock.Anything, paymentID).
			Return(&Payment{ID: paymentID, UserID: userID, Amount: 50, Status: StatusPending}, nil)
		repo.On("UpdateStatus", mock.Anything, paymentID, StatusPending, StatusSuccess).Return(true, nil)
		credits.On("AddCredits", mock.Anything, userID, float64(50)).Return(nil)

		w := performJSON(router, http.MethodPost, "/payments/"+paymentID.String()+"/confirm", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Payment confirmed successfully")
	})

	t.Run("fail", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockProvider), new(MockCreditService), AccessPolicy{})
		router := newTestRouter(NewHandler(svc, zap.NewNop()), userID, "admin")

		repo.On("GetByID", mock.Anything, paymentID).
			Return(&Payment{ID: paymentID, UserID: userID, Status: StatusPending}, nil)
		repo.On("UpdateStatus", mock.Anything, paymentID, StatusPending, StatusFailed).Return(true, nil)

		w := performJSON(router, http.MethodPost, "/payments/"+paymentID.String()+"/fail", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Payment marked as FAILED")
	})

	t.Run("refund of pending payment returns invalid state", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockProvider), new(MockCreditService), AccessPolicy{})
		router := newTestRouter(NewHandler(svc, zap.NewNop()), userID, "admin")

		repo.On("GetByID", mock.Anything, paymentID).
			Return(&Payment{ID: paymentID, UserID: userID, Status: StatusPending}, nil)

		w := performJSON(router, http.MethodPost, "/payments/"+paymentID.String()+"/refund", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_STATE")
		assert.Contains(t, w.Body.String(), "PENDING")
	})

	t.Run("malformed id", func(t *testing.T) {
		svc := newTestService(new(MockRepository), new(MockProvider), new(MockCreditService), AccessPolicy{})
		router := newTestRouter(NewHandler(svc, zap.NewNop()), userID, "admin")

		w := performJSON(router, http.MethodPost, "/payments/not-a-uuid/confirm", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_GetPayment(t *testing.T) {
	ownerID := uuid.New()
	paymentID := uuid.New()

	t.Run("not found maps to 404", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockProvider), new(MockCreditService), AccessPolicy{})
		router := newTestRouter(NewHandler(svc, zap.NewNop()), ownerID, "user")

		repo.On("GetByID", mock.Anything, paymentID).Return(nil, apperrors.NotFound("payment"))

		w := performJSON(router, http.MethodGet, "/payments/"+paymentID.String(), "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "NOT_FOUND")
	})

	t.Run("foreign payment maps to 403", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockProvider), new(MockCreditService), AccessPolicy{})
		router := newTestRouter(NewHandler(svc, zap.NewNop()), uuid.New(), "user")

		repo.On("GetByID", mock.Anything, paymentID).
			Return(&Payment{ID: paymentID, UserID: ownerID, Status: StatusPending}, nil)

		w := performJSON(router, http.MethodGet, "/payments/"+paymentID.String(), "")

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestHandler_ListPayments(t *testing.T) {
	adminID := uuid.New()

	repo := new(MockRepository)
	svc := newTestService(repo, new(MockProvider), new(MockCreditService), AccessPolicy{})
	router := newTestRouter(NewHandler(svc, zap.NewNop()), adminID, "admin")

	status := StatusSuccess
	repo.On("List", mock.Anything, ListFilter{Status: &status, Page: 1, Limit: 20}).
		Return([]*Payment{{ID: uuid.New(), Status: StatusSuccess}}, int64(1), nil)

	w := performJSON(router, http.MethodGet, "/payments?status=SUCCESS", "")

	require.Equal(t, http.StatusOK, w.Code)

	var resp ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, "SUCCESS", resp.Meta.Status)
	assert.Equal(t, int64(1), resp.Meta.Total)
}

func TestHandler_ListUserPayments(t *testing.T) {
	ownerID := uuid.New()

	repo := new(MockRepository)
	svc := newTestService(repo, new(MockProvider), new(MockCreditService), AccessPolicy{})
	router := newTestRouter(NewHandler(svc, zap.NewNop()), ownerID, "user")

	repo.On("List", mock.Anything, mock.MatchedBy(func(f ListFilter) bool {
		return f.UserID != nil && *f.UserID == ownerID && f.Page == 2 && f.Limit == 5
	})).Return([]*Payment{}, int64(12), nil)

	w := performJSON(router, http.MethodGet, "/payments/user/"+ownerID.String()+"?page=2&limit=5", "")

	require.Equal(t, http.StatusOK, w.Code)

	var resp UserListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(12), resp.Pagination.Total)
	assert.Equal(t, 3, resp.Pagination.TotalPages)
	assert.Equal(t, 2, resp.Pagination.Page)
}
