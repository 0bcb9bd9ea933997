package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retail-platform/stock-service/pkg/errors"
	"github.com/retail-platform/stock-service/pkg/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type adjustBody struct {
	MovementType  string `json:"movementType" binding:"required,adjust_movement"`
	ReferenceType string `json:"referenceType" binding:"omitempty,reference_type"`
	Quantity      int    `json:"quantity" binding:"gte=0"`
}

func newRouter() *gin.Engine {
	r := gin.New()
	Setup(r, DefaultConfig("stock-service", logging.NewNop()))
	r.NoRoute(NoRoute())
	return r
}

func TestRequestAndCorrelationIDs(t *testing.T) {
	r := newRouter()
	var corrInCtx string
	r.GET("/ping", func(c *gin.Context) {
		corrInCtx = logging.CorrelationIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderCorrelationID, "corr-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
	assert.Equal(t, "corr-42", w.Header().Get(HeaderCorrelationID))
	assert.Equal(t, "corr-42", corrInCtx)
}

func TestBindAndValidate(t *testing.T) {
	r := newRouter()
	r.POST("/adjust", func(c *gin.Context) {
		var body adjustBody
		if appErr := BindAndValidate(c, &body); appErr != nil {
			NewErrorResponder(c, logging.NewNop()).RespondWithAppError(appErr)
			return
		}
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"valid", `{"movementType":"IN","quantity":3}`, http.StatusNoContent, ""},
		{"reserve not adjustable", `{"movementType":"RESERVE","quantity":3}`, http.StatusBadRequest, "movementType"},
		{"bad reference", `{"movementType":"OUT","referenceType":"GIFT","quantity":1}`, http.StatusBadRequest, "referenceType"},
		{"malformed", `{`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/adjust", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tt.status, w.Code)
			if tt.field != "" {
				var resp APIErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, errors.CodeValidationError, resp.Code)
				assert.Contains(t, resp.Details, tt.field)
			}
		})
	}
}

func TestRecoveryAndNoRoute(t *testing.T) {
	r := newRouter()
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "ROUTE_NOT_FOUND")
}

func TestContentType(t *testing.T) {
	r := newRouter()
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}
