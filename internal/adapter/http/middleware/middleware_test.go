package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"custody-bridge/internal/core/domain"
	"custody-bridge/internal/core/ports/mocks"
	"custody-bridge/pkg/response"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var processor = &domain.Caller{
	Name:      "processor",
	AccessKey: "ak_processor",
	Secret:    "sk_processor",
	Address:   common.HexToAddress("0x00000000000000000000000000000000000000aa"),
}

type authDeps struct {
	callers    *mocks.MockCallerDirectory
	sigSvc     *mocks.MockSignatureService
	nonceStore *mocks.MockNonceStore
	router     *gin.Engine
}

func setupAuth(t *testing.T, handler gin.HandlerFunc) *authDeps {
	ctrl := gomock.NewController(t)
	d := &authDeps{
		callers:    mocks.NewMockCallerDirectory(ctrl),
		sigSvc:     mocks.NewMockSignatureService(ctrl),
		nonceStore: mocks.NewMockNonceStore(ctrl),
		router:     gin.New(),
	}
	if handler == nil {
		handler = func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) }
	}
	d.router.POST("/test", HMACAuth(d.callers, d.sigSvc, d.nonceStore, zerolog.Nop()), handler)
	return d
}

func signedRequest(body string, ts int64) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBufferString(body))
	req.Header.Set(HeaderAccessKey, "ak_processor")
	req.Header.Set(HeaderSignature, "valid_sig")
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderNonce, "nonce-ok")
	return req
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.ErrorCode
}

func TestHMACAuth_MissingHeaders(t *testing.T) {
	d := setupAuth(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "SEC_001", errorCode(t, w))
}

func TestHMACAuth_ExpiredTimestamp(t *testing.T) {
	d := setupAuth(t, nil)

	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, signedRequest("{}", time.Now().Add(-120*time.Second).Unix()))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "SEC_003", errorCode(t, w))
}

func TestHMACAuth_MalformedTimestamp(t *testing.T) {
	d := setupAuth(t, nil)

	req := signedRequest("{}", 0)
	req.Header.Set(HeaderTimestamp, "yesterday")
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHMACAuth_UnknownAccessKey(t *testing.T) {
	d := setupAuth(t, nil)
	d.callers.EXPECT().Lookup("ak_processor").Return(nil, false)

	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, signedRequest("{}", time.Now().Unix()))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "SEC_001", errorCode(t, w))
}

func TestHMACAuth_ReplayedNonce(t *testing.T) {
	d := setupAuth(t, nil)
	d.callers.EXPECT().Lookup("ak_processor").Return(processor, true)
	d.nonceStore.EXPECT().CheckAndSet(gomock.Any(), "ak_processor", "nonce-ok", nonceTTL).Return(false, nil)

	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, signedRequest("{}", time.Now().Unix()))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "SEC_004", errorCode(t, w))
}

func TestHMACAuth_InvalidSignature(t *testing.T) {
	d := setupAuth(t, nil)
	nowTs := time.Now().Unix()

	d.callers.EXPECT().Lookup("ak_processor").Return(processor, true)
	d.nonceStore.EXPECT().CheckAndSet(gomock.Any(), "ak_processor", "nonce-ok", nonceTTL).Return(true, nil)
	d.sigSvc.EXPECT().BuildCanonicalString("POST", "/test", nowTs, "nonce-ok", "{}").Return("canonical")
	d.sigSvc.EXPECT().Verify("sk_processor", "canonical", "valid_sig").Return(false)

	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, signedRequest("{}", nowTs))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "SEC_002", errorCode(t, w))
}

func TestHMACAuth_Success(t *testing.T) {
	var (
		captured common.Address
		body     []byte
	)
	d := setupAuth(t, func(c *gin.Context) {
		captured, _ = CallerAddress(c)
		body, _ = c.GetRawData()
		c.JSON(200, gin.H{"ok": true})
	})

	nowTs := time.Now().Unix()
	payload := `{"total_input_value":"1"}`

	d.callers.EXPECT().Lookup("ak_processor").Return(processor, true)
	d.nonceStore.EXPECT().CheckAndSet(gomock.Any(), "ak_processor", "nonce-ok", nonceTTL).Return(true, nil)
	d.sigSvc.EXPECT().BuildCanonicalString("POST", "/test", nowTs, "nonce-ok", payload).Return("canonical")
	d.sigSvc.EXPECT().Verify("sk_processor", "canonical", "valid_sig").Return(true)

	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, signedRequest(payload, nowTs))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, processor.Address, captured)
	assert.Equal(t, payload, string(body), "body is restored for the handler")
}

func TestHMACAuth_NonceStoreDownAllowsRequest(t *testing.T) {
	d := setupAuth(t, nil)
	nowTs := time.Now().Unix()

	d.callers.EXPECT().Lookup("ak_processor").Return(processor, true)
	d.nonceStore.EXPECT().CheckAndSet(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(false, errors.New("redis down"))
	d.sigSvc.EXPECT().BuildCanonicalString(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("canonical")
	d.sigSvc.EXPECT().Verify("sk_processor", "canonical", "valid_sig").Return(true)

	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, signedRequest("{}", nowTs))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCallerAddress_Unset(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := CallerAddress(c)
	assert.False(t, ok)
	_, ok = AuthenticatedCaller(c)
	assert.False(t, ok)
}

func TestRequireProcessor(t *testing.T) {
	stranger := common.HexToAddress("0x00000000000000000000000000000000000000cc")

	tests := []struct {
		name       string
		caller     *common.Address
		wantStatus int
	}{
		{"processor passes", &processor.Address, http.StatusOK},
		{"other caller rejected", &stranger, http.StatusForbidden},
		{"no authenticated caller", nil, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			r := gin.New()
			r.POST("/convert", func(c *gin.Context) {
				if tt.caller != nil {
					c.Set(CtxCallerAddress, *tt.caller)
				}
				c.Next()
			}, RequireProcessor(processor.Address), func(c *gin.Context) {
				reached = true
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/convert", bytes.NewBufferString("{")))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, reached)
			if tt.wantStatus == http.StatusForbidden {
				assert.Contains(t, w.Body.String(), "SEC_005")
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/test", func(c *gin.Context) {
		response.OK(c, gin.H{})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(HeaderRequestID))
	var resp response.SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "req-123", resp.RequestID)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Len(t, w.Header().Get(HeaderRequestID), 36)
}

func TestRequestLogger_LogsStatus(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	r := gin.New()
	r.Use(RequestLogger(log))
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, float64(404), entry["status"])
	assert.Equal(t, "/missing", entry["path"])
}

func TestRecovery_PanicRecovered(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(zerolog.Nop()))
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "SYS_001")
}
