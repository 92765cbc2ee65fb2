// internal/middleware/wallet_test.go
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func walletTestRouter(required bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	handler := func(c *gin.Context) {
		wallet, _ := c.Get("wallet_address")
		addr, _ := wallet.(string)
		c.String(http.StatusOK, addr)
	}

	if required {
		router.GET("/secure", WalletRequired(), handler)
	} else {
		router.GET("/secure", OptionalWallet(), handler)
	}
	return router
}

func TestWalletRequiredMissingHeader(t *testing.T) {
	router := walletTestRouter(true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWalletRequiredInvalidAddress(t *testing.T) {
	router := walletTestRouter(true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("X-Wallet-Address", "0x123")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWalletRequiredChecksumsAddress(t *testing.T) {
	router := walletTestRouter(true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("X-Wallet-Address", "0x8ba1f109551bd432803012645ac136ddd64dba72")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0x8ba1f109551bD432803012645Ac136ddd64DBA72", w.Body.String())
}

func TestOptionalWalletPassesThrough(t *testing.T) {
	router := walletTestRouter(false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestOptionalWalletIgnoresInvalidAddress(t *testing.T) {
	router := walletTestRouter(false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("X-Wallet-Address", "garbage")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}
