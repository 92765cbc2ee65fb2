// internal/middleware/wallet.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/artdrm/artdrm-backend/internal/utils"
)

const walletHeader = "X-Wallet-Address"

// WalletRequired reads the caller's wallet address from the request header,
// validates and checksums it, and stores it in the context. Owner-only
// operations compare against this address.
func WalletRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(walletHeader)
		if raw == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "X-Wallet-Address header required",
			})
			c.Abort()
			return
		}

		checksummed, err := utils.ChecksumAddress(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid wallet address in X-Wallet-Address header",
			})
			c.Abort()
			return
		}

		c.Set("wallet_address", checksummed)
		c.Next()
	}
}

// OptionalWallet sets the wallet address when the header is present and
// valid, and lets the request through either way.
func OptionalWallet() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(walletHeader)
		if raw == "" {
			c.Next()
			return
		}

		if checksummed, err := utils.ChecksumAddress(raw); err == nil {
			c.Set("wallet_address", checksummed)
		}
		c.Next()
	}
}
