// internal/router/router.go
package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/artdrm/artdrm-backend/internal/config"
	"github.com/artdrm/artdrm-backend/internal/handlers"
	"github.com/artdrm/artdrm-backend/internal/middleware"
	"github.com/artdrm/artdrm-backend/internal/services"
)

// Initialize wires services and handlers onto a gin engine.
func Initialize(db *gorm.DB, cfg *config.Config, chainClient services.ChainClient, cache *redis.Client) *gin.Engine {
	// Initialize services
	storageService, _ := services.NewStorageService(cfg)
	chainService := services.NewChainService(cfg.Chain, chainClient, cache)
	pinService := services.NewPinService(cfg.IPFS)
	classifierChain := services.NewClassifierChain(cfg.Classifier)
	extractor := services.NewEmbeddingExtractor(cfg.Dedup.EmbeddingURL)
	dedupService := services.NewDedupService(db, storageService, extractor, classifierChain, cfg.Dedup)
	artworkService := services.NewArtworkService(db, chainService, pinService, dedupService)
	licenseService := services.NewLicenseService(db, chainService, pinService)
	transactionService := services.NewTransactionService(db, chainService)

	// Initialize handlers
	artworkHandler := handlers.NewArtworkHandler(artworkService)
	imageHandler := handlers.NewImageHandler(dedupService)
	licenseHandler := handlers.NewLicenseHandler(licenseService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	blockchainHandler := handlers.NewBlockchainHandler(chainService)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Artwork routes
		artworks := v1.Group("/artworks")
		{
			artworks.GET("", artworkHandler.List)
			artworks.GET("/:token_id", artworkHandler.Get)
			artworks.GET("/:token_id/sale/quote", artworkHandler.QuoteSale)

			protected := artworks.Group("")
			protected.Use(middleware.WalletRequired())
			{
				protected.POST("/register", middleware.UploadRateLimit(), artworkHandler.Register)
				protected.POST("/confirm", artworkHandler.ConfirmRegistration)
				protected.POST("/:token_id/transfer", artworkHandler.PrepareTransfer)
				protected.POST("/:token_id/sale", artworkHandler.PrepareSale)
				protected.POST("/:token_id/confirm-ownership", artworkHandler.ConfirmOwnershipChange)
			}
		}

		// Image dedup routes
		images := v1.Group("/images")
		{
			images.GET("", imageHandler.List)
			images.GET("/:id", imageHandler.Get)
			images.POST("/upload", middleware.UploadRateLimit(), imageHandler.Upload)
		}

		// License routes
		licenses := v1.Group("/licenses")
		{
			licenses.GET("", licenseHandler.List)
			licenses.GET("/fee", licenseHandler.Fee)
			licenses.GET("/:license_id", licenseHandler.Get)

			protected := licenses.Group("")
			protected.Use(middleware.WalletRequired())
			{
				protected.POST("", licenseHandler.Grant)
				protected.POST("/:license_id/revoke", licenseHandler.Revoke)
			}
		}

		// Transaction routes
		transactions := v1.Group("/transactions")
		{
			transactions.GET("", transactionHandler.List)
			transactions.GET("/:tx_hash", transactionHandler.Get)
			transactions.POST("", transactionHandler.Create)
			transactions.PATCH("/:tx_hash/status", transactionHandler.UpdateStatus)
			transactions.POST("/:tx_hash/sync", transactionHandler.Sync)
		}

		// Blockchain read routes
		blockchain := v1.Group("/blockchain")
		{
			blockchain.GET("/status", blockchainHandler.Status)
			blockchain.GET("/gas-price", blockchainHandler.GasPrice)
			blockchain.GET("/artworks/:token_id", blockchainHandler.ArtworkInfo)
			blockchain.GET("/artworks/:token_id/owner", blockchainHandler.OwnerOf)
			blockchain.GET("/receipts/:tx_hash", blockchainHandler.Receipt)
		}
	}

	return r
}

// NewRedisClient builds the cache client used for gas quotes.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
