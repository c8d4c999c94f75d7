package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/appctx"
	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/middlewares"
	"bitbucket.org/mmdatafocus/pos_backend/models"
	"bitbucket.org/mmdatafocus/pos_backend/reports"
	"bitbucket.org/mmdatafocus/pos_backend/storesync"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"bitbucket.org/mmdatafocus/pos_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("pos-backend")

const defaultPort = "8080"

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
			return
		}
		token, err := models.Authenticate(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

func signupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.NewUser
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		user, err := models.CreateUser(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		token, err := utils.JwtGenerate(user.ID, user.AccountId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "account_id": user.AccountId})
	}
}

func createOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req workflow.NewOrderInput
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		order, err := workflow.CreateOrder(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func fulfillOrderHandler(caps *workflow.Capabilities) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req workflow.NewOrderInput
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		ctx := c.Request.Context()
		order, err := workflow.CreateOrder(ctx, &req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := workflow.SendToFulfillment(ctx, caps, order)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		go publishOrderChange(ctx, order, "insert")
		c.JSON(http.StatusOK, gin.H{"order": order, "stock": result})
	}
}

func payOrderHandler(caps *workflow.Capabilities) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req workflow.PaymentInput
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		if id := c.Param("id"); id != "" {
			req.OrderId = id
		}
		ctx := c.Request.Context()
		order, result, err := workflow.CollectPayment(ctx, caps, &req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		go publishOrderChange(ctx, order, "update")
		c.JSON(http.StatusOK, gin.H{"order": order, "stock": result})
	}
}

func serveOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := workflow.MarkOrderServed(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func voidOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		order, err := workflow.VoidOrder(ctx, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		go publishOrderChange(ctx, order, "update")
		c.JSON(http.StatusOK, order)
	}
}

func listOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		shiftDate := c.Query("shift_date")
		if shiftDate == "" {
			today, err := utils.ConvertToDate(time.Now(), "")
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			shiftDate = utils.FormatBusinessDate(today)
		}
		orders, err := models.GetOrdersForShift(c.Request.Context(), shiftDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"shift_date": shiftDate, "orders": orders})
	}
}

func checkoutHandler(caps *workflow.Capabilities) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req workflow.CheckoutInput
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		ctx := c.Request.Context()
		entries, result, err := workflow.Checkout(ctx, caps, &req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		go publishLedgerChanges(ctx, entries, "insert")
		c.JSON(http.StatusOK, gin.H{"entries": entries, "stock": result})
	}
}

type ledgerEntryRequest struct {
	models.NewLedgerEntry
	// ReceiptImage is an optional base64 data URI; stored to GCS and the
	// resulting URL replaces ReceiptImageUrl.
	ReceiptImage string `json:"receipt_image"`
}

func createLedgerEntryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ledgerEntryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		ctx := c.Request.Context()
		if req.ReceiptImage != "" {
			url, err := utils.SaveReceiptImage(ctx, "receipts", req.ReceiptImage)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "could not store the receipt image"})
				return
			}
			req.ReceiptImageUrl = url
		}
		entry, err := models.CreateLedgerEntry(ctx, &req.NewLedgerEntry)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		go publishLedgerChanges(ctx, []models.LedgerItem{*entry}, "insert")
		c.JSON(http.StatusOK, entry)
	}
}

func updateLedgerEntryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ledgerEntryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		ctx := c.Request.Context()
		if req.ReceiptImage != "" {
			url, err := utils.SaveReceiptImage(ctx, "receipts", req.ReceiptImage)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "could not store the receipt image"})
				return
			}
			req.ReceiptImageUrl = url
		}
		entry, err := models.UpdateLedgerEntry(ctx, c.Param("id"), &req.NewLedgerEntry)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		go publishLedgerChanges(ctx, []models.LedgerItem{*entry}, "update")
		c.JSON(http.StatusOK, entry)
	}
}

func listLedgerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := models.GetLedgerEntries(c.Request.Context(), c.Query("start"), c.Query("end"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"entries": entries})
	}
}

func listInventoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		snapshot, err := models.FetchInventorySnapshot(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": snapshot.Items()})
	}
}

type adjustStockRequest struct {
	Deductions []models.StockDeduction `json:"deductions" binding:"required"`
	Intent     models.LedgerType       `json:"intent"`
}

func adjustStockHandler(caps *workflow.Capabilities) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req adjustStockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		result, err := workflow.AdjustStock(c.Request.Context(), caps, req.Deductions, req.Intent)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

type logFixedCostsRequest struct {
	Date string `json:"date" binding:"required"`
}

func logFixedCostsHandler(caps *workflow.Capabilities) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req logFixedCostsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date is required"})
			return
		}
		ctx := c.Request.Context()
		entries, err := workflow.LogDailyFixedCosts(ctx, caps, req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		go publishLedgerChanges(ctx, entries, "insert")
		c.JSON(http.StatusOK, gin.H{"entries": entries})
	}
}

func financeReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := workflow.AggregateRange(c.Request.Context(), c.Query("start"), c.Query("end"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func financeExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := workflow.AggregateRange(c.Request.Context(), c.Query("start"), c.Query("end"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Type", reports.ExcelContentType)
		c.Header("Content-Disposition", "attachment; filename="+reports.FinanceExportFilename(summary))
		if err := reports.WriteFinanceSummaryExcel(summary, c.Writer); err != nil {
			c.Status(http.StatusInternalServerError)
		}
	}
}

func dashboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		dash, err := workflow.ProjectDashboardForDate(c.Request.Context(), c.Query("date"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, dash)
	}
}

type scanEquipmentRequest struct {
	Guesses      []models.EquipmentGuess `json:"guesses" binding:"required"`
	Date         string                  `json:"date" binding:"required"`
	ReceiptImage string                  `json:"receipt_image"`
}

func scanEquipmentHandler(caps *workflow.Capabilities) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req scanEquipmentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		ctx := c.Request.Context()
		imageUrl := ""
		if req.ReceiptImage != "" {
			url, err := utils.SaveReceiptImage(ctx, "receipts", req.ReceiptImage)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "could not store the receipt image"})
				return
			}
			imageUrl = url
		}
		deductions, entries, err := models.FoldEquipmentGuesses(req.Guesses, req.Date, imageUrl)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		posted, result, err := workflow.RecordPurchase(ctx, caps, entries, deductions)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		go publishLedgerChanges(ctx, posted, "insert")
		c.JSON(http.StatusOK, gin.H{"entries": posted, "stock": result})
	}
}

type scanStockRequest struct {
	Guesses      []models.StockGuess `json:"guesses" binding:"required"`
	Date         string              `json:"date" binding:"required"`
	ReceiptImage string              `json:"receipt_image"`
}

func scanStockHandler(caps *workflow.Capabilities) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req scanStockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		ctx := c.Request.Context()
		imageUrl := ""
		if req.ReceiptImage != "" {
			url, err := utils.SaveReceiptImage(ctx, "receipts", req.ReceiptImage)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "could not store the receipt image"})
				return
			}
			imageUrl = url
		}
		snapshot, err := models.FetchInventorySnapshot(ctx)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		deductions, summary, err := models.FoldStockGuesses(snapshot, req.Guesses, req.Date, imageUrl)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var entries []models.NewLedgerEntry
		if summary != nil && summary.Amount.GreaterThan(decimal.Zero) {
			entries = append(entries, *summary)
		}
		posted, result, err := workflow.RecordPurchase(ctx, caps, entries, deductions)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		go publishLedgerChanges(ctx, posted, "insert")
		c.JSON(http.StatusOK, gin.H{"entries": posted, "stock": result})
	}
}

func createSupplierHandler(caps *workflow.Capabilities) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.NewSupplier
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		if caps == nil || caps.AddSupplier == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "supplier creation is not available right now, the action was not saved"})
			return
		}
		supplier, err := caps.AddSupplier(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, supplier)
	}
}

func listMenuHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := models.GetMenuItems(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

// Change-feed publication is best effort: the local write already committed.
func publishOrderChange(ctx context.Context, order *models.Order, action string) {
	if order == nil || !changeFeedEnabled() {
		return
	}
	storesync.PublishChange(context.WithoutCancel(ctx), order.AccountId, "order", order.ID, action, "", order)
}

func publishLedgerChanges(ctx context.Context, entries []models.LedgerItem, action string) {
	if !changeFeedEnabled() {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for i := range entries {
		storesync.PublishChange(ctx, entries[i].AccountId, "ledger", entries[i].ID, action, entries[i].ClientTxnId, &entries[i])
	}
}

func changeFeedEnabled() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("ENABLE_STORE_CHANGE_FEED")), "true")
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until DB/Redis are ready, app endpoints return 503.
	r := gin.New()
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(appctx.Set(c.Request.Context(), appctx.ContextKeyCorrelationId, cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(middlewares.SessionMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	caps := workflow.DefaultCapabilities()

	r.POST("/auth/login", loginHandler())
	r.POST("/auth/signup", signupHandler())

	r.GET("/orders", listOrdersHandler())
	r.POST("/orders", createOrderHandler())
	r.POST("/orders/fulfill", fulfillOrderHandler(caps))
	r.POST("/orders/pay", payOrderHandler(caps))
	r.POST("/orders/:id/pay", payOrderHandler(caps))
	r.POST("/orders/:id/serve", serveOrderHandler())
	r.POST("/orders/:id/void", voidOrderHandler())

	r.POST("/checkout", checkoutHandler(caps))

	r.GET("/ledger", listLedgerHandler())
	r.POST("/ledger", createLedgerEntryHandler())
	r.PUT("/ledger/:id", updateLedgerEntryHandler())

	r.GET("/inventory", listInventoryHandler())
	r.POST("/inventory/apply", adjustStockHandler(caps))

	r.POST("/fixed-costs/log", logFixedCostsHandler(caps))

	r.GET("/reports/finance", financeReportHandler())
	r.GET("/reports/finance/export", financeExportHandler())

	r.GET("/dashboard", dashboardHandler())

	r.POST("/scan/equipment", scanEquipmentHandler(caps))
	r.POST("/scan/stock", scanStockHandler(caps))

	r.POST("/suppliers", createSupplierHandler(caps))
	r.GET("/menu", listMenuHandler())

	r.POST("/pubsub/store", storesync.PubSubPushHandler())

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running migrations as
	// a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()
	if changeFeedEnabled() {
		go func() {
			if err := storesync.RunWorker(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
				config.LogError(logger, "server.go", "main", "storesync worker", nil, err)
			}
		}()
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port)
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers first so they don't start new work while draining.
	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
