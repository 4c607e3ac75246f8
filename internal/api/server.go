// Package api exposes the reconciliation registry over HTTP so remote
// operator clients can drive the workflow against a shared registry.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/dstern/pledgematch/internal/common"
	"github.com/dstern/pledgematch/internal/model"
	"github.com/dstern/pledgematch/internal/service"
)

// Server wraps a Reconciler behind the HTTP facade consumed by
// client.Remote.
type Server struct {
	svc    service.Reconciler
	logger *slog.Logger
}

// NewServer creates an API server over the given registry service.
func NewServer(svc service.Reconciler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{svc: svc, logger: logger}
}

// Router builds the gin engine with all routes registered. Split out from
// Start so tests can drive it through httptest.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/health"},
	}))
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"http://localhost:3000", "http://localhost:5173", "http://localhost:8080"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := router.Group("/api")
	{
		api.GET("/imports", s.listImports)
		api.GET("/imports/counts", s.getStatusCounts)
		api.GET("/imports/:id", s.getImport)
		api.POST("/imports/:id/match", s.confirmHouseholdMatch)
		api.POST("/imports/:id/duplicate", s.markDuplicate)
		api.POST("/imports/:id/skip", s.markSkipped)
		api.POST("/imports/:id/payment", s.createPayment)
		api.POST("/imports/:id/pledge-payment", s.createPledgeAndPayment)
		api.GET("/households", s.searchHouseholds)
		api.GET("/households/candidates", s.findHouseholdCandidates)
		api.GET("/households/:id/payments", s.listExistingPayments)
		api.GET("/households/:id/pledges", s.listUnpaidPledges)
		api.GET("/campaigns", s.searchCampaigns)
	}
	return router
}

// Start runs the server on the given address until it fails.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting registry API server", "addr", addr)
	return s.Router().Run(addr)
}

// fail maps service errors onto HTTP statuses with a uniform error body.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case common.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) listImports(c *gin.Context) {
	status := model.ImportStatus(c.DefaultQuery("status", string(model.StatusAll)))
	imports, err := s.svc.ListImports(c.Request.Context(), status)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, imports)
}

func (s *Server) getStatusCounts(c *gin.Context) {
	counts, err := s.svc.GetStatusCounts(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (s *Server) getImport(c *gin.Context) {
	imp, err := s.svc.GetImport(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, imp)
}

type matchRequest struct {
	HouseholdID string `json:"householdId" binding:"required"`
}

func (s *Server) confirmHouseholdMatch(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "householdId is required"})
		return
	}
	imp, err := s.svc.ConfirmHouseholdMatch(c.Request.Context(), c.Param("id"), req.HouseholdID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, imp)
}

func (s *Server) markDuplicate(c *gin.Context) {
	if err := s.svc.MarkDuplicate(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) markSkipped(c *gin.Context) {
	if err := s.svc.MarkSkipped(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type paymentRequest struct {
	PledgeID string `json:"pledgeId" binding:"required"`
}

func (s *Server) createPayment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pledgeId is required"})
		return
	}
	if err := s.svc.CreatePayment(c.Request.Context(), c.Param("id"), req.PledgeID); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type pledgePaymentRequest struct {
	CampaignID string    `json:"campaignId" binding:"required"`
	PledgeDate time.Time `json:"pledgeDate" binding:"required"`
}

func (s *Server) createPledgeAndPayment(c *gin.Context) {
	var req pledgePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "campaignId and pledgeDate are required"})
		return
	}
	if err := s.svc.CreatePledgeAndPayment(c.Request.Context(), c.Param("id"), req.CampaignID, req.PledgeDate); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) searchHouseholds(c *gin.Context) {
	results, err := s.svc.SearchHouseholds(c.Request.Context(), c.Query("q"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (s *Server) findHouseholdCandidates(c *gin.Context) {
	candidates, err := s.svc.FindHouseholdCandidates(
		c.Request.Context(),
		c.Query("email"),
		c.Query("firstName"),
		c.Query("lastName"),
	)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, candidates)
}

func (s *Server) listExistingPayments(c *gin.Context) {
	date, err := parseDate(c.Query("paymentDate"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paymentDate must be RFC 3339 or YYYY-MM-DD"})
		return
	}
	amount, err := parseAmount(c.Query("amount"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a number"})
		return
	}
	payments, err := s.svc.ListExistingPayments(c.Request.Context(), c.Param("id"), date, amount)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

func (s *Server) listUnpaidPledges(c *gin.Context) {
	date, err := parseDate(c.Query("paymentDate"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paymentDate must be RFC 3339 or YYYY-MM-DD"})
		return
	}
	amount, err := parseAmount(c.Query("amount"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a number"})
		return
	}
	pledges, err := s.svc.ListUnpaidPledges(
		c.Request.Context(),
		c.Param("id"),
		date,
		c.Query("isMembership") == "true",
		amount,
	)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pledges)
}

func (s *Server) searchCampaigns(c *gin.Context) {
	campaigns, err := s.svc.SearchCampaigns(c.Request.Context(), c.Query("q"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, campaigns)
}
