package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"parkgate/internal/config"
	"parkgate/internal/repository"
)

// Handler serves the dashboard read API: the vehicle activity log and the
// unauthorized-exit alert feed. Strictly read-only with respect to the
// ledger; the controllers never depend on this direction.
type Handler struct {
	ledger repository.LedgerStore
	config *config.Config
	log    zerolog.Logger
}

func NewHandler(ledger repository.LedgerStore, cfg *config.Config, log zerolog.Logger) *Handler {
	return &Handler{
		ledger: ledger,
		config: cfg,
		log:    log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	public := r.Group("/api/v1")
	{
		public.GET("/logs", h.listLogs)
		public.POST("/auth/login", h.login)
	}

	// Incident data is operator-only.
	protected := r.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.GET("/alerts", h.listAlerts)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

type logEntry struct {
	ID         int64      `json:"id"`
	Plate      string     `json:"plate"`
	Paid       string     `json:"payment_status"`
	EntryTime  time.Time  `json:"entry_time"`
	ExitTime   *time.Time `json:"exit_time,omitempty"`
	AmountPaid *int64     `json:"amount_paid,omitempty"`
}

func (h *Handler) listLogs(c *gin.Context) {
	events, err := h.ledger.ListEvents(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list events")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}

	entries := make([]logEntry, 0, len(events))
	for _, e := range events {
		entry := logEntry{
			ID:         e.ID,
			Plate:      e.Plate,
			Paid:       "No",
			EntryTime:  e.EntryTime,
			ExitTime:   e.ExitTime,
			AmountPaid: e.AmountPaid,
		}
		if e.Paid {
			entry.Paid = "Yes"
		}
		entries = append(entries, entry)
	}
	c.JSON(http.StatusOK, successResponse(entries))
}

func (h *Handler) listAlerts(c *gin.Context) {
	incidents, err := h.ledger.ListIncidents(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list incidents")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}
	c.JSON(http.StatusOK, successResponse(incidents))
}

func (h *Handler) login(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	if h.config.HTTP.Auth.OperatorPassword == "" ||
		req.Password != h.config.HTTP.Auth.OperatorPassword {
		c.JSON(http.StatusUnauthorized, errorResponse("invalid credentials"))
		return
	}

	token, err := issueToken(h.config.HTTP.Auth)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to issue token")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}
