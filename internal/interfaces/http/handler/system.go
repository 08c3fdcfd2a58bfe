package handler

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/application/notification"
	"github.com/erp/stockledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// healthCheckTimeout bounds every dependency probe
const healthCheckTimeout = 3 * time.Second

// SystemHandler handles health, statistics and operator endpoints
type SystemHandler struct {
	BaseHandler
	service   *inventoryapp.InventoryService
	feed      *notification.Feed
	name      string
	version   string
	startTime time.Time
	checks    map[string]HealthCheck
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(service *inventoryapp.InventoryService, feed *notification.Feed, name, version string) *SystemHandler {
	return &SystemHandler{
		service:   service,
		feed:      feed,
		name:      name,
		version:   version,
		startTime: time.Now(),
		checks:    make(map[string]HealthCheck),
	}
}

// AddCheck registers a dependency probe reported by Health
func (h *SystemHandler) AddCheck(name string, check HealthCheck) *SystemHandler {
	h.checks[name] = check
	return h
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status" example:"ok"`
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	GoVersion string            `json:"go_version"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Health godoc
// @Summary      Health check
// @Description  Reports 503 when any dependency probe fails
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=HealthResponse}
// @Failure      503 {object} dto.Response{data=HealthResponse}
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]string, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			if err := h.checks[name](ctx); err != nil {
				results[i] = err.Error()
				return err
			}
			results[i] = "ok"
			return nil
		})
	}
	failed := g.Wait() != nil

	resp := HealthResponse{
		Status:    "ok",
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
	if len(names) > 0 {
		resp.Checks = make(map[string]string, len(names))
		for i, name := range names {
			resp.Checks[name] = results[i]
		}
	}

	status := http.StatusOK
	if failed {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, dto.Response{Success: !failed, Data: resp})
}

// Stats godoc
// @Summary      Inventory statistics
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=inventory.Stats}
// @Router       /stats [get]
func (h *SystemHandler) Stats(c *gin.Context) {
	h.Success(c, h.service.Stats(c.Request.Context()))
}

// NotificationsResponse holds the recent notifications and toasts
type NotificationsResponse struct {
	Notifications []notification.Notification `json:"notifications"`
	Toasts        []notification.Toast        `json:"toasts"`
}

// Notifications godoc
// @Summary      Recent notifications
// @Description  Newest first
// @Tags         system
// @Produce      json
// @Param        limit query int false "Maximum entries of each kind"
// @Success      200 {object} dto.Response{data=NotificationsResponse}
// @Router       /notifications [get]
func (h *SystemHandler) Notifications(c *gin.Context) {
	var query struct {
		Limit int `form:"limit" binding:"omitempty,min=1,max=1000"`
	}
	if !h.bindQuery(c, &query) {
		return
	}
	h.Success(c, NotificationsResponse{
		Notifications: h.feed.Notifications(query.Limit),
		Toasts:        h.feed.Toasts(query.Limit),
	})
}

// SeedDefaultsResponse reports whether default registries were seeded
type SeedDefaultsResponse struct {
	Seeded bool `json:"seeded"`
}

// SeedDefaults godoc
// @Summary      Seed default categories and suppliers
// @Description  Only seeds when both registries are empty
// @Tags         admin
// @Produce      json
// @Success      200 {object} dto.Response{data=SeedDefaultsResponse}
// @Router       /admin/seed-defaults [post]
func (h *SystemHandler) SeedDefaults(c *gin.Context) {
	seeded, err := h.service.InitializeDefaults(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, SeedDefaultsResponse{Seeded: seeded})
}

// Reset godoc
// @Summary      Clear all inventory data
// @Description  Removes every product, category, supplier and ledger entry, and the notification feed
// @Tags         admin
// @Produce      json
// @Success      200 {object} dto.Response{data=inventoryapp.ResetResponse}
// @Router       /admin/reset [post]
func (h *SystemHandler) Reset(c *gin.Context) {
	// cleared first so the reset toast survives
	h.feed.Clear()
	res, err := h.service.Reset(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}
