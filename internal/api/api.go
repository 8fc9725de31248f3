// Package api exposes demand and price analytics over HTTP.
package api

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"agrimarket/internal/domain"
	"agrimarket/internal/pricechange"
)

// DemandAnalyzer produces the demand forecast payload.
type DemandAnalyzer interface {
	Analyze(ctx context.Context) *domain.DemandAnalytics
}

// PriceService computes price analytics views.
type PriceService interface {
	Run(ctx context.Context, req pricechange.Request) (*domain.PriceAnalytics, error)
}

// Handler serves the analytics routes.
type Handler struct {
	demand  DemandAnalyzer
	prices  PriceService
	timeout time.Duration
	logger  *log.Logger
}

// NewHandler creates a Handler. A non-positive timeout disables the per-request deadline.
func NewHandler(demand DemandAnalyzer, prices PriceService, timeout time.Duration, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{demand: demand, prices: prices, timeout: timeout, logger: logger}
}

// NewApp creates a fiber app with the analytics routes registered.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "agrimarket",
		DisableStartupMessage: true,
		ErrorHandler:          h.errorHandler,
	})
	h.Register(app)
	return app
}

// Register mounts the routes on app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/health", h.HandleHealth)

	api := app.Group("/api/v1")
	analytics := api.Group("/analytics")
	analytics.Get("/demand", h.HandleDemand)
	analytics.Get("/prices", h.HandlePrices)
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// HandleDemand returns the demand forecast. Data-source failures are reported
// in the payload status, so the response is always 200.
func (h *Handler) HandleDemand(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	return c.JSON(h.demand.Analyze(ctx))
}

// HandlePrices returns the price analytics view selected by the type parameter.
// Query parameters: type, date (YYYY-MM-DD), category, marketType.
func (h *Handler) HandlePrices(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	req := pricechange.Request{
		Mode:       c.Query("type"),
		Date:       c.Query("date"),
		Category:   c.Query("category"),
		MarketType: c.Query("marketType"),
	}

	out, err := h.prices.Run(ctx, req)
	if err != nil {
		if isValidationError(err) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		h.logger.Printf("price analytics %s failed: %v", req.Mode, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute price analytics"})
	}
	return c.JSON(out)
}

func (h *Handler) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.UserContext())
	}
	return context.WithTimeout(c.UserContext(), h.timeout)
}

func (h *Handler) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		h.logger.Printf("%s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func isValidationError(err error) bool {
	return errors.Is(err, pricechange.ErrInvalidMode) ||
		errors.Is(err, pricechange.ErrCategoryRequired) ||
		errors.Is(err, pricechange.ErrInvalidDate)
}
