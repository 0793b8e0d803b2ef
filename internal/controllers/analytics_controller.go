package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"portfolio-analytics-api/internal/dto"
	"portfolio-analytics-api/internal/models"
	"portfolio-analytics-api/internal/repositories"
	apperrors "portfolio-analytics-api/pkg/errors"
)

type AnalyticsServiceInterface interface {
	GetAnalytics(ctx context.Context, investorID int64, timeframe models.Timeframe) (*dto.AnalyticsReport, string, error)
	InvalidateInvestor(ctx context.Context, investorID int64, reason string) error
}

type AnalyticsController struct {
	service          AnalyticsServiceInterface
	logger           *logrus.Logger
	defaultTimeframe models.Timeframe
	requestTimeout   time.Duration
}

func NewAnalyticsController(
	service AnalyticsServiceInterface,
	logger *logrus.Logger,
	defaultTimeframe models.Timeframe,
	requestTimeout time.Duration,
) *AnalyticsController {
	if defaultTimeframe == "" {
		defaultTimeframe = models.Timeframe1Y
	}
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	return &AnalyticsController{
		service:          service,
		logger:           logger,
		defaultTimeframe: defaultTimeframe,
		requestTimeout:   requestTimeout,
	}
}

func (c *AnalyticsController) RegisterRoutes(r *gin.RouterGroup) {
	investors := r.Group("/investors")
	investors.GET("/:investorId/analytics", c.GetAnalytics)
	investors.DELETE("/:investorId/analytics/cache", c.InvalidateCache)
}

// GetAnalytics returns the analytics report of an investor
// @Summary Investor portfolio analytics
// @Tags analytics
// @Produce json
// @Param investorId path int true "Investor ID"
// @Param timeframe query string false "1M, 3M, 6M, 1Y or ALL"
// @Success 200 {object} dto.AnalyticsReport
// @Failure 400 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/investors/{investorId}/analytics [get]
func (c *AnalyticsController) GetAnalytics(ctx *gin.Context) {
	investorID, err := parseInvestorID(ctx.Param("investorId"))
	if err != nil {
		c.respondError(ctx, apperrors.ErrInvalidInvestorID)
		return
	}

	timeframe := c.defaultTimeframe
	if raw := ctx.Query("timeframe"); raw != "" {
		timeframe, err = models.ParseTimeframe(raw)
		if err != nil {
			c.respondError(ctx, apperrors.NewValidationError("Invalid timeframe", err.Error()))
			return
		}
	}

	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), c.requestTimeout)
	defer cancel()

	report, tier, err := c.service.GetAnalytics(requestCtx, investorID, timeframe)
	if err != nil {
		c.handleError(ctx, investorID, err)
		return
	}

	ctx.Header("X-Cache", tier)
	ctx.JSON(http.StatusOK, report)
}

// InvalidateCache drops the cached reports of an investor
// @Summary Invalidate cached analytics
// @Tags analytics
// @Param investorId path int true "Investor ID"
// @Success 204
// @Router /api/investors/{investorId}/analytics/cache [delete]
func (c *AnalyticsController) InvalidateCache(ctx *gin.Context) {
	investorID, err := parseInvestorID(ctx.Param("investorId"))
	if err != nil {
		c.respondError(ctx, apperrors.ErrInvalidInvestorID)
		return
	}

	if err := c.service.InvalidateInvestor(ctx.Request.Context(), investorID, "manual"); err != nil {
		c.logger.WithError(err).WithField("investor_id", investorID).Error("Failed to invalidate cached analytics")
		c.respondError(ctx, apperrors.NewInternalError("Failed to invalidate cache"))
		return
	}

	ctx.Status(http.StatusNoContent)
}

// handleError maps engine and ledger errors to API errors
func (c *AnalyticsController) handleError(ctx *gin.Context, investorID int64, err error) {
	var integrityErr *models.DataIntegrityError

	switch {
	case errors.As(err, &integrityErr):
		c.respondError(ctx, apperrors.NewDataIntegrityError("Ledger data is inconsistent", integrityErr.Error()))
	case errors.Is(err, repositories.ErrLedgerUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		c.respondError(ctx, apperrors.NewUnavailableError("Ledger temporarily unavailable"))
	case errors.Is(err, models.ErrInvalidTimeframe):
		c.respondError(ctx, apperrors.NewValidationError("Invalid timeframe", err.Error()))
	default:
		c.logger.WithError(err).WithField("investor_id", investorID).Error("Unexpected analytics failure")
		c.respondError(ctx, apperrors.NewInternalError("Failed to compute analytics"))
	}
}

func (c *AnalyticsController) respondError(ctx *gin.Context, appErr *apperrors.AppError) {
	ctx.AbortWithStatusJSON(appErr.Status, dto.ErrorResponse{
		Success:   false,
		Code:      appErr.Code,
		Message:   appErr.Message,
		Details:   appErr.Details,
		Retryable: appErr.Retryable,
	})
}

// parseInvestorID accepts positive decimal ids only
func parseInvestorID(raw string) (int64, error) {
	investorID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if investorID <= 0 {
		return 0, strconv.ErrRange
	}
	return investorID, nil
}
