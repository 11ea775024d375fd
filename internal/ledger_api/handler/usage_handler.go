package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/crav-platform/credit-ledger/internal/domain/ledger"
	"github.com/crav-platform/credit-ledger/internal/ledger_api/service"
)

// UsageHandler handles HTTP requests for usage reporting
type UsageHandler struct {
	usageService service.UsageService
	logger       *slog.Logger
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(logger *slog.Logger, usageService service.UsageService) *UsageHandler {
	return &UsageHandler{
		usageService: usageService,
		logger:       logger,
	}
}

// Summary aggregates an account's spend over a reporting window
func (h *UsageHandler) Summary(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	start, end, ok := h.period(c)
	if !ok {
		return
	}

	summary, err := h.usageService.UsageSummary(c.Request.Context(), accountID, start, end)
	if err != nil {
		h.logger.Error("Failed to build usage summary", "account_id", accountID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapSummaryToResponse(summary))
}

// Transactions retrieves paginated ledger entries for an account
func (h *UsageHandler) Transactions(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	start, end, ok := h.period(c)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, total, err := h.usageService.ListTransactions(c.Request.Context(), accountID, start, end, pagination.Page, pagination.PerPage)
	if err != nil {
		h.logger.Error("Failed to list transactions", "account_id", accountID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	var items []EntryResponse
	for _, entry := range entries {
		items = append(items, mapEntryToResponse(entry))
	}

	RespondWithPaginatedData(c, http.StatusOK, items, pagination.Page, pagination.PerPage, int(total))
}

// Transaction retrieves a single ledger entry by id
func (h *UsageHandler) Transaction(c *gin.Context) {
	raw := c.Param("id")
	entryID, err := uuid.Parse(raw)
	if err != nil {
		h.logger.Error("Invalid entry ID", "entry_id", raw, "error", err)
		RespondBadRequest(c, "Invalid entry ID")
		return
	}

	entry, err := h.usageService.GetTransaction(c.Request.Context(), entryID)
	if err != nil {
		if errors.Is(err, ledger.ErrEntryNotFound{}) {
			RespondNotFound(c, "Ledger entry not found")
			return
		}
		h.logger.Error("Failed to get ledger entry", "entry_id", entryID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapEntryToResponse(entry))
}

// Limits reports the account's plan limits and current-period consumption
func (h *UsageHandler) Limits(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	info, err := h.usageService.Limits(c.Request.Context(), accountID)
	if err != nil {
		h.logger.Error("Failed to get limits", "account_id", accountID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, LimitsResponse{
		PlanID:             info.Plan.ID,
		PlanName:           info.Plan.Name,
		CreditLimit:        info.CreditLimit,
		APICallLimit:       info.APICallLimit,
		CreditsUsed:        info.CreditsUsed,
		CreditsUsedPercent: info.CreditsUsedPercent,
	})
}

func (h *UsageHandler) accountID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.Param("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		h.logger.Error("Invalid account ID", "account_id", raw, "error", err)
		RespondBadRequest(c, "Invalid account ID")
		return uuid.Nil, false
	}
	return id, true
}

// period parses the optional RFC 3339 reporting window, defaulting to the
// trailing 30 days
func (h *UsageHandler) period(c *gin.Context) (time.Time, time.Time, bool) {
	var params PeriodParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid period parameters")
		return time.Time{}, time.Time{}, false
	}

	now := time.Now().UTC()
	start, end := now.AddDate(0, 0, -30), now

	if params.PeriodStart != "" {
		parsed, err := time.Parse(time.RFC3339, params.PeriodStart)
		if err != nil {
			RespondBadRequest(c, "Invalid period_start: must be RFC 3339")
			return time.Time{}, time.Time{}, false
		}
		start = parsed
	}
	if params.PeriodEnd != "" {
		parsed, err := time.Parse(time.RFC3339, params.PeriodEnd)
		if err != nil {
			RespondBadRequest(c, "Invalid period_end: must be RFC 3339")
			return time.Time{}, time.Time{}, false
		}
		end = parsed
	}

	if !end.After(start) {
		RespondBadRequest(c, "period_end must be after period_start")
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// mapSummaryToResponse maps a usage summary to a response DTO
func mapSummaryToResponse(s *service.UsageSummary) UsageSummaryResponse {
	byKind := make(map[string]int64, len(s.ByKind))
	for kind, amount := range s.ByKind {
		byKind[string(kind)] = amount
	}

	byDay := make([]DailyUsageItem, 0, len(s.ByDay))
	for _, day := range s.ByDay {
		byDay = append(byDay, DailyUsageItem{
			Date:   day.Date.Format("2006-01-02"),
			Amount: day.Amount,
		})
	}

	return UsageSummaryResponse{
		AccountID:   s.AccountID.String(),
		PeriodStart: s.PeriodStart.Format(time.RFC3339),
		PeriodEnd:   s.PeriodEnd.Format(time.RFC3339),
		Total:       s.Total,
		ByKind:      byKind,
		ByDay:       byDay,
	}
}

// mapEntryToResponse maps a ledger entry to a response DTO
func mapEntryToResponse(entry *ledger.Entry) EntryResponse {
	response := EntryResponse{
		ID:          entry.ID.String(),
		AccountID:   entry.AccountID.String(),
		Amount:      entry.Amount,
		Kind:        string(entry.Kind),
		Description: entry.Description,
		CreatedAt:   entry.CreatedAt.Format(time.RFC3339),
	}
	if entry.SourceEventID != nil {
		response.SourceEventID = *entry.SourceEventID
	}
	return response
}
