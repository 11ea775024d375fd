package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/crav-platform/credit-ledger/internal/domain/balance"
	"github.com/crav-platform/credit-ledger/internal/ledger_api/middleware"
	"github.com/crav-platform/credit-ledger/internal/ledger_api/service"
)

// CreditHandler handles HTTP requests for authorization and balance operations
type CreditHandler struct {
	entitlementService service.EntitlementService
	balanceService     service.BalanceService
	logger             *slog.Logger
}

// NewCreditHandler creates a new credit handler
func NewCreditHandler(logger *slog.Logger, entitlementService service.EntitlementService, balanceService service.BalanceService) *CreditHandler {
	return &CreditHandler{
		entitlementService: entitlementService,
		balanceService:     balanceService,
		logger:             logger,
	}
}

// Authorize decides a spend request atomically against the ledger
func (h *CreditHandler) Authorize(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	var req AuthorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ctx := service.WithCorrelationID(c.Request.Context(), middleware.GetCorrelationID(c))
	decision, err := h.entitlementService.Authorize(ctx, accountID, req.Amount, req.Description)
	if err != nil {
		var insufficient balance.ErrInsufficientCredits
		if errors.As(err, &insufficient) {
			RespondPaymentRequired(c, "INSUFFICIENT_CREDITS", insufficient.Error())
			return
		}
		h.logger.Error("Failed to authorize spend", "account_id", accountID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapDecisionToResponse(decision))
}

// CheckLimit reports per-period consumption against the account's plan limit
func (h *CreditHandler) CheckLimit(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	kind := service.LimitKind(c.DefaultQuery("kind", string(service.LimitCredits)))
	if kind != service.LimitCredits && kind != service.LimitAPICalls {
		RespondBadRequest(c, "Invalid limit kind: must be credits or api_calls")
		return
	}

	status, err := h.entitlementService.CheckLimit(c.Request.Context(), accountID, kind)
	if err != nil {
		h.logger.Error("Failed to check limit", "account_id", accountID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, LimitStatusResponse{
		Allowed: status.Allowed,
		Kind:    string(status.Kind),
		Used:    status.Used,
		Limit:   status.Limit,
		PlanID:  status.PlanID,
	})
}

// Reserve places an ephemeral hold on credits
func (h *CreditHandler) Reserve(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	var req ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	reservation, err := h.entitlementService.Reserve(c.Request.Context(), accountID, req.Amount)
	if err != nil {
		var insufficient balance.ErrInsufficientCredits
		if errors.As(err, &insufficient) {
			RespondPaymentRequired(c, "INSUFFICIENT_CREDITS", insufficient.Error())
			return
		}
		h.logger.Error("Failed to reserve credits", "account_id", accountID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, ReservationResponse{
		ID:        reservation.ID.String(),
		AccountID: reservation.AccountID.String(),
		Amount:    reservation.Amount,
		ExpiresAt: reservation.ExpiresAt.Format(time.RFC3339),
	})
}

// CommitReservation converts a live reservation into an authorized spend
func (h *CreditHandler) CommitReservation(c *gin.Context) {
	reservationID, ok := h.pathUUID(c, "id", "reservation ID")
	if !ok {
		return
	}

	var req CommitReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ctx := service.WithCorrelationID(c.Request.Context(), middleware.GetCorrelationID(c))
	decision, err := h.entitlementService.CommitReservation(ctx, reservationID, req.Description)
	if err != nil {
		if errors.Is(err, service.ErrReservationNotFound{}) {
			RespondNotFound(c, "Reservation not found or expired")
			return
		}
		var insufficient balance.ErrInsufficientCredits
		if errors.As(err, &insufficient) {
			RespondPaymentRequired(c, "INSUFFICIENT_CREDITS", insufficient.Error())
			return
		}
		h.logger.Error("Failed to commit reservation", "reservation_id", reservationID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapDecisionToResponse(decision))
}

// ReleaseReservation drops a reservation without spending
func (h *CreditHandler) ReleaseReservation(c *gin.Context) {
	reservationID, ok := h.pathUUID(c, "id", "reservation ID")
	if !ok {
		return
	}

	if err := h.entitlementService.ReleaseReservation(c.Request.Context(), reservationID); err != nil {
		if errors.Is(err, service.ErrReservationNotFound{}) {
			RespondNotFound(c, "Reservation not found or expired")
			return
		}
		h.logger.Error("Failed to release reservation", "reservation_id", reservationID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondNoContent(c)
}

// GetBalance retrieves the account's balance projection
func (h *CreditHandler) GetBalance(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	b, err := h.balanceService.GetBalance(c.Request.Context(), accountID)
	if err != nil {
		h.logger.Error("Failed to get balance", "account_id", accountID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapBalanceToResponse(b))
}

// RebuildBalance recomputes the projection from the full ledger
func (h *CreditHandler) RebuildBalance(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	b, err := h.balanceService.Rebuild(c.Request.Context(), accountID)
	if err != nil {
		h.logger.Error("Failed to rebuild balance", "account_id", accountID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapBalanceToResponse(b))
}

// VerifyBalance compares the projection against a full ledger fold
func (h *CreditHandler) VerifyBalance(c *gin.Context) {
	accountID, ok := h.accountID(c)
	if !ok {
		return
	}

	if err := h.balanceService.Verify(c.Request.Context(), accountID); err != nil {
		var drift balance.ErrProjectionDrift
		if errors.As(err, &drift) {
			RespondConflict(c, drift.Error())
			return
		}
		h.logger.Error("Failed to verify balance", "account_id", accountID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, gin.H{"account_id": accountID.String(), "healthy": true})
}

func (h *CreditHandler) accountID(c *gin.Context) (uuid.UUID, bool) {
	return h.pathUUID(c, "id", "account ID")
}

func (h *CreditHandler) pathUUID(c *gin.Context, param, label string) (uuid.UUID, bool) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		h.logger.Error("Invalid "+label, "value", raw, "error", err)
		RespondBadRequest(c, "Invalid "+label)
		return uuid.Nil, false
	}
	return id, true
}

// mapDecisionToResponse maps an authorization decision to a response DTO
func mapDecisionToResponse(d *service.Decision) DecisionResponse {
	response := DecisionResponse{
		Approved:         d.Approved,
		RemainingBalance: d.RemainingBalance,
	}
	if d.EntryID != uuid.Nil {
		response.EntryID = d.EntryID.String()
	}
	return response
}

// mapBalanceToResponse maps a balance projection to a response DTO
func mapBalanceToResponse(b *balance.AccountBalance) BalanceResponse {
	return BalanceResponse{
		AccountID:      b.AccountID.String(),
		Balance:        b.Balance,
		LifetimeEarned: b.LifetimeEarned,
		LifetimeSpent:  b.LifetimeSpent,
		UpdatedAt:      b.UpdatedAt.Format(time.RFC3339),
	}
}
