package handler

// AuthorizeRequest represents a spend authorization request
type AuthorizeRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Description string `json:"description,omitempty"`
}

// DecisionResponse represents an authorization decision in API responses
type DecisionResponse struct {
	Approved         bool   `json:"approved"`
	EntryID          string `json:"entry_id,omitempty"`
	RemainingBalance int64  `json:"remaining_balance"`
}

// ReserveRequest represents a request to hold credits under a lease
type ReserveRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// ReservationResponse represents a credit reservation in API responses
type ReservationResponse struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	Amount    int64  `json:"amount"`
	ExpiresAt string `json:"expires_at"`
}

// CommitReservationRequest converts a reservation into a spend
type CommitReservationRequest struct {
	Description string `json:"description,omitempty"`
}

// BalanceResponse represents a balance projection in API responses
type BalanceResponse struct {
	AccountID      string `json:"account_id"`
	Balance        int64  `json:"balance"`
	LifetimeEarned int64  `json:"lifetime_earned"`
	LifetimeSpent  int64  `json:"lifetime_spent"`
	UpdatedAt      string `json:"updated_at"`
}

// EntryResponse represents a ledger entry in API responses
type EntryResponse struct {
	ID            string `json:"id"`
	AccountID     string `json:"account_id"`
	Amount        int64  `json:"amount"`
	Kind          string `json:"kind"`
	SourceEventID string `json:"source_event_id,omitempty"`
	Description   string `json:"description,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// UsageSummaryResponse represents a period usage summary in API responses
type UsageSummaryResponse struct {
	AccountID   string           `json:"account_id"`
	PeriodStart string           `json:"period_start"`
	PeriodEnd   string           `json:"period_end"`
	Total       int64            `json:"total"`
	ByKind      map[string]int64 `json:"by_kind"`
	ByDay       []DailyUsageItem `json:"by_day"`
}

// DailyUsageItem is one day's spend in a usage summary
type DailyUsageItem struct {
	Date   string `json:"date"`
	Amount int64  `json:"amount"`
}

// LimitsResponse is the dashboard limits block
type LimitsResponse struct {
	PlanID             string  `json:"plan_id"`
	PlanName           string  `json:"plan_name"`
	CreditLimit        int64   `json:"credit_limit"`
	APICallLimit       int64   `json:"api_call_limit"`
	CreditsUsed        int64   `json:"credits_used"`
	CreditsUsedPercent float64 `json:"credits_used_percent"`
}

// LimitStatusResponse reports per-period consumption against a plan limit
type LimitStatusResponse struct {
	Allowed bool   `json:"allowed"`
	Kind    string `json:"kind"`
	Used    int64  `json:"used"`
	Limit   int64  `json:"limit"`
	PlanID  string `json:"plan_id"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}

// PeriodParams represents an optional reporting window, RFC 3339 timestamps.
// Both default to the trailing 30 days when omitted.
type PeriodParams struct {
	PeriodStart string `form:"period_start"`
	PeriodEnd   string `form:"period_end"`
}
