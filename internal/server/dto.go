package server

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshika/debtledger/backend/internal/domain"
	"github.com/vanshika/debtledger/backend/internal/service"
)

type registerUserRequest struct {
	DisplayName    string `json:"display_name"`
	Email          string `json:"email"`
	TelegramChatID int64  `json:"telegram_chat_id"`
}

type userRefRequest struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

func (r userRefRequest) toRef() service.UserRef {
	return service.UserRef{ID: r.ID, Code: r.Code}
}

type createDebtRequest struct {
	Mode             string           `json:"mode"`
	CreatorRole      string           `json:"creator_role"`
	CounterpartyID   string           `json:"counterparty_id"`
	CounterpartyCode string           `json:"counterparty_code"`
	CounterpartyName string           `json:"counterparty_name"`
	Amount           decimal.Decimal  `json:"amount"`
	Currency         string           `json:"currency"`
	Deadline         string           `json:"deadline"`
	Description      string           `json:"description"`
	InstallmentType  string           `json:"installment_type"`
	Witnesses        []userRefRequest `json:"witnesses"`
}

func (req createDebtRequest) toServiceInput(creatorID string) (service.CreateDebtInput, error) {
	in := service.CreateDebtInput{
		CreatorID:        creatorID,
		Mode:             domain.Mode(req.Mode),
		CreatorRole:      domain.Role(req.CreatorRole),
		Counterparty:     service.UserRef{ID: req.CounterpartyID, Code: req.CounterpartyCode},
		CounterpartyName: req.CounterpartyName,
		Amount:           req.Amount,
		Currency:         req.Currency,
		Description:      req.Description,
		InstallmentType:  domain.InstallmentType(req.InstallmentType),
	}
	for _, w := range req.Witnesses {
		in.Witnesses = append(in.Witnesses, w.toRef())
	}
	if req.Deadline != "" {
		deadline, err := time.Parse(domain.DateLayout, req.Deadline)
		if err != nil {
			return in, service.NewValidationError(map[string]string{"deadline": "must be a date formatted YYYY-MM-DD"})
		}
		in.Deadline = deadline
	}
	return in, nil
}

type nominateRequest struct {
	RecipientID   string `json:"recipient_id"`
	RecipientCode string `json:"recipient_code"`
}

type submitPaymentRequest struct {
	InstallmentID string          `json:"installment_id"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
}

type rejectPaymentRequest struct {
	Reason string `json:"reason"`
}

type userResponse struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
}

type registerUserResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

type debtResponse struct {
	ID                 string `json:"id"`
	Mode               string `json:"mode"`
	CreatorRole        string `json:"creator_role"`
	CreatorID          string `json:"creator_id"`
	Status             string `json:"status"`
	LenderID           string `json:"lender_id"`
	BorrowerID         string `json:"borrower_id,omitempty"`
	CounterpartyName   string `json:"counterparty_name,omitempty"`
	UpgradeRecipientID string `json:"upgrade_recipient_id,omitempty"`
	Amount             string `json:"amount"`
	Currency           string `json:"currency"`
	Deadline           string `json:"deadline"`
	Description        string `json:"description,omitempty"`
	InstallmentType    string `json:"installment_type"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
	SettledAt          string `json:"settled_at,omitempty"`
}

type installmentResponse struct {
	ID          string `json:"id"`
	Amount      string `json:"amount"`
	DueDate     string `json:"due_date"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
}

type paymentResponse struct {
	ID              string `json:"id"`
	DebtID          string `json:"debt_id"`
	InstallmentID   string `json:"installment_id,omitempty"`
	SubmitterID     string `json:"submitter_id"`
	Amount          string `json:"amount"`
	Status          string `json:"status"`
	Description     string `json:"description,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	SubmittedAt     string `json:"submitted_at"`
	ReviewedAt      string `json:"reviewed_at,omitempty"`
}

type witnessResponse struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Status      string `json:"status"`
	ConfirmedAt string `json:"confirmed_at,omitempty"`
}

type debtDetailsResponse struct {
	Debt         debtResponse          `json:"debt"`
	Installments []installmentResponse `json:"installments"`
	Payments     []paymentResponse     `json:"payments"`
	Witnesses    []witnessResponse     `json:"witnesses"`
	Paid         string                `json:"paid"`
	Remaining    string                `json:"remaining"`
}

type debtListResponse struct {
	Items []debtResponse `json:"items"`
}

type noticeResponse struct {
	Notice  string               `json:"notice"`
	Debt    *debtDetailsResponse `json:"debt,omitempty"`
	Payment *paymentResponse     `json:"payment,omitempty"`
	Witness *witnessResponse     `json:"witness,omitempty"`
}

type notificationResponse struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	DebtID    string            `json:"debt_id,omitempty"`
	Message   string            `json:"message"`
	Params    map[string]string `json:"params"`
	CreatedAt string            `json:"created_at"`
	ReadAt    string            `json:"read_at,omitempty"`
}

type notificationListResponse struct {
	Items []notificationResponse `json:"items"`
}

type exposureLine struct {
	UserID   string `json:"user_id,omitempty"`
	Currency string `json:"currency"`
	Owes     string `json:"owes"`
	Owed     string `json:"owed"`
	Net      string `json:"net"`
}

type exposureResponse struct {
	UserID         string         `json:"user_id"`
	Currencies     []exposureLine `json:"currencies"`
	Counterparties []exposureLine `json:"counterparties"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{ID: u.ID, Code: u.Code, DisplayName: u.DisplayName}
}

func toDebtResponse(d domain.Debt) debtResponse {
	return debtResponse{
		ID:                 d.ID,
		Mode:               string(d.Mode),
		CreatorRole:        string(d.CreatorRole),
		CreatorID:          d.CreatorID(),
		Status:             string(d.Status),
		LenderID:           d.LenderID,
		BorrowerID:         d.BorrowerID,
		CounterpartyName:   d.CounterpartyName,
		UpgradeRecipientID: d.UpgradeRecipientID,
		Amount:             domain.FormatMoney(d.Amount),
		Currency:           d.Currency,
		Deadline:           d.Deadline.Format(domain.DateLayout),
		Description:        d.Description,
		InstallmentType:    string(d.InstallmentType),
		CreatedAt:          formatTime(d.CreatedAt),
		UpdatedAt:          formatTime(d.UpdatedAt),
		SettledAt:          formatTimePtr(d.SettledAt),
	}
}

func toPaymentResponse(p domain.Payment) paymentResponse {
	return paymentResponse{
		ID:              p.ID,
		DebtID:          p.DebtID,
		InstallmentID:   p.InstallmentID,
		SubmitterID:     p.SubmitterID,
		Amount:          domain.FormatMoney(p.Amount),
		Status:          string(p.Status),
		Description:     p.Description,
		RejectionReason: p.RejectionReason,
		SubmittedAt:     formatTime(p.SubmittedAt),
		ReviewedAt:      formatTimePtr(p.ReviewedAt),
	}
}

func toWitnessResponse(w domain.Witness) witnessResponse {
	return witnessResponse{
		ID:          w.ID,
		UserID:      w.UserID,
		Status:      string(w.Status),
		ConfirmedAt: formatTimePtr(w.ConfirmedAt),
	}
}

func toDetailsResponse(d service.DebtDetails) debtDetailsResponse {
	out := debtDetailsResponse{
		Debt:         toDebtResponse(d.Debt),
		Installments: make([]installmentResponse, 0, len(d.Installments)),
		Payments:     make([]paymentResponse, 0, len(d.Payments)),
		Witnesses:    make([]witnessResponse, 0, len(d.Witnesses)),
		Paid:         domain.FormatMoney(d.Paid),
		Remaining:    domain.FormatMoney(d.Remaining),
	}
	for _, it := range d.Installments {
		out.Installments = append(out.Installments, installmentResponse{
			ID:          it.ID,
			Amount:      domain.FormatMoney(it.Amount),
			DueDate:     it.DueDate.Format(domain.DateLayout),
			Status:      string(it.Status),
			Description: it.Description,
		})
	}
	for _, p := range d.Payments {
		out.Payments = append(out.Payments, toPaymentResponse(p))
	}
	for _, w := range d.Witnesses {
		out.Witnesses = append(out.Witnesses, toWitnessResponse(w))
	}
	return out
}

func toNotificationResponse(n domain.Notification) notificationResponse {
	params := n.Params
	if params == nil {
		params = map[string]string{}
	}
	return notificationResponse{
		ID:        n.ID,
		Type:      string(n.Type),
		DebtID:    n.DebtID,
		Message:   n.Message,
		Params:    params,
		CreatedAt: formatTime(n.CreatedAt),
		ReadAt:    formatTimePtr(n.ReadAt),
	}
}

func toExposureResponse(e domain.Exposure) exposureResponse {
	out := exposureResponse{
		UserID:         e.UserID,
		Currencies:     make([]exposureLine, 0, len(e.Currencies)),
		Counterparties: make([]exposureLine, 0, len(e.Counterparties)),
	}
	for _, c := range e.Currencies {
		out.Currencies = append(out.Currencies, exposureLine{
			Currency: c.Currency,
			Owes:     domain.FormatMoney(c.Owes),
			Owed:     domain.FormatMoney(c.Owed),
			Net:      domain.FormatMoney(c.Net),
		})
	}
	for _, c := range e.Counterparties {
		out.Counterparties = append(out.Counterparties, exposureLine{
			UserID:   c.UserID,
			Currency: c.Currency,
			Owes:     domain.FormatMoney(c.Owes),
			Owed:     domain.FormatMoney(c.Owed),
			Net:      domain.FormatMoney(c.Net),
		})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(ts *time.Time) string {
	if ts == nil || ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}
