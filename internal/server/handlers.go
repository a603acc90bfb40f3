package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/vanshika/debtledger/backend/internal/auth"
	"github.com/vanshika/debtledger/backend/internal/domain"
	"github.com/vanshika/debtledger/backend/internal/service"
)

// ExposureReader answers the who-owes-whom query.
type ExposureReader interface {
	Exposure(ctx context.Context, userID string) (domain.Exposure, error)
}

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger   *slog.Logger
	ledger   *service.LedgerService
	issuer   *auth.Issuer
	exposure ExposureReader
}

// NewAPIHandlers constructs an APIHandlers instance. exposure may be nil
// when no graph is configured.
func NewAPIHandlers(logger *slog.Logger, ledger *service.LedgerService, issuer *auth.Issuer, exposure ExposureReader) *APIHandlers {
	return &APIHandlers{
		logger:   logger,
		ledger:   ledger,
		issuer:   issuer,
		exposure: exposure,
	}
}

func (h *APIHandlers) registerUser(w http.ResponseWriter, r *http.Request) {
	var payload registerUserRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, err := h.ledger.RegisterUser(r.Context(), service.RegisterUserInput{
		DisplayName:    payload.DisplayName,
		Email:          payload.Email,
		TelegramChatID: payload.TelegramChatID,
	})
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	token, err := h.issuer.GenerateToken(user.ID)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	respondJSON(w, http.StatusCreated, registerUserResponse{User: toUserResponse(user), Token: token})
}

func (h *APIHandlers) lookupUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.ledger.LookupByCode(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	respondJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *APIHandlers) listDebts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	params := service.ListDebtsParams{
		UserID: actor(r),
		Limit:  parseInt(query.Get("limit"), 50),
	}
	fields := map[string]string{}
	if v := query.Get("status"); v != "" {
		status, err := domain.ParseDebtStatus(v)
		if err != nil {
			fields["status"] = "is not included in the list"
		}
		params.Status = status
	}
	if v := query.Get("role"); v != "" {
		role, err := domain.ParseRole(v)
		if err != nil {
			fields["role"] = "is not included in the list"
		}
		params.Role = role
	}
	if len(fields) > 0 {
		h.writeServiceError(w, r, service.NewValidationError(fields), nil)
		return
	}

	debts, err := h.ledger.ListDebts(r.Context(), params)
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	out := debtListResponse{Items: make([]debtResponse, 0, len(debts))}
	for _, d := range debts {
		out.Items = append(out.Items, toDebtResponse(d))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *APIHandlers) createDebt(w http.ResponseWriter, r *http.Request) {
	var payload createDebtRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	input, err := payload.toServiceInput(actor(r))
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	details, err := h.ledger.CreateDebt(r.Context(), input)
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	respondJSON(w, http.StatusCreated, toDetailsResponse(details))
}

func (h *APIHandlers) getDebt(w http.ResponseWriter, r *http.Request) {
	details, err := h.ledger.GetDebt(r.Context(), actor(r), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	respondJSON(w, http.StatusOK, toDetailsResponse(details))
}

func (h *APIHandlers) deleteDebt(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteDebt(r.Context(), mux.Vars(r)["id"], actor(r)); err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandlers) confirmDebt(w http.ResponseWriter, r *http.Request) {
	h.debtAction(w, r, h.ledger.ConfirmDebt)
}

func (h *APIHandlers) rejectDebt(w http.ResponseWriter, r *http.Request) {
	h.debtAction(w, r, h.ledger.RejectDebt)
}

func (h *APIHandlers) acceptUpgrade(w http.ResponseWriter, r *http.Request) {
	h.debtAction(w, r, h.ledger.AcceptUpgrade)
}

func (h *APIHandlers) declineUpgrade(w http.ResponseWriter, r *http.Request) {
	h.debtAction(w, r, func(ctx context.Context, debtID, actorID string) (service.DebtDetails, error) {
		if err := h.ledger.DeclineUpgrade(ctx, debtID, actorID); err != nil {
			return service.DebtDetails{}, err
		}
		return h.ledger.GetDebt(ctx, actorID, debtID)
	})
}

func (h *APIHandlers) nominateUpgrade(w http.ResponseWriter, r *http.Request) {
	var payload nominateRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ref := service.UserRef{ID: payload.RecipientID, Code: payload.RecipientCode}
	h.debtAction(w, r, func(ctx context.Context, debtID, actorID string) (service.DebtDetails, error) {
		return h.ledger.NominateUpgrade(ctx, debtID, actorID, ref)
	})
}

func (h *APIHandlers) inviteWitness(w http.ResponseWriter, r *http.Request) {
	var payload userRefRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.debtAction(w, r, func(ctx context.Context, debtID, actorID string) (service.DebtDetails, error) {
		return h.ledger.InviteWitness(ctx, debtID, actorID, payload.toRef())
	})
}

func (h *APIHandlers) confirmWitness(w http.ResponseWriter, r *http.Request) {
	h.witnessAction(w, r, h.ledger.ConfirmWitness)
}

func (h *APIHandlers) declineWitness(w http.ResponseWriter, r *http.Request) {
	h.witnessAction(w, r, h.ledger.DeclineWitness)
}

func (h *APIHandlers) submitPayment(w http.ResponseWriter, r *http.Request) {
	var payload submitPaymentRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	payment, err := h.ledger.SubmitPayment(r.Context(), service.SubmitPaymentInput{
		DebtID:        mux.Vars(r)["id"],
		SubmitterID:   actor(r),
		InstallmentID: payload.InstallmentID,
		Amount:        payload.Amount,
		Description:   payload.Description,
	})
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	respondJSON(w, http.StatusCreated, toPaymentResponse(payment))
}

func (h *APIHandlers) approvePayment(w http.ResponseWriter, r *http.Request) {
	payment, err := h.ledger.ApprovePayment(r.Context(), mux.Vars(r)["id"], actor(r))
	h.paymentResult(w, r, payment, err)
}

func (h *APIHandlers) rejectPayment(w http.ResponseWriter, r *http.Request) {
	var payload rejectPaymentRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	payment, err := h.ledger.RejectPayment(r.Context(), mux.Vars(r)["id"], actor(r), payload.Reason)
	h.paymentResult(w, r, payment, err)
}

func (h *APIHandlers) paymentResult(w http.ResponseWriter, r *http.Request, payment domain.Payment, err error) {
	if err != nil {
		h.writeServiceError(w, r, err, func() noticeResponse {
			resp := toPaymentResponse(payment)
			return noticeResponse{Payment: &resp}
		})
		return
	}
	respondJSON(w, http.StatusOK, toPaymentResponse(payment))
}

func (h *APIHandlers) listNotifications(w http.ResponseWriter, r *http.Request) {
	items, err := h.ledger.ListNotifications(r.Context(), actor(r), parseInt(r.URL.Query().Get("limit"), 50))
	if err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	out := notificationListResponse{Items: make([]notificationResponse, 0, len(items))}
	for _, n := range items {
		out.Items = append(out.Items, toNotificationResponse(n))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *APIHandlers) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.MarkNotificationRead(r.Context(), actor(r), mux.Vars(r)["id"]); err != nil {
		h.writeServiceError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandlers) getExposure(w http.ResponseWriter, r *http.Request) {
	if h.exposure == nil {
		writeError(w, http.StatusServiceUnavailable, "relationship graph is not configured")
		return
	}
	exp, err := h.exposure.Exposure(r.Context(), actor(r))
	if err != nil {
		h.logger.Error("failed to read exposure", "error", err, "user_id", actor(r))
		writeError(w, http.StatusInternalServerError, "failed to read exposure")
		return
	}
	respondJSON(w, http.StatusOK, toExposureResponse(exp))
}

type debtActionFunc func(ctx context.Context, debtID, actorID string) (service.DebtDetails, error)

// debtAction runs fn and answers with the debt view. Conflicts also carry
// the current view so clients can refresh.
func (h *APIHandlers) debtAction(w http.ResponseWriter, r *http.Request, fn debtActionFunc) {
	debtID, actorID := mux.Vars(r)["id"], actor(r)
	details, err := fn(r.Context(), debtID, actorID)
	if err != nil {
		h.writeServiceError(w, r, err, func() noticeResponse {
			current, gerr := h.ledger.GetDebt(r.Context(), actorID, debtID)
			if gerr != nil {
				return noticeResponse{}
			}
			view := toDetailsResponse(current)
			return noticeResponse{Debt: &view}
		})
		return
	}
	respondJSON(w, http.StatusOK, toDetailsResponse(details))
}

type witnessActionFunc func(ctx context.Context, debtID, actorID string) (domain.Witness, error)

func (h *APIHandlers) witnessAction(w http.ResponseWriter, r *http.Request, fn witnessActionFunc) {
	witness, err := fn(r.Context(), mux.Vars(r)["id"], actor(r))
	if err != nil {
		h.writeServiceError(w, r, err, func() noticeResponse {
			resp := toWitnessResponse(witness)
			return noticeResponse{Witness: &resp}
		})
		return
	}
	respondJSON(w, http.StatusOK, toWitnessResponse(witness))
}

func actor(r *http.Request) string {
	id, _ := auth.UserID(r.Context())
	return id
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	return nil
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}
