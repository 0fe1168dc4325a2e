package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/models"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/payments"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/store"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/validate"
)

type createPaymentRequest struct {
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	PayeeAccount string `json:"payeeAccount"`
	SwiftCode    string `json:"swiftCode"`
}

type submitPaymentsRequest struct {
	IDs []string `json:"ids"`
}

type paymentResponse struct {
	Message string         `json:"message"`
	Payment models.Payment `json:"payment"`
}

type submitPaymentsResponse struct {
	Message  string           `json:"message"`
	Count    int              `json:"count"`
	Payments []models.Payment `json:"payments"`
}

func (h *Handler) handleListPayments(w http.ResponseWriter, r *http.Request) {
	list, err := h.payments.List(r.Context(), h.listLimit())
	if err != nil {
		h.internalError(w, r, "DB error", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleListMyPayments(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	list, err := h.payments.ListForCustomer(r.Context(), user, h.listLimit())
	if err != nil {
		h.internalError(w, r, "DB error", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, _ := UserFromContext(r.Context())

	payment, err := h.payments.Create(r.Context(), user, payments.CreateInput{
		Amount:       req.Amount,
		Currency:     req.Currency,
		PayeeAccount: req.PayeeAccount,
		SwiftCode:    req.SwiftCode,
	})
	if err != nil {
		var verr *validate.Error
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Message)
			return
		}
		h.internalError(w, r, "Payment creation failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, paymentResponse{Message: "Payment created successfully", Payment: payment})
}

func (h *Handler) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	payment, err := h.payments.Verify(r.Context(), user, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrPaymentNotFound) {
			writeError(w, http.StatusNotFound, "Payment not found or already processed")
			return
		}
		h.internalError(w, r, "Verification failed", err)
		return
	}
	h.logger.Info("payment verified", "payment_id", payment.PaymentID, "staff_id", user.UserID)
	writeJSON(w, http.StatusOK, paymentResponse{Message: "Payment verified", Payment: payment})
}

func (h *Handler) handleSubmitPayments(w http.ResponseWriter, r *http.Request) {
	var req submitPaymentsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, _ := UserFromContext(r.Context())

	submitted, err := h.payments.SubmitBatch(r.Context(), user, req.IDs)
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrInvalidIDs):
			writeError(w, http.StatusBadRequest, "Invalid IDs")
		case errors.Is(err, store.ErrPaymentNotFound):
			writeError(w, http.StatusNotFound, "No verified payments found")
		default:
			h.internalError(w, r, "Submission failed", err)
		}
		return
	}
	h.logger.Info("payments submitted", "count", len(submitted), "staff_id", user.UserID)
	writeJSON(w, http.StatusOK, submitPaymentsResponse{
		Message:  fmt.Sprintf("%d payments submitted to SWIFT", len(submitted)),
		Count:    len(submitted),
		Payments: submitted,
	})
}

func (h *Handler) handlePaymentEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.payments.Events(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrPaymentNotFound) {
			writeError(w, http.StatusNotFound, "Payment not found")
			return
		}
		h.internalError(w, r, "DB error", err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
