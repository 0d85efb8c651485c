package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"payledger/internal/service"
)

// callerHeader carries the identity of the backend invoking a privileged
// operation. The gateway-webhook backend is the only expected caller;
// verifying the gateway's signature is its job, not the ledger's.
const callerHeader = "X-Ledger-Caller"

// LedgerHandler handles HTTP requests for the payment ledger.
type LedgerHandler struct {
	ledger *service.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledger *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// LogPaymentRequest is the HTTP request body for recording a payment.
type LogPaymentRequest struct {
	PaymentID string `json:"payment_id"`
	Payer     string `json:"payer"`
	Amount    int64  `json:"amount"`
}

// PaymentResponse is the HTTP response for ledger record operations.
type PaymentResponse struct {
	ID         string    `json:"id"`
	PaymentID  string    `json:"payment_id"`
	Payer      string    `json:"payer"`
	Amount     int64     `json:"amount"`
	RecordedAt time.Time `json:"recorded_at"`
}

// LogPayment handles POST /v1/payments
func (h *LedgerHandler) LogPayment(c *gin.Context) {
	var req LogPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	record, err := h.ledger.LogPayment(c.Request.Context(), c.GetHeader(callerHeader), service.LogPaymentRequest{
		PaymentID: req.PaymentID,
		Payer:     req.Payer,
		Amount:    req.Amount,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, PaymentResponse{
		ID:         record.ID,
		PaymentID:  record.PaymentID,
		Payer:      record.Payer,
		Amount:     record.Amount,
		RecordedAt: record.RecordedAt,
	})
}

// GetPayment handles GET /v1/payments/:payment_id
func (h *LedgerHandler) GetPayment(c *gin.Context) {
	record, err := h.ledger.GetPayment(c.Request.Context(), c.Param("payment_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, PaymentResponse{
		ID:         record.ID,
		PaymentID:  record.PaymentID,
		Payer:      record.Payer,
		Amount:     record.Amount,
		RecordedAt: record.RecordedAt,
	})
}

// ListPayments handles GET /v1/payments
func (h *LedgerHandler) ListPayments(c *gin.Context) {
	records, err := h.ledger.ListPayments(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]PaymentResponse, 0, len(records))
	for _, record := range records {
		response = append(response, PaymentResponse{
			ID:         record.ID,
			PaymentID:  record.PaymentID,
			Payer:      record.Payer,
			Amount:     record.Amount,
			RecordedAt: record.RecordedAt,
		})
	}

	respondJSON(c, http.StatusOK, response)
}

// CountResponse is the HTTP response for the record count.
type CountResponse struct {
	Total int64 `json:"total"`
}

// TotalPayments handles GET /v1/payments/count
func (h *LedgerHandler) TotalPayments(c *gin.Context) {
	respondJSON(c, http.StatusOK, CountResponse{Total: h.ledger.TotalPayments()})
}

// StatusResponse is the HTTP response for administrative operations.
type StatusResponse struct {
	Paused bool `json:"paused"`
}

// Pause handles POST /v1/ledger/pause
func (h *LedgerHandler) Pause(c *gin.Context) {
	if err := h.ledger.Pause(c.Request.Context(), c.GetHeader(callerHeader)); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, StatusResponse{Paused: true})
}

// Unpause handles POST /v1/ledger/unpause
func (h *LedgerHandler) Unpause(c *gin.Context) {
	if err := h.ledger.Unpause(c.Request.Context(), c.GetHeader(callerHeader)); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, StatusResponse{Paused: false})
}

// TransferAuthorityRequest is the HTTP request body for an authority handover.
type TransferAuthorityRequest struct {
	NewAuthority string `json:"new_authority"`
}

// TransferAuthority handles POST /v1/ledger/authority
func (h *LedgerHandler) TransferAuthority(c *gin.Context) {
	var req TransferAuthorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.ledger.TransferAuthority(c.Request.Context(), c.GetHeader(callerHeader), req.NewAuthority); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
