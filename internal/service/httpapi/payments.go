package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
)

type createPaymentOrderRequest struct {
	Amount   decimal.Decimal   `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes"`
}

func (s *Server) createPaymentOrder(c *gin.Context) {
	if s.payments == nil {
		s.respondError(c, domain.ErrPaymentNotConfigured)
		return
	}

	var req createPaymentOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, fmt.Errorf("%w: malformed payment payload", domain.ErrInvalidInput))
		return
	}

	order, err := s.payments.CreateOrder(c.Request.Context(), payment.OrderRequest{
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Payment order created successfully", order)
}

func (s *Server) verifyPayment(c *gin.Context) {
	if s.payments == nil {
		s.respondError(c, domain.ErrPaymentNotConfigured)
		return
	}

	var proof payment.Proof
	if err := c.ShouldBindJSON(&proof); err != nil {
		s.respondError(c, fmt.Errorf("%w: malformed payment payload", domain.ErrInvalidInput))
		return
	}
	if err := s.payments.Verify(proof); err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Payment verified successfully", gin.H{
		"orderId":   proof.OrderID,
		"paymentId": proof.PaymentID,
		"verified":  true,
	})
}
