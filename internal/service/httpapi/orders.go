package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
)

type orderRequest struct {
	Customer    domain.CustomerInput    `json:"customer"`
	Items       []domain.OrderItemInput `json:"items"`
	TotalAmount decimal.Decimal         `json:"totalAmount"`
	Payment     *paymentProof           `json:"payment"`
}

// paymentProof — данные оплаты из формы; флаг verified от клиента игнорируется,
// подтверждением служит только подпись.
type paymentProof struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
}

func (s *Server) createOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, fmt.Errorf("%w: malformed order payload", domain.ErrInvalidInput))
		return
	}

	placeReq := checkout.PlaceOrderRequest{
		Customer:    req.Customer,
		Items:       req.Items,
		TotalAmount: req.TotalAmount,
	}
	if req.Payment != nil {
		placeReq.Payment = &payment.Proof{
			OrderID:   req.Payment.OrderID,
			PaymentID: req.Payment.PaymentID,
			Signature: req.Payment.Signature,
		}
	}

	order, err := s.checkout.PlaceOrder(c.Request.Context(), placeReq)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Order created successfully", order)
}

func (s *Server) getOrder(c *gin.Context) {
	order, err := s.repos.Orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Order retrieved successfully", order)
}
