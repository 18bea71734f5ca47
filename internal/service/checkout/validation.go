package checkout

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// customerForm — правила для контактных данных покупателя.
type customerForm struct {
	Name    string `validate:"required,min=2,max=255"`
	Email   string `validate:"omitempty,email"`
	Phone   string `validate:"max=20"`
	Address string `validate:"max=500"`
}

var customerFieldErrors = map[string]error{
	"Name":    ErrCustomerNameLength,
	"Email":   ErrEmailInvalid,
	"Phone":   ErrPhoneTooLong,
	"Address": ErrAddressTooLong,
}

func normalizeCustomer(in domain.CustomerInput) domain.CustomerInput {
	return domain.CustomerInput{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Phone:   strings.TrimSpace(in.Phone),
		Address: strings.TrimSpace(in.Address),
	}
}

// validateRequest возвращает все нарушения сразу, а не только первое.
func (s *Service) validateRequest(req PlaceOrderRequest) []error {
	input := domain.CreateOrderInput{
		Customer:    req.Customer,
		Items:       req.Items,
		TotalAmount: req.TotalAmount,
	}
	errs := input.Validate()

	if req.Customer.Name != "" {
		form := customerForm(req.Customer)
		var fieldErrs validator.ValidationErrors
		if err := s.validate.Struct(form); errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				if mapped, ok := customerFieldErrors[fe.Field()]; ok {
					errs = append(errs, mapped)
				}
			}
		}
	}
	return errs
}
