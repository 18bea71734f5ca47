package checkout

import "errors"

// Ошибки формы оформления заказа; все они оборачиваются в domain.ErrInvalidInput.
var (
	ErrCustomerNameLength = errors.New("customer name must be between 2 and 255 characters")
	ErrEmailInvalid       = errors.New("invalid email format")
	ErrPhoneTooLong       = errors.New("phone number must be less than 20 characters")
	ErrAddressTooLong     = errors.New("address must be less than 500 characters")
)
