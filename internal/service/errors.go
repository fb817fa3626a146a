package service

import "errors"

// Failure kinds of the order-creation flow. The first three are
// validation-class: they abort before anything is persisted. ErrPaymentFailed
// means the order row exists in PAYMENT_FAILED status; it is not rolled back.
var (
	ErrEmptyCart       = errors.New("cart is empty, nothing to order")
	ErrUserNotFound    = errors.New("user not found")
	ErrProductNotFound = errors.New("product in cart not found in catalog")
	ErrPaymentFailed   = errors.New("payment could not be processed")
)
