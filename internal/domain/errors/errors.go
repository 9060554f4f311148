package errors

import (
	"errors"
	"fmt"
)

// Error classes. Every domain error wraps exactly one of them and handlers
// translate the class into a transport status.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUpstream     = errors.New("upstream failure")
	ErrPersistence  = errors.New("persistence failure")
)

var (
	ErrMissingPaymentIntent   = fmt.Errorf("%w: payment intent id is required", ErrValidation)
	ErrPaymentNotSucceeded    = fmt.Errorf("%w: payment is not confirmed", ErrValidation)
	ErrPaymentUnlinked        = fmt.Errorf("%w: payment is not linked to an order", ErrValidation)
	ErrInvalidStatus          = fmt.Errorf("%w: unknown order status", ErrValidation)
	ErrInvalidPreparationTime = fmt.Errorf("%w: preparation time must be between 1 and 240 minutes", ErrValidation)
	ErrInvalidIdentifier      = fmt.Errorf("%w: malformed identifier", ErrValidation)
	ErrInvalidSignature       = fmt.Errorf("%w: invalid webhook signature", ErrValidation)
	ErrSecurityCodeMismatch   = fmt.Errorf("%w: security code does not match", ErrValidation)

	ErrMissingToken = fmt.Errorf("%w: missing credential", ErrUnauthorized)
	ErrInvalidToken = fmt.Errorf("%w: invalid credential", ErrUnauthorized)

	ErrWrongRole          = fmt.Errorf("%w: role not allowed", ErrForbidden)
	ErrNotOwner           = fmt.Errorf("%w: order belongs to another restaurant", ErrForbidden)
	ErrNotAssignedCourier = fmt.Errorf("%w: order is assigned to another courier", ErrForbidden)

	ErrOrderNotFound      = fmt.Errorf("order %w", ErrNotFound)
	ErrRestaurantNotFound = fmt.Errorf("restaurant %w", ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)

	ErrOrderClaimed         = fmt.Errorf("%w: order already claimed by a courier", ErrConflict)
	ErrTransitionNotAllowed = fmt.Errorf("%w: status transition not allowed", ErrConflict)
	ErrConcurrentUpdate     = fmt.Errorf("%w: order changed concurrently", ErrConflict)
	ErrRefundNotEligible    = fmt.Errorf("%w: order is not eligible for a refund", ErrConflict)

	ErrPaymentNotFound = fmt.Errorf("%w: payment not found at processor", ErrUpstream)

	// ErrSchemaUnavailable marks an optional column or table missing from the store.
	ErrSchemaUnavailable = fmt.Errorf("%w: optional schema unavailable", ErrPersistence)
)

var classes = []error{
	ErrValidation,
	ErrUnauthorized,
	ErrForbidden,
	ErrNotFound,
	ErrConflict,
	ErrUpstream,
	ErrPersistence,
}

// Classified reports whether err already carries one of the error classes.
func Classified(err error) bool {
	for _, class := range classes {
		if errors.Is(err, class) {
			return true
		}
	}
	return false
}

// Persistence tags an unclassified storage failure as a persistence error.
func Persistence(err error) error {
	if err == nil || Classified(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

// Upstream tags an unclassified collaborator failure as an upstream error.
func Upstream(err error) error {
	if err == nil || Classified(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}
