package services

import (
	"errors"
	"fmt"

	"github.com/yeremiapane/food-delivery-app/models"
)

// Error kinds. Every typed error below matches exactly one or two of these
// through errors.Is, which is what the HTTP layer switches on.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicatePayment  = errors.New("duplicate payment")
	ErrStatusTransition  = errors.New("invalid status transition")
	ErrPersistence       = errors.New("persistence failure")
	ErrForcedFailure     = errors.New("simulated failure")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ReferenceNotFoundError is a validation failure caused by an input that
// points at a row which does not exist.
type ReferenceNotFoundError struct {
	Entity string
	ID     uint
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("validation failed: %s %d does not exist", e.Entity, e.ID)
}

func (e *ReferenceNotFoundError) Is(target error) bool {
	return target == ErrValidation || target == ErrNotFound
}

type ItemNotFoundError struct {
	MenuItemID uint
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("menu item %d not found", e.MenuItemID)
}

func (e *ItemNotFoundError) Is(target error) bool {
	return target == ErrValidation || target == ErrNotFound
}

type InsufficientStockError struct {
	MenuItemID uint
	Name       string
	Requested  int
	Available  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %d (%s): requested %d, available %d",
		e.MenuItemID, e.Name, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

type DuplicatePaymentError struct {
	OrderID uint
}

func (e *DuplicatePaymentError) Error() string {
	return fmt.Sprintf("order %d already has a payment", e.OrderID)
}

func (e *DuplicatePaymentError) Is(target error) bool { return target == ErrDuplicatePayment }

type StatusTransitionError struct {
	OrderID uint
	From    models.OrderStatus
	To      models.OrderStatus
}

func (e *StatusTransitionError) Error() string {
	if e.From.Terminal() {
		return fmt.Sprintf("order %d is %s and can no longer change", e.OrderID, e.From)
	}
	return fmt.Sprintf("order %d cannot move from %s to %s", e.OrderID, e.From, e.To)
}

func (e *StatusTransitionError) Is(target error) bool { return target == ErrStatusTransition }

type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// PersistenceError wraps a store failure with the operation that hit it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
