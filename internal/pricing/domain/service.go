// Package domain defines the pricing resolver contract.
package domain

import (
	"context"
	"errors"
	"strings"

	representativedomain "github.com/parsbill/parsbill/internal/representative/domain"
)

// ServiceClass distinguishes volume-capped from unlimited subscriptions.
type ServiceClass string

const (
	ClassLimited   ServiceClass = "limited"
	ClassUnlimited ServiceClass = "unlimited"
)

const (
	MinDurationMonths = 1
	MaxDurationMonths = 6
)

// Service resolves unit prices deterministically from the representative's
// tier table with fallback to the system default table. No heuristics, so
// invoices stay reproducible and auditable.
type Service interface {
	ResolveUnitPrice(ctx context.Context, representative *representativedomain.Representative, class ServiceClass, durationMonths int) (int64, error)
}

var (
	ErrPricingUnresolved   = errors.New("pricing_unresolved")
	ErrInvalidServiceClass = errors.New("invalid_service_class")
	ErrInvalidDuration     = errors.New("invalid_duration")
)

// ParseServiceClass normalizes a raw class value.
func ParseServiceClass(raw string) (ServiceClass, error) {
	switch ServiceClass(strings.ToLower(strings.TrimSpace(raw))) {
	case ClassLimited:
		return ClassLimited, nil
	case ClassUnlimited:
		return ClassUnlimited, nil
	default:
		return "", ErrInvalidServiceClass
	}
}
