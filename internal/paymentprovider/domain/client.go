package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Client is read-only access to the payment provider.
type Client interface {
	ListPayments(ctx context.Context, filter PaymentFilter, page Page) (PaymentPage, error)
	// FindCustomerByTaxID returns nil without error when no customer matches.
	FindCustomerByTaxID(ctx context.Context, taxID string) (*Customer, error)
	GetCustomer(ctx context.Context, id string) (Customer, error)
}

var (
	ErrProvider        = errors.New("provider_error")
	ErrProviderTimeout = fmt.Errorf("%w: timeout", ErrProvider)
	ErrNotFound        = errors.New("not_found")
	ErrInvalidConfig   = errors.New("invalid_config")
	ErrNotConfigured   = errors.New("provider_not_configured")
)

// ProviderError is a non-2xx response.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

const maxPages = 10_000

// ListAllPayments walks every page of payments matching filter.
func ListAllPayments(ctx context.Context, client Client, filter PaymentFilter, pageSize int) ([]Payment, error) {
	if client == nil {
		return nil, ErrNotConfigured
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	var out []Payment
	offset := 0
	for i := 0; i < maxPages; i++ {
		page, err := client.ListPayments(ctx, filter, Page{Limit: pageSize, Offset: offset})
		if err != nil {
			return out, fmt.Errorf("list payments offset %d: %w", offset, err)
		}
		out = append(out, page.Items...)
		if len(page.Items) == 0 || !page.HasMore {
			return out, nil
		}
		offset += len(page.Items)
	}
	return out, fmt.Errorf("list payments: exceeded %d pages", maxPages)
}

// SelectCanonicalPayment picks the most recently created payment, breaking
// ties on the greatest id, so the choice never depends on provider ordering.
func SelectCanonicalPayment(payments []Payment) (Payment, bool) {
	if len(payments) == 0 {
		return Payment{}, false
	}
	sorted := make([]Payment, len(payments))
	copy(sorted, payments)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.DateCreated.Equal(b.DateCreated.Time) {
			return a.DateCreated.After(b.DateCreated.Time)
		}
		return a.ID > b.ID
	})
	return sorted[0], true
}
