package domain

import (
	"context"
	"errors"
)

type Service interface {
	RunBreakdownRecalculation(ctx context.Context) (Summary, error)
	RunPhoneReconciliation(ctx context.Context) (PhoneReport, error)
	RunInstallmentAudit(ctx context.Context) (InstallmentReport, error)
	// ApplyPhoneCorrections writes the normalized provider phone for the
	// listed registration ids only. Issues for other ids are ignored.
	ApplyPhoneCorrections(ctx context.Context, issues []PhoneIssue, ids []int64) (Summary, error)
}

var (
	ErrStoreQuery          = errors.New("store_query_failed")
	ErrStoreWrite          = errors.New("store_write_failed")
	ErrProviderUnavailable = errors.New("provider_unavailable")
)
