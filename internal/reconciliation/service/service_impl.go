package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/uaizouk/backoffice/internal/breakdown"
	"github.com/uaizouk/backoffice/internal/clock"
	"github.com/uaizouk/backoffice/internal/config"
	"github.com/uaizouk/backoffice/internal/description"
	"github.com/uaizouk/backoffice/internal/observability/logger"
	paymentdomain "github.com/uaizouk/backoffice/internal/paymentprovider/domain"
	"github.com/uaizouk/backoffice/internal/phone"
	"github.com/uaizouk/backoffice/internal/reconciliation/domain"
	regdomain "github.com/uaizouk/backoffice/internal/registration/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultProviderPageSize = 100

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Cfg      config.Config
	Repo     regdomain.Repository
	Provider paymentdomain.Client `optional:"true"`

	Rules *config.ReconciliationConfigHolder
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     regdomain.Repository
	provider paymentdomain.Client
	rules    *config.ReconciliationConfigHolder
	pageSize int
}

func New(p Params) domain.Service {
	pageSize := p.Cfg.Provider.PageSize
	if pageSize <= 0 {
		pageSize = defaultProviderPageSize
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("reconciliation.service"),
		clock:    p.Clock,
		repo:     p.Repo,
		provider: p.Provider,
		rules:    p.Rules,
		pageSize: pageSize,
	}
}

func (s *Service) RunBreakdownRecalculation(ctx context.Context) (domain.Summary, error) {
	rules := s.rules.Get()
	calc, err := breakdown.NewCalculator(rules.Rates())
	if err != nil {
		return domain.Summary{}, err
	}
	log := logger.WithContext(ctx, s.log)

	var (
		summary domain.Summary
		cursor  regdomain.Cursor
	)
	for {
		rows, err := s.repo.ListBreakdownCandidates(ctx, s.db, cursor, rules.BatchSize)
		if err != nil {
			return summary, fmt.Errorf("%w: %w", domain.ErrStoreQuery, err)
		}
		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			summary.Total++
			result, err := s.recalculate(ctx, calc, row)
			if err != nil {
				summary.ErrorCount++
				log.Warn("reconciliation.row.failed",
					zap.Int64("registration_id", row.ID),
					zap.String("name", row.FullName),
					zap.String("total", row.Total.String()),
					zap.String("payment_method", row.PaymentMethod),
					zap.Error(err),
				)
				continue
			}
			summary.SuccessCount++
			log.Info("reconciliation.row.updated",
				zap.Int64("registration_id", row.ID),
				zap.String("name", row.FullName),
				zap.String("total", row.Total.String()),
				zap.String("base_total", result.BaseTotal.String()),
				zap.String("discount_amount", result.DiscountAmount.String()),
				zap.String("fee_amount", result.FeeAmount.String()),
			)
		}
		if len(rows) < rules.BatchSize || len(rows) == 0 {
			break
		}
		cursor = regdomain.CursorAfter(rows[len(rows)-1])
	}

	log.Info("reconciliation.breakdown.finished",
		zap.Int("success_count", summary.SuccessCount),
		zap.Int("error_count", summary.ErrorCount),
		zap.Int("total", summary.Total),
	)
	return summary, nil
}

func (s *Service) recalculate(ctx context.Context, calc *breakdown.Calculator, row regdomain.Registration) (breakdown.Breakdown, error) {
	result, err := calc.Calculate(row.Total, row.PaymentMethod)
	if err != nil {
		return breakdown.Breakdown{}, err
	}
	err = s.repo.UpdateBreakdown(ctx, s.db, row.ID, regdomain.Breakdown{
		BaseTotal:      result.BaseTotal,
		DiscountAmount: result.DiscountAmount,
		FeeAmount:      result.FeeAmount,
		FeePercentage:  result.FeePercentage,
	}, s.clock.Now())
	if err != nil {
		return breakdown.Breakdown{}, fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	return result, nil
}

func (s *Service) RunPhoneReconciliation(ctx context.Context) (domain.PhoneReport, error) {
	report := domain.PhoneReport{Flagged: []domain.PhoneIssue{}}
	if s.provider == nil {
		return report, fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, paymentdomain.ErrNotConfigured)
	}
	rules := s.rules.Get()
	cutoff, err := rules.Cutoff()
	if err != nil {
		return report, err
	}
	log := logger.WithContext(ctx, s.log)

	var cursor regdomain.Cursor
	for {
		rows, err := s.repo.ListCreatedSince(ctx, s.db, cutoff, cursor, rules.BatchSize)
		if err != nil {
			return report, fmt.Errorf("%w: %w", domain.ErrStoreQuery, err)
		}
		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			report.Checked++
			if phone.Digits(row.CPF) == "" {
				report.Skipped++
				continue
			}
			customer, err := s.provider.FindCustomerByTaxID(ctx, row.CPF)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return report, ctxErr
				}
				report.Errors++
				log.Warn("reconciliation.row.failed",
					zap.Int64("registration_id", row.ID),
					zap.String("name", row.FullName),
					zap.Error(err),
				)
				continue
			}
			if customer == nil {
				report.Skipped++
				log.Debug("reconciliation.phone.customer_missing", zap.Int64("registration_id", row.ID))
				continue
			}
			issue, flagged := comparePhone(row, *customer, rules.PhonePlaceholder)
			if !flagged {
				continue
			}
			report.Flagged = append(report.Flagged, issue)
			log.Info("reconciliation.phone.flagged",
				zap.Int64("registration_id", row.ID),
				zap.String("name", row.FullName),
				zap.String("reason", issue.Reason),
			)
		}
		if len(rows) < rules.BatchSize || len(rows) == 0 {
			break
		}
		cursor = regdomain.CursorAfter(rows[len(rows)-1])
	}

	log.Info("reconciliation.phones.finished",
		zap.Int("checked", report.Checked),
		zap.Int("skipped", report.Skipped),
		zap.Int("errors", report.Errors),
		zap.Int("flagged", len(report.Flagged)),
	)
	return report, nil
}

// comparePhone flags a placeholder local phone, or a local phone whose digits
// differ from the normalized provider phone. A customer without any phone
// can only be flagged by the placeholder rule.
func comparePhone(row regdomain.Registration, customer paymentdomain.Customer, placeholder string) (domain.PhoneIssue, bool) {
	local := row.PhoneValue()
	var external string
	if raw := customer.ContactPhone(); raw != nil {
		external = *raw
	}
	normalized := phone.NormalizeString(external)

	issue := domain.PhoneIssue{
		RegistrationID:          row.ID,
		Name:                    row.FullName,
		CPF:                     row.CPF,
		Email:                   row.Email,
		LocalPhone:              local,
		ExternalPhone:           external,
		NormalizedExternalPhone: normalized,
	}
	switch {
	case phone.IsPlaceholder(local, placeholder):
		issue.Reason = domain.PhoneReasonPlaceholder
	case normalized != "" && phone.Digits(local) != normalized:
		issue.Reason = domain.PhoneReasonMismatch
	default:
		return domain.PhoneIssue{}, false
	}
	return issue, true
}

func (s *Service) RunInstallmentAudit(ctx context.Context) (domain.InstallmentReport, error) {
	report := domain.InstallmentReport{Flagged: []domain.InstallmentIssue{}}
	if s.provider == nil {
		return report, fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, paymentdomain.ErrNotConfigured)
	}
	rules := s.rules.Get()
	cutoff, err := rules.Cutoff()
	if err != nil {
		return report, err
	}
	parser := description.NewParser(rules.Parser())
	log := logger.WithContext(ctx, s.log)

	minCount := 1
	payments, err := paymentdomain.ListAllPayments(ctx, s.provider, paymentdomain.PaymentFilter{
		CreatedAfter:                &cutoff,
		InstallmentCountGreaterThan: &minCount,
	}, s.pageSize)
	if err != nil {
		return report, fmt.Errorf("list provider payments: %w", err)
	}

	byCustomer := make(map[string][]paymentdomain.Payment)
	for _, payment := range payments {
		if payment.Deleted || payment.Customer == "" {
			continue
		}
		parsed := parser.Parse(payment.Description)
		if parsed == nil || parsed.EventName == nil {
			continue
		}
		byCustomer[payment.Customer] = append(byCustomer[payment.Customer], payment)
	}
	customerIDs := make([]string, 0, len(byCustomer))
	for id := range byCustomer {
		customerIDs = append(customerIDs, id)
	}
	sort.Strings(customerIDs)

	for _, customerID := range customerIDs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++
		canonical, _ := paymentdomain.SelectCanonicalPayment(byCustomer[customerID])

		issue, flagged, err := s.auditCustomer(ctx, parser, customerID, canonical)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			report.Errors++
			log.Warn("reconciliation.installments.customer_failed",
				zap.String("customer_id", customerID),
				zap.String("payment_id", canonical.ID),
				zap.Error(err),
			)
			continue
		}
		if flagged {
			report.Flagged = append(report.Flagged, issue)
			log.Info("reconciliation.installments.flagged",
				zap.String("customer_id", customerID),
				zap.String("payment_id", canonical.ID),
				zap.String("reason", issue.Reason),
			)
		}
	}

	log.Info("reconciliation.installments.finished",
		zap.Int("payments", len(payments)),
		zap.Int("checked", report.Checked),
		zap.Int("errors", report.Errors),
		zap.Int("flagged", len(report.Flagged)),
	)
	return report, nil
}

func (s *Service) auditCustomer(ctx context.Context, parser *description.Parser, customerID string, payment paymentdomain.Payment) (domain.InstallmentIssue, bool, error) {
	customer, err := s.provider.GetCustomer(ctx, customerID)
	if err != nil {
		return domain.InstallmentIssue{}, false, err
	}

	issue := domain.InstallmentIssue{
		PaymentID:            payment.ID,
		CustomerID:           customerID,
		CustomerName:         customer.Name,
		CPF:                  customer.CpfCnpj,
		ProviderInstallments: providerInstallments(parser, payment),
	}
	if payment.Description != nil {
		issue.Description = *payment.Description
	}

	rows, err := s.repo.FindByCPF(ctx, s.db, customer.CpfCnpj)
	if err != nil && !errors.Is(err, regdomain.ErrInvalidCPF) {
		return domain.InstallmentIssue{}, false, fmt.Errorf("%w: %w", domain.ErrStoreQuery, err)
	}
	if len(rows) == 0 {
		issue.Reason = domain.InstallmentReasonRegistrationMissing
		return issue, true, nil
	}

	latest := rows[0]
	issue.RegistrationID = &latest.ID
	issue.LocalInstallments = &latest.Installments
	if issue.ProviderInstallments > 0 && latest.Installments != issue.ProviderInstallments {
		issue.Reason = domain.InstallmentReasonMismatch
		return issue, true, nil
	}
	return domain.InstallmentIssue{}, false, nil
}

// providerInstallments prefers the provider's own count and falls back to
// the "Parcela n de m" total in the description. Zero means unknown.
func providerInstallments(parser *description.Parser, payment paymentdomain.Payment) int {
	if payment.InstallmentCount != nil && *payment.InstallmentCount > 0 {
		return *payment.InstallmentCount
	}
	if parsed := parser.Parse(payment.Description); parsed != nil && parsed.TotalInstallments != nil {
		return *parsed.TotalInstallments
	}
	return 0
}

func (s *Service) ApplyPhoneCorrections(ctx context.Context, issues []domain.PhoneIssue, ids []int64) (domain.Summary, error) {
	var summary domain.Summary
	byID := make(map[int64]domain.PhoneIssue, len(issues))
	for _, issue := range issues {
		byID[issue.RegistrationID] = issue
	}
	log := logger.WithContext(ctx, s.log)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Total++
		issue, ok := byID[id]
		if !ok || issue.NormalizedExternalPhone == "" {
			summary.ErrorCount++
			log.Warn("reconciliation.row.failed",
				zap.Int64("registration_id", id),
				zap.String("reason", "no_provider_phone"),
			)
			continue
		}
		if err := s.repo.UpdatePhone(ctx, s.db, id, issue.NormalizedExternalPhone, s.clock.Now()); err != nil {
			summary.ErrorCount++
			log.Warn("reconciliation.row.failed",
				zap.Int64("registration_id", id),
				zap.String("name", issue.Name),
				zap.Error(fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)),
			)
			continue
		}
		summary.SuccessCount++
		log.Info("reconciliation.row.updated",
			zap.Int64("registration_id", id),
			zap.String("name", issue.Name),
			zap.String("phone", issue.NormalizedExternalPhone),
		)
	}
	return summary, nil
}
