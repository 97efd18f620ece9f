// Package breakdown reconstructs how a recorded registration total splits
// into base price, discount and fee for a given payment method.
package breakdown

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	MethodPix            = "pix"
	MethodPixInstallment = "pix_installment"
	MethodCreditCard     = "credit_card"
	MethodPaypal         = "paypal"
)

// Tolerance is the maximum accepted drift of the breakdown identity.
var Tolerance = decimal.New(1, -2)

var (
	ErrInvalidAmount = errors.New("invalid_amount")
	ErrInvalidRates  = errors.New("invalid_rates")
)

var hundred = decimal.NewFromInt(100)

// Rates are percentages, so 5 means 5%.
type Rates struct {
	PixDiscountPercent decimal.Decimal
	CardFeePercent     decimal.Decimal
}

func DefaultRates() Rates {
	return Rates{
		PixDiscountPercent: decimal.NewFromInt(5),
		CardFeePercent:     decimal.NewFromInt(5),
	}
}

func (r Rates) Validate() error {
	if r.PixDiscountPercent.IsNegative() || r.PixDiscountPercent.GreaterThanOrEqual(hundred) {
		return fmt.Errorf("%w: pix discount must be in [0, 100), got %s", ErrInvalidRates, r.PixDiscountPercent)
	}
	if r.CardFeePercent.IsNegative() {
		return fmt.Errorf("%w: card fee must not be negative, got %s", ErrInvalidRates, r.CardFeePercent)
	}
	return nil
}

type Breakdown struct {
	BaseTotal      decimal.Decimal `json:"base_total"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FeeAmount      decimal.Decimal `json:"fee_amount"`
	FeePercentage  decimal.Decimal `json:"fee_percentage"`
}

// Verify reports whether base - discount + fee equals total within Tolerance.
func (b Breakdown) Verify(total decimal.Decimal) bool {
	got := b.BaseTotal.Sub(b.DiscountAmount).Add(b.FeeAmount)
	return got.Sub(total).Abs().LessThanOrEqual(Tolerance)
}

type Calculator struct {
	rates Rates
}

func NewCalculator(rates Rates) (*Calculator, error) {
	if err := rates.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{rates: rates}, nil
}

func (c *Calculator) Rates() Rates {
	return c.rates
}

// Calculate derives the breakdown of total for the payment method.
// Unknown methods carry no adjustment.
func (c *Calculator) Calculate(total decimal.Decimal, method string) (Breakdown, error) {
	rounded := total.Round(2)
	if !rounded.IsPositive() {
		return Breakdown{}, fmt.Errorf("%w: total %s", ErrInvalidAmount, total)
	}
	total = rounded

	switch ParseMethod(method) {
	case MethodPix:
		rate := c.rates.PixDiscountPercent
		base := total.Div(decimal.NewFromInt(1).Sub(rate.Div(hundred))).Round(2)
		return Breakdown{
			BaseTotal:      base,
			DiscountAmount: base.Sub(total),
			FeeAmount:      decimal.Zero,
			FeePercentage:  rate.Round(2),
		}, nil
	case MethodPixInstallment, MethodCreditCard:
		rate := c.rates.CardFeePercent
		base := total.Div(decimal.NewFromInt(1).Add(rate.Div(hundred))).Round(2)
		return Breakdown{
			BaseTotal:      base,
			DiscountAmount: decimal.Zero,
			FeeAmount:      total.Sub(base),
			FeePercentage:  rate.Round(2),
		}, nil
	default:
		return Breakdown{
			BaseTotal:      total,
			DiscountAmount: decimal.Zero,
			FeeAmount:      decimal.Zero,
			FeePercentage:  decimal.Zero,
		}, nil
	}
}

func ParseMethod(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
