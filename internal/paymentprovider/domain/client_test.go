package domain

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) Date {
	return NewDate(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func TestSelectCanonicalPayment(t *testing.T) {
	payments := []Payment{
		{ID: "pay_a", DateCreated: date(2025, 1, 10)},
		{ID: "pay_c", DateCreated: date(2025, 2, 1)},
		{ID: "pay_b", DateCreated: date(2025, 2, 1)},
		{ID: "pay_d", DateCreated: date(2024, 12, 31)},
	}

	got, ok := SelectCanonicalPayment(payments)
	require.True(t, ok)
	assert.Equal(t, "pay_c", got.ID)

	reversed := []Payment{payments[3], payments[2], payments[1], payments[0]}
	got, ok = SelectCanonicalPayment(reversed)
	require.True(t, ok)
	assert.Equal(t, "pay_c", got.ID)
	assert.Equal(t, "pay_d", reversed[0].ID, "input must not be reordered")

	_, ok = SelectCanonicalPayment(nil)
	assert.False(t, ok)
}

func TestProviderErrorMatchesSentinel(t *testing.T) {
	var err error = &ProviderError{StatusCode: 500, Body: `{"errors":[]}`}
	assert.True(t, errors.Is(err, ErrProvider))
	assert.True(t, errors.Is(ErrProviderTimeout, ErrProvider))
	assert.Contains(t, err.Error(), "500")
}

func TestPaymentDecode(t *testing.T) {
	body := `{
		"id": "pay_123",
		"customer": "cus_1",
		"value": 116.67,
		"netValue": 112.1,
		"status": "RECEIVED",
		"billingType": "CREDIT_CARD",
		"description": "Parcela 1 de 3 - UAIZOUK 2025",
		"dateCreated": "2025-03-14",
		"dueDate": "2025-04-14",
		"installmentCount": 3,
		"installmentValue": null,
		"installment": "ins_9"
	}`
	var p Payment
	require.NoError(t, json.Unmarshal([]byte(body), &p))

	assert.Equal(t, "116.67", p.Value.StringFixed(2))
	assert.True(t, p.NetValue.Valid)
	assert.False(t, p.InstallmentValue.Valid)
	require.NotNil(t, p.InstallmentCount)
	assert.Equal(t, 3, *p.InstallmentCount)
	assert.Equal(t, "2025-03-14", p.DateCreated.String())
	require.NotNil(t, p.Description)
}

func TestCustomerContactPhone(t *testing.T) {
	mobile, landline, blank := "34988364084", "3432101234", " "

	assert.Equal(t, &mobile, Customer{MobilePhone: &mobile, Phone: &landline}.ContactPhone())
	assert.Equal(t, &landline, Customer{MobilePhone: &blank, Phone: &landline}.ContactPhone())
	assert.Nil(t, Customer{}.ContactPhone())
}

type pagedClient struct {
	pages [][]Payment
	calls []Page
}

func (c *pagedClient) ListPayments(_ context.Context, _ PaymentFilter, page Page) (PaymentPage, error) {
	c.calls = append(c.calls, page)
	idx := len(c.calls) - 1
	if idx >= len(c.pages) {
		return PaymentPage{}, nil
	}
	return PaymentPage{Items: c.pages[idx], HasMore: idx < len(c.pages)-1}, nil
}

func (c *pagedClient) FindCustomerByTaxID(context.Context, string) (*Customer, error) {
	return nil, nil
}

func (c *pagedClient) GetCustomer(context.Context, string) (Customer, error) {
	return Customer{}, ErrNotFound
}

func TestListAllPayments(t *testing.T) {
	client := &pagedClient{pages: [][]Payment{
		{{ID: "p1"}, {ID: "p2"}},
		{{ID: "p3"}},
	}}

	got, err := ListAllPayments(context.Background(), client, PaymentFilter{}, 2)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, []Page{{Limit: 2, Offset: 0}, {Limit: 2, Offset: 2}}, client.calls)

	_, err = ListAllPayments(context.Background(), nil, PaymentFilter{}, 2)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
