package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Date is a calendar date as the provider serializes it ("2025-03-14").
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	return Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

func (d *Date) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		d.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		d.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(dateLayout, raw); err == nil {
		d.Time = parsed
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return err
	}
	d.Time = parsed.UTC()
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

type Payment struct {
	ID               string              `json:"id"`
	Customer         string              `json:"customer"`
	Value            decimal.Decimal     `json:"value"`
	NetValue         decimal.NullDecimal `json:"netValue"`
	Status           string              `json:"status"`
	BillingType      string              `json:"billingType"`
	Description      *string             `json:"description"`
	DateCreated      Date                `json:"dateCreated"`
	DueDate          Date                `json:"dueDate"`
	InstallmentCount *int                `json:"installmentCount"`
	InstallmentValue decimal.NullDecimal `json:"installmentValue"`
	Installment      *string             `json:"installment"`
	Deleted          bool                `json:"deleted"`
}

type Customer struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	CpfCnpj     string  `json:"cpfCnpj"`
	Phone       *string `json:"phone"`
	MobilePhone *string `json:"mobilePhone"`
	DateCreated Date    `json:"dateCreated"`
	Deleted     bool    `json:"deleted"`
}

// ContactPhone returns the mobile number when present, falling back to the landline.
func (c Customer) ContactPhone() *string {
	if c.MobilePhone != nil && strings.TrimSpace(*c.MobilePhone) != "" {
		return c.MobilePhone
	}
	if c.Phone != nil && strings.TrimSpace(*c.Phone) != "" {
		return c.Phone
	}
	return nil
}

type PaymentFilter struct {
	CreatedAfter                *time.Time
	InstallmentCountGreaterThan *int
}

type Page struct {
	Limit  int
	Offset int
}

type PaymentPage struct {
	Items      []Payment
	HasMore    bool
	TotalCount int
}
