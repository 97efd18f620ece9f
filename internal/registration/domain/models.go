package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Registration is one row of event_registrations. Intake creates it; only
// the breakdown fields and, on explicit request, the phone are changed here.
type Registration struct {
	ID             int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	FullName       string              `gorm:"column:full_name;not null" json:"full_name"`
	CPF            string              `gorm:"column:cpf;not null;default:''" json:"cpf"`
	Email          string              `gorm:"column:email;not null;default:''" json:"email"`
	Phone          *string             `gorm:"column:phone" json:"phone,omitempty"`
	BirthDate      *datatypes.Date     `gorm:"column:birth_date" json:"birth_date,omitempty"`
	State          string              `gorm:"column:state;not null;default:''" json:"state"`
	City           string              `gorm:"column:city;not null;default:''" json:"city"`
	Total          decimal.Decimal     `gorm:"column:total;type:decimal(10,2);not null" json:"total"`
	BaseTotal      decimal.NullDecimal `gorm:"column:base_total;type:decimal(10,2)" json:"base_total"`
	DiscountAmount decimal.Decimal     `gorm:"column:discount_amount;type:decimal(10,2);not null;default:0" json:"discount_amount"`
	FeeAmount      decimal.Decimal     `gorm:"column:fee_amount;type:decimal(10,2);not null;default:0" json:"fee_amount"`
	FeePercentage  decimal.Decimal     `gorm:"column:fee_percentage;type:decimal(5,2);not null;default:0" json:"fee_percentage"`
	PaymentMethod  string              `gorm:"column:payment_method;not null" json:"payment_method"`
	Installments   int                 `gorm:"column:installments;not null;default:1" json:"installments"`
	PaymentStatus  string              `gorm:"column:payment_status;not null;default:''" json:"payment_status"`
	CreatedAt      time.Time           `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Registration) TableName() string {
	return "event_registrations"
}

// PhoneValue returns the stored phone or "".
func (r Registration) PhoneValue() string {
	if r.Phone == nil {
		return ""
	}
	return *r.Phone
}

// Cursor is a keyset position over (created_at, id).
type Cursor struct {
	CreatedAt time.Time
	ID        int64
}

func (c Cursor) IsZero() bool {
	return c.ID == 0 && c.CreatedAt.IsZero()
}

func CursorAfter(r Registration) Cursor {
	return Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
}

// Breakdown is the set of computed financial fields written back.
type Breakdown struct {
	BaseTotal      decimal.Decimal
	DiscountAmount decimal.Decimal
	FeeAmount      decimal.Decimal
	FeePercentage  decimal.Decimal
}
