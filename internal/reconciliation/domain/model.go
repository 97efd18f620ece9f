package domain

// Summary counts the outcome of a job that writes to the store.
type Summary struct {
	SuccessCount int `json:"success_count"`
	ErrorCount   int `json:"error_count"`
	Total        int `json:"total"`
}

const (
	PhoneReasonPlaceholder = "placeholder"
	PhoneReasonMismatch    = "mismatch"
)

// PhoneIssue is a registration whose stored phone disagrees with the provider.
type PhoneIssue struct {
	RegistrationID          int64  `json:"registration_id"`
	Name                    string `json:"name"`
	CPF                     string `json:"cpf"`
	Email                   string `json:"email"`
	LocalPhone              string `json:"local_phone"`
	ExternalPhone           string `json:"external_phone"`
	NormalizedExternalPhone string `json:"normalized_external_phone"`
	Reason                  string `json:"reason"`
}

type PhoneReport struct {
	Checked int          `json:"checked"`
	Skipped int          `json:"skipped"`
	Errors  int          `json:"errors"`
	Flagged []PhoneIssue `json:"flagged"`
}

const (
	InstallmentReasonRegistrationMissing = "registration_missing"
	InstallmentReasonMismatch            = "installment_mismatch"
)

// InstallmentIssue is a provider installment plan that has no matching local
// registration or disagrees with it on the number of installments.
type InstallmentIssue struct {
	PaymentID            string `json:"payment_id"`
	CustomerID           string `json:"customer_id"`
	CustomerName         string `json:"customer_name"`
	CPF                  string `json:"cpf"`
	RegistrationID       *int64 `json:"registration_id,omitempty"`
	LocalInstallments    *int   `json:"local_installments,omitempty"`
	ProviderInstallments int    `json:"provider_installments"`
	Description          string `json:"description"`
	Reason               string `json:"reason"`
}

type InstallmentReport struct {
	Checked int                `json:"checked"`
	Errors  int                `json:"errors"`
	Flagged []InstallmentIssue `json:"flagged"`
}
