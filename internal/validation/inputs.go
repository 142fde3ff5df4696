package validation

import (
	"amlguard/internal/models"
)

// Transaction validates a create or full update body.
func (v *Validator) Transaction(in *models.TransactionInput) {
	v.Struct(in)
	if in.Amount != nil {
		v.Amount("amount", *in.Amount)
	}
	v.Check(in.Description != nil, "description", "this field is required")
}

// TransactionPatch validates a partial update body.
func (v *Validator) TransactionPatch(in *models.TransactionPatch) {
	v.Struct(in)
	if in.Amount != nil {
		v.Amount("amount", *in.Amount)
	}
}

// Registration validates a sign-up body.
func (v *Validator) Registration(in *models.RegisterInput) {
	v.Struct(in)
	v.Password("password", in.Password)
}

// ValidateTransaction is a convenience wrapper returning an Errors value or nil.
func ValidateTransaction(in *models.TransactionInput) error {
	v := New()
	v.Transaction(in)
	return v.Err()
}
