package customers

import "github.com/ayesh156/eco-system-sub002/internal/money"

type CreateCustomerRequest struct {
	Code          string      `json:"code" validate:"omitempty,max=20"`
	Name          string      `json:"name" validate:"required,max=120"`
	Phone         *string     `json:"phone" validate:"omitempty,max=20"`
	WhatsAppPhone *string     `json:"whatsapp_phone" validate:"omitempty,e164"`
	Email         *string     `json:"email" validate:"omitempty,email"`
	Address       *string     `json:"address" validate:"omitempty,max=300"`
	CreditLimit   money.Cents `json:"credit_limit" validate:"gte=0"`
	Notes         *string     `json:"notes" validate:"omitempty,max=500"`
}

type UpdateCustomerRequest struct {
	Name          *string      `json:"name" validate:"omitempty,max=120"`
	Phone         *string      `json:"phone" validate:"omitempty,max=20"`
	WhatsAppPhone *string      `json:"whatsapp_phone" validate:"omitempty,e164"`
	Email         *string      `json:"email" validate:"omitempty,email"`
	Address       *string      `json:"address" validate:"omitempty,max=300"`
	CreditLimit   *money.Cents `json:"credit_limit" validate:"omitempty,gte=0"`
	IsActive      *bool        `json:"is_active"`
	Notes         *string      `json:"notes" validate:"omitempty,max=500"`
}

type ListCustomersRequest struct {
	Search       string
	CreditStatus string
	ActiveOnly   bool
	Limit        int
	Offset       int
}
