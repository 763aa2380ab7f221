package entities

import "github.com/JonMunkholm/ingest/internal/core"

// PaymentMethods are the accepted payment methods; anything else is stored as null.
var PaymentMethods = []string{"card", "paypal", "bank", "apple_pay"}

func init() {
	core.Register(core.EntitySchema{
		Name:     "payments",
		Label:    "Payments",
		Position: positionPayments,
		Fields: []core.FieldRule{
			{Name: "payment_id", Kind: core.KindIdentifier, Required: true},
			{Name: "order_id", Kind: core.KindIdentifier, Required: true},
			{Name: "amount", Kind: core.KindPrice, Required: true},
			{Name: "payment_method", Kind: core.KindOptionalEnum, Allowed: PaymentMethods},
			{Name: "paid_at", Kind: core.KindTimestamp, Required: true},
		},
	})
}
