package entities

import "github.com/JonMunkholm/ingest/internal/core"

func init() {
	core.Register(core.EntitySchema{
		Name:     "customers",
		Label:    "Customers",
		Position: positionCustomers,
		Fields: []core.FieldRule{
			{Name: "customer_id", Kind: core.KindIdentifier, Required: true},
			{Name: "first_name", Kind: core.KindName, Required: true},
			{Name: "last_name", Kind: core.KindName, Required: true},
			{Name: "email", Kind: core.KindEmail},
			{Name: "country", Kind: core.KindFreeText},
			{Name: "signup_date", Kind: core.KindDate, Required: true},
		},
	})
}
