package entities

import "github.com/JonMunkholm/ingest/internal/core"

// OrderStatuses is the closed set of order lifecycle states.
var OrderStatuses = []string{"new", "processing", "shipped", "cancelled", "returned"}

func init() {
	core.Register(core.EntitySchema{
		Name:     "orders",
		Label:    "Orders",
		Position: positionOrders,
		Fields: []core.FieldRule{
			{Name: "order_id", Kind: core.KindIdentifier, Required: true},
			{Name: "customer_id", Kind: core.KindIdentifier, Required: true},
			{Name: "order_date", Kind: core.KindTimestamp, Required: true},
			{Name: "status", Kind: core.KindEnum, Required: true, Allowed: OrderStatuses},
			{Name: "total_amount", Kind: core.KindPrice, Required: true},
			{Name: "shipping_cost", Kind: core.KindCost},
			{Name: "shipping_country", Kind: core.KindFreeText},
			{Name: "campaign", Kind: core.KindFreeText},
		},
	})
}
