package entities

import "github.com/JonMunkholm/ingest/internal/core"

// LineTotalCeiling is the exclusive upper bound on a single line total.
const LineTotalCeiling = 10000

func init() {
	core.Register(core.EntitySchema{
		Name:     "order_items",
		Label:    "Order Items",
		Position: positionOrderItems,
		Fields: []core.FieldRule{
			{Name: "order_item_id", Kind: core.KindIdentifier, Required: true},
			{Name: "order_id", Kind: core.KindIdentifier, Required: true},
			{Name: "product_id", Kind: core.KindIdentifier, Required: true},
			{Name: "quantity", Kind: core.KindCount, Required: true, Min: 1},
			{Name: "unit_price", Kind: core.KindPrice, Required: true},
			{Name: "line_total", Kind: core.KindPrice, Required: true, Max: LineTotalCeiling},
		},
	})
}
