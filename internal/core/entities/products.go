package entities

import "github.com/JonMunkholm/ingest/internal/core"

func init() {
	core.Register(core.EntitySchema{
		Name:     "products",
		Label:    "Products",
		Position: positionProducts,
		Fields: []core.FieldRule{
			{Name: "product_id", Kind: core.KindIdentifier, Required: true},
			{Name: "name", Kind: core.KindName, Required: true},
			{Name: "category", Kind: core.KindName, Required: true},
			{Name: "price", Kind: core.KindPrice, Required: true},
			{Name: "stock_count", Kind: core.KindCount, Required: true, Min: 0},
			{Name: "created_at", Kind: core.KindTimestamp, Required: true},
			{Name: "is_active", Kind: core.KindBool},
		},
	})
}
