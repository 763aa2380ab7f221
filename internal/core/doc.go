// Package core provides the business logic for batch record validation.
//
// This package holds the domain rules of the ingester, independent of any
// storage or transport layer. It can be used by the pipeline, the status
// server, or tests without modification.
//
// # Architecture
//
// The package is organized around a few key concepts:
//
//   - Rule Tables: Each entity is an [EntitySchema] of [FieldRule] entries,
//     registered via the registry.
//   - Normalization: [Normalize] applies one rule to one raw value, with soft
//     failures (null) and hard failures (reject).
//   - Partitioning: [Partition] splits a [Batch] into cleaned and rejected rows,
//     both in input order.
//
// # Entity Registry
//
// Entities are registered at init time using [Register]:
//
//	core.Register(core.EntitySchema{
//	    Name:     "customers",
//	    Label:    "Customers",
//	    Position: 1,
//	    Fields: []core.FieldRule{
//	        {Name: "customer_id", Kind: core.KindIdentifier, Required: true},
//	        {Name: "email", Kind: core.KindEmail},
//	    },
//	})
//
// # Error Handling
//
// Invalid rows are data, never errors: they end up in
// [PartitionResult.Invalid] with one [FieldError] per violation. Conditions
// that stop an entity from being processed at all are a [FatalError] with an
// [ErrorCode]. Both map to operator-facing messages via [MapError]:
//
//   - RUN001-RUN005: Pipeline errors (config, source, storage, entity)
//   - STO001-STO003: Object store errors
//   - REQ001-REQ006: Status API request errors
//   - DB001-DB002: Run ledger errors
package core
