// Package entities registers the rule table of every ingested entity with the
// core registry. Import this package for its side effects to make the
// entities available to the pipeline.
package entities

// Each entity file uses init() to register its schema.
// Positions fix the run order: parents before children.
const (
	positionCustomers = iota + 1
	positionProducts
	positionOrders
	positionOrderItems
	positionPayments
)
