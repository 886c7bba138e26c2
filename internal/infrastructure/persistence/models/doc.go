// Package models contains the GORM persistence models backing the pricing
// rule store and the catalog and customer adapters.
//
// Monetary columns are decimal(18,4); validity bounds are date columns and
// are always written and compared as UTC midnight.
package models
