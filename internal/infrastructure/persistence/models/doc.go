// Package models contains GORM persistence models that map to database tables.
// Domain entities stay free of ORM tags; each model converts to and from its
// entity with ToDomain / XxxModelFromDomain.
//
//   - tenant.go: organizations and stores
//   - partner.go: customers
//   - trade.go: orders and order items
//   - integration.go: per-record sync state
package models
