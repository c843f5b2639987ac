// Package database provides the SQLite persistence layer for StackPark
// Core.
//
// The core persists exactly what must survive a warm restart: the slot
// occupancy table, per-lift operating counters, and aggregate facility
// statistics. Schema changes ship as embedded SQL migrations applied at
// startup, each in its own transaction.
package database
