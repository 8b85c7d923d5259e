// Package application provides application initialization and dependency wiring.
// It builds the inventory store, simulated calendar, planner, audit trail,
// metrics, handlers, routers and HTTP server, keeping the main package
// focused on CLI parsing and orchestration.
package application
