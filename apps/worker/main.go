package main

import (
	"github.com/uaizouk/backoffice/internal/clock"
	"github.com/uaizouk/backoffice/internal/config"
	"github.com/uaizouk/backoffice/internal/migration"
	"github.com/uaizouk/backoffice/internal/observability"
	"github.com/uaizouk/backoffice/internal/paymentprovider"
	"github.com/uaizouk/backoffice/internal/ratelimit"
	"github.com/uaizouk/backoffice/internal/reconciliation"
	"github.com/uaizouk/backoffice/internal/registration"
	"github.com/uaizouk/backoffice/internal/report"
	"github.com/uaizouk/backoffice/internal/scheduler"
	"github.com/uaizouk/backoffice/internal/server"
	"github.com/uaizouk/backoffice/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		db.Module,
		clock.Module,
		migration.Module,
		ratelimit.Module,

		// Reconciliation
		registration.Module,
		paymentprovider.Module,
		reconciliation.Module,
		report.Module,
		scheduler.Module,

		server.Module,
		fx.Invoke(scheduler.NewScheduler),
	)
	app.Run()
}
