package service

import (
	"github.com/vitacare/vitacare/internal/cache"
	"github.com/vitacare/vitacare/internal/clock"
	"github.com/vitacare/vitacare/internal/config"
	"github.com/vitacare/vitacare/internal/domain/auditlog"
	"github.com/vitacare/vitacare/internal/domain/plan"
	"github.com/vitacare/vitacare/internal/domain/privilege"
	"github.com/vitacare/vitacare/internal/domain/proration"
	"github.com/vitacare/vitacare/internal/domain/subscription"
	"github.com/vitacare/vitacare/internal/lock"
	"github.com/vitacare/vitacare/internal/logger"
	"github.com/vitacare/vitacare/internal/publisher"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	Clock  clock.Clock
	Locks  *lock.KeyedMutex
	Cache  cache.Cache

	// Repositories
	SubRepo   subscription.Repository
	PlanRepo  plan.Repository
	UsageRepo privilege.Repository

	// External sinks
	EventPublisher publisher.EventPublisher
	AuditSink      auditlog.Sink

	// Calculators
	ProrationCalculator proration.Calculator
}
