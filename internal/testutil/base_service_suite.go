package testutil

import (
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/vitacare/vitacare/internal/cache"
	"github.com/vitacare/vitacare/internal/clock"
	"github.com/vitacare/vitacare/internal/config"
	"github.com/vitacare/vitacare/internal/lock"
	"github.com/vitacare/vitacare/internal/logger"
)

// Stores holds all the in-memory repositories used by service tests
type Stores struct {
	SubRepo   *InMemorySubscriptionStore
	PlanRepo  *InMemoryPlanStore
	UsageRepo *InMemoryUsageStore
}

// BaseServiceTestSuite provides common setup for service-layer tests: a
// frozen clock, fresh in-memory stores, and capturing fakes for the event
// publisher and audit sink.
type BaseServiceTestSuite struct {
	suite.Suite
	logger    *logger.Logger
	config    *config.Configuration
	clock     *clock.Mock
	locks     *lock.KeyedMutex
	cache     cache.Cache
	stores    Stores
	publisher *InMemoryPublisher
	auditSink *InMemoryAuditSink
}

// SetupSuite initializes dependencies that survive across tests
func (s *BaseServiceTestSuite) SetupSuite() {
	s.config = config.GetDefaultConfig()

	var err error
	s.logger, err = logger.NewLogger(s.config)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest gives every test a fresh world frozen at a known instant
func (s *BaseServiceTestSuite) SetupTest() {
	s.clock = clock.NewMock(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	s.locks = lock.NewKeyedMutex()
	s.cache = cache.NewInMemoryCache()
	s.stores = Stores{
		SubRepo:   NewInMemorySubscriptionStore(),
		PlanRepo:  NewInMemoryPlanStore(),
		UsageRepo: NewInMemoryUsageStore(),
	}
	s.publisher = NewInMemoryPublisher()
	s.auditSink = NewInMemoryAuditSink()
}

// TearDownTest clears all stores after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.stores.SubRepo.Clear()
	s.stores.PlanRepo.Clear()
	s.stores.UsageRepo.Clear()
	s.publisher.Clear()
	s.auditSink.Clear()
	s.cache.Flush(GetContext())
}

func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

func (s *BaseServiceTestSuite) GetClock() *clock.Mock {
	return s.clock
}

func (s *BaseServiceTestSuite) GetLocks() *lock.KeyedMutex {
	return s.locks
}

func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

func (s *BaseServiceTestSuite) GetPublisher() *InMemoryPublisher {
	return s.publisher
}

func (s *BaseServiceTestSuite) GetAuditSink() *InMemoryAuditSink {
	return s.auditSink
}
