package service

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/blindpi/arccm-api/internal/dto"
	"github.com/blindpi/arccm-api/internal/models"
	"github.com/blindpi/arccm-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.RequirementDefinition{},
		&models.ComplianceRecord{},
		&models.TierHistory{},
		&models.ProgressionPath{},
		&models.ProgressionRequirement{},
		&models.AuditEvent{},
	))
	return db
}

func createUser(t *testing.T, db *gorm.DB, role, tier string) models.User {
	t.Helper()
	user := models.User{Name: "Test User", Email: role + "-" + tier + "-" + t.Name() + "@example.com", Role: role, Tier: tier}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createDefinition(t *testing.T, db *gorm.DB, name, role, tier string, mandatory bool, points, dueDays int) models.RequirementDefinition {
	t.Helper()
	definition := models.RequirementDefinition{
		Name:                  name,
		Role:                  role,
		Tier:                  tier,
		Category:              "certification",
		Type:                  models.RequirementTypeCertification,
		Mandatory:             mandatory,
		PointsValue:           points,
		DueDaysFromAssignment: dueDays,
	}
	require.NoError(t, db.Create(&definition).Error)
	return definition
}

// fakeChangeFeed records published events without touching Redis or NATS.
type fakeChangeFeed struct {
	mu     sync.Mutex
	events []dto.RecordChangeEvent
}

func (f *fakeChangeFeed) PublishRecordChange(_ context.Context, event dto.RecordChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeChangeFeed) Subscribe(uint) (<-chan dto.RecordChangeEvent, func()) {
	ch := make(chan dto.RecordChangeEvent)
	close(ch)
	return ch, func() {}
}

func (f *fakeChangeFeed) Start(context.Context) {}

func (f *fakeChangeFeed) published() []dto.RecordChangeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dto.RecordChangeEvent(nil), f.events...)
}

// fakeInvalidator counts cache invalidations.
type fakeInvalidator struct {
	mu    sync.Mutex
	count int
}

func (f *fakeInvalidator) Invalidate(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
}

func (f *fakeInvalidator) invalidations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

type serviceEnv struct {
	db           *gorm.DB
	users        repository.UserRepository
	requirements repository.RequirementRepository
	records      repository.RecordRepository
	history      repository.TierHistoryRepository
	progression  repository.ProgressionRepository
	auditLog     repository.AuditLogRepository
	audit        AuditService
	engine       *AssignmentEngine
	locks        *UserLocks
	feed         *fakeChangeFeed
	invalidator  *fakeInvalidator
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()
	db := setupServiceDB(t)

	users := repository.NewUserRepository(db)
	requirements := repository.NewRequirementRepository(db)
	records := repository.NewRecordRepository(db)
	history := repository.NewTierHistoryRepository(db)
	progression := repository.NewProgressionRepository(db)
	auditLog := repository.NewAuditLogRepository(db)

	return &serviceEnv{
		db:           db,
		users:        users,
		requirements: requirements,
		records:      records,
		history:      history,
		progression:  progression,
		auditLog:     auditLog,
		audit:        NewAuditService(auditLog, testValidator(), testLogger()),
		engine:       NewAssignmentEngine(requirements, records),
		locks:        NewUserLocks(),
		feed:         &fakeChangeFeed{},
		invalidator:  &fakeInvalidator{},
	}
}

func (e *serviceEnv) tierService() TierService {
	return NewTierService(e.db, e.users, e.history, e.engine, e.locks, e.audit, e.feed, e.invalidator, testLogger())
}

func (e *serviceEnv) recordService() RecordService {
	return NewRecordService(e.records, testValidator(), e.audit, e.feed, e.invalidator, testLogger())
}

func auditFilterForAction(action string) repository.AuditLogFilter {
	return repository.AuditLogFilter{Action: action, PageSize: 10}
}

func (e *serviceEnv) progressionService() ProgressionService {
	return NewProgressionService(e.db, e.users, e.records, e.progression, e.engine, e.locks, e.audit, e.feed, e.invalidator, testLogger())
}
