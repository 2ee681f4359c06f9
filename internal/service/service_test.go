package service

import (
	"context"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pcprep/pcprep-api/internal/domain"
	"github.com/pcprep/pcprep-api/internal/live"
	"github.com/pcprep/pcprep-api/internal/repository"
	"github.com/pcprep/pcprep-api/internal/repository/dao"
)

var testNow = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

type testEnv struct {
	clock *testclock.Clock
	hub   *live.Hub

	users   *repository.UserRepository
	stock   *repository.StockRepository
	events  *repository.EventRepository
	ledger  *repository.VerificationRepository
	auditDB *repository.AuditRepository
	pledger *repository.PeriodicRepository
	reserve *repository.ReassortRepository

	auth     *AuthService
	user     *UserService
	stockSvc *StockService
	status   *StatusService
	event    *EventService
	share    *ShareLinkService
	verify   *VerificationService
	periodic *PeriodicService
	reassort *ReassortService

	admin domain.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, dao.InitTables(db))

	env := &testEnv{
		clock: testclock.NewClock(testNow),
	}
	env.hub = live.NewHub(env.clock, 2*time.Minute, nil)

	env.users = repository.NewUserRepository(dao.NewUserDAO(db))
	env.stock = repository.NewStockRepository(dao.NewStockDAO(db))
	env.events = repository.NewEventRepository(dao.NewEventDAO(db))
	env.ledger = repository.NewVerificationRepository(dao.NewVerificationDAO(db))
	env.auditDB = repository.NewAuditRepository(dao.NewAuditDAO(db))
	env.pledger = repository.NewPeriodicRepository(dao.NewPeriodicDAO(db))
	env.reserve = repository.NewReassortRepository(dao.NewReassortDAO(db))

	env.auth = NewAuthService(env.users, env.auditDB)
	env.user = NewUserService(env.users, env.auditDB)
	env.stockSvc = NewStockService(env.stock, env.auditDB, env.clock)
	env.status = NewStatusService(env.stock, env.ledger, env.hub, env.clock)
	env.event = NewEventService(env.events, env.stock, env.status, env.auditDB, env.auditDB, env.hub, env.clock)
	env.share = NewShareLinkService(env.events, env.auditDB, env.clock, 72*time.Hour)
	env.verify = NewVerificationService(env.events, env.ledger, env.status, env.auditDB, env.hub, nil, env.clock)
	env.periodic = NewPeriodicService(env.stock, env.pledger, env.reserve, env.auditDB, env.clock)
	env.reassort = NewReassortService(env.reserve, env.stock, env.auditDB, env.clock)

	created, err := env.users.Create(context.Background(), domain.User{
		Username: "admin",
		Password: "unused",
		Role:     domain.RoleAdmin,
		Active:   true,
	})
	require.NoError(t, err)
	env.admin = created

	return env
}

func intPtr(v int) *int { return &v }

func uintPtr(v uint) *uint { return &v }

func group(name string, children ...domain.StockNode) domain.StockNode {
	return domain.StockNode{Name: name, Type: domain.NodeGroup, Children: children}
}

func item(name string, qty int) domain.StockNode {
	return domain.StockNode{Name: name, Type: domain.NodeItem, Quantity: intPtr(qty)}
}

// createTree stores root with nested children and returns it with ids filled in.
func (e *testEnv) createTree(t *testing.T, root domain.StockNode) domain.StockNode {
	t.Helper()

	var setLevels func(n *domain.StockNode, level int)
	setLevels = func(n *domain.StockNode, level int) {
		n.Level = level
		for i := range n.Children {
			setLevels(&n.Children[i], level+1)
		}
	}
	setLevels(&root, 1)

	created, err := e.stock.Create(context.Background(), root)
	require.NoError(t, err)

	return created
}

func (e *testEnv) openEvent(t *testing.T, rootIDs ...uint) domain.Event {
	t.Helper()

	event, err := e.event.Create(context.Background(), e.admin, "Marathon", testNow, rootIDs)
	require.NoError(t, err)

	return event
}

func findChild(n domain.StockNode, name string) domain.StockNode {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}

	return domain.StockNode{}
}
