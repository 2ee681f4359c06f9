package dao

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
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

	require.NoError(t, InitTables(db))

	return db
}

func intPtr(v int) *int { return &v }

func uintPtr(v uint) *uint { return &v }

func TestUserDAO(t *testing.T) {
	ctx := context.Background()
	d := NewUserDAO(newTestDB(t))

	created, err := d.Insert(ctx, User{Username: "chef", Password: "hash", Role: "CHEF", Active: true})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	_, err = d.Insert(ctx, User{Username: "chef", Password: "other", Role: "VIEWER", Active: true})
	assert.ErrorIs(t, err, ErrUsernameExists)

	found, err := d.FindByUsername(ctx, "chef")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	found.Active = false
	found.Role = "VIEWER"
	updated, err := d.Update(ctx, found)
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.Equal(t, "VIEWER", updated.Role)

	_, err = d.FindByID(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = d.Update(ctx, User{ID: 999, Role: "ADMIN"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func seedKit(t *testing.T, d *StockDAO) StockNode {
	t.Helper()

	root, err := d.Insert(context.Background(), StockNode{
		Name:  "Sac PS",
		Type:  "GROUP",
		Level: 1,
		Children: []StockNode{
			{Name: "Compresses", Type: "ITEM", Level: 2, Quantity: intPtr(10)},
			{
				Name:  "Trousse",
				Type:  "GROUP",
				Level: 2,
				Children: []StockNode{
					{Name: "Ciseaux", Type: "ITEM", Level: 3, Quantity: intPtr(1)},
				},
			},
		},
	})
	require.NoError(t, err)

	return root
}

func TestStockDAO_InsertNestedAndFindSubtrees(t *testing.T) {
	ctx := context.Background()
	d := NewStockDAO(newTestDB(t))
	root := seedKit(t, d)

	other, err := d.Insert(ctx, StockNode{Name: "Lot B", Type: "GROUP", Level: 1})
	require.NoError(t, err)

	nodes, err := d.FindSubtrees(ctx, []uint{root.ID})
	require.NoError(t, err)
	assert.Len(t, nodes, 4)
	for _, n := range nodes {
		assert.NotEqual(t, other.ID, n.ID)
	}

	roots, err := d.FindRoots(ctx)
	require.NoError(t, err)
	assert.Len(t, roots, 2)
}

func TestStockDAO_UpdateShiftsDescendantLevels(t *testing.T) {
	ctx := context.Background()
	d := NewStockDAO(newTestDB(t))
	root := seedKit(t, d)

	holder, err := d.Insert(ctx, StockNode{Name: "VPSP", Type: "GROUP", Level: 1})
	require.NoError(t, err)

	nodes, err := d.FindSubtrees(ctx, []uint{root.ID})
	require.NoError(t, err)
	var descendants []uint
	for _, n := range nodes {
		if n.ID != root.ID {
			descendants = append(descendants, n.ID)
		}
	}

	root.ParentID = uintPtr(holder.ID)
	root.Level = 2
	root.Children = nil
	moved, err := d.Update(ctx, root, descendants, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, moved.Level)

	nodes, err = d.FindSubtrees(ctx, []uint{holder.ID})
	require.NoError(t, err)
	levels := map[string]int{}
	for _, n := range nodes {
		levels[n.Name] = n.Level
	}
	assert.Equal(t, map[string]int{"VPSP": 1, "Sac PS": 2, "Compresses": 3, "Trousse": 3, "Ciseaux": 4}, levels)
}

func TestStockDAO_FindExpiringBefore(t *testing.T) {
	ctx := context.Background()
	d := NewStockDAO(newTestDB(t))
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	soon := now.AddDate(0, 0, 5)
	later := now.AddDate(1, 0, 0)
	_, err := d.Insert(ctx, StockNode{
		Name: "Sac", Type: "GROUP", Level: 1,
		Children: []StockNode{
			{Name: "Sérum", Type: "ITEM", Level: 2, Quantity: intPtr(2), ExpiryDate: &soon},
			{Name: "Gel", Type: "ITEM", Level: 2, Quantity: intPtr(2), ExpiryDate: &later},
			{Name: "Gants", Type: "ITEM", Level: 2, Quantity: intPtr(2)},
		},
	})
	require.NoError(t, err)

	nodes, err := d.FindExpiringBefore(ctx, now.AddDate(0, 0, 30))
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "Sérum", nodes[0].Name)
}

func TestStockDAO_DeleteSubtreeRemovesReferences(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	stock := NewStockDAO(db)
	events := NewEventDAO(db)
	ledger := NewVerificationDAO(db)

	root := seedKit(t, stock)
	event, err := events.Insert(ctx, Event{
		Title:  "Concert",
		Date:   time.Date(2026, 6, 21, 0, 0, 0, 0, time.UTC),
		Status: "OPEN",
		Roots:  []EventRoot{{NodeID: root.ID}},
	})
	require.NoError(t, err)

	item := root.Children[0]
	_, err = ledger.Insert(ctx, Verification{EventID: event.ID, NodeID: item.ID, Status: "OK", VerifierName: "a", Source: "staff"})
	require.NoError(t, err)
	_, err = ledger.UpsertLoadState(ctx, ParentLoadState{EventID: event.ID, NodeID: root.ID, Loaded: true, UpdatedAt: time.Now()})
	require.NoError(t, err)

	nodes, err := stock.FindSubtrees(ctx, []uint{root.ID})
	require.NoError(t, err)
	ids := make([]uint, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	require.NoError(t, stock.DeleteSubtree(ctx, ids))

	_, err = stock.FindByID(ctx, root.ID)
	assert.ErrorIs(t, err, ErrNodeNotFound)

	records, err := ledger.FindByEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Empty(t, records)

	states, err := ledger.FindLoadStates(ctx, event.ID)
	require.NoError(t, err)
	assert.Empty(t, states)

	found, err := events.FindByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Empty(t, found.Roots)
}

func TestEventDAO(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	stock := NewStockDAO(db)
	d := NewEventDAO(db)

	a := seedKit(t, stock)
	b, err := stock.Insert(ctx, StockNode{Name: "Lot B", Type: "GROUP", Level: 1})
	require.NoError(t, err)

	created, err := d.Insert(ctx, Event{
		Title:  "Marathon",
		Date:   time.Date(2026, 4, 12, 0, 0, 0, 0, time.UTC),
		Status: "OPEN",
		Roots:  []EventRoot{{NodeID: b.ID, Position: 0}, {NodeID: a.ID, Position: 1}},
	})
	require.NoError(t, err)

	found, err := d.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, found.Roots, 2)
	assert.Equal(t, b.ID, found.Roots[0].NodeID)
	assert.Equal(t, a.ID, found.Roots[1].NodeID)

	closed, err := d.UpdateStatus(ctx, created.ID, "CLOSED")
	require.NoError(t, err)
	assert.Equal(t, "CLOSED", closed.Status)

	open, err := d.FindAll(ctx, "OPEN")
	require.NoError(t, err)
	assert.Empty(t, open)

	_, err = d.UpdateStatus(ctx, 999, "CLOSED")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestEventDAO_ShareLinks(t *testing.T) {
	ctx := context.Background()
	d := NewEventDAO(newTestDB(t))
	now := time.Date(2026, 4, 12, 8, 0, 0, 0, time.UTC)

	_, err := d.FindActiveShareLink(ctx, 1, now)
	assert.ErrorIs(t, err, ErrShareLinkNotFound)

	_, err = d.InsertShareLink(ctx, ShareLink{EventID: 1, Token: "old", Active: true, ExpiresAt: now.Add(-time.Hour)})
	require.NoError(t, err)
	_, err = d.InsertShareLink(ctx, ShareLink{EventID: 1, Token: "fresh", Active: true, ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, err)
	_, err = d.InsertShareLink(ctx, ShareLink{EventID: 2, Token: "fresh", Active: true, ExpiresAt: now.Add(time.Hour)})
	assert.ErrorIs(t, err, ErrShareTokenExists)

	active, err := d.FindActiveShareLink(ctx, 1, now)
	require.NoError(t, err)
	assert.Equal(t, "fresh", active.Token)

	byToken, err := d.FindShareLinkByToken(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, uint(1), byToken.EventID)

	_, err = d.FindShareLinkByToken(ctx, "missing")
	assert.ErrorIs(t, err, ErrShareLinkNotFound)
}

func TestVerificationDAO_LedgerOrder(t *testing.T) {
	ctx := context.Background()
	d := NewVerificationDAO(newTestDB(t))
	at := time.Date(2026, 4, 12, 8, 0, 0, 0, time.UTC)

	first, err := d.Insert(ctx, Verification{EventID: 1, NodeID: 7, Status: "OK", VerifierName: "a", Source: "staff", CreatedAt: at})
	require.NoError(t, err)
	second, err := d.Insert(ctx, Verification{EventID: 1, NodeID: 7, Status: "NOT_OK", VerifierName: "b", Source: "public", CreatedAt: at})
	require.NoError(t, err)
	_, err = d.Insert(ctx, Verification{EventID: 2, NodeID: 7, Status: "OK", VerifierName: "c", Source: "staff", CreatedAt: at})
	require.NoError(t, err)

	records, err := d.FindByEvent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, first.ID, records[0].ID)
	assert.Equal(t, second.ID, records[1].ID)

	recent, err := d.FindRecent(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "NOT_OK", recent[0].Status)
}

func TestVerificationDAO_UpsertLoadState(t *testing.T) {
	ctx := context.Background()
	d := NewVerificationDAO(newTestDB(t))
	at := time.Date(2026, 4, 12, 8, 0, 0, 0, time.UTC)

	_, err := d.UpsertLoadState(ctx, ParentLoadState{EventID: 1, NodeID: 3, Loaded: true, VehicleName: "VPSP 1", UpdatedBy: "chef", UpdatedAt: at})
	require.NoError(t, err)
	_, err = d.UpsertLoadState(ctx, ParentLoadState{EventID: 1, NodeID: 3, Loaded: false, UpdatedBy: "chef", UpdatedAt: at.Add(time.Minute)})
	require.NoError(t, err)

	states, err := d.FindLoadStates(ctx, 1)
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.False(t, states[0].Loaded)
	assert.Empty(t, states[0].VehicleName)
}

func TestAuditDAO(t *testing.T) {
	ctx := context.Background()
	d := NewAuditDAO(newTestDB(t))

	for _, action := range []string{"event_created", "item_verified", "parent_loaded"} {
		_, err := d.Insert(ctx, AuditLog{EventID: uintPtr(4), Actor: "chef", Action: action})
		require.NoError(t, err)
	}
	_, err := d.Insert(ctx, AuditLog{Actor: "admin", Action: "login"})
	require.NoError(t, err)

	entries, err := d.FindByEvent(ctx, 4, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "parent_loaded", entries[0].Action)
}
