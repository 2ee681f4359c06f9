package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcprep/pcprep-api/internal/domain"
)

func (e *testEnv) sacPS(t *testing.T) domain.StockNode {
	t.Helper()

	return e.createTree(t, group("Sac PS",
		item("Compresses", 10),
		group("Trousse", item("Ciseaux", 1)),
	))
}

func periodicChild(n *domain.PeriodicNode, name string) *domain.PeriodicNode {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}

	return nil
}

func TestStockExpiries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	root := env.sacPS(t)
	compresses := findChild(root, "Compresses")

	late, err := env.stockSvc.AddExpiry(ctx, env.admin, compresses.ID, domain.ItemExpiry{Date: testNow.AddDate(1, 0, 0), Quantity: intPtr(4), Lot: " A12 "})
	require.NoError(t, err)
	assert.Equal(t, "A12", late.Lot)
	soon, err := env.stockSvc.AddExpiry(ctx, env.admin, compresses.ID, domain.ItemExpiry{Date: testNow.AddDate(0, 0, 10), Quantity: intPtr(6)})
	require.NoError(t, err)

	lots, err := env.stockSvc.Expiries(ctx, compresses.ID)
	require.NoError(t, err)
	require.Len(t, lots, 2)
	assert.Equal(t, soon.ID, lots[0].ID)

	node, err := env.stock.FindByID(ctx, compresses.ID)
	require.NoError(t, err)
	require.NotNil(t, node.ExpiryDate)
	assert.True(t, node.ExpiryDate.Equal(soon.Date))

	expiring, err := env.stockSvc.Expiring(ctx, 30)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, compresses.ID, expiring[0].Node.ID)

	require.NoError(t, env.stockSvc.DeleteExpiry(ctx, env.admin, compresses.ID, soon.ID))
	node, err = env.stock.FindByID(ctx, compresses.ID)
	require.NoError(t, err)
	assert.True(t, node.ExpiryDate.Equal(late.Date))

	assert.ErrorIs(t, env.stockSvc.DeleteExpiry(ctx, env.admin, compresses.ID, soon.ID), ErrExpiryNotFound)

	_, err = env.stockSvc.AddExpiry(ctx, env.admin, root.ID, domain.ItemExpiry{Date: testNow})
	assert.ErrorIs(t, err, ErrNotAnItem)
	_, err = env.stockSvc.AddExpiry(ctx, env.admin, compresses.ID, domain.ItemExpiry{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = env.stockSvc.AddExpiry(ctx, env.admin, compresses.ID, domain.ItemExpiry{Date: testNow, Quantity: intPtr(-1)})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPeriodic_TreeAndRoots(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	root := env.sacPS(t)
	env.createTree(t, group("Lot B", item("Gel", 2)))
	compresses := findChild(root, "Compresses")
	ciseaux := findChild(findChild(root, "Trousse"), "Ciseaux")

	_, err := env.stockSvc.AddExpiry(ctx, env.admin, compresses.ID, domain.ItemExpiry{Date: testNow.AddDate(0, 2, 0)})
	require.NoError(t, err)

	rec, err := env.periodic.Verify(ctx, env.admin, compresses.ID, domain.PeriodicCheck{Status: domain.PeriodicOK, IssueCode: domain.IssueDamaged})
	require.NoError(t, err)
	assert.Empty(t, rec.IssueCode)
	assert.Equal(t, "admin", rec.VerifierName)

	tree, err := env.periodic.Tree(ctx, ciseaux.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ID, tree.Root.ID)
	assert.Equal(t, domain.PeriodicStats{TotalItems: 2, OK: 1, Todo: 1, Percent: 50}, tree.Stats)

	node := periodicChild(tree.Tree, "Compresses")
	require.NotNil(t, node)
	assert.Equal(t, domain.PeriodicOK, node.LastStatus)
	assert.Len(t, node.Expiries, 1)
	require.NotNil(t, node.ExpiryDate)
	assert.True(t, node.ExpiryDate.Equal(testNow.AddDate(0, 2, 0)))

	scissors := periodicChild(periodicChild(tree.Tree, "Trousse"), "Ciseaux")
	require.NotNil(t, scissors)
	assert.Equal(t, domain.PeriodicTodo, scissors.LastStatus)

	roots, err := env.periodic.Roots(ctx)
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, "Lot B", roots[0].Name)
	assert.Equal(t, 0, roots[0].Stats.Percent)
	assert.Equal(t, 50, roots[1].Stats.Percent)

	_, err = env.periodic.Tree(ctx, 999)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestPeriodic_VerifyRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	root := env.sacPS(t)
	compresses := findChild(root, "Compresses")

	rec, err := env.periodic.Verify(ctx, env.admin, compresses.ID, domain.PeriodicCheck{
		Status:      domain.PeriodicNotOK,
		Comment:     "  boîte ouverte ",
		IssueCode:   domain.IssueQuantity,
		ObservedQty: intPtr(-3),
		MissingQty:  intPtr(4),
	})
	require.NoError(t, err)
	assert.Equal(t, "boîte ouverte", rec.Comment)
	assert.Equal(t, domain.IssueQuantity, rec.IssueCode)
	assert.Equal(t, 0, *rec.ObservedQty)
	assert.Equal(t, 4, *rec.MissingQty)

	_, err = env.periodic.Verify(ctx, env.admin, root.ID, domain.PeriodicCheck{Status: domain.PeriodicOK})
	assert.ErrorIs(t, err, ErrNotAnItem)
	_, err = env.periodic.Verify(ctx, env.admin, compresses.ID, domain.PeriodicCheck{Status: "LOADED"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = env.periodic.Verify(ctx, env.admin, compresses.ID, domain.PeriodicCheck{Status: domain.PeriodicNotOK, IssueCode: "BROKEN"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = env.periodic.Verify(ctx, env.admin, 999, domain.PeriodicCheck{Status: domain.PeriodicOK})
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestPeriodic_HistoryAndReset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	root := env.sacPS(t)
	compresses := findChild(root, "Compresses")
	ciseaux := findChild(findChild(root, "Trousse"), "Ciseaux")

	_, err := env.periodic.Verify(ctx, env.admin, compresses.ID, domain.PeriodicCheck{Status: domain.PeriodicOK})
	require.NoError(t, err)
	env.clock.Advance(time.Minute)
	_, err = env.periodic.Verify(ctx, env.admin, ciseaux.ID, domain.PeriodicCheck{Status: domain.PeriodicNotOK, IssueCode: domain.IssueMissing})
	require.NoError(t, err)

	history, err := env.periodic.History(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Ciseaux", history[0].NodeName)
	assert.Equal(t, "Compresses", history[1].NodeName)

	env.clock.Advance(time.Minute)
	reset, err := env.periodic.Reset(ctx, env.admin, root.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reset)

	tree, err := env.periodic.Tree(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, tree.Stats.Todo)
	assert.Equal(t, 0, tree.Stats.Percent)

	again, err := env.periodic.Reset(ctx, env.admin, root.ID)
	require.NoError(t, err)
	assert.Zero(t, again)

	history, err = env.periodic.History(ctx, root.ID)
	require.NoError(t, err)
	assert.Len(t, history, 4)

	_, err = env.periodic.Reset(ctx, env.admin, 999)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestPeriodic_ReplaceFromReserve(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	root := env.sacPS(t)
	compresses := findChild(root, "Compresses")

	old, err := env.stockSvc.AddExpiry(ctx, env.admin, compresses.ID, domain.ItemExpiry{Date: testNow.AddDate(0, 0, 5), Quantity: intPtr(10)})
	require.NoError(t, err)

	article, err := env.reassort.CreateItem(ctx, env.admin, domain.ReassortItem{Name: "Compresses 10x10", TargetNodeID: uintPtr(compresses.ID)})
	require.NoError(t, err)
	fresh := time.Date(2028, 1, 31, 0, 0, 0, 0, time.UTC)
	batch, err := env.reassort.AddBatch(ctx, env.admin, article.ID, domain.ReassortBatch{Quantity: 15, ExpiryDate: &fresh, Lot: "R-7"})
	require.NoError(t, err)

	options, err := env.periodic.ReassortOptions(ctx, compresses.ID)
	require.NoError(t, err)
	require.Len(t, options, 1)
	assert.True(t, options[0].Preferred)
	assert.Equal(t, batch.ID, options[0].BatchID)

	out, err := env.periodic.Replace(ctx, env.admin, compresses.ID, domain.ReplaceInput{BatchID: batch.ID, Quantity: 10, ExpiryID: &old.ID, Comment: "sac du VPSP"})
	require.NoError(t, err)
	assert.Equal(t, 10, out.Quantity)
	assert.Equal(t, 5, out.RemainingBatch)
	assert.Equal(t, domain.PeriodicOK, out.Record.Status)
	assert.Equal(t,
		"Remplacement via réassort | Article: Compresses 10x10 | Lot réassort: R-7 | Lot retiré: 2026-05-06 | Nouvelle exp.: 2028-01-31 | Quantité: 10 | sac du VPSP",
		out.Record.Comment)

	lots, err := env.stockSvc.Expiries(ctx, compresses.ID)
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.True(t, lots[0].Date.Equal(fresh))

	tree, err := env.periodic.Tree(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PeriodicOK, periodicChild(tree.Tree, "Compresses").LastStatus)

	reserve, err := env.reassort.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, reserve, 1)
	assert.Equal(t, 5, reserve[0].TotalQuantity)

	_, err = env.periodic.Replace(ctx, env.admin, compresses.ID, domain.ReplaceInput{BatchID: batch.ID, Quantity: 0})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = env.periodic.Replace(ctx, env.admin, root.ID, domain.ReplaceInput{BatchID: batch.ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrNotAnItem)
	_, err = env.periodic.Replace(ctx, env.admin, compresses.ID, domain.ReplaceInput{BatchID: 999, Quantity: 1})
	assert.ErrorIs(t, err, ErrBatchNotFound)

	_, err = env.periodic.Replace(ctx, env.admin, compresses.ID, domain.ReplaceInput{BatchID: batch.ID, Quantity: 8})
	require.NoError(t, err)
	_, err = env.periodic.Replace(ctx, env.admin, compresses.ID, domain.ReplaceInput{BatchID: batch.ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrBatchEmpty)
}
