package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uintPtr(v uint) *uint { return &v }

func intPtr(v int) *int { return &v }

func group(id uint, parent *uint, level int, name string) StockNode {
	return StockNode{ID: id, Name: name, Type: NodeGroup, ParentID: parent, Level: level}
}

func item(id uint, parent uint, level int, name string) StockNode {
	return StockNode{ID: id, Name: name, Type: NodeItem, ParentID: uintPtr(parent), Level: level, Quantity: intPtr(1)}
}

func record(id, node uint, status VerificationStatus, at time.Time) Verification {
	return Verification{ID: id, EventID: 1, NodeID: node, Status: status, VerifierName: "alice", CreatedAt: at}
}

// Sac PS (1) -> A (2), B (3)
func sacPS() []StockNode {
	return []StockNode{
		group(1, nil, 1, "Sac PS"),
		item(2, 1, 2, "A"),
		item(3, 1, 2, "B"),
	}
}

func openEvent(roots ...uint) Event {
	return Event{ID: 1, Title: "Mission", Status: EventOpen, RootIDs: roots}
}

func TestBuildEventTree_SacPSScenario(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var ledger []Verification

	build := func() EventTree {
		return BuildEventTree(TreeInput{
			Event:  openEvent(1),
			Nodes:  sacPS(),
			Latest: LatestByNode(ledger),
		})
	}

	tree := build()
	require.Len(t, tree.Roots, 1)
	assert.False(t, tree.Roots[0].Complete)
	assert.Equal(t, 2, tree.Roots[0].PendingCount)

	ledger = append(ledger, record(1, 2, StatusOK, t0))
	assert.False(t, build().Roots[0].Complete)

	ledger = append(ledger, record(2, 3, StatusOK, t0.Add(time.Second)))
	tree = build()
	assert.True(t, tree.Roots[0].Complete)
	assert.True(t, tree.Progress.Complete)
	assert.Equal(t, 100, tree.Progress.Percent)

	ledger = append(ledger, record(3, 3, StatusPending, t0.Add(2*time.Second)))
	tree = build()
	assert.False(t, tree.Roots[0].Complete)
	assert.Equal(t, 1, tree.Roots[0].OKCount)
	assert.Equal(t, 1, tree.Roots[0].PendingCount)
	assert.Equal(t, 50, tree.Progress.Percent)
}

func TestBuildEventTree_GroupIsConjunctionOfChildren(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	nodes := []StockNode{
		group(1, nil, 1, "VPSP"),
		group(2, uintPtr(1), 2, "Oxygène"),
		item(3, 2, 3, "Bouteille"),
		item(4, 2, 3, "Masque"),
		group(5, uintPtr(1), 2, "Pansements"),
		item(6, 5, 3, "Compresses"),
		group(7, uintPtr(1), 2, "Vide"),
	}

	tests := []struct {
		name   string
		ok     []uint
		expect map[uint]bool
	}{
		{
			name:   "nothing verified",
			expect: map[uint]bool{1: false, 2: false, 5: false, 7: true},
		},
		{
			name:   "one sub kit complete",
			ok:     []uint{3, 4},
			expect: map[uint]bool{1: false, 2: true, 5: false, 7: true},
		},
		{
			name:   "everything verified",
			ok:     []uint{3, 4, 6},
			expect: map[uint]bool{1: true, 2: true, 5: true, 7: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ledger []Verification
			for i, id := range tt.ok {
				ledger = append(ledger, record(uint(i+1), id, StatusOK, t0))
			}

			tree := BuildEventTree(TreeInput{Event: openEvent(1), Nodes: nodes, Latest: LatestByNode(ledger)})

			tree.Walk(func(n *TreeNode, _ []*TreeNode) bool {
				if !n.IsGroup() {
					assert.Equal(t, n.Status == StatusOK, n.Complete, "item %d", n.ID)
					return true
				}

				want := true
				for _, c := range n.Children {
					want = want && c.Complete
				}
				assert.Equal(t, want, n.Complete, "group %d", n.ID)
				assert.Equal(t, tt.expect[n.ID], n.Complete, "group %d", n.ID)
				return true
			})
		})
	}
}

func TestBuildEventTree_NotOKIsIncomplete(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ledger := []Verification{
		record(1, 2, StatusOK, t0),
		record(2, 3, StatusNotOK, t0),
	}

	tree := BuildEventTree(TreeInput{Event: openEvent(1), Nodes: sacPS(), Latest: LatestByNode(ledger)})

	root := tree.Roots[0]
	assert.False(t, root.Complete)
	assert.Equal(t, 1, root.NotOKCount)
	assert.Equal(t, StatusNotOK, tree.Find(3).Status)
	assert.Equal(t, "alice", tree.Find(3).LastBy)
}

func TestBuildEventTree_LoadStateAndOrdering(t *testing.T) {
	nodes := []StockNode{
		group(1, nil, 1, "Sac"),
		item(2, 1, 2, "zèbre"),
		item(3, 1, 2, "Attelle"),
		group(4, uintPtr(1), 2, "trousse"),
		item(5, 4, 3, "Éclisse"),
		item(6, 4, 3, "ciseaux"),
	}

	tree := BuildEventTree(TreeInput{
		Event: openEvent(1),
		Nodes: nodes,
		Loads: map[uint]ParentLoadState{1: {EventID: 1, NodeID: 1, Loaded: true, VehicleName: "VPSP 1"}},
	})

	root := tree.Roots[0]
	assert.True(t, root.Loaded)
	assert.Equal(t, "VPSP 1", root.VehicleName)

	var names []string
	for _, c := range root.Children {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"trousse", "Attelle", "zèbre"}, names)
	assert.Equal(t, "ciseaux", root.Children[0].Children[0].Name)
	assert.Equal(t, "Éclisse", root.Children[0].Children[1].Name)
}

func TestBuildEventTree_IgnoresUnknownAndDuplicateRoots(t *testing.T) {
	tree := BuildEventTree(TreeInput{Event: openEvent(1, 99, 1), Nodes: sacPS()})

	require.Len(t, tree.Roots, 1)
	assert.Equal(t, 2, tree.Progress.TotalItems)
}

func TestBuildEventTree_EmptySelection(t *testing.T) {
	tree := BuildEventTree(TreeInput{Event: openEvent()})

	assert.Empty(t, tree.Roots)
	assert.False(t, tree.Progress.Complete)
	assert.Equal(t, 0, tree.Progress.Percent)
}

func TestBuildEventTree_SurvivesCycles(t *testing.T) {
	nodes := []StockNode{
		group(1, uintPtr(2), 1, "A"),
		group(2, uintPtr(1), 2, "B"),
	}

	tree := BuildEventTree(TreeInput{Event: openEvent(1), Nodes: nodes})

	require.Len(t, tree.Roots, 1)
	require.Len(t, tree.Roots[0].Children, 1)
	assert.Empty(t, tree.Roots[0].Children[0].Children)
}

func TestLatestByNode_LastWriteWins(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	latest := LatestByNode([]Verification{
		record(1, 2, StatusOK, t0),
		record(3, 2, StatusNotOK, t0),
		record(2, 2, StatusOK, t0),
		record(4, 5, StatusOK, t0.Add(time.Minute)),
		record(5, 5, StatusPending, t0),
	})

	assert.Equal(t, StatusNotOK, latest[2].Status)
	assert.Equal(t, uint(3), latest[2].ID)
	assert.Equal(t, StatusOK, latest[5].Status)
}

func TestComputeStats(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tree := BuildEventTree(TreeInput{
		Event:  openEvent(1),
		Nodes:  sacPS(),
		Latest: LatestByNode([]Verification{record(1, 2, StatusOK, t0), record(2, 3, StatusNotOK, t0)}),
	})

	stats := ComputeStats(tree)

	assert.Equal(t, 2, stats.TotalItems)
	assert.Equal(t, 1, stats.OK)
	assert.Equal(t, 1, stats.NotOK)
	assert.Equal(t, 50, stats.Percent)
	require.Len(t, stats.Roots, 1)
	assert.Equal(t, RootStats{NodeID: 1, Name: "Sac PS", Total: 2, OK: 1, NotOK: 1}, stats.Roots[0])
}
