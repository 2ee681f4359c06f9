package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcprep/pcprep-api/internal/domain"
)

func (e *testEnv) check(t *testing.T, eventID, nodeID uint, status domain.VerificationStatus, by string) domain.EventTree {
	t.Helper()

	_, tree, err := e.verify.Verify(context.Background(), VerifyInput{
		EventID:      eventID,
		NodeID:       nodeID,
		Status:       status,
		VerifierName: by,
	})
	require.NoError(t, err)

	return tree
}

func TestVerify_SacPSScenario(t *testing.T) {
	env := newTestEnv(t)
	bag := env.createTree(t, group("Sac PS", item("A", 1), item("B", 2)))
	event := env.openEvent(t, bag.ID)

	a := findChild(bag, "A")
	b := findChild(bag, "B")

	tree := env.check(t, event.ID, a.ID, domain.StatusOK, "Alice")
	assert.False(t, tree.Find(bag.ID).Complete)

	tree = env.check(t, event.ID, b.ID, domain.StatusOK, "Bob")
	assert.True(t, tree.Find(bag.ID).Complete)
	assert.True(t, tree.Progress.Complete)
	assert.Equal(t, 100, tree.Progress.Percent)

	tree = env.check(t, event.ID, b.ID, domain.StatusPending, "Bob")
	assert.False(t, tree.Find(bag.ID).Complete)
	assert.Equal(t, 1, tree.Find(bag.ID).PendingCount)
}

func TestVerify_SecondWriteWins(t *testing.T) {
	env := newTestEnv(t)
	bag := env.createTree(t, group("Sac PS", item("A", 1)))
	event := env.openEvent(t, bag.ID)
	a := findChild(bag, "A")

	env.check(t, event.ID, a.ID, domain.StatusOK, "Alice")
	tree := env.check(t, event.ID, a.ID, domain.StatusNotOK, "Bob")

	node := tree.Find(a.ID)
	assert.Equal(t, domain.StatusNotOK, node.Status)
	assert.Equal(t, "Bob", node.LastBy)

	recent, err := env.verify.Latest(context.Background(), event.ID, 0)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "A", recent[0].ItemName)
	assert.Equal(t, "Sac PS", recent[0].ParentName)
}

func TestVerify_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bag := env.createTree(t, group("Sac PS", item("A", 1)))
	other := env.createTree(t, group("Lot 2", item("Z", 1)))
	event := env.openEvent(t, bag.ID)

	_, _, err := env.verify.Verify(ctx, VerifyInput{EventID: event.ID, NodeID: findChild(other, "Z").ID, Status: domain.StatusOK, VerifierName: "Alice"})
	assert.ErrorIs(t, err, ErrNodeNotInEvent)

	_, _, err = env.verify.Verify(ctx, VerifyInput{EventID: event.ID, NodeID: bag.ID, Status: domain.StatusOK, VerifierName: "Alice"})
	assert.ErrorIs(t, err, ErrNodeNotInEvent)

	_, _, err = env.verify.Verify(ctx, VerifyInput{EventID: event.ID, NodeID: findChild(bag, "A").ID, Status: "DONE", VerifierName: "Alice"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = env.verify.Verify(ctx, VerifyInput{EventID: event.ID, NodeID: findChild(bag, "A").ID, Status: domain.StatusOK, VerifierName: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = env.verify.Verify(ctx, VerifyInput{EventID: 999, NodeID: findChild(bag, "A").ID, Status: domain.StatusOK, VerifierName: "Alice"})
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestSetParentStatus_GatedOnCompleteness(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bag := env.createTree(t, group("Sac PS", item("A", 1), item("B", 1)))
	event := env.openEvent(t, bag.ID)

	in := ParentStatusInput{EventID: event.ID, NodeID: bag.ID, Loaded: true, VehicleName: "VPSP 1", By: "chef"}

	env.check(t, event.ID, findChild(bag, "A").ID, domain.StatusOK, "Alice")
	_, _, err := env.verify.SetParentStatus(ctx, in)
	assert.ErrorIs(t, err, ErrNotAllChildrenVerified)

	loads, err := env.ledger.LoadStates(ctx, event.ID)
	require.NoError(t, err)
	assert.Empty(t, loads)

	env.check(t, event.ID, findChild(bag, "B").ID, domain.StatusOK, "Alice")

	noVehicle := in
	noVehicle.VehicleName = ""
	_, _, err = env.verify.SetParentStatus(ctx, noVehicle)
	assert.ErrorIs(t, err, ErrInvalidInput)

	state, tree, err := env.verify.SetParentStatus(ctx, in)
	require.NoError(t, err)
	assert.True(t, state.Loaded)
	assert.True(t, tree.Find(bag.ID).Loaded)
	assert.Equal(t, "VPSP 1", tree.Find(bag.ID).VehicleName)

	env.check(t, event.ID, findChild(bag, "B").ID, domain.StatusNotOK, "Alice")

	unload := in
	unload.Loaded = false
	state, tree, err = env.verify.SetParentStatus(ctx, unload)
	require.NoError(t, err)
	assert.False(t, state.Loaded)
	assert.Empty(t, state.VehicleName)
	assert.False(t, tree.Find(bag.ID).Loaded)
}

func TestSetParentStatus_EmptyGroup(t *testing.T) {
	env := newTestEnv(t)
	bag := env.createTree(t, group("Sac PS", group("Poche vide")))
	event := env.openEvent(t, bag.ID)

	_, _, err := env.verify.SetParentStatus(context.Background(), ParentStatusInput{
		EventID:     event.ID,
		NodeID:      findChild(bag, "Poche vide").ID,
		Loaded:      true,
		VehicleName: "VL",
		By:          "chef",
	})
	assert.ErrorIs(t, err, ErrParentHasNoItems)
}

func TestVerify_ClosedEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bag := env.createTree(t, group("Sac PS", item("A", 1)))
	event := env.openEvent(t, bag.ID)

	_, err := env.event.SetStatus(ctx, env.admin, event.ID, domain.EventClosed)
	require.NoError(t, err)

	_, _, err = env.verify.Verify(ctx, VerifyInput{EventID: event.ID, NodeID: findChild(bag, "A").ID, Status: domain.StatusOK, VerifierName: "Alice"})
	assert.ErrorIs(t, err, ErrEventClosed)

	_, _, err = env.verify.SetParentStatus(ctx, ParentStatusInput{EventID: event.ID, NodeID: bag.ID, By: "chef"})
	assert.ErrorIs(t, err, ErrEventClosed)

	_, tree, err := env.event.Tree(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EventClosed, tree.Status)
}

func TestVerify_PublishesToRoom(t *testing.T) {
	env := newTestEnv(t)
	bag := env.createTree(t, group("Sac PS", item("A", 1)))
	event := env.openEvent(t, bag.ID)

	received := make(chan domain.LiveMessage, 4)
	unsubscribe := env.hub.Subscribe(event.ID, func(msg domain.LiveMessage) {
		received <- msg
	})
	defer unsubscribe()

	env.check(t, event.ID, findChild(bag, "A").ID, domain.StatusOK, "Alice")

	select {
	case msg := <-received:
		assert.Equal(t, domain.LiveItemVerified, msg.Type)
		assert.Equal(t, "Alice", msg.By)
		require.NotNil(t, msg.Tree)
		assert.True(t, msg.Tree.Progress.Complete)
		assert.Equal(t, []string{"Alice"}, msg.Tree.Busy)
	case <-time.After(2 * time.Second):
		t.Fatal("no live message received")
	}
}
