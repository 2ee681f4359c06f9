package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcprep/pcprep-api/internal/domain"
)

func TestShareLink_IssueReusesActiveLink(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bag := env.createTree(t, group("Sac PS", item("A", 1)))
	event := env.openEvent(t, bag.ID)

	first, err := env.share.Issue(ctx, env.admin, event.ID)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(72*time.Hour), first.ExpiresAt.UTC())

	second, err := env.share.Issue(ctx, env.admin, event.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Token, second.Token)

	env.clock.Advance(73 * time.Hour)
	third, err := env.share.Issue(ctx, env.admin, event.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, third.Token)

	_, err = env.share.Resolve(ctx, first.Token, false)
	assert.ErrorIs(t, err, ErrShareLinkExpired)
}

func TestShareLink_ResolvesOnlyItsEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bag := env.createTree(t, group("Sac PS", item("A", 1)))
	e1 := env.openEvent(t, bag.ID)
	e2 := env.openEvent(t, bag.ID)

	l1, err := env.share.Issue(ctx, env.admin, e1.ID)
	require.NoError(t, err)
	l2, err := env.share.Issue(ctx, env.admin, e2.ID)
	require.NoError(t, err)

	got, err := env.share.Resolve(ctx, l1.Token, true)
	require.NoError(t, err)
	assert.Equal(t, e1.ID, got.ID)

	got, err = env.share.Resolve(ctx, l2.Token, true)
	require.NoError(t, err)
	assert.Equal(t, e2.ID, got.ID)

	_, err = env.share.Resolve(ctx, "not-a-token", false)
	assert.ErrorIs(t, err, ErrShareLinkNotFound)

	_, err = env.share.Resolve(ctx, "6f1c1a52-8a5f-4bb5-9d2a-1f0d51c3a111", false)
	assert.ErrorIs(t, err, ErrShareLinkNotFound)
}

func TestShareLink_ClosedEventIsReadOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bag := env.createTree(t, group("Sac PS", item("A", 1)))
	event := env.openEvent(t, bag.ID)

	link, err := env.share.Issue(ctx, env.admin, event.ID)
	require.NoError(t, err)

	_, err = env.event.SetStatus(ctx, env.admin, event.ID, domain.EventClosed)
	require.NoError(t, err)

	_, err = env.share.Resolve(ctx, link.Token, true)
	assert.ErrorIs(t, err, ErrEventClosed)

	got, err := env.share.Resolve(ctx, link.Token, false)
	require.NoError(t, err)
	assert.Equal(t, event.ID, got.ID)
}
