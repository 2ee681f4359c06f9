package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyExpiry(t *testing.T) {
	now := time.Date(2026, 5, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		expiry   time.Time
		state    ExpiryState
		daysLeft int
	}{
		{"yesterday", now.AddDate(0, 0, -1), ExpiryExpired, -1},
		{"today", now.Add(-10 * time.Hour), ExpirySoon, 0},
		{"in thirty days", now.AddDate(0, 0, 30), ExpirySoon, 30},
		{"in thirty one days", now.AddDate(0, 0, 31), ExpiryOK, 31},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, days := ClassifyExpiry(tt.expiry, now)
			assert.Equal(t, tt.state, state)
			assert.Equal(t, tt.daysLeft, days)
		})
	}
}

func TestNodePath(t *testing.T) {
	nodes := map[uint]StockNode{
		1: group(1, nil, 1, "Lot A"),
		2: group(2, uintPtr(1), 2, "Sac PS"),
		3: item(3, 2, 3, "Compresses"),
	}

	assert.Equal(t, "Lot A › Sac PS", NodePath(nodes[3], nodes))
	assert.Equal(t, "", NodePath(nodes[1], nodes))
}

func TestRoleCapabilities(t *testing.T) {
	assert.True(t, RoleAdmin.CanManageEvents())
	assert.True(t, RoleChef.CanManageEvents())
	assert.False(t, RoleViewer.CanManageEvents())
	assert.False(t, RolePeriodic.CanManageEvents())
	assert.True(t, RolePeriodic.CanCheckStock())
	assert.True(t, RoleChef.CanCheckStock())
	assert.False(t, RoleViewer.CanCheckStock())
	assert.True(t, RolePeriodic.Valid())
	assert.False(t, Role("ROOT").Valid())
}

func TestTruncateName(t *testing.T) {
	assert.Equal(t, "Sac (copie)", TruncateName("Sac", " (copie)"))

	long := strings.Repeat("a", MaxNameLength)
	got := TruncateName(long, " (copie)")
	assert.Len(t, got, MaxNameLength)
	assert.True(t, strings.HasSuffix(got, " (copie)"))
}
