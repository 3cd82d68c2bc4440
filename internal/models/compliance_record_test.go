package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from    string
		to      string
		allowed bool
	}{
		{StatusPending, StatusInProgress, true},
		{StatusPending, StatusSubmitted, true},
		{StatusPending, StatusWaived, true},
		{StatusPending, StatusApproved, false},
		{StatusInProgress, StatusSubmitted, true},
		{StatusInProgress, StatusPending, false},
		{StatusSubmitted, StatusApproved, true},
		{StatusSubmitted, StatusRejected, true},
		{StatusSubmitted, StatusInProgress, false},
		{StatusRejected, StatusSubmitted, true},
		{StatusRejected, StatusApproved, false},
		{StatusApproved, StatusSubmitted, false},
		{StatusWaived, StatusSubmitted, false},
	}

	for _, tc := range cases {
		require.Equal(t, tc.allowed, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTerminalStatus(t *testing.T) {
	require.True(t, TerminalStatus(StatusApproved))
	require.True(t, TerminalStatus(StatusWaived))
	require.False(t, TerminalStatus(StatusSubmitted))
	require.False(t, TerminalStatus(StatusRejected))
}

func TestStatusProgress(t *testing.T) {
	require.Equal(t, 100, StatusProgress(StatusApproved))
	require.Equal(t, 100, StatusProgress(StatusWaived))
	require.Equal(t, 75, StatusProgress(StatusSubmitted))
	require.Equal(t, 50, StatusProgress(StatusInProgress))
	require.Equal(t, 0, StatusProgress(StatusPending))
	require.Equal(t, 0, StatusProgress(StatusRejected))
}

func TestValidStatusAndRoles(t *testing.T) {
	require.True(t, ValidStatus(StatusPending))
	require.False(t, ValidStatus("archived"))

	require.True(t, ValidRole(RoleInstructorTrainee))
	require.False(t, ValidRole("XX"))

	require.True(t, ValidTier(TierBasic))
	require.True(t, ValidTier(TierRobust))
	require.False(t, ValidTier("platinum"))

	require.True(t, IsAdminRole(RoleSystemAdmin))
	require.True(t, IsAdminRole(RoleAdmin))
	require.False(t, IsAdminRole(RoleInstructorTrainee))
}
