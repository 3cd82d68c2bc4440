package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/blindpi/arccm-api/internal/models"
)

func TestAuditLogRepositoryListFiltersAndPaginates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAuditLogRepository(db)

	entries := []models.AuditEvent{
		{ActorID: 1, ActorRole: "AD", Action: "tier.switched", EntityType: "user", Metadata: datatypes.JSONMap{}},
		{ActorID: 1, ActorRole: "AD", Action: "record.approved", EntityType: "compliance_record", Metadata: datatypes.JSONMap{}},
		{ActorID: 2, ActorRole: "SA", Action: "tier.switched", EntityType: "user", Metadata: datatypes.JSONMap{}},
	}
	for i := range entries {
		require.NoError(t, repo.Create(context.Background(), nil, &entries[i]))
	}

	actorID := uint(1)
	results, total, err := repo.List(context.Background(), AuditLogFilter{ActorID: &actorID, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, results, 2)

	results, total, err = repo.List(context.Background(), AuditLogFilter{Action: "tier.switched", PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)

	results, total, err = repo.List(context.Background(), AuditLogFilter{PageSize: 2, Page: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, results, 1)
}
