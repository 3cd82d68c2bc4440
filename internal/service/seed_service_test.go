package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blindpi/arccm-api/internal/models"
	"github.com/blindpi/arccm-api/internal/repository"
)

func TestSeedCatalogGuards(t *testing.T) {
	env := newServiceEnv(t)

	disabled := NewSeedService(env.requirements, env.progression, false, "token", testLogger())
	_, err := disabled.SeedCatalog(context.Background(), "token")
	require.ErrorIs(t, err, ErrSeedDisabled)

	enabled := NewSeedService(env.requirements, env.progression, true, "token", testLogger())
	_, err = enabled.SeedCatalog(context.Background(), "wrong")
	require.ErrorIs(t, err, ErrSeedUnauthorized)

	noToken := NewSeedService(env.requirements, env.progression, true, "", testLogger())
	_, err = noToken.SeedCatalog(context.Background(), "")
	require.ErrorIs(t, err, ErrSeedUnauthorized, "empty configured token never matches")
}

func TestSeedCatalogInstallsDefaults(t *testing.T) {
	env := newServiceEnv(t)
	svc := NewSeedService(env.requirements, env.progression, true, "token", testLogger())

	created, err := svc.SeedCatalog(context.Background(), "token")
	require.NoError(t, err)
	require.Equal(t, len(defaultCatalog), created)

	// The basic trainee template carries the onboarding essentials.
	definitions, err := env.requirements.List(context.Background(), repository.DefinitionFilter{
		Role: models.RoleInstructorTrainee,
		Tier: models.TierBasic,
	})
	require.NoError(t, err)

	names := make([]string, 0, len(definitions))
	for _, definition := range definitions {
		names = append(names, definition.Name)
		require.True(t, definition.Mandatory)
	}
	require.ElementsMatch(t, []string{"CPR/AED", "Water Safety", "Background Check"}, names)

	paths, err := env.progression.PathsFrom(context.Background(), models.RoleInstructorTrainee)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	require.Equal(t, models.RoleInstructorProvisional, paths[0].ToRole)

	mappings, err := env.progression.RequirementsForEdge(context.Background(), models.RoleInstructorTrainee, models.RoleInstructorProvisional)
	require.NoError(t, err)
	require.Len(t, mappings, 3, "all basic trainee requirements gate the first promotion")

	// Re-seeding an already populated catalog is a no-op.
	created, err = svc.SeedCatalog(context.Background(), "token")
	require.NoError(t, err)
	require.Zero(t, created)
}
