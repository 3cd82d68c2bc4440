package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/blindpi/arccm-api/internal/models"
	"github.com/blindpi/arccm-api/internal/repository"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
)

// SeedService installs the default requirement catalog and progression chain.
type SeedService interface {
	SeedCatalog(ctx context.Context, token string) (int, error)
}

type seedService struct {
	requirements repository.RequirementRepository
	progression  repository.ProgressionRepository
	enabled      bool
	token        string
	logger       zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(requirements repository.RequirementRepository, progression repository.ProgressionRepository, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		requirements: requirements,
		progression:  progression,
		enabled:      enabled,
		token:        token,
		logger:       logger.With().Str("component", "seed_service").Logger(),
	}
}

type seedDefinition struct {
	name      string
	role      string
	tier      string
	category  string
	reqType   string
	mandatory bool
	points    int
	dueDays   int
	rules     string
}

var defaultCatalog = []seedDefinition{
	// Instructor Trainee, basic tier.
	{"CPR/AED", models.RoleInstructorTrainee, models.TierBasic, "certification", models.RequirementTypeCertification, true, 10, 30, `{"file_types":["pdf"],"max_size_mb":10}`},
	{"Water Safety", models.RoleInstructorTrainee, models.TierBasic, "training", models.RequirementTypeTraining, true, 10, 60, `{"min_score":80}`},
	{"Background Check", models.RoleInstructorTrainee, models.TierBasic, "documentation", models.RequirementTypeDocument, true, 10, 14, `{"file_types":["pdf"],"required_fields":["issued_at"]}`},
	// Instructor Trainee, robust tier adds depth on top of the basics.
	{"CPR/AED", models.RoleInstructorTrainee, models.TierRobust, "certification", models.RequirementTypeCertification, true, 10, 30, `{"file_types":["pdf"],"max_size_mb":10}`},
	{"Water Safety", models.RoleInstructorTrainee, models.TierRobust, "training", models.RequirementTypeTraining, true, 10, 60, `{"min_score":80}`},
	{"Background Check", models.RoleInstructorTrainee, models.TierRobust, "documentation", models.RequirementTypeDocument, true, 10, 14, `{"file_types":["pdf"],"required_fields":["issued_at"]}`},
	{"Advanced First Aid", models.RoleInstructorTrainee, models.TierRobust, "certification", models.RequirementTypeCertification, true, 15, 90, `{"file_types":["pdf"]}`},
	{"Teaching Practicum", models.RoleInstructorTrainee, models.TierRobust, "pedagogy", models.RequirementTypeAssessment, false, 20, 120, `{"min_score":70}`},
	// Instructor Provisional.
	{"Supervised Sessions Log", models.RoleInstructorProvisional, models.TierBasic, "documentation", models.RequirementTypeDocument, true, 20, 90, `{"required_fields":["sessions","supervisor"]}`},
	{"Teaching Methods Assessment", models.RoleInstructorProvisional, models.TierBasic, "pedagogy", models.RequirementTypeAssessment, true, 20, 120, `{"min_score":75}`},
	{"Supervised Sessions Log", models.RoleInstructorProvisional, models.TierRobust, "documentation", models.RequirementTypeDocument, true, 20, 90, `{"required_fields":["sessions","supervisor"]}`},
	{"Teaching Methods Assessment", models.RoleInstructorProvisional, models.TierRobust, "pedagogy", models.RequirementTypeAssessment, true, 20, 120, `{"min_score":75}`},
	{"Curriculum Design Project", models.RoleInstructorProvisional, models.TierRobust, "pedagogy", models.RequirementTypeAssessment, false, 25, 180, `{"min_score":70}`},
	// Instructor Certified.
	{"Annual Recertification", models.RoleInstructorCertified, models.TierBasic, "certification", models.RequirementTypeCertification, true, 15, 365, `{"file_types":["pdf"]}`},
	{"Annual Recertification", models.RoleInstructorCertified, models.TierRobust, "certification", models.RequirementTypeCertification, true, 15, 365, `{"file_types":["pdf"]}`},
	{"Mentorship Report", models.RoleInstructorCertified, models.TierRobust, "documentation", models.RequirementTypeDocument, false, 10, 180, `{"required_fields":["mentee"]}`},
}

// Role chain: trainees advance toward administration.
var defaultChain = []models.ProgressionPath{
	{FromRole: models.RoleInstructorNew, ToRole: models.RoleInstructorTrainee, DisplayOrder: 1},
	{FromRole: models.RoleInstructorTrainee, ToRole: models.RoleInstructorProvisional, DisplayOrder: 1},
	{FromRole: models.RoleInstructorProvisional, ToRole: models.RoleInstructorCertified, DisplayOrder: 1},
	{FromRole: models.RoleInstructorCertified, ToRole: models.RoleAuthorizedProvider, DisplayOrder: 1},
	{FromRole: models.RoleAuthorizedProvider, ToRole: models.RoleAdmin, DisplayOrder: 1},
	{FromRole: models.RoleAdmin, ToRole: models.RoleSystemAdmin, DisplayOrder: 1},
}

// gating maps a progression edge to the source-role requirement names that
// must be terminal-complete before advancement. Mappings are stored against
// the basic-tier rows; evaluation resolves them by name, so either tier's
// variant satisfies a gate.
var defaultGating = map[[2]string][]string{
	{models.RoleInstructorTrainee, models.RoleInstructorProvisional}:   {"CPR/AED", "Water Safety", "Background Check"},
	{models.RoleInstructorProvisional, models.RoleInstructorCertified}: {"Supervised Sessions Log", "Teaching Methods Assessment"},
	{models.RoleInstructorCertified, models.RoleAuthorizedProvider}:    {"Annual Recertification"},
}

func (s *seedService) SeedCatalog(ctx context.Context, token string) (int, error) {
	if !s.enabled {
		return 0, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return 0, ErrSeedUnauthorized
	}

	existing, err := s.requirements.Count(ctx)
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		s.logger.Info().Int64("definitions", existing).Msg("catalog already seeded")
		return 0, nil
	}

	created := 0
	byRoleName := map[string]uint{}
	for _, seed := range defaultCatalog {
		definition := models.RequirementDefinition{
			Name:                  seed.name,
			Role:                  seed.role,
			Tier:                  seed.tier,
			Category:              seed.category,
			Type:                  seed.reqType,
			ValidationRules:       datatypes.JSON(seed.rules),
			Mandatory:             seed.mandatory,
			PointsValue:           seed.points,
			DueDaysFromAssignment: seed.dueDays,
			DisplayOrder:          created,
		}
		if err := s.requirements.Create(ctx, &definition); err != nil {
			return created, err
		}
		if seed.tier == models.TierBasic {
			byRoleName[seed.role+"/"+seed.name] = definition.ID
		}
		created++
	}

	for _, path := range defaultChain {
		entry := path
		if err := s.progression.CreatePath(ctx, &entry); err != nil {
			return created, err
		}
	}

	for edge, names := range defaultGating {
		for _, name := range names {
			requirementID, ok := byRoleName[edge[0]+"/"+name]
			if !ok {
				continue
			}
			mapping := models.ProgressionRequirement{
				FromRole:      edge[0],
				ToRole:        edge[1],
				RequirementID: requirementID,
			}
			if err := s.progression.CreateRequirement(ctx, &mapping); err != nil {
				return created, err
			}
		}
	}

	s.logger.Info().Int("definitions", created).Msg("catalog seeded")
	return created, nil
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	provided := strings.TrimSpace(token)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}
