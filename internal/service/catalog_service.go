package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/datatypes"

	"github.com/blindpi/arccm-api/internal/dto"
	"github.com/blindpi/arccm-api/internal/models"
	"github.com/blindpi/arccm-api/internal/repository"
)

var (
	// ErrInvalidRole indicates an unknown role code.
	ErrInvalidRole = errors.New("invalid role")
	// ErrInvalidValidationRules indicates the validation rules blob does not
	// match the published shape.
	ErrInvalidValidationRules = errors.New("validation rules do not match schema")
)

// validationRulesSchema is the published contract for requirement validation
// rules. The engine never interprets the rules; it only guarantees their
// shape so the evidence-collection UI can rely on it.
const validationRulesSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "file_types": {"type": "array", "items": {"type": "string"}},
    "max_size_mb": {"type": "number", "minimum": 0},
    "min_score": {"type": "number", "minimum": 0},
    "required_fields": {"type": "array", "items": {"type": "string"}}
  }
}`

// CatalogService reads and administers the requirement catalog.
type CatalogService interface {
	ListDefinitions(ctx context.Context, filter dto.DefinitionFilter) ([]dto.DefinitionResponse, error)
	CreateDefinition(ctx context.Context, payload dto.DefinitionCreateRequest, actor Actor) (dto.DefinitionResponse, error)
}

type catalogService struct {
	requirements repository.RequirementRepository
	validator    *validator.Validate
	rulesSchema  *jsonschema.Schema
	audit        AuditRecorder
	logger       zerolog.Logger
}

// NewCatalogService constructs the catalog service.
func NewCatalogService(requirements repository.RequirementRepository, validate *validator.Validate, audit AuditRecorder, logger zerolog.Logger) (CatalogService, error) {
	schema, err := jsonschema.CompileString("validation_rules.schema.json", validationRulesSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to compile validation rules schema: %w", err)
	}

	return &catalogService{
		requirements: requirements,
		validator:    validate,
		rulesSchema:  schema,
		audit:        audit,
		logger:       logger.With().Str("component", "catalog_service").Logger(),
	}, nil
}

func (s *catalogService) ListDefinitions(ctx context.Context, filter dto.DefinitionFilter) ([]dto.DefinitionResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	definitions, err := s.requirements.List(ctx, repository.DefinitionFilter{
		Role: strings.ToUpper(strings.TrimSpace(filter.Role)),
		Tier: filter.Tier,
	})
	if err != nil {
		return nil, err
	}

	return dto.NewDefinitionResponseSlice(definitions), nil
}

func (s *catalogService) CreateDefinition(ctx context.Context, payload dto.DefinitionCreateRequest, actor Actor) (dto.DefinitionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.DefinitionResponse{}, err
	}

	role := strings.ToUpper(strings.TrimSpace(payload.Role))
	if !models.ValidRole(role) {
		return dto.DefinitionResponse{}, ErrInvalidRole
	}

	rules := payload.ValidationRules
	if len(rules) > 0 {
		if err := s.validateRules(rules); err != nil {
			return dto.DefinitionResponse{}, err
		}
	} else {
		rules = json.RawMessage("{}")
	}

	definition := models.RequirementDefinition{
		Name:                  strings.TrimSpace(payload.Name),
		Role:                  role,
		Tier:                  payload.Tier,
		Category:              strings.ToLower(strings.TrimSpace(payload.Category)),
		Type:                  payload.Type,
		ValidationRules:       datatypes.JSON(rules),
		Mandatory:             payload.Mandatory,
		PointsValue:           payload.PointsValue,
		DueDaysFromAssignment: payload.DueDaysFromAssignment,
		DisplayOrder:          payload.DisplayOrder,
	}

	if err := s.requirements.Create(ctx, &definition); err != nil {
		return dto.DefinitionResponse{}, err
	}

	if _, err := s.audit.Record(ctx, AuditEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "catalog.definition_created",
		EntityType: "requirement_definition",
		EntityID:   &definition.ID,
		Metadata: map[string]interface{}{
			"name": definition.Name,
			"role": definition.Role,
			"tier": definition.Tier,
		},
	}); err != nil {
		s.logger.Warn().Err(err).Uint("definition_id", definition.ID).Msg("failed to append audit event")
	}

	s.logger.Info().Uint("definition_id", definition.ID).Str("name", definition.Name).Msg("requirement definition created")

	return dto.NewDefinitionResponse(definition), nil
}

func (s *catalogService) validateRules(raw json.RawMessage) error {
	var document interface{}
	if err := json.Unmarshal(raw, &document); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValidationRules, err)
	}
	if err := s.rulesSchema.Validate(document); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValidationRules, err)
	}
	return nil
}
