package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// SurveyCalificationCreateInput is the payload for a new survey.
type SurveyCalificationCreateInput struct {
	Title       string `json:"title" validate:"required,max=120"`
	Description string `json:"description" validate:"max=500"`
	ImageName   string `json:"imageName" validate:"max=255"`
	ImageBase64 string `json:"imageBase64" validate:"omitempty,base64"`
	State       *bool  `json:"state"`
}

// SurveyCalificationUpdateInput carries the fields a PATCH may change.
type SurveyCalificationUpdateInput struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=120"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	ImageName   *string `json:"imageName" validate:"omitempty,max=255"`
	ImageBase64 *string `json:"imageBase64" validate:"omitempty,base64"`
	State       *bool   `json:"state"`
}

// SurveyCalificationService manages satisfaction surveys.
type SurveyCalificationService struct {
	*entityCache[domain.SurveyCalification]
}

// NewSurveyCalificationService constructs the service.
func NewSurveyCalificationService(deps Dependencies) *SurveyCalificationService {
	return &SurveyCalificationService{
		entityCache: newEntityCache(deps, "Survey", "surveyCalification", "surveyCalifications",
			func(s repository.Store) crudRepository[domain.SurveyCalification] { return s.SurveyCalifications() }),
	}
}

func (s *SurveyCalificationService) Create(ctx context.Context, input SurveyCalificationCreateInput) (*domain.SurveyCalification, error) {
	survey := &domain.SurveyCalification{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		ImageName:   input.ImageName,
		ImageBase64: input.ImageBase64,
		State:       boolOr(input.State, true),
	}
	if err := s.store.SurveyCalifications().Create(ctx, survey); err != nil {
		return nil, s.fail("create survey", err)
	}
	s.invalidate(ctx, "")
	return survey, nil
}

func (s *SurveyCalificationService) Update(ctx context.Context, id string, input SurveyCalificationUpdateInput) (*domain.SurveyCalification, error) {
	survey, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	setIf(&survey.Title, input.Title)
	setIf(&survey.Description, input.Description)
	setIf(&survey.ImageName, input.ImageName)
	setIf(&survey.ImageBase64, input.ImageBase64)
	setIf(&survey.State, input.State)
	if err := s.store.SurveyCalifications().Update(ctx, survey); err != nil {
		return nil, s.lookupErr(id, err)
	}
	s.invalidate(ctx, id)
	return survey, nil
}

// SurveyResponseCreateInput records an answer; the user defaults to the caller.
type SurveyResponseCreateInput struct {
	SurveyCalificationID string  `json:"surveyCalificationId" validate:"required,uuid"`
	UserID               string  `json:"userId" validate:"omitempty,uuid"`
	TicketID             *string `json:"ticketId" validate:"omitempty,uuid"`
}

// SurveyResponseUpdateInput carries the fields a PATCH may change.
type SurveyResponseUpdateInput struct {
	SurveyCalificationID *string `json:"surveyCalificationId" validate:"omitempty,uuid"`
	TicketID             *string `json:"ticketId" validate:"omitempty,uuid"`
}

// SurveyResponseService manages answers; a user answers each survey once.
type SurveyResponseService struct {
	*entityCache[domain.SurveyResponse]
}

// NewSurveyResponseService constructs the service.
func NewSurveyResponseService(deps Dependencies) *SurveyResponseService {
	return &SurveyResponseService{
		entityCache: newEntityCache(deps, "Survey response", "surveyResponse", "surveyResponses",
			func(s repository.Store) crudRepository[domain.SurveyResponse] { return s.SurveyResponses() }),
	}
}

func (s *SurveyResponseService) Create(ctx context.Context, input SurveyResponseCreateInput) (*domain.SurveyResponse, error) {
	userID := input.UserID
	if userID == "" {
		userID = actorID(ctx)
	}
	if userID == "" {
		return nil, apperrors.NewBadRequest("userId is required")
	}
	if err := s.ensureSurvey(ctx, input.SurveyCalificationID); err != nil {
		return nil, err
	}
	answered, err := found(s.store.SurveyResponses().FindByUserAndSurvey(ctx, userID, input.SurveyCalificationID))
	if err != nil {
		return nil, s.fail("check survey response", err)
	}
	if answered {
		return nil, apperrors.NewConflict("The user has already responded to this survey.")
	}
	resp := &domain.SurveyResponse{
		SurveyCalificationID: input.SurveyCalificationID,
		UserID:               userID,
		TicketID:             input.TicketID,
	}
	if err := s.store.SurveyResponses().Create(ctx, resp); err != nil {
		return nil, s.fail("create survey response", err)
	}
	s.invalidate(ctx, "")
	return resp, nil
}

func (s *SurveyResponseService) Update(ctx context.Context, id string, input SurveyResponseUpdateInput) (*domain.SurveyResponse, error) {
	resp, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.SurveyCalificationID != nil && *input.SurveyCalificationID != resp.SurveyCalificationID {
		if err := s.ensureSurvey(ctx, *input.SurveyCalificationID); err != nil {
			return nil, err
		}
		answered, err := found(s.store.SurveyResponses().FindByUserAndSurvey(ctx, resp.UserID, *input.SurveyCalificationID))
		if err != nil {
			return nil, s.fail("check survey response", err)
		}
		if answered {
			return nil, apperrors.NewConflict("The user has already responded to this survey.")
		}
		resp.SurveyCalificationID = *input.SurveyCalificationID
	}
	if input.TicketID != nil {
		resp.TicketID = input.TicketID
	}
	if err := s.store.SurveyResponses().Update(ctx, resp); err != nil {
		return nil, s.lookupErr(id, err)
	}
	s.invalidate(ctx, id)
	return resp, nil
}

func (s *SurveyResponseService) ensureSurvey(ctx context.Context, id string) error {
	ok, err := found(s.store.SurveyCalifications().GetByID(ctx, id))
	if err != nil {
		return s.fail("load survey", err)
	}
	if !ok {
		return apperrors.NewNotFound(fmt.Sprintf("Survey with id %s not found", id))
	}
	return nil
}
