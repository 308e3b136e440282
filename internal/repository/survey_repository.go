package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const surveyCalificationColumns = `s.id, s.title, s.description, s.image_name, s.image_base64, s.state, s.created_at, s.updated_at, s.deleted_at`

const surveyResponseColumns = `r.id, COALESCE(r.survey_calification_id::text, ''), COALESCE(r.user_id::text, ''), r.ticket_id, r.created_at, r.updated_at, r.deleted_at`

// SurveyCalificationRepository manages survey definitions.
type SurveyCalificationRepository interface {
	List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.SurveyCalification], error)
	GetByID(ctx context.Context, id string) (*domain.SurveyCalification, error)
	Create(ctx context.Context, survey *domain.SurveyCalification) error
	Update(ctx context.Context, survey *domain.SurveyCalification) error
	SoftDelete(ctx context.Context, id string) error
}

// SurveyResponseRepository manages survey answers.
type SurveyResponseRepository interface {
	List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.SurveyResponse], error)
	GetByID(ctx context.Context, id string) (*domain.SurveyResponse, error)
	FindByUserAndSurvey(ctx context.Context, userID, surveyID string) (*domain.SurveyResponse, error)
	Create(ctx context.Context, resp *domain.SurveyResponse) error
	Update(ctx context.Context, resp *domain.SurveyResponse) error
	SoftDelete(ctx context.Context, id string) error
}

type surveyCalificationRepository struct {
	db DBTX
}

// NewSurveyCalificationRepository instantiates repository.
func NewSurveyCalificationRepository(db DBTX) SurveyCalificationRepository {
	return &surveyCalificationRepository{db: db}
}

func (r *surveyCalificationRepository) List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.SurveyCalification], error) {
	where := newListWhere("s", q, "s.title", "s.description")
	return fetchPage(ctx, r.db, surveyCalificationColumns, "survey_califications s", where, "s.created_at DESC", q, scanSurveyCalification)
}

func (r *surveyCalificationRepository) GetByID(ctx context.Context, id string) (*domain.SurveyCalification, error) {
	const query = `SELECT ` + surveyCalificationColumns + ` FROM survey_califications s WHERE s.id=$1 AND s.deleted_at IS NULL`
	return fetchOne(ctx, r.db, query, scanSurveyCalification, id)
}

func (r *surveyCalificationRepository) Create(ctx context.Context, survey *domain.SurveyCalification) error {
	const query = `
        INSERT INTO survey_califications (title, description, image_name, image_base64, state)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query, survey.Title, survey.Description, survey.ImageName, survey.ImageBase64, survey.State).
		Scan(&survey.ID, &survey.CreatedAt, &survey.UpdatedAt)
}

func (r *surveyCalificationRepository) Update(ctx context.Context, survey *domain.SurveyCalification) error {
	const query = `
        UPDATE survey_califications SET title=$1, description=$2, image_name=$3, image_base64=$4, state=$5, updated_at=NOW()
        WHERE id=$6 AND deleted_at IS NULL`
	return execOne(ctx, r.db, query, survey.Title, survey.Description, survey.ImageName, survey.ImageBase64, survey.State, survey.ID)
}

func (r *surveyCalificationRepository) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.db, "survey_califications", id)
}

func scanSurveyCalification(row pgx.Row) (domain.SurveyCalification, error) {
	var s domain.SurveyCalification
	err := row.Scan(&s.ID, &s.Title, &s.Description, &s.ImageName, &s.ImageBase64, &s.State, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt)
	return s, err
}

type surveyResponseRepository struct {
	db DBTX
}

// NewSurveyResponseRepository instantiates repository.
func NewSurveyResponseRepository(db DBTX) SurveyResponseRepository {
	return &surveyResponseRepository{db: db}
}

func (r *surveyResponseRepository) List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.SurveyResponse], error) {
	where := newListWhere("r", q)
	if q.Filter != "" {
		where.raw("(r.user_id::text = $? OR r.survey_calification_id::text = $? OR r.ticket_id::text = $?)", q.Filter)
	}
	return fetchPage(ctx, r.db, surveyResponseColumns, "survey_responses r", where, "r.created_at DESC", q, scanSurveyResponse)
}

func (r *surveyResponseRepository) GetByID(ctx context.Context, id string) (*domain.SurveyResponse, error) {
	const query = `SELECT ` + surveyResponseColumns + ` FROM survey_responses r WHERE r.id=$1 AND r.deleted_at IS NULL`
	return fetchOne(ctx, r.db, query, scanSurveyResponse, id)
}

func (r *surveyResponseRepository) FindByUserAndSurvey(ctx context.Context, userID, surveyID string) (*domain.SurveyResponse, error) {
	const query = `SELECT ` + surveyResponseColumns + ` FROM survey_responses r
        WHERE r.user_id=$1 AND r.survey_calification_id=$2 AND r.deleted_at IS NULL`
	return fetchOne(ctx, r.db, query, scanSurveyResponse, userID, surveyID)
}

func (r *surveyResponseRepository) Create(ctx context.Context, resp *domain.SurveyResponse) error {
	const query = `
        INSERT INTO survey_responses (survey_calification_id, user_id, ticket_id)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query, resp.SurveyCalificationID, resp.UserID, nullable(resp.TicketID)).
		Scan(&resp.ID, &resp.CreatedAt, &resp.UpdatedAt)
}

func (r *surveyResponseRepository) Update(ctx context.Context, resp *domain.SurveyResponse) error {
	const query = `
        UPDATE survey_responses SET survey_calification_id=$1, user_id=$2, ticket_id=$3, updated_at=NOW()
        WHERE id=$4 AND deleted_at IS NULL`
	return execOne(ctx, r.db, query, resp.SurveyCalificationID, resp.UserID, nullable(resp.TicketID), resp.ID)
}

func (r *surveyResponseRepository) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.db, "survey_responses", id)
}

func scanSurveyResponse(row pgx.Row) (domain.SurveyResponse, error) {
	var s domain.SurveyResponse
	err := row.Scan(&s.ID, &s.SurveyCalificationID, &s.UserID, &s.TicketID, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt)
	return s, err
}
