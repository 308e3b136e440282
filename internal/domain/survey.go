package domain

import "time"

// SurveyCalification defines a satisfaction survey.
type SurveyCalification struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ImageName   string     `json:"imageName"`
	ImageBase64 string     `json:"imageBase64"`
	State       bool       `json:"state"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

// SurveyResponse records one user's answer to a survey.
type SurveyResponse struct {
	ID                   string     `json:"id"`
	SurveyCalificationID string     `json:"surveyCalificationId"`
	UserID               string     `json:"userId"`
	TicketID             *string    `json:"ticketId,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
	DeletedAt            *time.Time `json:"deletedAt,omitempty"`
}
