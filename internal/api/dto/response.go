package dto

import (
	"time"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// DefaultMessage is used when a handler has nothing more specific to say.
const DefaultMessage = "Success"

const messageKey = "response_message"

// Envelope wraps every successful response.
type Envelope struct {
	Status     bool      `json:"status"`
	StatusCode int       `json:"statusCode"`
	Message    string    `json:"message"`
	ResultData any       `json:"resultData"`
	Timestamp  time.Time `json:"timestamp"`
}

// ErrorEnvelope wraps every failed response.
type ErrorEnvelope struct {
	Status     bool      `json:"status"`
	StatusCode int       `json:"statusCode"`
	Message    string    `json:"message"`
	Error      ErrorBody `json:"error"`
	Timestamp  time.Time `json:"timestamp"`
}

// ErrorBody carries the machine readable part of an error.
type ErrorBody struct {
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// Respond writes data inside the success envelope and remembers the message for auditing.
func Respond(c *fiber.Ctx, status int, message string, data any) error {
	if message == "" {
		message = DefaultMessage
	}
	c.Locals(messageKey, message)
	return c.Status(status).JSON(Envelope{
		Status:     true,
		StatusCode: status,
		Message:    message,
		ResultData: data,
		Timestamp:  time.Now().UTC(),
	})
}

// OK responds 200 with the default message.
func OK(c *fiber.Ctx, data any) error {
	return Respond(c, fiber.StatusOK, DefaultMessage, data)
}

// Created responds 201.
func Created(c *fiber.Ctx, message string, data any) error {
	return Respond(c, fiber.StatusCreated, message, data)
}

// Fail writes err inside the error envelope.
func Fail(c *fiber.Ctx, err *apperrors.DomainError) error {
	return c.Status(err.HTTPStatus).JSON(ErrorEnvelope{
		Status:     false,
		StatusCode: err.HTTPStatus,
		Message:    err.Message,
		Error:      ErrorBody{Code: err.Code, Details: err.Details},
		Timestamp:  time.Now().UTC(),
	})
}

// ResponseMessage returns the message written by Respond, if any.
func ResponseMessage(c *fiber.Ctx) string {
	msg, _ := c.Locals(messageKey).(string)
	if msg == "" {
		return DefaultMessage
	}
	return msg
}
