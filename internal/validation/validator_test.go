package validation_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spec-kit/helpdesk-service/internal/validation"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

type permissionInput struct {
	Endpoint string   `json:"endpoint" validate:"required,endpoint"`
	Methods  []string `json:"methods" validate:"required,min=1,dive,oneof=GET POST PATCH PUT DELETE"`
	Email    string   `json:"email,omitempty" validate:"omitempty,email"`
}

var _ = Describe("Struct", func() {
	It("accepts valid input", func() {
		Expect(validation.Struct(permissionInput{Endpoint: "/branch/:id", Methods: []string{"GET"}})).To(Succeed())
	})

	It("reports every failing field by its json name", func() {
		err := validation.Struct(permissionInput{Endpoint: "branch", Methods: []string{"FETCH"}, Email: "nope"})
		Expect(apperrors.IsKind(err, apperrors.CodeValidation)).To(BeTrue())

		var domainErr *apperrors.DomainError
		Expect(errors.As(err, &domainErr)).To(BeTrue())
		fields, ok := domainErr.Details["fields"].([]apperrors.FieldError)
		Expect(ok).To(BeTrue())

		names := make([]string, 0, len(fields))
		for _, f := range fields {
			names = append(names, f.Field)
		}
		Expect(names).To(ConsistOf("endpoint", "methods[0]", "email"))
	})

	It("uses readable messages for required fields", func() {
		err := validation.Struct(permissionInput{})
		Expect(err).To(MatchError(ContainSubstring("endpoint is required")))
	})
})
