package auth_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

var _ = Describe("MatchEndpoint", func() {
	DescribeTable("segment-aware matching",
		func(endpoint, path string, expected bool) {
			Expect(auth.MatchEndpoint(endpoint, path)).To(Equal(expected))
		},
		Entry("exact literal", "/branch", "/branch", true),
		Entry("child of literal", "/branch", "/branch/abc123", true),
		Entry("template parameter", "/branch/:id", "/branch/abc123", true),
		Entry("template literal part", "/branch/:id", "/branch", true),
		Entry("nested action", "/tickets/assist/:id", "/tickets/assist/42", true),
		Entry("trailing slash", "/branch/", "/branch/abc123/", true),
		Entry("shared prefix is not a segment", "/branch", "/branchReports", false),
		Entry("template does not leak to siblings", "/branch/:id", "/branchReports/1", false),
		Entry("different resource", "/roles", "/users/1", false),
		Entry("bare parameter endpoint", "/:id", "/anything", true),
		Entry("bare parameter endpoint is not a prefix", "/:id", "/a/b", false),
	)
})

var _ = Describe("Allowed", func() {
	var session *domain.Session

	BeforeEach(func() {
		session = &domain.Session{
			ID: "u1",
			Role: domain.SessionRole{
				Name: "agent",
				Permissions: []domain.SessionPermission{
					{Endpoint: "/branch/:id", Methods: []string{"get", "PATCH"}},
					{Endpoint: "/tickets", Methods: []string{"GET"}},
				},
			},
		}
	})

	It("allows a listed method on a matching path", func() {
		Expect(auth.Allowed(session, "/branch/abc123", "PATCH")).To(BeTrue())
	})

	It("compares methods case-insensitively", func() {
		Expect(auth.Allowed(session, "/branch/abc123", "GET")).To(BeTrue())
	})

	It("denies a method missing from the permission", func() {
		Expect(auth.Allowed(session, "/branch/abc123", "DELETE")).To(BeFalse())
	})

	It("denies paths no permission covers", func() {
		Expect(auth.Allowed(session, "/branchReports", "GET")).To(BeFalse())
	})

	It("lets configurators through regardless of permissions", func() {
		session.Role.IsConfigurator = true
		session.Role.Permissions = nil
		Expect(auth.Allowed(session, "/audits", "DELETE")).To(BeTrue())
	})

	It("denies a nil session", func() {
		Expect(auth.Allowed(nil, "/tickets", "GET")).To(BeFalse())
	})
})

var _ = Describe("StripPrefix", func() {
	It("removes the global prefix on a segment boundary", func() {
		Expect(auth.StripPrefix("/api/branch/1", "/api")).To(Equal("/branch/1"))
		Expect(auth.StripPrefix("/api", "/api")).To(Equal("/"))
		Expect(auth.StripPrefix("/apiary/1", "/api")).To(Equal("/apiary/1"))
	})
})
