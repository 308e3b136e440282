package auth_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spec-kit/helpdesk-service/internal/auth"
)

var _ = Describe("TokenManager", func() {
	var tokens *auth.TokenManager

	BeforeEach(func() {
		tokens = auth.NewTokenManager("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
	})

	It("round-trips the subject of an access token", func() {
		token, expiresAt, err := tokens.GenerateAccess("user-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(expiresAt).To(BeTemporally("~", time.Now().Add(time.Hour), 5*time.Second))

		claims, err := tokens.ParseAccess(token)
		Expect(err).NotTo(HaveOccurred())
		Expect(claims.Subject).To(Equal("user-1"))
		Expect(claims.Type).To(Equal(auth.TokenTypeAccess))
	})

	It("refuses a refresh token where an access token is expected", func() {
		token, _, err := tokens.GenerateRefresh("user-1")
		Expect(err).NotTo(HaveOccurred())

		_, err = tokens.ParseAccess(token)
		Expect(err).To(HaveOccurred())

		claims, err := tokens.ParseRefresh(token)
		Expect(err).NotTo(HaveOccurred())
		Expect(claims.Subject).To(Equal("user-1"))
	})

	It("refuses tokens signed with another secret", func() {
		other := auth.NewTokenManager("other", "", time.Hour, time.Hour)
		token, _, err := other.GenerateAccess("user-1")
		Expect(err).NotTo(HaveOccurred())

		_, err = tokens.ParseAccess(token)
		Expect(err).To(MatchError(auth.ErrInvalidToken))
	})

	It("refuses expired tokens", func() {
		shortLived := auth.NewTokenManager("access-secret", "", time.Millisecond, time.Hour)
		token, _, err := shortLived.GenerateAccess("user-1")
		Expect(err).NotTo(HaveOccurred())

		time.Sleep(1100 * time.Millisecond)
		_, err = shortLived.ParseAccess(token)
		Expect(err).To(MatchError(auth.ErrInvalidToken))
	})
})

var _ = Describe("PasswordHasher", func() {
	It("verifies the original password only", func() {
		hasher := auth.NewPasswordHasher(4)
		hashed, err := hasher.Hash("s3cret")
		Expect(err).NotTo(HaveOccurred())
		Expect(hashed).NotTo(Equal("s3cret"))

		Expect(hasher.Compare(hashed, "s3cret")).To(Succeed())
		Expect(hasher.Compare(hashed, "wrong")).To(MatchError(auth.ErrPasswordMismatch))
	})
})
