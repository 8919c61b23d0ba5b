package services

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/marketua/marketplace-backend/internal/apperror"
	"github.com/marketua/marketplace-backend/internal/models"
)

type AuthServiceTestSuite struct {
	serviceSuite
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

func strPtr(s string) *string { return &s }

func (s *AuthServiceTestSuite) TestRegisterNormalizesPhoneAndEmail() {
	user, err := s.auth.Register(s.ctx, &RegisterRequest{
		Email:    "rick.sanchez@TEST.com",
		Password: testPassword,
		FullName: strPtr("Rick Sanchez"),
		Phone:    strPtr("+380123456789"),
	})
	s.Require().NoError(err)

	var stored models.User
	s.Require().NoError(s.db.First(&stored, user.ID).Error)
	s.Equal("rick.sanchez@test.com", stored.Email)
	s.Require().NotNil(stored.Phone)
	s.Equal("+38 (012) 345 6789", *stored.Phone)
	s.True(stored.IsActive)
	s.False(stored.IsStaff)
	s.False(stored.IsSuperuser)
	s.NotEqual(testPassword, stored.PasswordHash)
}

func (s *AuthServiceTestSuite) TestRegisterWithAddress() {
	user, err := s.auth.Register(s.ctx, &RegisterRequest{
		Email:    "morty@test.com",
		Password: testPassword,
		Address:  &AddressRequest{City: "Kyiv", Street: "Khreshchatyk", Number: "22"},
	})
	s.Require().NoError(err)

	address, err := s.addresses.Get(s.db, models.OwnerKindUser, user.ID)
	s.Require().NoError(err)
	s.Require().NotNil(address)
	s.Equal("Khreshchatyk", address.Street)
}

func (s *AuthServiceTestSuite) TestRegisterReportsEveryFailure() {
	_, err := s.auth.Register(s.ctx, &RegisterRequest{
		Email:              "not-an-email",
		Password:           "12345678",
		ConfirmingPassword: "87654321",
		Phone:              strPtr("12345"),
	})
	s.Require().Error(err)

	appErr := apperror.As(err)
	s.Require().NotNil(appErr)
	s.Equal(apperror.KindValidation, appErr.Kind())
	s.True(appErr.HasCode(apperror.CodeInvalidEmail))
	s.True(appErr.HasCode(apperror.CodePasswordMismatch))
	s.True(appErr.HasCode(apperror.CodeInvalidDigitCount))
	s.True(appErr.HasCode(apperror.CodePasswordEntirelyNumeric))
	s.True(appErr.HasCode(apperror.CodePasswordTooCommon))
	s.Zero(s.count(&models.User{}))
}

func (s *AuthServiceTestSuite) TestRegisterRejectsDuplicateEmail() {
	s.createUser("rick@test.com")

	_, err := s.auth.Register(s.ctx, &RegisterRequest{Email: "rick@TEST.COM", Password: testPassword})
	s.True(apperror.HasCode(err, apperror.CodeUnique))
}

func (s *AuthServiceTestSuite) TestRegisterRollsBackWhenAddressInvalid() {
	_, err := s.auth.Register(s.ctx, &RegisterRequest{
		Email:    "summer@test.com",
		Password: testPassword,
		Address:  &AddressRequest{City: "Kyiv", Street: "Main", Number: "12345678901"},
	})
	s.True(apperror.HasCode(err, apperror.CodeMaxLength))
	s.Zero(s.count(&models.User{}))
}

func (s *AuthServiceTestSuite) TestLoginIssuesTokensAndRecordsLastLogin() {
	user := s.createUser("rick@test.com")

	pair, err := s.auth.Login(s.ctx, &LoginRequest{Email: "rick@test.com", Password: testPassword})
	s.Require().NoError(err)
	s.NotEmpty(pair.Access)
	s.NotEmpty(pair.Refresh)

	var stored models.User
	s.Require().NoError(s.db.First(&stored, user.ID).Error)
	s.NotNil(stored.LastLogin)
	s.Equal(int64(1), s.count(&models.OutstandingToken{}))
}

func (s *AuthServiceTestSuite) TestLoginFailsForInactiveOrWrongPassword() {
	user := s.createUser("rick@test.com")

	_, err := s.auth.Login(s.ctx, &LoginRequest{Email: "rick@test.com", Password: "wrong-password"})
	s.True(apperror.HasCode(err, apperror.CodeNoActiveAccount))

	_, err = s.auth.Login(s.ctx, &LoginRequest{Email: "nobody@test.com", Password: testPassword})
	s.True(apperror.HasCode(err, apperror.CodeNoActiveAccount))

	s.Require().NoError(s.db.Model(user).Update("is_active", false).Error)
	_, err = s.auth.Login(s.ctx, &LoginRequest{Email: "rick@test.com", Password: testPassword})
	s.True(apperror.HasCode(err, apperror.CodeNoActiveAccount))
	s.Equal(apperror.KindAuthentication, apperror.As(err).Kind())
}

func (s *AuthServiceTestSuite) TestRoundTrip() {
	s.createUser("rick@test.com")

	pair, err := s.auth.Login(s.ctx, &LoginRequest{Email: "rick@test.com", Password: testPassword})
	s.Require().NoError(err)

	refreshed, err := s.auth.Refresh(s.ctx, &RefreshRequest{Refresh: pair.Refresh})
	s.Require().NoError(err)
	s.NotEmpty(refreshed.Access)
	s.NotEmpty(refreshed.Refresh)

	s.NoError(s.auth.Verify(s.ctx, &VerifyRequest{Token: refreshed.Access}))

	s.Require().NoError(s.auth.Logout(s.ctx, &RefreshRequest{Refresh: refreshed.Refresh}))

	err = s.auth.Logout(s.ctx, &RefreshRequest{Refresh: refreshed.Refresh})
	appErr := apperror.As(err)
	s.Require().NotNil(appErr)
	s.Equal(apperror.CodeTokenNotValid, appErr.Errors()[0].Code)
	s.Equal("Token is blacklisted", appErr.Errors()[0].Detail)
	s.Equal(401, appErr.HTTPStatus())

	// The rotated-out token is blacklisted too.
	_, err = s.auth.Refresh(s.ctx, &RefreshRequest{Refresh: pair.Refresh})
	s.True(apperror.HasCode(err, apperror.CodeTokenNotValid))
}

func (s *AuthServiceTestSuite) TestAuthenticate() {
	user := s.createUser("rick@test.com")
	pair, err := s.tokens.Issue(s.ctx, user)
	s.Require().NoError(err)

	got, err := s.auth.Authenticate(s.ctx, pair.Access)
	s.Require().NoError(err)
	s.Equal(user.ID, got.ID)

	_, err = s.auth.Authenticate(s.ctx, pair.Refresh)
	s.True(apperror.HasCode(err, apperror.CodeTokenNotValid))

	s.Require().NoError(s.db.Model(user).Update("is_active", false).Error)
	_, err = s.auth.Authenticate(s.ctx, pair.Access)
	s.True(apperror.HasCode(err, apperror.CodeTokenNotValid))
}
