package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/marketua/marketplace-backend/internal/config"
	"github.com/marketua/marketplace-backend/internal/database/dbtest"
	"github.com/marketua/marketplace-backend/internal/i18n"
	"github.com/marketua/marketplace-backend/internal/models"
)

const testPassword = "rick123!@#"

type errorBody struct {
	Type   string `json:"type"`
	Errors []struct {
		Code   string  `json:"code"`
		Detail string  `json:"detail"`
		Attr   *string `json:"attr"`
	} `json:"errors"`
}

type APITestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func (s *APITestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	s.Require().NoError(i18n.Initialize())
}

func (s *APITestSuite) SetupTest() {
	s.db = dbtest.Open(s.T())
	cfg := &config.Config{
		Environment: "test",
		JWT: config.JWTConfig{
			SecretKey:              "test-secret",
			AccessTokenTTL:         5 * time.Minute,
			RefreshTokenTTL:        time.Hour,
			RotateRefreshTokens:    true,
			BlacklistAfterRotation: true,
		},
		Media:      config.MediaConfig{Root: s.T().TempDir(), URL: "/media/"},
		Security:   config.SecurityConfig{PasswordHashIterations: 1000},
		CORS:       config.CORSConfig{AllowedOrigins: []string{"*"}},
		Pagination: config.PaginationConfig{PageSize: 10},
	}

	var err error
	s.router, err = Initialize(s.db, cfg, nil)
	s.Require().NoError(err)
}

func (s *APITestSuite) send(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *APITestSuite) request(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return s.send(req, token)
}

func (s *APITestSuite) decode(w *httptest.ResponseRecorder, out interface{}) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func (s *APITestSuite) errorCodes(w *httptest.ResponseRecorder) []string {
	var body errorBody
	s.decode(w, &body)
	codes := make([]string, 0, len(body.Errors))
	for _, e := range body.Errors {
		codes = append(codes, e.Code)
	}
	return codes
}

func (s *APITestSuite) register(email string) {
	w := s.request(http.MethodPost, "/user/register", map[string]interface{}{
		"email":    email,
		"password": testPassword,
	}, "")
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
}

func (s *APITestSuite) login(email string) (access, refresh string) {
	w := s.request(http.MethodPost, "/user/login", map[string]string{
		"email":    email,
		"password": testPassword,
	}, "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var tokens map[string]string
	s.decode(w, &tokens)
	return tokens["access"], tokens["refresh"]
}

// signup registers and logs in, returning an access token.
func (s *APITestSuite) signup(email string) string {
	s.register(email)
	access, _ := s.login(email)
	return access
}

func (s *APITestSuite) makeStaff(email string) {
	s.Require().NoError(s.db.Model(&models.User{}).Where("email = ?", email).Update("is_staff", true).Error)
}

func (s *APITestSuite) TestRegister() {
	w := s.request(http.MethodPost, "/user/register", map[string]interface{}{
		"email":     "rick.sanchez@test.com",
		"password":  "rick123!@#",
		"full_name": "Rick Sanchez",
		"phone":     "+380123456789",
	}, "")
	s.Equal(http.StatusCreated, w.Code, w.Body.String())
	s.Empty(w.Body.String())

	var user models.User
	s.Require().NoError(s.db.Where("email = ?", "rick.sanchez@test.com").First(&user).Error)
	s.Require().NotNil(user.Phone)
	s.Equal("+38 (012) 345 6789", *user.Phone)
	s.True(user.IsActive)
}

func (s *APITestSuite) TestRegisterValidation() {
	w := s.request(http.MethodPost, "/user/register", map[string]interface{}{
		"email":    "not-an-email",
		"password": "123",
	}, "")
	s.Equal(http.StatusBadRequest, w.Code)

	var body errorBody
	s.decode(w, &body)
	s.Equal("validation_error", body.Type)
	s.NotEmpty(body.Errors)
	s.Require().NotNil(body.Errors[0].Attr)

	w = s.request(http.MethodPost, "/user/register", nil, "")
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(s.errorCodes(w), "parse_error")
}

func (s *APITestSuite) TestRegisterRequiresAnonymous() {
	access := s.signup("rick@test.com")

	w := s.request(http.MethodPost, "/user/register", map[string]interface{}{
		"email":    "morty@test.com",
		"password": testPassword,
	}, access)
	s.Equal(http.StatusForbidden, w.Code)
	s.Equal([]string{"permission_denied"}, s.errorCodes(w))
}

func (s *APITestSuite) TestLoginInactive() {
	s.register("rick@test.com")
	s.login("rick@test.com")

	s.Require().NoError(s.db.Model(&models.User{}).Where("email = ?", "rick@test.com").Update("is_active", false).Error)

	w := s.request(http.MethodPost, "/user/login", map[string]string{
		"email":    "rick@test.com",
		"password": testPassword,
	}, "")
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Contains(w.Body.String(), "no_active_account")
}

func (s *APITestSuite) TestTokenRoundTrip() {
	s.register("rick@test.com")
	access, refresh := s.login("rick@test.com")

	w := s.request(http.MethodPost, "/user/refresh", map[string]string{"refresh": refresh}, "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var rotated map[string]string
	s.decode(w, &rotated)
	s.NotEmpty(rotated["access"])
	s.NotEmpty(rotated["refresh"])

	w = s.request(http.MethodPost, "/user/verify", map[string]string{"token": rotated["access"]}, "")
	s.Equal(http.StatusNoContent, w.Code)

	w = s.request(http.MethodPost, "/user/logout", map[string]string{"refresh": rotated["refresh"]}, access)
	s.Equal(http.StatusNoContent, w.Code, w.Body.String())

	w = s.request(http.MethodPost, "/user/logout", map[string]string{"refresh": rotated["refresh"]}, access)
	s.Equal(http.StatusUnauthorized, w.Code)
	var body errorBody
	s.decode(w, &body)
	s.Require().Len(body.Errors, 1)
	s.Equal("token_not_valid", body.Errors[0].Code)
	s.Equal("Token is blacklisted", body.Errors[0].Detail)
}

func (s *APITestSuite) TestMeRequiresAuthentication() {
	w := s.request(http.MethodGet, "/user/retrieve/me", nil, "")
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal([]string{"not_authenticated"}, s.errorCodes(w))

	w = s.request(http.MethodGet, "/user/retrieve/me", nil, "garbage")
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal([]string{"token_not_valid"}, s.errorCodes(w))
}

func (s *APITestSuite) TestUpdateMe() {
	access := s.signup("rick@test.com")

	w := s.request(http.MethodPatch, "/user/update/me", map[string]interface{}{
		"full_name": "Rick Sanchez",
		"address":   map[string]string{"city": "Kyiv", "street": "Khreshchatyk", "number": "1"},
	}, access)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = s.request(http.MethodGet, "/user/retrieve/me", nil, access)
	s.Require().Equal(http.StatusOK, w.Code)
	var me struct {
		Email    string `json:"email"`
		FullName string `json:"full_name"`
		Address  struct {
			City string `json:"city"`
		} `json:"address"`
	}
	s.decode(w, &me)
	s.Equal("rick@test.com", me.Email)
	s.Equal("Rick Sanchez", me.FullName)
	s.Equal("Kyiv", me.Address.City)
	s.NotContains(w.Body.String(), "password")
}

func (s *APITestSuite) TestDisable() {
	staffAccess := s.signup("admin@test.com")
	s.makeStaff("admin@test.com")

	w := s.request(http.MethodPost, "/user/disable/me", map[string]string{"current_password": testPassword}, staffAccess)
	s.Equal(http.StatusForbidden, w.Code)
	s.Equal([]string{"disable_staff"}, s.errorCodes(w))

	access := s.signup("rick@test.com")
	w = s.request(http.MethodPost, "/user/disable/me", map[string]string{"current_password": "wrong"}, access)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal([]string{"invalid_password"}, s.errorCodes(w))

	w = s.request(http.MethodPost, "/user/disable/me", map[string]string{"current_password": testPassword}, access)
	s.Equal(http.StatusNoContent, w.Code, w.Body.String())

	var user models.User
	s.Require().NoError(s.db.Where("email LIKE ?", "%@disabled.com").First(&user).Error)
	s.False(user.IsActive)
	s.Equal(fmt.Sprintf("user.%d@disabled.com", user.ID), user.Email)

	// The access token no longer authenticates an inactive user.
	w = s.request(http.MethodGet, "/user/retrieve/me", nil, access)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *APITestSuite) TestAdvertLifecycle() {
	staffAccess := s.signup("admin@test.com")
	s.makeStaff("admin@test.com")

	w := s.request(http.MethodPost, "/admin/categories", map[string]string{"name": "Gadgets"}, staffAccess)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var category struct {
		ID uint `json:"id"`
	}
	s.decode(w, &category)

	owner := s.signup("rick@test.com")
	stranger := s.signup("morty@test.com")

	w = s.request(http.MethodPost, "/adverts", map[string]interface{}{
		"category":     category.ID,
		"name":         "Portal gun",
		"price":        "199.99",
		"unit":         "piece",
		"location":     "Kyiv",
		"payment_card": "1234 5678 9012 3456",
		"address":      map[string]string{"city": "Kyiv", "street": "Khreshchatyk", "number": "1"},
	}, owner)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var advert struct {
		ID      uint `json:"id"`
		Address *struct {
			City string `json:"city"`
		} `json:"address"`
	}
	s.decode(w, &advert)
	s.Require().NotNil(advert.Address)

	w = s.request(http.MethodGet, "/adverts", nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var page struct {
		Count   int64                    `json:"count"`
		Results []map[string]interface{} `json:"results"`
	}
	s.decode(w, &page)
	s.Equal(int64(1), page.Count)
	s.Contains(page.Results[0], "category_id")
	s.Nil(page.Results[0]["main_image"])

	path := fmt.Sprintf("/adverts/%d", advert.ID)
	w = s.request(http.MethodPatch, path, map[string]string{"name": "Stolen"}, stranger)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.request(http.MethodPatch, path, map[string]string{"name": "Portal gun v2"}, "")
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.request(http.MethodPatch, path, map[string]string{"name": "Portal gun v2"}, owner)
	s.Equal(http.StatusOK, w.Code, w.Body.String())

	w = s.request(http.MethodDelete, path, nil, stranger)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.request(http.MethodDelete, path, nil, owner)
	s.Equal(http.StatusNoContent, w.Code, w.Body.String())

	var addresses int64
	s.Require().NoError(s.db.Model(&models.Address{}).Count(&addresses).Error)
	s.Zero(addresses)

	w = s.request(http.MethodGet, path, nil, "")
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *APITestSuite) multipartUpload(advertID uint, files, types []string, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	s.Require().NoError(mw.WriteField("advert", fmt.Sprint(advertID)))
	for _, name := range files {
		part, err := mw.CreateFormFile("files", name)
		s.Require().NoError(err)
		_, err = part.Write([]byte("\x89PNG\r\n\x1a\n" + name))
		s.Require().NoError(err)
	}
	for _, t := range types {
		s.Require().NoError(mw.WriteField("types", t))
	}
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/images/multiple-create", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.send(req, token)
}

func (s *APITestSuite) TestImageUploadAndDelete() {
	owner := s.signup("rick@test.com")
	category := &models.Category{Name: "Gadgets"}
	s.Require().NoError(s.db.Create(category).Error)

	w := s.request(http.MethodPost, "/adverts", map[string]interface{}{
		"category":     category.ID,
		"name":         "Portal gun",
		"price":        199.99,
		"unit":         "piece",
		"location":     "Kyiv",
		"payment_card": "1234 5678 9012 3456",
	}, owner)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var advert struct {
		ID uint `json:"id"`
	}
	s.decode(w, &advert)

	w = s.multipartUpload(advert.ID, []string{"main.png", "extra.png"}, []string{"MAIN", "EXTRA"}, owner)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var images []struct {
		File string `json:"file"`
		URL  string `json:"url"`
		Type string `json:"type"`
	}
	s.decode(w, &images)
	s.Require().Len(images, 2)

	w = s.request(http.MethodGet, images[0].URL, nil, "")
	s.Equal(http.StatusOK, w.Code)

	w = s.multipartUpload(advert.ID, []string{"other.png"}, []string{"MAIN"}, owner)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal([]string{"image_conflict"}, s.errorCodes(w))

	w = s.multipartUpload(advert.ID, []string{"a.png", "b.png"}, []string{"EXTRA"}, owner)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal([]string{"invalid_quantity"}, s.errorCodes(w))

	var count int64
	s.Require().NoError(s.db.Model(&models.Image{}).Count(&count).Error)
	s.Equal(int64(2), count)

	w = s.request(http.MethodGet, fmt.Sprintf("/adverts/%d", advert.ID), nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var detail struct {
		MainImage   *struct{ URL string }  `json:"main_image"`
		ExtraImages []struct{ URL string } `json:"extra_images"`
	}
	s.decode(w, &detail)
	s.Require().NotNil(detail.MainImage)
	s.Len(detail.ExtraImages, 1)

	w = s.request(http.MethodPost, "/images/multiple-delete", map[string]interface{}{
		"advert":    advert.ID,
		"filenames": []string{images[0].File, "missing.png"},
	}, owner)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal([]string{"invalid_filename"}, s.errorCodes(w))

	w = s.request(http.MethodPost, "/images/multiple-delete", map[string]interface{}{
		"advert":    advert.ID,
		"filenames": []string{images[0].File},
	}, owner)
	s.Equal(http.StatusNoContent, w.Code, w.Body.String())

	w = s.request(http.MethodGet, images[0].URL, nil, "")
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *APITestSuite) TestCategories() {
	staffAccess := s.signup("admin@test.com")
	s.makeStaff("admin@test.com")
	customer := s.signup("rick@test.com")

	w := s.request(http.MethodPost, "/admin/categories", map[string]string{"name": "Electronics"}, customer)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.request(http.MethodPost, "/admin/categories", map[string]string{"name": "Electronics"}, staffAccess)
	s.Require().Equal(http.StatusCreated, w.Code)
	var root struct {
		ID uint `json:"id"`
	}
	s.decode(w, &root)

	w = s.request(http.MethodPost, "/admin/categories", map[string]interface{}{"name": "Phones", "parent": root.ID}, staffAccess)
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.request(http.MethodPost, "/admin/categories", map[string]string{"name": "Phones"}, staffAccess)
	s.Equal(http.StatusConflict, w.Code)
	s.Equal([]string{"unique"}, s.errorCodes(w))

	w = s.request(http.MethodGet, "/category", nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var tree struct {
		Count   int64 `json:"count"`
		Results []struct {
			Name          string `json:"name"`
			SubCategories []struct {
				Name string `json:"name"`
			} `json:"sub_categories"`
		} `json:"results"`
	}
	s.decode(w, &tree)
	s.Equal(int64(1), tree.Count)
	s.Require().Len(tree.Results[0].SubCategories, 1)
	s.Equal("Phones", tree.Results[0].SubCategories[0].Name)

	w = s.request(http.MethodGet, "/category/select-list", nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "Phones")
	s.NotContains(w.Body.String(), "Electronics")

	w = s.request(http.MethodGet, fmt.Sprintf("/category/%d", root.ID), nil, "")
	s.Equal(http.StatusOK, w.Code)

	w = s.request(http.MethodDelete, fmt.Sprintf("/admin/categories/%d", root.ID), nil, staffAccess)
	s.Equal(http.StatusNoContent, w.Code)

	w = s.request(http.MethodGet, fmt.Sprintf("/category/%d", root.ID), nil, "")
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *APITestSuite) TestOrders() {
	staffAccess := s.signup("admin@test.com")
	s.makeStaff("admin@test.com")
	customer := s.signup("rick@test.com")
	other := s.signup("morty@test.com")

	w := s.request(http.MethodPost, "/orders/create", map[string]string{
		"shipping_address": "Kyiv, Khreshchatyk 1",
		"payment_method":   "visa",
		"shipping_method":  "standard",
	}, customer)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var order struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	s.decode(w, &order)
	s.Equal("pending", order.Status)

	w = s.request(http.MethodGet, "/orders", nil, customer)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), order.ID)

	w = s.request(http.MethodGet, "/orders/"+order.ID, nil, other)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.request(http.MethodGet, "/orders/"+order.ID, nil, staffAccess)
	s.Equal(http.StatusOK, w.Code)

	w = s.request(http.MethodPatch, "/admin/orders/"+order.ID, map[string]string{"status": "shipped"}, customer)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.request(http.MethodPatch, "/admin/orders/"+order.ID, map[string]string{"status": "shipped"}, staffAccess)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = s.request(http.MethodPatch, "/admin/orders/"+order.ID, map[string]string{"status": "pending"}, staffAccess)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal([]string{"invalid_transition"}, s.errorCodes(w))
}

func (s *APITestSuite) TestAdminUsers() {
	staffAccess := s.signup("admin@test.com")
	s.makeStaff("admin@test.com")
	s.register("rick@test.com")

	w := s.request(http.MethodGet, "/admin/users?kind=customer", nil, staffAccess)
	s.Require().Equal(http.StatusOK, w.Code)
	var page struct {
		Count int64 `json:"count"`
	}
	s.decode(w, &page)
	s.Equal(int64(1), page.Count)

	w = s.request(http.MethodGet, "/admin/users?is_active=maybe", nil, staffAccess)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.request(http.MethodGet, "/admin/stats", nil, staffAccess)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "total_users")
}

func (s *APITestSuite) TestFallbackRoutes() {
	w := s.request(http.MethodGet, "/nope", nil, "")
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal([]string{"not_found"}, s.errorCodes(w))

	w = s.request(http.MethodPut, "/adverts", nil, "")
	s.Equal(http.StatusMethodNotAllowed, w.Code)
	s.Equal([]string{"method_not_allowed"}, s.errorCodes(w))

	w = s.request(http.MethodGet, "/adverts/abc", nil, "")
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *APITestSuite) TestLocalizedErrorDetail() {
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	req.Header.Set("Accept-Language", "uk-UA,uk;q=0.9,en;q=0.8")
	w := s.send(req, "")

	var body errorBody
	s.decode(w, &body)
	s.Require().Len(body.Errors, 1)
	s.Equal("not_found", body.Errors[0].Code)
	s.Equal("Не знайдено.", body.Errors[0].Detail)
}

func (s *APITestSuite) TestHealthAndMetrics() {
	w := s.request(http.MethodGet, "/health", nil, "")
	s.Equal(http.StatusOK, w.Code)

	w = s.request(http.MethodGet, "/metrics", nil, "")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "http_requests_total")
}
