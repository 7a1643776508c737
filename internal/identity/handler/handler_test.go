package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/identity/handler/mocks"
	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/identity/models"
	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/identity/service"
	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/platform/middleware"
	id "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain"
	dErrors "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/service_mock.go -package=mocks Service
type IdentityHandlerSuite struct {
	suite.Suite
	mockService *mocks.MockService
	router      chi.Router
	userID      id.UserID
	user        *models.User
}

type acceptAll struct{ userID string }

func (a acceptAll) ValidateToken(string) (*middleware.JWTClaims, error) {
	return &middleware.JWTClaims{UserID: a.userID}, nil
}

func TestIdentityHandlerSuite(t *testing.T) {
	suite.Run(t, new(IdentityHandlerSuite))
}

func (s *IdentityHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.mockService = mocks.NewMockService(ctrl)
	s.userID = id.NewUserID()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.user = &models.User{ID: s.userID, UID: "123456789", LastLoginAt: &now, CreatedAt: now, UpdatedAt: now}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	New(s.mockService, logger, acceptAll{userID: s.userID.String()}).Register(s.router)
}

func (s *IdentityHandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer token")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *IdentityHandlerSuite) decode(rr *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func (s *IdentityHandlerSuite) TestMe() {
	s.mockService.EXPECT().RequireUser(gomock.Any(), s.userID).Return(s.user, nil)

	rr := s.do(http.MethodGet, "/users/me", "")
	s.Equal(http.StatusOK, rr.Code)
	body := s.decode(rr)
	s.Equal(s.userID.String(), body["id"])
	s.Equal("123456789", body["uid"])
	s.Nil(body["nickname"])
}

func (s *IdentityHandlerSuite) TestMeRequiresBearer() {
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	s.Equal(http.StatusUnauthorized, rr.Code)
}

func (s *IdentityHandlerSuite) TestNickname() {
	s.Run("patch sets once", func() {
		named := *s.user
		named.Nickname = "voyager"
		s.mockService.EXPECT().UpdateNicknameOnce(gomock.Any(), s.userID, "voyager").Return(&named, nil)

		rr := s.do(http.MethodPatch, "/users/me/nickname", `{"nickname":"voyager"}`)
		s.Equal(http.StatusOK, rr.Code)
		s.Equal("voyager", s.decode(rr)["nickname"])
	})

	s.Run("patch already set", func() {
		s.mockService.EXPECT().UpdateNicknameOnce(gomock.Any(), s.userID, "again").
			Return(nil, dErrors.New(dErrors.CodeNicknameAlreadySet, "Nickname already set"))

		rr := s.do(http.MethodPatch, "/users/me/nickname", `{"nickname":"again"}`)
		s.Equal(http.StatusBadRequest, rr.Code)
		s.Equal("nickname_already_set", s.decode(rr)["error"])
	})

	s.Run("put changes", func() {
		s.mockService.EXPECT().ChangeNickname(gomock.Any(), s.userID, "!").
			Return(nil, dErrors.New(dErrors.CodeInvalidNickname, "Invalid nickname"))

		rr := s.do(http.MethodPut, "/users/me/nickname", `{"nickname":"!"}`)
		s.Equal(http.StatusUnprocessableEntity, rr.Code)
	})

	s.Run("malformed body", func() {
		rr := s.do(http.MethodPatch, "/users/me/nickname", `{`)
		s.Equal(http.StatusBadRequest, rr.Code)
	})
}

func (s *IdentityHandlerSuite) TestUserLookups() {
	s.Run("by uid", func() {
		s.mockService.EXPECT().RequireUserByUID(gomock.Any(), "123456789").Return(s.user, nil)
		rr := s.do(http.MethodGet, "/users/uid/123456789", "")
		s.Equal(http.StatusOK, rr.Code)
	})

	s.Run("unknown uid", func() {
		s.mockService.EXPECT().RequireUserByUID(gomock.Any(), "100000000").
			Return(nil, dErrors.New(dErrors.CodeUserNotFound, "User not found."))
		rr := s.do(http.MethodGet, "/users/uid/100000000", "")
		s.Equal(http.StatusNotFound, rr.Code)
	})

	s.Run("by nickname", func() {
		s.mockService.EXPECT().ListUsersByNickname(gomock.Any(), "voyager").Return([]*models.User{s.user}, nil)
		rr := s.do(http.MethodGet, "/users?nickname=voyager", "")
		s.Equal(http.StatusOK, rr.Code)
		var out []UserOut
		s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &out))
		s.Len(out, 1)
	})
}

func (s *IdentityHandlerSuite) TestIdentities() {
	ident := &models.Identity{
		ID:          id.NewIdentityID(),
		UserID:      s.userID,
		Provider:    models.ProviderSteam,
		ProviderSub: "steam-1",
	}

	s.Run("list", func() {
		s.mockService.EXPECT().ListIdentities(gomock.Any(), s.userID).Return([]*models.Identity{ident}, nil)
		rr := s.do(http.MethodGet, "/identities", "")
		s.Equal(http.StatusOK, rr.Code)
		s.Contains(rr.Body.String(), `"provider_sub":"steam-1"`)
	})

	s.Run("link", func() {
		s.mockService.EXPECT().
			LinkIdentity(gomock.Any(), s.userID, models.ProviderSteam, "steam-1", map[string]any{"persona": "x"}).
			Return(ident, nil)
		rr := s.do(http.MethodPost, "/identities/Steam", `{"provider_sub":"steam-1","claims":{"persona":"x"}}`)
		s.Equal(http.StatusOK, rr.Code)
		body := s.decode(rr)
		s.Equal(ident.ID.String(), body["id"])
		s.Equal("steam", body["provider"])
	})

	s.Run("link conflict", func() {
		s.mockService.EXPECT().LinkIdentity(gomock.Any(), s.userID, models.ProviderSteam, "taken", gomock.Nil()).
			Return(nil, dErrors.New(dErrors.CodeIdentityConflict, "This identity is already linked to another user."))
		rr := s.do(http.MethodPost, "/identities/steam", `{"provider_sub":"taken"}`)
		s.Equal(http.StatusConflict, rr.Code)
	})

	s.Run("link input outside column bounds", func() {
		cases := map[string]string{
			"empty sub":     `{"provider_sub":""}`,
			"oversized sub": `{"provider_sub":"` + strings.Repeat("s", 256) + `"}`,
			"oversized email": `{"provider_sub":"steam-2","claims":{"email":"` +
				strings.Repeat("e", 310) + `@example.com"}}`,
		}
		for name, body := range cases {
			rr := s.do(http.MethodPost, "/identities/steam", body)
			s.Equal(http.StatusBadRequest, rr.Code, name)
			s.Equal("invalid_input", s.decode(rr)["error"], name)
		}
	})

	s.Run("link at column bounds", func() {
		sub := strings.Repeat("s", 255)
		s.mockService.EXPECT().LinkIdentity(gomock.Any(), s.userID, models.ProviderSteam, sub, gomock.Any()).
			Return(&models.Identity{ID: id.NewIdentityID(), Provider: models.ProviderSteam, ProviderSub: sub}, nil)
		rr := s.do(http.MethodPost, "/identities/steam", `{"provider_sub":"`+sub+`"}`)
		s.Equal(http.StatusOK, rr.Code)
	})

	s.Run("unknown provider", func() {
		rr := s.do(http.MethodPost, "/identities/myspace", `{"provider_sub":"x"}`)
		s.Equal(http.StatusBadRequest, rr.Code)
		s.Equal("invalid_provider", s.decode(rr)["error"])
	})

	s.Run("unlink", func() {
		s.mockService.EXPECT().UnlinkIdentity(gomock.Any(), s.userID, models.ProviderSteam).
			Return(&service.UnlinkResult{Deleted: 1, Identities: []*models.Identity{ident}}, nil)
		rr := s.do(http.MethodDelete, "/identities/steam", "")
		s.Equal(http.StatusOK, rr.Code)
		body := s.decode(rr)
		s.InDelta(1, body["deleted"], 0)
		s.Equal("ok", body["message"])
		s.Equal([]any{"steam-1"}, body["provider_sub"])
	})

	s.Run("unlink nothing", func() {
		s.mockService.EXPECT().UnlinkIdentity(gomock.Any(), s.userID, models.ProviderGoogle).
			Return(&service.UnlinkResult{}, nil)
		rr := s.do(http.MethodDelete, "/identities/google", "")
		s.Equal(http.StatusOK, rr.Code)
		s.Equal("not found or already deleted", s.decode(rr)["message"])
	})
}
