package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"etatcivil/internal/notification/handler/mocks"
	"etatcivil/internal/notification/models"
	id "etatcivil/pkg/domain"
	dErrors "etatcivil/pkg/domain-errors"
	"etatcivil/pkg/platform/httputil"
	"etatcivil/pkg/requestcontext"
)

type NotificationHandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
	actor   id.Actor
}

func TestNotificationHandlerSuite(t *testing.T) {
	suite.Run(t, new(NotificationHandlerSuite))
}

func (s *NotificationHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.actor = id.Actor{UserID: id.UserID(uuid.New()), Role: id.RoleParent}

	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *NotificationHandlerSuite) do(method, path string, withActor bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if withActor {
		req = req.WithContext(requestcontext.WithActor(req.Context(), s.actor))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *NotificationHandlerSuite) decodeError(w *httptest.ResponseRecorder) httputil.ErrorResponse {
	var body httputil.ErrorResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&body))
	return body
}

func (s *NotificationHandlerSuite) TestList() {
	s.Run("unread filter is forwarded", func() {
		n := models.New(s.actor.UserID, models.Message{Type: models.TypeDownloadReady, Title: "pret"}, time.Now())
		s.service.EXPECT().List(gomock.Any(), s.actor.UserID, true).Return([]*models.Notification{n}, nil)

		w := s.do(http.MethodGet, "/notifications?unread=true", true)
		s.Equal(http.StatusOK, w.Code)

		var body ListResponse
		s.Require().NoError(json.NewDecoder(w.Body).Decode(&body))
		s.Require().Len(body.Notifications, 1)
		s.Equal("pret", body.Notifications[0].Title)
	})

	s.Run("invalid unread flag is a bad request", func() {
		w := s.do(http.MethodGet, "/notifications?unread=maybe", true)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("missing actor is unauthorized", func() {
		w := s.do(http.MethodGet, "/notifications", false)
		s.Equal(http.StatusUnauthorized, w.Code)
	})
}

func (s *NotificationHandlerSuite) TestMarkRead() {
	s.Run("forbidden maps to 403", func() {
		nid := id.NotificationID(uuid.New())
		s.service.EXPECT().MarkRead(gomock.Any(), nid, s.actor.UserID).
			Return(nil, dErrors.New(dErrors.CodeForbidden, "notification belongs to another user"))

		w := s.do(http.MethodPost, "/notifications/"+nid.String()+"/read", true)
		s.Equal(http.StatusForbidden, w.Code)
		s.Equal(string(dErrors.CodeForbidden), s.decodeError(w).Error)
	})

	s.Run("malformed id is a validation error", func() {
		w := s.do(http.MethodPost, "/notifications/not-a-uuid/read", true)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *NotificationHandlerSuite) TestCounts() {
	s.service.EXPECT().UnreadCount(gomock.Any(), s.actor.UserID).Return(int64(4), nil)
	s.service.EXPECT().MarkAllRead(gomock.Any(), s.actor.UserID).Return(int64(4), nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/notifications/unread-count"},
		{http.MethodPost, "/notifications/read-all"},
	} {
		w := s.do(tc.method, tc.path, true)
		s.Equal(http.StatusOK, w.Code)
		var body CountResponse
		s.Require().NoError(json.NewDecoder(w.Body).Decode(&body))
		s.Equal(int64(4), body.Count)
	}
}

