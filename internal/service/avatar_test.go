package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/authkeeper/internal/mocks"
	"github.com/dtroode/authkeeper/internal/testutil"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake")

func avatarServer(t *testing.T, contentType string, body []byte, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func isAvatarKey(userID int64, ext string) any {
	return mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, fmt.Sprintf("avatars/%d/", userID)) && strings.HasSuffix(key, ext)
	})
}

func TestAvatars_Mirror(t *testing.T) {
	f := newSessionFixture(t)
	user := f.createUser(t, "ann@example.com")
	srv := avatarServer(t, "image/png", pngBytes, http.StatusOK)

	var uploaded []byte
	storage := &mocks.Storage{}
	storage.On("Upload", mock.Anything, isAvatarKey(user.ID, ".png"), mock.Anything, int64(len(pngBytes)), "image/png").
		Run(func(args mock.Arguments) {
			uploaded, _ = io.ReadAll(args.Get(2).(io.Reader))
		}).
		Return(nil)
	storage.On("URL", mock.Anything).Return("https://cdn.example.com/avatars/1/a.png")

	avatars := NewAvatars(storage, f.store, srv.Client(), testutil.MakeNoopLogger())
	require.NoError(t, avatars.Mirror(context.Background(), user.ID, srv.URL+"/a"))

	assert.Equal(t, pngBytes, uploaded)
	profile := f.profile(t, user.ID)
	require.NotNil(t, profile.Avatar)
	assert.Equal(t, "https://cdn.example.com/avatars/1/a.png", *profile.Avatar)
	storage.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestAvatars_Mirror_RejectsDownload(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        []byte
		status      int
		wantErr     string
	}{
		{name: "bad status", contentType: "image/png", body: pngBytes, status: http.StatusNotFound, wantErr: "unexpected status 404"},
		{name: "not an image", contentType: "text/html", body: []byte("<html>"), status: http.StatusOK, wantErr: "unsupported content type"},
		{name: "too large", contentType: "image/jpeg", body: make([]byte, MaxAvatarSize+1), status: http.StatusOK, wantErr: "larger than"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture(t)
			srv := avatarServer(t, tt.contentType, tt.body, tt.status)
			storage := &mocks.Storage{}

			err := NewAvatars(storage, f.store, srv.Client(), testutil.MakeNoopLogger()).Mirror(context.Background(), 1, srv.URL)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestAvatars_Mirror_DeletesOrphanOnProfileFailure(t *testing.T) {
	f := newSessionFixture(t)
	srv := avatarServer(t, "image/webp", pngBytes, http.StatusOK)

	storage := &mocks.Storage{}
	storage.On("Upload", mock.Anything, isAvatarKey(999, ".webp"), mock.Anything, mock.Anything, "image/webp").Return(nil)
	storage.On("URL", mock.Anything).Return("https://cdn.example.com/x.webp")
	storage.On("Delete", mock.Anything, isAvatarKey(999, ".webp")).Return(nil).Once()

	err := NewAvatars(storage, f.store, srv.Client(), testutil.MakeNoopLogger()).Mirror(context.Background(), 999, srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to update profile avatar")
	storage.AssertExpectations(t)
}

func TestAvatars_Mirror_UploadFailure(t *testing.T) {
	f := newSessionFixture(t)
	user := f.createUser(t, "ann@example.com")
	srv := avatarServer(t, "image/gif", pngBytes, http.StatusOK)

	storage := &mocks.Storage{}
	storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("bucket gone"))

	err := NewAvatars(storage, f.store, srv.Client(), testutil.MakeNoopLogger()).Mirror(context.Background(), user.ID, srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store avatar")
	assert.Nil(t, f.profile(t, user.ID).Avatar)
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".png", extensionFor("image/png"))
	assert.Equal(t, ".jpg", extensionFor("image/jpeg"))
	assert.Equal(t, "", extensionFor("image/svg+xml"))
}
