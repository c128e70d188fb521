package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dtroode/authkeeper/internal/logger"
	"github.com/dtroode/authkeeper/internal/model"
)

// MaxAvatarSize bounds the size of a mirrored avatar.
const MaxAvatarSize = 5 << 20

// Avatars copies provider avatars into object storage and points profiles at the copy.
type Avatars struct {
	storage model.Storage
	store   model.Transactor
	client  *http.Client
	logger  *logger.Logger
}

func NewAvatars(storage model.Storage, store model.Transactor, client *http.Client, logger *logger.Logger) *Avatars {
	if client == nil {
		client = http.DefaultClient
	}
	return &Avatars{
		storage: storage,
		store:   store,
		client:  client,
		logger:  logger,
	}
}

// Mirror downloads sourceURL, uploads it and updates the user's profile avatar.
func (a *Avatars) Mirror(ctx context.Context, userID int64, sourceURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build avatar request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download avatar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download avatar: unexpected status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if !strings.HasPrefix(mediaType, "image/") {
		return fmt.Errorf("failed to download avatar: unsupported content type %q", contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxAvatarSize+1))
	if err != nil {
		return fmt.Errorf("failed to read avatar: %w", err)
	}
	if len(data) > MaxAvatarSize {
		return fmt.Errorf("failed to download avatar: larger than %d bytes", MaxAvatarSize)
	}

	key := fmt.Sprintf("avatars/%d/%s%s", userID, uuid.NewString(), extensionFor(mediaType))
	if err := a.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), mediaType); err != nil {
		return fmt.Errorf("failed to store avatar: %w", err)
	}

	err = a.store.WithinTx(ctx, func(ctx context.Context, tx model.Tx) error {
		return tx.Profiles().UpdateAvatar(ctx, userID, a.storage.URL(key))
	})
	if err != nil {
		if delErr := a.storage.Delete(ctx, key); delErr != nil {
			a.logger.Warn("Avatar service: failed to delete orphaned avatar",
				"key", key,
				"error", delErr.Error())
		}
		return fmt.Errorf("failed to update profile avatar: %w", err)
	}

	a.logger.Debug("Avatar service: avatar mirrored",
		"user_id", userID,
		"key", key)

	return nil
}

func extensionFor(mediaType string) string {
	switch mediaType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
