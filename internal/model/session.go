package model

import (
	"time"
)

// Device types reported in session metadata.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
)

// SessionMeta is the client context stored with a refresh token.
type SessionMeta struct {
	Platform   *string `json:"platform"`
	Browser    *string `json:"browser"`
	DeviceType *string `json:"deviceType"`
	DeviceName *string `json:"deviceName"`
	UserAgent  *string `json:"userAgent"`
	IPAddress  *string `json:"ipAddress"`
}

// Session is the credential pair handed to a client.
type Session struct {
	UserID                int64
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

// SessionInfo describes an active session for listing.
type SessionInfo struct {
	ID        int64       `json:"id"`
	Meta      SessionMeta `json:"meta"`
	CreatedAt time.Time   `json:"createdAt"`
	ExpiresAt time.Time   `json:"expiresAt"`
}
