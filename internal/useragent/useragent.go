// Package useragent derives session metadata from a client's user agent and address.
package useragent

import (
	"net"
	"regexp"
	"strings"

	"github.com/mssola/user_agent"

	"github.com/dtroode/authkeeper/internal/model"
)

var androidModel = regexp.MustCompile(`Android [\d.]+; ([^;)]+?)(?: Build/[^;)]*)?\)`)

// Extract parses userAgent and remoteAddr into session metadata. It never fails:
// unrecognized input leaves fields nil and the device type defaults to desktop.
func Extract(userAgent, remoteAddr string) model.SessionMeta {
	meta := model.SessionMeta{
		DeviceType: ptr(model.DeviceDesktop),
		IPAddress:  hostOf(remoteAddr),
	}

	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return meta
	}
	meta.UserAgent = ptr(userAgent)

	ua := user_agent.New(userAgent)

	os := ua.OSInfo()
	meta.Platform = joinNonEmpty(os.Name, os.Version)

	name, version := ua.Browser()
	if major, _, _ := strings.Cut(version, "."); name != "" {
		meta.Browser = joinNonEmpty(name, major)
	}

	platform := ua.Platform()
	lower := strings.ToLower(userAgent)
	switch {
	case ua.Bot():
		meta.DeviceType = ptr(model.DeviceBot)
	case platform == "iPad" || strings.Contains(lower, "tablet"):
		meta.DeviceType = ptr(model.DeviceTablet)
	case ua.Mobile():
		meta.DeviceType = ptr(model.DeviceMobile)
	}

	meta.DeviceName = deviceName(platform, userAgent)

	return meta
}

func deviceName(platform, userAgent string) *string {
	switch platform {
	case "iPhone", "iPad", "iPod", "iPod touch":
		return ptr("Apple " + platform)
	}
	if m := androidModel.FindStringSubmatch(userAgent); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" && name != "K" {
			return ptr(name)
		}
	}
	return nil
}

func hostOf(remoteAddr string) *string {
	remoteAddr = strings.TrimSpace(remoteAddr)
	if remoteAddr == "" {
		return nil
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		if host == "" {
			return nil
		}
		return ptr(host)
	}
	return ptr(strings.Trim(remoteAddr, "[]"))
}

func joinNonEmpty(parts ...string) *string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	s := strings.Join(kept, " ")
	return &s
}

func ptr(s string) *string {
	return &s
}
