// Package uaparse classifies raw User-Agent headers into the closed
// device set used by click analytics. Classification happens once per
// click, at ingestion; reports never reparse stored rows.
package uaparse

import (
	"strings"

	"github.com/mileusna/useragent"
)

const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceUnknown = "unknown"
)

const Unknown = "unknown"

type Device struct {
	Type    string
	Browser string
	OS      string
}

// Classify parses a raw User-Agent header. Absent or unparseable input
// yields the unknown category rather than an error; click recording
// must never fail because of a strange header.
func Classify(raw string) Device {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Device{Type: DeviceUnknown, Browser: Unknown, OS: Unknown}
	}

	ua := useragent.Parse(raw)

	deviceType := DeviceUnknown
	switch {
	case ua.Mobile:
		deviceType = DeviceMobile
	case ua.Tablet:
		deviceType = DeviceTablet
	case ua.Desktop:
		deviceType = DeviceDesktop
	}

	return Device{
		Type:    deviceType,
		Browser: nameVersion(ua.Name, ua.Version),
		OS:      nameVersion(ua.OS, ua.OSVersion),
	}
}

func nameVersion(name, version string) string {
	if name == "" {
		return Unknown
	}
	if version == "" {
		return name
	}
	return name + " " + version
}
