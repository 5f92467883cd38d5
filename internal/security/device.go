package security

import (
	"net/http"
	"strings"

	"github.com/youthorg/admingate/internal/domain"
)

// DeviceFromRequest derives a best-effort fingerprint from request headers.
// Client hints win over the User-Agent string when both are present.
func DeviceFromRequest(r *http.Request) domain.DeviceInfo {
	ua := r.Header.Get("User-Agent")
	info := domain.DeviceInfo{
		Model: unquoteHint(r.Header.Get("Sec-CH-UA-Model")),
		OS:    unquoteHint(r.Header.Get("Sec-CH-UA-Platform")),
	}
	if info.OS == "" {
		info.OS = osFromUserAgent(ua)
	}
	if info.Model == "" {
		info.Model = modelFromUserAgent(ua)
	}
	info.Brand = brandFromModel(info.Model, info.OS, ua)
	return info
}

func unquoteHint(v string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(v), `"`))
}

func osFromUserAgent(ua string) string {
	switch {
	case ua == "":
		return ""
	case strings.Contains(ua, "Android"):
		return "Android"
	case strings.Contains(ua, "iPhone"), strings.Contains(ua, "iPad"):
		return "iOS"
	case strings.Contains(ua, "Windows"):
		return "Windows"
	case strings.Contains(ua, "Mac OS X"), strings.Contains(ua, "Macintosh"):
		return "macOS"
	case strings.Contains(ua, "CrOS"):
		return "ChromeOS"
	case strings.Contains(ua, "Linux"):
		return "Linux"
	}
	return ""
}

// modelFromUserAgent reads the device token Android browsers put after the
// OS version, e.g. "Linux; Android 14; SM-S918B)".
func modelFromUserAgent(ua string) string {
	switch {
	case strings.Contains(ua, "iPhone"):
		return "iPhone"
	case strings.Contains(ua, "iPad"):
		return "iPad"
	}
	start := strings.Index(ua, "Android")
	if start < 0 {
		return ""
	}
	rest := ua[start:]
	end := strings.Index(rest, ")")
	if end < 0 {
		return ""
	}
	fields := strings.Split(rest[:end], ";")
	if len(fields) < 2 {
		return ""
	}
	model := strings.TrimSpace(fields[len(fields)-1])
	if model == "K" || strings.HasPrefix(model, "wv") {
		return ""
	}
	if i := strings.Index(model, " Build/"); i >= 0 {
		model = model[:i]
	}
	return model
}

var modelPrefixes = []struct {
	prefix string
	brand  string
}{
	{"SM-", "Samsung"},
	{"Pixel", "Google"},
	{"Redmi", "Xiaomi"},
	{"M2", "Xiaomi"},
	{"CPH", "OPPO"},
	{"RMX", "realme"},
	{"V2", "vivo"},
	{"iPhone", "Apple"},
	{"iPad", "Apple"},
}

func brandFromModel(model, os, ua string) string {
	for _, p := range modelPrefixes {
		if strings.HasPrefix(model, p.prefix) {
			return p.brand
		}
	}
	if os == "macOS" || os == "iOS" || strings.Contains(ua, "Macintosh") {
		return "Apple"
	}
	return ""
}
