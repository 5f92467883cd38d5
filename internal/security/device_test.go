package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/youthorg/admingate/internal/domain"
)

func TestDeviceFromRequest(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    domain.DeviceInfo
	}{
		{
			name: "android user agent",
			headers: map[string]string{
				"User-Agent": "Mozilla/5.0 (Linux; Android 14; SM-S918B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36",
			},
			want: domain.DeviceInfo{Brand: "Samsung", Model: "SM-S918B", OS: "Android"},
		},
		{
			name: "client hints win",
			headers: map[string]string{
				"User-Agent":         "Mozilla/5.0 (Linux; Android 10; K) AppleWebKit/537.36",
				"Sec-CH-UA-Model":    `"Pixel 8"`,
				"Sec-CH-UA-Platform": `"Android"`,
			},
			want: domain.DeviceInfo{Brand: "Google", Model: "Pixel 8", OS: "Android"},
		},
		{
			name: "iphone",
			headers: map[string]string{
				"User-Agent": "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15",
			},
			want: domain.DeviceInfo{Brand: "Apple", Model: "iPhone", OS: "iOS"},
		},
		{
			name: "windows desktop",
			headers: map[string]string{
				"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			},
			want: domain.DeviceInfo{OS: "Windows"},
		},
		{
			name:    "no headers",
			headers: nil,
			want:    domain.DeviceInfo{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			if got := DeviceFromRequest(req); got != tc.want {
				t.Fatalf("DeviceFromRequest()=%+v want %+v", got, tc.want)
			}
		})
	}
}

func TestSessionCookieAttributes(t *testing.T) {
	rr := httptest.NewRecorder()
	SetSessionCookie(rr, "tok", 0, true)
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != SessionCookieName || !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteStrictMode || c.Path != "/" {
		t.Fatalf("unexpected cookie attributes: %+v", c)
	}

	rr = httptest.NewRecorder()
	ClearSessionCookie(rr, false)
	cleared := rr.Result().Cookies()[0]
	if cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Fatalf("expected cleared cookie, got %+v", cleared)
	}
}
