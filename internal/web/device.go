package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	deviceHeader     = "X-Device-ID"
	deviceCookieName = "device_id"
	deviceTTL        = 365 * 24 * time.Hour
	maxDeviceIDLen   = 128
)

type deviceKey struct{}

// DeviceID returns the device identity attached by the device middleware.
func DeviceID(ctx context.Context) string {
	id, _ := ctx.Value(deviceKey{}).(string)
	return id
}

// deviceIdentity resolves the caller's device from the X-Device-ID header or
// the device cookie. A request with neither gets a fresh id and a cookie.
func deviceIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := deviceFromRequest(r)
		if id == "" {
			id = uuid.NewString()
			setCookie(w, id)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), deviceKey{}, id)))
	})
}

func deviceFromRequest(r *http.Request) string {
	if id := cleanDeviceID(r.Header.Get(deviceHeader)); id != "" {
		return id
	}
	if cookie, err := r.Cookie(deviceCookieName); err == nil {
		return cleanDeviceID(cookie.Value)
	}
	return ""
}

// cleanDeviceID returns "" for ids that are empty, too long or contain
// anything but letters, digits, '-' and '_'.
func cleanDeviceID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > maxDeviceIDLen {
		return ""
	}
	for _, c := range id {
		ok := c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_'
		if !ok {
			return ""
		}
	}
	return id
}

// setCookie sets the device cookie on the response.
func setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     deviceCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(deviceTTL.Seconds()),
	})
}
