package identity

import (
	"encoding/hex"
	"math/rand"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// The client id is a quota key only. It is clearable and spoofable and must
// never be used to authorize anything.

const (
	CookieName   = "lp_client_id"
	CookieMaxAge = 365 * 24 * 60 * 60
)

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)

// Valid reports whether id is acceptable as a quota key.
func Valid(id string) bool {
	return validID.MatchString(id)
}

// Normalize trims id and returns "" when it is not a valid client id.
func Normalize(id string) string {
	id = strings.TrimSpace(id)
	if !Valid(id) {
		return ""
	}
	return id
}

// NewClientID returns a random v4 UUID, or a pseudo-random token when the
// secure source is unavailable.
func NewClientID() string {
	return newClientID(uuid.NewRandom)
}

func newClientID(gen func() (uuid.UUID, error)) string {
	if id, err := gen(); err == nil {
		return id.String()
	}
	return fallbackID()
}

func fallbackID() string {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	buf := make([]byte, 16)
	for i := range buf {
		buf[i] = byte(rng.Intn(256))
	}
	return "fb-" + hex.EncodeToString(buf)
}

// Cookie builds the identity cookie: path /, one year, SameSite=Lax.
func Cookie(id string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   CookieMaxAge,
		Secure:   secure,
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
	}
}

// FromRequest reads a valid client id from the identity cookie.
func FromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return Normalize(c.Value)
}

// Resolve prefers the cookie and falls back to an id supplied in a request
// body. It returns "" when neither is usable.
func Resolve(r *http.Request, bodyID string) string {
	if id := FromRequest(r); id != "" {
		return id
	}
	return Normalize(bodyID)
}

// GetOrCreate returns the request's client id, minting and persisting a new
// one on w when absent. ok is false only when there is nothing to persist to.
func GetOrCreate(w http.ResponseWriter, r *http.Request, secure bool) (id string, created bool, ok bool) {
	if w == nil || r == nil {
		return "", false, false
	}
	if id := FromRequest(r); id != "" {
		return id, false, true
	}
	id = NewClientID()
	http.SetCookie(w, Cookie(id, secure))
	return id, true, true
}
