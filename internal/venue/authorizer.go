package venue

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/standx-tools/volgate/internal/signer"
)

const signVersion = "v1"

// Authorizer stamps outgoing venue requests. Read requests carry the bearer
// token and session id; mutating requests additionally carry two ed25519
// signatures over the serialized body, one bound to a fresh request id and
// timestamp, one over the body alone.
type Authorizer struct {
	identity *signer.Identity

	mu        sync.Mutex
	token     string
	sessionID string
}

func NewAuthorizer(identity *signer.Identity) *Authorizer {
	return &Authorizer{identity: identity}
}

// SetToken installs the bearer token after a completed handshake. Written
// once per session; every later call only reads it.
func (a *Authorizer) SetToken(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = token
}

func (a *Authorizer) Token() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token
}

// SessionID lazily generates the opaque session id on first use; it stays
// stable for the remaining lifetime of the process.
func (a *Authorizer) SessionID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sessionID == "" {
		a.sessionID = "session-" + uuid.NewString()
	}
	return a.sessionID
}

// Apply sets the authorization headers on h. body is nil for read requests;
// for mutating requests it must be the exact bytes that will be sent.
func (a *Authorizer) Apply(h http.Header, body []byte) {
	h.Set("Content-Type", "application/json")

	if token := a.Token(); token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	h.Set("x-session-id", a.SessionID())

	if body == nil {
		return
	}

	requestID := uuid.NewString()
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	payload := string(body)

	h.Set("x-request-sign-version", signVersion)
	h.Set("x-request-id", requestID)
	h.Set("x-request-timestamp", timestamp)
	h.Set("x-request-signature", a.identity.SignVersioned(signVersion, requestID, timestamp, payload))
	h.Set("x-body-signature", a.identity.SignBody(payload))
}
