package kobo

import (
	"encoding/base64"
	"encoding/json/v2"
	"strings"
)

const syncTokenVersion = 1

// SyncToken is the opaque value exchanged in the x-kobo-synctoken header.
// Epoch identifies the server process, so a token minted before a restart is
// recognized as foreign. Target and Offset are set only while a sync is paged.
type SyncToken struct {
	Version    int    `json:"v"`
	Epoch      string `json:"e"`
	Generation uint64 `json:"g"`
	Target     uint64 `json:"t,omitzero"`
	Offset     int    `json:"o,omitzero"`
}

// NewSyncToken creates a token acknowledging generation.
func NewSyncToken(epoch string, generation uint64) SyncToken {
	return SyncToken{Version: syncTokenVersion, Epoch: epoch, Generation: generation}
}

// Paging reports whether the token continues a paged sync.
func (t SyncToken) Paging() bool {
	return t.Target != 0
}

// Encode renders the header value.
func (t SyncToken) Encode() string {
	data, err := json.Marshal(t, json.Deterministic(true))
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

// ParseSyncToken decodes a header value. Tokens this server did not mint (for
// example one left over from the real Kobo store) are reported as not ok.
func ParseSyncToken(s string) (SyncToken, bool) {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	if s == "" {
		return SyncToken{}, false
	}
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return SyncToken{}, false
	}
	var t SyncToken
	if err := json.Unmarshal(data, &t); err != nil {
		return SyncToken{}, false
	}
	if t.Version != syncTokenVersion || t.Epoch == "" {
		return SyncToken{}, false
	}
	return t, true
}
