package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Credential is the OAuth2 token material held for one user.
// The user id is the key of the persisted mapping and is not written into the record.
type Credential struct {
	UserID       string    `json:"-"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	Expiry       time.Time `json:"expiry"`
	Scope        string    `json:"scope,omitempty"`
	TokenType    string    `json:"tokenType,omitempty"`

	// Extra holds provider fields this service does not interpret, kept verbatim.
	Extra map[string]json.RawMessage `json:"-"`
}

var knownCredentialKeys = map[string]struct{}{
	"accessToken":  {},
	"refreshToken": {},
	"expiry":       {},
	"scope":        {},
	"tokenType":    {},
}

// Clone returns a deep copy
func (c *Credential) Clone() *Credential {
	if c == nil {
		return nil
	}
	out := *c
	if c.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(c.Extra))
		for k, v := range c.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &out
}

// ExpiresWithin reports whether the credential expires before now+d.
// A zero expiry is treated as non-expiring.
func (c *Credential) ExpiresWithin(now time.Time, d time.Duration) bool {
	if c.Expiry.IsZero() {
		return false
	}
	return c.Expiry.Sub(now) < d
}

// MarshalJSON writes known fields over the preserved extra fields
func (c Credential) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(c.Extra)+len(knownCredentialKeys))
	for k, v := range c.Extra {
		if _, known := knownCredentialKeys[k]; known {
			continue
		}
		out[k] = v
	}

	out["accessToken"] = c.AccessToken
	out["refreshToken"] = c.RefreshToken
	if !c.Expiry.IsZero() {
		out["expiry"] = c.Expiry.UTC().Format(time.RFC3339Nano)
	}
	if c.Scope != "" {
		out["scope"] = c.Scope
	}
	if c.TokenType != "" {
		out["tokenType"] = c.TokenType
	}

	return json.Marshal(out)
}

// UnmarshalJSON reads a record, accepting expiry as RFC3339 or epoch milliseconds
func (c *Credential) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*c = Credential{}

	if err := unmarshalOptionalString(raw, "accessToken", &c.AccessToken); err != nil {
		return err
	}
	if err := unmarshalOptionalString(raw, "refreshToken", &c.RefreshToken); err != nil {
		return err
	}
	if err := unmarshalOptionalString(raw, "scope", &c.Scope); err != nil {
		return err
	}
	if err := unmarshalOptionalString(raw, "tokenType", &c.TokenType); err != nil {
		return err
	}

	if v, ok := raw["expiry"]; ok {
		expiry, err := parseExpiry(v)
		if err != nil {
			return err
		}
		c.Expiry = expiry
	}

	for k, v := range raw {
		if _, known := knownCredentialKeys[k]; known {
			continue
		}
		if c.Extra == nil {
			c.Extra = make(map[string]json.RawMessage)
		}
		c.Extra[k] = v
	}

	return nil
}

func unmarshalOptionalString(raw map[string]json.RawMessage, key string, dst *string) error {
	v, ok := raw[key]
	if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("field %s: %w", key, err)
	}
	return nil
}

func parseExpiry(v json.RawMessage) (time.Time, error) {
	trimmed := bytes.TrimSpace(v)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return time.Time{}, nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return time.Time{}, fmt.Errorf("field expiry: %w", err)
		}
		if s == "" {
			return time.Time{}, nil
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("field expiry: %w", err)
		}
		return t, nil
	}

	ms, err := strconv.ParseFloat(string(trimmed), 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("field expiry: not a timestamp: %s", trimmed)
	}
	return time.UnixMilli(int64(ms)).UTC(), nil
}
