package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredential_UnmarshalExpiryFormats(t *testing.T) {
	want := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		doc  string
		want time.Time
	}{
		{"rfc3339", `{"accessToken":"a","expiry":"2024-03-04T10:00:00Z"}`, want},
		{"epoch millis", `{"accessToken":"a","expiry":1709546400000}`, want},
		{"rfc3339 with offset", `{"accessToken":"a","expiry":"2024-03-04T11:00:00+01:00"}`, want},
		{"missing", `{"accessToken":"a"}`, time.Time{}},
		{"null", `{"accessToken":"a","expiry":null}`, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Credential
			require.NoError(t, json.Unmarshal([]byte(tt.doc), &c))
			assert.True(t, tt.want.Equal(c.Expiry), "got %v", c.Expiry)
		})
	}
}

func TestCredential_UnmarshalRejectsBadExpiry(t *testing.T) {
	var c Credential
	assert.Error(t, json.Unmarshal([]byte(`{"expiry":"tomorrow"}`), &c))
	assert.Error(t, json.Unmarshal([]byte(`{"expiry":true}`), &c))
}

func TestCredential_PreservesUnknownFields(t *testing.T) {
	doc := `{"accessToken":"a","refreshToken":"r","expiry":1709546400000,"id_token":"jwt","custom":{"n":1}}`

	var c Credential
	require.NoError(t, json.Unmarshal([]byte(doc), &c))
	assert.Equal(t, "a", c.AccessToken)
	assert.Equal(t, "r", c.RefreshToken)
	require.Contains(t, c.Extra, "id_token")
	require.Contains(t, c.Extra, "custom")

	out, err := json.Marshal(c)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &fields))
	assert.Equal(t, "jwt", fields["id_token"])
	assert.Equal(t, map[string]interface{}{"n": float64(1)}, fields["custom"])
	assert.Equal(t, "2024-03-04T10:00:00Z", fields["expiry"])
}

func TestCredential_ExpiryKeepsSubSecondPrecision(t *testing.T) {
	expiry := time.Date(2024, 3, 4, 10, 0, 0, 123456789, time.UTC)
	data, err := json.Marshal(Credential{AccessToken: "a", Expiry: expiry})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"expiry":"2024-03-04T10:00:00.123456789Z"`)

	var back Credential
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, expiry.Equal(back.Expiry), "got %v", back.Expiry)
}

func TestCredential_KnownFieldsWinOverExtra(t *testing.T) {
	c := Credential{
		AccessToken: "real",
		Extra:       map[string]json.RawMessage{"accessToken": json.RawMessage(`"stale"`)},
	}

	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"accessToken":"real"`)
	assert.NotContains(t, string(out), "stale")
}

func TestCredential_Clone(t *testing.T) {
	c := &Credential{
		UserID:      "u",
		AccessToken: "a",
		Extra:       map[string]json.RawMessage{"k": json.RawMessage(`"v"`)},
	}

	clone := c.Clone()
	clone.AccessToken = "changed"
	clone.Extra["k"] = json.RawMessage(`"other"`)

	assert.Equal(t, "a", c.AccessToken)
	assert.Equal(t, `"v"`, string(c.Extra["k"]))
	assert.Nil(t, (*Credential)(nil).Clone())
}

func TestCredential_ExpiresWithin(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, (&Credential{Expiry: now.Add(4 * time.Minute)}).ExpiresWithin(now, 5*time.Minute))
	assert.True(t, (&Credential{Expiry: now.Add(-time.Hour)}).ExpiresWithin(now, 5*time.Minute))
	assert.False(t, (&Credential{Expiry: now.Add(5 * time.Minute)}).ExpiresWithin(now, 5*time.Minute))
	assert.False(t, (&Credential{}).ExpiresWithin(now, 5*time.Minute))
}

func TestCalendarEvent_Busy(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	assert.True(t, CalendarEvent{Start: start, End: start.Add(time.Hour), Status: EventStatusConfirmed}.Busy())
	assert.False(t, CalendarEvent{Start: start, End: start.Add(time.Hour), Status: EventStatusCancelled}.Busy())
	assert.False(t, CalendarEvent{Start: start, End: start.Add(time.Hour), Transparent: true}.Busy())
	assert.False(t, CalendarEvent{Start: start, End: start}.Busy())
}

func TestBusyInterval_Overlaps(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	b := BusyInterval{Start: start, End: start.Add(time.Hour)}

	assert.True(t, b.Valid())
	assert.True(t, b.Overlaps(start.Add(30*time.Minute), start.Add(90*time.Minute)))
	assert.False(t, b.Overlaps(start.Add(time.Hour), start.Add(2*time.Hour)))
	assert.False(t, b.Overlaps(start.Add(-time.Hour), start))
	assert.False(t, BusyInterval{Start: start, End: start}.Valid())
}
