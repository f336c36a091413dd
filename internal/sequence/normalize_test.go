package sequence

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raymond9734/event-rsvp-backend/internal/models"
)

func TestNormalizeChannel(t *testing.T) {
	tests := []struct {
		name     string
		raw      any
		fallback bool
		want     models.MessageChannelConfig
	}{
		{"nil uses fallback", nil, true, models.MessageChannelConfig{Enabled: true}},
		{"not an object", "yes", false, models.MessageChannelConfig{Enabled: false}},
		{"explicit false kept", map[string]any{"enabled": false}, true, models.MessageChannelConfig{Enabled: false}},
		{"explicit true kept", map[string]any{"enabled": true}, false, models.MessageChannelConfig{Enabled: true}},
		{"non boolean enabled", map[string]any{"enabled": "true"}, false, models.MessageChannelConfig{Enabled: false}},
		{"template copied", map[string]any{"templateId": "tpl-1"}, true, models.MessageChannelConfig{Enabled: true, TemplateID: "tpl-1"}},
		{"empty template dropped", map[string]any{"templateId": ""}, true, models.MessageChannelConfig{Enabled: true}},
		{"zero template dropped", map[string]any{"templateId": float64(0)}, true, models.MessageChannelConfig{Enabled: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeChannel(tt.raw, tt.fallback))
		})
	}
}

func TestNormalizeSequence_MalformedInput(t *testing.T) {
	inputs := map[string]any{
		"nil":            nil,
		"empty string":   "",
		"bad json":       "{not json",
		"json object":    `{"trackingId":"a"}`,
		"json number":    "42",
		"json null":      "null",
		"integer":        7,
		"map":            map[string]any{"trackingId": "a"},
		"double encoded": `"\"[1,2]\""`,
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			got := NormalizeSequence(input)
			require.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestNormalizeSequence_LegacyFields(t *testing.T) {
	input := `[{"id":"a1","messageType":"Foo","dayOffset":"5","channels":{"email":{"enabled":false}},"extra":{"keep":true}}]`

	items := NormalizeSequence(input)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "a1", item.TrackingID)
	assert.Equal(t, "Foo", item.MessageName)
	assert.Equal(t, 5, item.DayOffset)
	assert.False(t, item.Channels.Email.Enabled)
	assert.False(t, item.Channels.WhatsApp.Enabled)
	assert.False(t, item.Channels.BulkSMS.Enabled)
	assert.Equal(t, models.AudienceAll, item.Conditions.AudienceType)
	assert.Equal(t, map[string]any{"keep": true}, item.Raw["extra"])
}

func TestNormalizeSequence_NumericIDs(t *testing.T) {
	tests := []struct {
		name string
		id   any
		want string
	}{
		{"float", float64(42), "42"},
		{"int", 42, "42"},
		{"json number", json.Number("42"), "42"},
		{"zero float", float64(0), ""},
		{"zero int", 0, ""},
		{"zero json number", json.Number("0"), ""},
		{"zero json number with fraction", json.Number("0.0"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := NormalizeSequence([]any{map[string]any{"id": tt.id}})
			require.Len(t, items, 1)
			if tt.want == "" {
				assert.NotEmpty(t, items[0].TrackingID)
				assert.NotEqual(t, "0", items[0].TrackingID)
				assert.True(t, MintedTrackingIDs(items))
				return
			}
			assert.Equal(t, tt.want, items[0].TrackingID)
			assert.False(t, MintedTrackingIDs(items))
		})
	}
}

func TestMintedTrackingIDs(t *testing.T) {
	stored := NormalizeSequence(`[{"trackingId":"a"},{"id":"b"}]`)
	assert.False(t, MintedTrackingIDs(stored))

	legacy := NormalizeSequence(`[{"trackingId":"a"},{"messageName":"No id"}]`)
	assert.True(t, MintedTrackingIDs(legacy))

	// once serialized the minted id is part of the stored form
	data, err := json.Marshal(SerializeSequence(legacy, false, false))
	require.NoError(t, err)
	again := NormalizeSequence(data)
	assert.False(t, MintedTrackingIDs(again))
	assert.Equal(t, legacy[1].TrackingID, again[1].TrackingID)
}

func TestNormalizeSequence_Defaults(t *testing.T) {
	items := NormalizeSequence([]any{map[string]any{}})
	require.Len(t, items, 1)

	item := items[0]
	assert.NotEmpty(t, item.TrackingID)
	assert.Equal(t, "Message", item.MessageName)
	assert.Equal(t, 0, item.DayOffset)
	assert.True(t, item.Channels.Email.Enabled)
	assert.False(t, item.Channels.WhatsApp.Enabled)
	assert.False(t, item.Channels.BulkSMS.Enabled)
	assert.Equal(t, models.AudienceAll, item.Conditions.AudienceType)
}

func TestNormalizeSequence_PrefersCanonicalFields(t *testing.T) {
	items := NormalizeSequence([]any{map[string]any{
		"trackingId":  "new",
		"id":          "old",
		"messageName": "Reminder",
		"messageType": "legacy",
	}})
	require.Len(t, items, 1)
	assert.Equal(t, "new", items[0].TrackingID)
	assert.Equal(t, "Reminder", items[0].MessageName)
}

func TestNormalizeSequence_SkipsNonObjects(t *testing.T) {
	items := NormalizeSequence(`[1, "two", null, {"trackingId":"kept"}, [3]]`)
	require.Len(t, items, 1)
	assert.Equal(t, "kept", items[0].TrackingID)
}

func TestNormalizeSequence_DoubleEncoded(t *testing.T) {
	inner := `[{"trackingId":"x","dayOffset":3}]`
	encoded, err := json.Marshal(inner)
	require.NoError(t, err)

	items := NormalizeSequence(string(encoded))
	require.Len(t, items, 1)
	assert.Equal(t, "x", items[0].TrackingID)
	assert.Equal(t, 3, items[0].DayOffset)
}

func TestNormalizeSequence_AcceptsBytes(t *testing.T) {
	raw := json.RawMessage(`[{"trackingId":"r"}]`)
	assert.Len(t, NormalizeSequence(raw), 1)
	assert.Len(t, NormalizeSequence([]byte(raw)), 1)
	assert.Len(t, NormalizeSequence([]map[string]any{{"trackingId": "m"}, nil}), 1)
}

func TestNormalizeSequence_InvalidAudienceBecomesAll(t *testing.T) {
	items := NormalizeSequence(`[{"conditions":{"audienceType":"vip"}},{"conditions":{"audienceType":"pending"}}]`)
	require.Len(t, items, 2)
	assert.Equal(t, models.AudienceAll, items[0].Conditions.AudienceType)
	assert.Equal(t, models.AudiencePending, items[1].Conditions.AudienceType)
}

func TestCoerceDayOffset(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want int
	}{
		{"absent", nil, 0},
		{"float", float64(14), 14},
		{"fraction truncates", 2.9, 2},
		{"negative fraction truncates", -2.9, -2},
		{"negative", float64(-3), -3},
		{"numeric string", " 7 ", 7},
		{"fraction string", "4.5", 4},
		{"garbage string", "soon", 0},
		{"empty string", "", 0},
		{"true", true, 1},
		{"false", false, 0},
		{"nan", math.NaN(), 0},
		{"infinity", math.Inf(1), 0},
		{"huge", 1e20, 0},
		{"object", map[string]any{}, 0},
		{"json number", json.Number("12"), 12},
		{"int", 9, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, coerceDayOffset(tt.raw))
		})
	}
}

func TestNormalizeSequence_Idempotent(t *testing.T) {
	inputs := []any{
		`[{"id":"a1","messageType":"Foo","dayOffset":"5","channels":{"email":{"enabled":false}}}]`,
		`[{"trackingId":"b","dayOffset":2.5,"channels":{"whatsapp":{"enabled":true,"templateId":"w1"}},"conditions":{"audienceType":"yes"},"custom":[1,{"x":2}]}]`,
		`[{}, {"conditions":{"audienceType":"bogus"}}]`,
		DefaultSequence(models.PackageFullRSVP, true, true),
	}

	for _, input := range inputs {
		once := NormalizeSequence(input)
		twice := NormalizeSequence(once)
		assert.Equal(t, once, twice)
	}
}

func TestNormalizeSequence_DoesNotShareRaw(t *testing.T) {
	source := []any{map[string]any{"trackingId": "a", "meta": map[string]any{"n": 1.0}}}
	items := NormalizeSequence(source)
	require.Len(t, items, 1)

	items[0].Raw["meta"].(map[string]any)["n"] = 2.0
	assert.Equal(t, 1.0, source[0].(map[string]any)["meta"].(map[string]any)["n"])
}

func TestNewTrackingID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewTrackingID()
		require.False(t, seen[id], "duplicate tracking id %s", id)
		seen[id] = true
	}
}
