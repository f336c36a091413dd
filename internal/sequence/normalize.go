package sequence

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Raymond9734/event-rsvp-backend/internal/models"
)

const defaultMessageName = "Message"

// NewTrackingID returns a fresh identifier for a sequence item. Version 7
// UUIDs combine a millisecond timestamp with random bits.
func NewTrackingID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// NormalizeChannel converts a raw channel object into a MessageChannelConfig.
// A boolean "enabled" is kept; anything else falls back to fallbackEnabled.
func NormalizeChannel(raw any, fallbackEnabled bool) models.MessageChannelConfig {
	cfg := models.MessageChannelConfig{Enabled: fallbackEnabled}

	m, ok := raw.(map[string]any)
	if !ok {
		return cfg
	}
	if enabled, ok := m["enabled"].(bool); ok {
		cfg.Enabled = enabled
	}
	cfg.TemplateID = stringValue(m["templateId"])
	return cfg
}

// NormalizeSequence turns a persisted sequence into canonical items. input may
// be a JSON document (string, []byte or json.RawMessage), an already decoded
// array, a canonical slice, or anything else. Malformed input yields an empty
// sequence; this function never fails.
func NormalizeSequence(input any) []models.MessageSequenceItem {
	return normalizeValue(input, 0)
}

func normalizeValue(input any, depth int) []models.MessageSequenceItem {
	switch v := input.(type) {
	case nil:
		return []models.MessageSequenceItem{}
	case string:
		return normalizeJSON([]byte(v), depth)
	case []byte:
		return normalizeJSON(v, depth)
	case json.RawMessage:
		return normalizeJSON(v, depth)
	case []models.MessageSequenceItem:
		return renormalize(v)
	case []map[string]any:
		items := make([]models.MessageSequenceItem, 0, len(v))
		for _, element := range v {
			if element == nil {
				continue
			}
			items = append(items, normalizeItem(element))
		}
		return items
	case []any:
		items := make([]models.MessageSequenceItem, 0, len(v))
		for _, element := range v {
			m, ok := element.(map[string]any)
			if !ok {
				continue
			}
			items = append(items, normalizeItem(m))
		}
		return items
	default:
		return []models.MessageSequenceItem{}
	}
}

// normalizeJSON decodes data and normalizes the result. A document that is
// itself a JSON string is unwrapped once, which covers sequences stored
// double-encoded.
func normalizeJSON(data []byte, depth int) []models.MessageSequenceItem {
	if len(strings.TrimSpace(string(data))) == 0 {
		return []models.MessageSequenceItem{}
	}

	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return []models.MessageSequenceItem{}
	}

	if s, ok := decoded.(string); ok {
		if depth > 0 {
			return []models.MessageSequenceItem{}
		}
		return normalizeValue(s, depth+1)
	}
	return normalizeValue(decoded, depth+1)
}

func normalizeItem(m map[string]any) models.MessageSequenceItem {
	channels, _ := m["channels"].(map[string]any)
	conditions, _ := m["conditions"].(map[string]any)

	return models.MessageSequenceItem{
		TrackingID:  firstNonEmpty(stringValue(m["trackingId"]), stringValue(m["id"]), NewTrackingID()),
		MessageName: firstNonEmpty(stringValue(m["messageName"]), stringValue(m["messageType"]), defaultMessageName),
		DayOffset:   coerceDayOffset(m["dayOffset"]),
		Channels: models.SequenceChannels{
			Email:    NormalizeChannel(channels["email"], true),
			WhatsApp: NormalizeChannel(channels["whatsapp"], false),
			BulkSMS:  NormalizeChannel(channels["bulkSms"], false),
		},
		Conditions: models.SequenceConditions{
			AudienceType: normalizeAudience(conditions["audienceType"]),
		},
		Raw: copyMap(m),
	}
}

// MintedTrackingIDs reports whether any item carries a tracking id its stored
// form did not have. Such a sequence must be written back before the ids are
// relied on, since the next normalization mints different ones.
func MintedTrackingIDs(items []models.MessageSequenceItem) bool {
	for _, item := range items {
		stored := firstNonEmpty(stringValue(item.Raw["trackingId"]), stringValue(item.Raw["id"]))
		if stored != item.TrackingID {
			return true
		}
	}
	return false
}

// renormalize repairs canonical items in place of decoding them again, so
// normalizing an already normalized sequence returns an equal sequence.
func renormalize(items []models.MessageSequenceItem) []models.MessageSequenceItem {
	out := make([]models.MessageSequenceItem, len(items))
	for i, item := range items {
		if item.TrackingID == "" {
			item.TrackingID = NewTrackingID()
		}
		if item.MessageName == "" {
			item.MessageName = defaultMessageName
		}
		if !item.Conditions.AudienceType.IsValid() {
			item.Conditions.AudienceType = models.AudienceAll
		}
		item.Raw = copyMap(item.Raw)
		out[i] = item
	}
	return out
}

func normalizeAudience(raw any) models.AudienceType {
	audience, ok := raw.(string)
	if !ok || !models.AudienceType(audience).IsValid() {
		return models.AudienceAll
	}
	return models.AudienceType(audience)
}

// coerceDayOffset converts a persisted day offset to an int. Fractions are
// truncated toward zero; unparseable, NaN, infinite or out of range values
// become 0.
func coerceDayOffset(raw any) int {
	switch v := raw.(type) {
	case float64:
		return floatToOffset(v)
	case float32:
		return floatToOffset(float64(v))
	case int:
		return floatToOffset(float64(v))
	case int64:
		return floatToOffset(float64(v))
	case int32:
		return int(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return floatToOffset(f)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return floatToOffset(f)
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func floatToOffset(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	f = math.Trunc(f)
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0
	}
	return int(f)
}

// stringValue returns the truthy string form of a scalar, or "".
func stringValue(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		if f, err := v.Float64(); err == nil && f == 0 {
			return ""
		}
		return v.String()
	case int:
		if v == 0 {
			return ""
		}
		return strconv.Itoa(v)
	case int64:
		if v == 0 {
			return ""
		}
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// copyMap deep copies a decoded JSON object.
func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return t
	}
}
