package sequence

import "github.com/Raymond9734/event-rsvp-backend/internal/models"

// SerializeSequence writes items in the form the backend stores. Each item
// starts from its raw record so unknown fields survive, then the canonical
// fields are laid over it. Email is always enabled and WhatsApp / SMS are
// forced off unless the plan allows them, whatever the item says.
func SerializeSequence(items []models.MessageSequenceItem, allowWhatsApp, allowSMS bool) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		wire := copyMap(item.Raw)
		if wire == nil {
			wire = make(map[string]any)
		}

		wire["trackingId"] = item.TrackingID
		wire["messageName"] = item.MessageName
		wire["dayOffset"] = item.DayOffset

		channels := childMap(wire, "channels")
		channels["email"] = channelWire(childMap(channels, "email"), true, item.Channels.Email.TemplateID)
		channels["whatsapp"] = channelWire(childMap(channels, "whatsapp"),
			allowWhatsApp && item.Channels.WhatsApp.Enabled, item.Channels.WhatsApp.TemplateID)
		channels["bulkSms"] = channelWire(childMap(channels, "bulkSms"),
			allowSMS && item.Channels.BulkSMS.Enabled, item.Channels.BulkSMS.TemplateID)
		wire["channels"] = channels

		conditions := childMap(wire, "conditions")
		conditions["audienceType"] = string(item.Conditions.AudienceType)
		wire["conditions"] = conditions

		out = append(out, wire)
	}
	return out
}

func channelWire(base map[string]any, enabled bool, templateID string) map[string]any {
	base["enabled"] = enabled
	if templateID != "" {
		base["templateId"] = templateID
	} else {
		delete(base, "templateId")
	}
	return base
}

// childMap returns parent[key] as an object, replacing non-objects.
func childMap(parent map[string]any, key string) map[string]any {
	if m, ok := parent[key].(map[string]any); ok {
		return m
	}
	return make(map[string]any)
}
