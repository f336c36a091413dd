package models

// MaxSequenceItems caps how many messages a sequence may hold
const MaxSequenceItems = 7

// Channel names used by outbound messages and senders
const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
	ChannelSMS      = "sms"
)

// AudienceType selects which guests a sequence step targets
type AudienceType string

// Audience constants
const (
	AudienceAll        AudienceType = "all"
	AudienceResponders AudienceType = "responders"
	AudienceYes        AudienceType = "yes"
	AudienceNo         AudienceType = "no"
	AudiencePending    AudienceType = "pending"
)

// IsValid reports whether a is one of the known audiences
func (a AudienceType) IsValid() bool {
	switch a {
	case AudienceAll, AudienceResponders, AudienceYes, AudienceNo, AudiencePending:
		return true
	default:
		return false
	}
}

// Matches reports whether a guest with the given RSVP status is targeted.
// Unknown audiences match nobody.
func (a AudienceType) Matches(status RSVPStatus) bool {
	switch a {
	case AudienceAll:
		return true
	case AudienceResponders:
		return status != RSVPPending && status != ""
	case AudienceYes:
		return status == RSVPYes
	case AudienceNo:
		return status == RSVPNo
	case AudiencePending:
		return status == RSVPPending || status == ""
	default:
		return false
	}
}

// Statuses returns the RSVP statuses targeted by a, or nil for everyone
func (a AudienceType) Statuses() []RSVPStatus {
	switch a {
	case AudienceResponders:
		return []RSVPStatus{RSVPYes, RSVPNo, RSVPMaybe}
	case AudienceYes:
		return []RSVPStatus{RSVPYes}
	case AudienceNo:
		return []RSVPStatus{RSVPNo}
	case AudiencePending:
		return []RSVPStatus{RSVPPending}
	default:
		return nil
	}
}

// MessageChannelConfig says whether a channel fires for a step and with which template
type MessageChannelConfig struct {
	Enabled    bool   `json:"enabled"`
	TemplateID string `json:"templateId,omitempty"`
}

// SequenceChannels holds the per-channel configuration of a step
type SequenceChannels struct {
	Email    MessageChannelConfig `json:"email"`
	WhatsApp MessageChannelConfig `json:"whatsapp"`
	BulkSMS  MessageChannelConfig `json:"bulkSms"`
}

// SequenceConditions holds audience targeting for a step
type SequenceConditions struct {
	AudienceType AudienceType `json:"audienceType"`
}

// MessageSequenceItem is one step of an event's message sequence.
// Raw keeps the record the item was normalized from so fields this model
// does not know about survive serialization.
type MessageSequenceItem struct {
	TrackingID  string             `json:"trackingId"`
	MessageName string             `json:"messageName"`
	DayOffset   int                `json:"dayOffset"`
	Channels    SequenceChannels   `json:"channels"`
	Conditions  SequenceConditions `json:"conditions"`
	Raw         map[string]any     `json:"-"`
}

// EffectiveChannels returns the channels that actually fire under plan
func (i *MessageSequenceItem) EffectiveChannels(plan Plan) []string {
	channels := []string{ChannelEmail}
	if plan.AllowWhatsApp && i.Channels.WhatsApp.Enabled {
		channels = append(channels, ChannelWhatsApp)
	}
	if plan.AllowSMS && i.Channels.BulkSMS.Enabled {
		channels = append(channels, ChannelSMS)
	}
	return channels
}

// TemplateFor returns the template configured for channel, if any
func (i *MessageSequenceItem) TemplateFor(channel string) string {
	switch channel {
	case ChannelEmail:
		return i.Channels.Email.TemplateID
	case ChannelWhatsApp:
		return i.Channels.WhatsApp.TemplateID
	case ChannelSMS:
		return i.Channels.BulkSMS.TemplateID
	default:
		return ""
	}
}

// IsValidChannel checks if the channel is valid
func IsValidChannel(channel string) bool {
	return channel == ChannelEmail || channel == ChannelWhatsApp || channel == ChannelSMS
}
