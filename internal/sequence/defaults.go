package sequence

import "github.com/Raymond9734/event-rsvp-backend/internal/models"

type defaultStep struct {
	name     string
	day      int
	audience models.AudienceType
	whatsApp bool
	sms      bool
}

var (
	oneTimeSteps = []defaultStep{
		{name: "Initial Invitation", day: 1, audience: models.AudienceAll},
	}

	// standard tier is email only whatever the plan allows
	standardSteps = []defaultStep{
		{name: "Initial Invitation", day: 1, audience: models.AudienceAll},
		{name: "RSVP Reminder", day: 7, audience: models.AudiencePending},
		{name: "Event Details", day: 30, audience: models.AudienceResponders},
	}

	fullSteps = []defaultStep{
		{name: "Initial Invitation", day: 1, audience: models.AudienceAll, whatsApp: true, sms: true},
		{name: "Invitation Follow-up", day: 4, audience: models.AudienceAll, whatsApp: true},
		{name: "RSVP Reminder", day: 7, audience: models.AudiencePending, whatsApp: true},
		{name: "Second RSVP Reminder", day: 14, audience: models.AudiencePending, whatsApp: true},
		{name: "Last Call", day: 21, audience: models.AudiencePending, sms: true},
		{name: "Final Event Details", day: 28, audience: models.AudienceAll, whatsApp: true},
	}
)

// IsKnownServicePackage reports whether pkg has a dedicated default sequence.
// Unknown packages get the full sequence from DefaultSequence.
func IsKnownServicePackage(pkg models.ServicePackage) bool {
	switch pkg {
	case models.PackageInvitationOnly, models.PackageOneTimeRSVP, models.PackageStandardRSVP, models.PackageFullRSVP:
		return true
	default:
		return false
	}
}

// DefaultSequence returns the canned sequence for a service package. WhatsApp
// and SMS are only switched on where the plan allows them. Any package not
// listed falls through to the full six message sequence.
func DefaultSequence(pkg models.ServicePackage, allowWhatsApp, allowSMS bool) []models.MessageSequenceItem {
	var steps []defaultStep
	switch pkg {
	case models.PackageInvitationOnly:
		return []models.MessageSequenceItem{}
	case models.PackageOneTimeRSVP:
		steps = oneTimeSteps
	case models.PackageStandardRSVP:
		steps = standardSteps
	default:
		steps = fullSteps
	}

	items := make([]models.MessageSequenceItem, 0, len(steps))
	for _, step := range steps {
		items = append(items, models.MessageSequenceItem{
			TrackingID:  NewTrackingID(),
			MessageName: step.name,
			DayOffset:   step.day,
			Channels: models.SequenceChannels{
				Email:    models.MessageChannelConfig{Enabled: true},
				WhatsApp: models.MessageChannelConfig{Enabled: step.whatsApp && allowWhatsApp},
				BulkSMS:  models.MessageChannelConfig{Enabled: step.sms && allowSMS},
			},
			Conditions: models.SequenceConditions{AudienceType: step.audience},
		})
	}
	return items
}
