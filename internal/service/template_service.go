package service

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Raymond9734/event-rsvp-backend/internal/config"
	"github.com/Raymond9734/event-rsvp-backend/internal/models"
)

// Placeholder names accepted in message templates
const (
	PlaceholderGuestName     = "guest_name"
	PlaceholderEventName     = "event_name"
	PlaceholderEventDate     = "event_date"
	PlaceholderEventLocation = "event_location"
	PlaceholderMessageName   = "message_name"
	PlaceholderRSVPLink      = "rsvp_link"
)

const eventDateLayout = "Monday, 2 January 2006 at 15:04"

var validPlaceholders = map[string]bool{
	PlaceholderGuestName:     true,
	PlaceholderEventName:     true,
	PlaceholderEventDate:     true,
	PlaceholderEventLocation: true,
	PlaceholderMessageName:   true,
	PlaceholderRSVPLink:      true,
}

// Built-in templates used when a step names no catalog template
var defaultTemplates = map[string]config.MessageTemplate{
	models.ChannelEmail: {
		Subject: "{message_name}: {event_name}",
		Body: "Hi {guest_name},\n\n{message_name} for {event_name} on {event_date} at {event_location}.\n\n" +
			"Please let us know if you can make it: {rsvp_link}",
	},
	models.ChannelWhatsApp: {
		Body: "Hi {guest_name}! {message_name} for *{event_name}* on {event_date}. RSVP here: {rsvp_link}",
	},
	models.ChannelSMS: {
		Body: "{event_name} {event_date}: {message_name}. RSVP {rsvp_link}",
	},
}

// TemplateData holds the values substituted into a template
type TemplateData struct {
	GuestName     string
	EventName     string
	EventDate     string
	EventLocation string
	MessageName   string
	RSVPLink      string
}

// NewTemplateData collects the values for one guest and sequence step
func NewTemplateData(event *models.Event, guest *models.Guest, item *models.MessageSequenceItem, rsvpLink string) TemplateData {
	data := TemplateData{RSVPLink: rsvpLink}
	if event != nil {
		data.EventName = event.Name
		data.EventLocation = event.Location
		if !event.Date.IsZero() {
			data.EventDate = event.Date.Format(eventDateLayout)
		}
	}
	if guest != nil {
		data.GuestName = guest.Fullname
	}
	if item != nil {
		data.MessageName = item.MessageName
	}
	return data
}

// RenderedMessage is a template rendered for one channel
type RenderedMessage struct {
	Subject string
	Body    string
}

// TemplateService handles template rendering and validation
type TemplateService interface {
	Render(template string, data TemplateData) string
	RenderForChannel(templateID, channel string, data TemplateData) (RenderedMessage, error)
	ValidateTemplate(template string) error
	ExtractPlaceholders(template string) []string
}

type templateService struct {
	placeholderPattern *regexp.Regexp
	catalog            config.TemplateCatalog
}

// NewTemplateService creates a template service over catalog. Every catalog
// entry must only use known placeholders.
func NewTemplateService(catalog config.TemplateCatalog) (TemplateService, error) {
	s := &templateService{
		placeholderPattern: regexp.MustCompile(`\{([a-z_]+)\}`),
		catalog:            catalog,
	}

	ids := make([]string, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		tpl := catalog[id]
		if err := s.ValidateTemplate(tpl.Body); err != nil {
			return nil, fmt.Errorf("template %q body: %w", id, err)
		}
		if tpl.Subject != "" {
			if err := s.ValidateTemplate(tpl.Subject); err != nil {
				return nil, fmt.Errorf("template %q subject: %w", id, err)
			}
		}
	}

	return s, nil
}

// Render replaces placeholders in template with data.
// Unknown placeholders are replaced with empty strings.
func (s *templateService) Render(template string, data TemplateData) string {
	fieldMap := map[string]string{
		PlaceholderGuestName:     data.GuestName,
		PlaceholderEventName:     data.EventName,
		PlaceholderEventDate:     data.EventDate,
		PlaceholderEventLocation: data.EventLocation,
		PlaceholderMessageName:   data.MessageName,
		PlaceholderRSVPLink:      data.RSVPLink,
	}

	return s.placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		return fieldMap[strings.Trim(match, "{}")]
	})
}

// RenderForChannel renders the catalog template templateID, or the built-in
// template of channel when templateID is empty or unknown.
func (s *templateService) RenderForChannel(templateID, channel string, data TemplateData) (RenderedMessage, error) {
	tpl, ok := s.catalog[templateID]
	if templateID == "" || !ok {
		tpl, ok = defaultTemplates[channel]
		if !ok {
			return RenderedMessage{}, models.ErrInvalidInput(fmt.Sprintf("no template for channel %s", channel))
		}
	}

	rendered := RenderedMessage{Body: s.Render(tpl.Body, data)}
	if channel == models.ChannelEmail {
		subject := tpl.Subject
		if subject == "" {
			subject = defaultTemplates[models.ChannelEmail].Subject
		}
		rendered.Subject = s.Render(subject, data)
	}
	return rendered, nil
}

// ValidateTemplate checks if template syntax is valid
func (s *templateService) ValidateTemplate(template string) error {
	if template == "" {
		return models.ErrInvalidInput("template cannot be empty")
	}

	var invalidPlaceholders []string
	for _, placeholder := range s.ExtractPlaceholders(template) {
		if !validPlaceholders[placeholder] {
			invalidPlaceholders = append(invalidPlaceholders, placeholder)
		}
	}

	if len(invalidPlaceholders) > 0 {
		return models.ErrInvalidInput(
			fmt.Sprintf("invalid placeholders: %s. Valid placeholders are: guest_name, event_name, event_date, event_location, message_name, rsvp_link",
				strings.Join(invalidPlaceholders, ", ")),
		)
	}

	return nil
}

// ExtractPlaceholders returns all placeholders found in template
func (s *templateService) ExtractPlaceholders(template string) []string {
	matches := s.placeholderPattern.FindAllStringSubmatch(template, -1)
	placeholders := make([]string, 0, len(matches))

	for _, match := range matches {
		if len(match) > 1 {
			placeholders = append(placeholders, match[1])
		}
	}

	return placeholders
}
