package sequence

import (
	"fmt"

	"github.com/Raymond9734/event-rsvp-backend/internal/models"
)

// Channel status labels shown next to each step
const (
	StatusEnabled  = "Enabled"
	StatusDisabled = "Disabled"
)

// ChangeFunc receives the next sequence after every mutation
type ChangeFunc func(next []models.MessageSequenceItem)

// Editor applies user operations to a sequence it does not own. It holds the
// value last handed to it by the owner and reports every mutation through
// onChange; the owner persists the result and hands the new value back with
// SetValue. Operations never modify the current slice in place.
type Editor struct {
	value    []models.MessageSequenceItem
	plan     models.Plan
	onChange ChangeFunc

	// index of the item being dragged, -1 when idle
	dragIndex int

	newTrackingID func() string
}

// Controls describes which editor controls are interactive
type Controls struct {
	AddDisabled            bool
	WhatsAppToggleDisabled bool
	SMSToggleDisabled      bool
}

// ChannelStatus is the read-only per-channel label of a step
type ChannelStatus struct {
	Email    string
	WhatsApp string
	SMS      string
}

// NewEditor creates an editor over value, bound to plan
func NewEditor(value []models.MessageSequenceItem, plan models.Plan, onChange ChangeFunc) *Editor {
	return &Editor{
		value:         value,
		plan:          plan,
		onChange:      onChange,
		dragIndex:     -1,
		newTrackingID: NewTrackingID,
	}
}

// Value returns the sequence the editor currently displays
func (e *Editor) Value() []models.MessageSequenceItem {
	return e.value
}

// SetValue replaces the displayed sequence, normally with the value the owner
// received through onChange
func (e *Editor) SetValue(value []models.MessageSequenceItem) {
	e.value = value
	if e.dragIndex >= len(value) {
		e.dragIndex = -1
	}
}

// Controls reports which controls are disabled
func (e *Editor) Controls() Controls {
	return Controls{
		AddDisabled:            !e.CanAdd(),
		WhatsAppToggleDisabled: !e.plan.AllowWhatsApp,
		SMSToggleDisabled:      !e.plan.AllowSMS,
	}
}

// CanAdd reports whether another step fits in the sequence
func (e *Editor) CanAdd() bool {
	return len(e.value) < models.MaxSequenceItems
}

// Add appends a new step. It is a no-op at capacity.
func (e *Editor) Add() bool {
	if !e.CanAdd() {
		return false
	}

	dayOffset := 1
	if n := len(e.value); n > 0 {
		dayOffset = e.value[n-1].DayOffset + 3
	}

	item := models.MessageSequenceItem{
		TrackingID:  e.newTrackingID(),
		MessageName: fmt.Sprintf("Message %d", len(e.value)+1),
		DayOffset:   dayOffset,
		Channels: models.SequenceChannels{
			Email:    models.MessageChannelConfig{Enabled: true},
			WhatsApp: models.MessageChannelConfig{Enabled: e.plan.AllowWhatsApp},
			BulkSMS:  models.MessageChannelConfig{Enabled: e.plan.AllowSMS},
		},
		Conditions: models.SequenceConditions{AudienceType: models.AudienceAll},
	}

	next := make([]models.MessageSequenceItem, 0, len(e.value)+1)
	next = append(next, e.value...)
	next = append(next, item)
	e.emit(next)
	return true
}

// Remove deletes the step at index
func (e *Editor) Remove(index int) bool {
	if !e.inRange(index) {
		return false
	}

	next := make([]models.MessageSequenceItem, 0, len(e.value)-1)
	next = append(next, e.value[:index]...)
	next = append(next, e.value[index+1:]...)
	e.emit(next)
	return true
}

// BeginDrag marks the step at index as being dragged
func (e *Editor) BeginDrag(index int) bool {
	if !e.inRange(index) {
		return false
	}
	e.dragIndex = index
	return true
}

// Dragging returns the index being dragged, if any
func (e *Editor) Dragging() (int, bool) {
	return e.dragIndex, e.dragIndex >= 0
}

// Drop finishes a drag onto dest. The drag state is cleared whether or not
// the drop moves anything; dropping onto the original position is a no-op.
func (e *Editor) Drop(dest int) bool {
	source := e.dragIndex
	e.dragIndex = -1
	if source < 0 || source == dest {
		return false
	}
	return e.Move(source, dest)
}

// CancelDrag abandons a drag that ended without a valid drop
func (e *Editor) CancelDrag() {
	e.dragIndex = -1
}

// Move takes the step at from out of the sequence and reinserts it at to
func (e *Editor) Move(from, to int) bool {
	if !e.inRange(from) || !e.inRange(to) || from == to {
		return false
	}

	moved := e.value[from]
	rest := make([]models.MessageSequenceItem, 0, len(e.value)-1)
	rest = append(rest, e.value[:from]...)
	rest = append(rest, e.value[from+1:]...)

	next := make([]models.MessageSequenceItem, 0, len(e.value))
	next = append(next, rest[:to]...)
	next = append(next, moved)
	next = append(next, rest[to:]...)
	e.emit(next)
	return true
}

// SetName renames the step at index
func (e *Editor) SetName(index int, name string) bool {
	return e.update(index, func(item *models.MessageSequenceItem) {
		item.MessageName = name
	})
}

// SetDayOffset changes when the step at index fires
func (e *Editor) SetDayOffset(index, dayOffset int) bool {
	return e.update(index, func(item *models.MessageSequenceItem) {
		item.DayOffset = dayOffset
	})
}

// SetAudience retargets the step at index. Unknown audiences are ignored.
func (e *Editor) SetAudience(index int, audience models.AudienceType) bool {
	if !audience.IsValid() {
		return false
	}
	return e.update(index, func(item *models.MessageSequenceItem) {
		item.Conditions.AudienceType = audience
	})
}

// ToggleWhatsApp flips WhatsApp on the step at index. The toggle is inert
// when the plan does not include WhatsApp.
func (e *Editor) ToggleWhatsApp(index int) bool {
	if !e.plan.AllowWhatsApp {
		return false
	}
	return e.update(index, func(item *models.MessageSequenceItem) {
		item.Channels.WhatsApp.Enabled = !item.Channels.WhatsApp.Enabled
	})
}

// ToggleSMS flips bulk SMS on the step at index. The toggle is inert when
// the plan does not include SMS.
func (e *Editor) ToggleSMS(index int) bool {
	if !e.plan.AllowSMS {
		return false
	}
	return e.update(index, func(item *models.MessageSequenceItem) {
		item.Channels.BulkSMS.Enabled = !item.Channels.BulkSMS.Enabled
	})
}

// ChannelStatus returns the labels for the step at index. Channels the plan
// excludes always read as disabled.
func (e *Editor) ChannelStatus(index int) (ChannelStatus, bool) {
	if !e.inRange(index) {
		return ChannelStatus{}, false
	}
	item := e.value[index]
	return ChannelStatus{
		Email:    StatusEnabled,
		WhatsApp: label(e.plan.AllowWhatsApp && item.Channels.WhatsApp.Enabled),
		SMS:      label(e.plan.AllowSMS && item.Channels.BulkSMS.Enabled),
	}, true
}

func (e *Editor) update(index int, mutate func(item *models.MessageSequenceItem)) bool {
	if !e.inRange(index) {
		return false
	}

	next := make([]models.MessageSequenceItem, len(e.value))
	copy(next, e.value)
	item := next[index]
	mutate(&item)
	next[index] = item
	e.emit(next)
	return true
}

func (e *Editor) emit(next []models.MessageSequenceItem) {
	if e.onChange != nil {
		e.onChange(next)
	}
}

func (e *Editor) inRange(index int) bool {
	return index >= 0 && index < len(e.value)
}

func label(enabled bool) string {
	if enabled {
		return StatusEnabled
	}
	return StatusDisabled
}
