// Package sequence implements the per-event message sequence model: turning
// persisted (possibly legacy or damaged) sequence payloads into canonical
// items, generating the default campaign for a service package, writing items
// back to their wire form under the event's channel plan, and the editor that
// applies user operations to a sequence.
//
// Everything here is pure. Callers pass the plan flags and service package
// explicitly; nothing is looked up from ambient state.
package sequence
