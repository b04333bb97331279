package plugin

import (
	"fmt"
	"time"
)

// RevalidationMode selects how page caches are refreshed after a change
type RevalidationMode string

const (
	ModeImmediate RevalidationMode = "immediate"
	ModeDebounced RevalidationMode = "debounced"
)

// DefaultDebounceSeconds applies when a debounced policy omits its delay
const DefaultDebounceSeconds = 30

// RevalidationPolicy controls page-cache refreshes triggered by a plugin
type RevalidationPolicy struct {
	Mode            RevalidationMode `json:"mode" yaml:"mode" toml:"mode"`
	DebounceSeconds int              `json:"debounceSeconds,omitempty" yaml:"debounceSeconds" toml:"debounceSeconds"`
}

// DefaultPolicy is used when the registry declares none
func DefaultPolicy() RevalidationPolicy {
	return RevalidationPolicy{Mode: ModeImmediate, DebounceSeconds: DefaultDebounceSeconds}
}

// Normalize fills in defaults for empty fields
func (p RevalidationPolicy) Normalize() RevalidationPolicy {
	if p.Mode == "" {
		p.Mode = ModeImmediate
	}
	if p.DebounceSeconds <= 0 {
		p.DebounceSeconds = DefaultDebounceSeconds
	}
	return p
}

// Validate checks the mode and delay
func (p RevalidationPolicy) Validate() error {
	switch p.Mode {
	case ModeImmediate, ModeDebounced:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidPolicy, p.Mode)
	}
	if p.DebounceSeconds < 0 {
		return fmt.Errorf("%w: negative debounce", ErrInvalidPolicy)
	}
	return nil
}

// Delay returns the debounce window
func (p RevalidationPolicy) Delay() time.Duration {
	return time.Duration(p.Normalize().DebounceSeconds) * time.Second
}

// PolicyPatch is a partial update of a revalidation policy
type PolicyPatch struct {
	Mode            *RevalidationMode `json:"mode,omitempty"`
	DebounceSeconds *int              `json:"debounceSeconds,omitempty"`
}

// Apply returns p with the patch applied
func (patch PolicyPatch) Apply(p RevalidationPolicy) RevalidationPolicy {
	if patch.Mode != nil {
		p.Mode = *patch.Mode
	}
	if patch.DebounceSeconds != nil {
		p.DebounceSeconds = *patch.DebounceSeconds
	}
	return p
}
