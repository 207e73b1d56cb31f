package specimen

import (
	"fmt"

	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/registry"
)

// #region enums

// KBE modes.
const (
	KBECognitive  = "cognitive"
	KBEBehavioral = "behavioral"
	KBEEmotional  = "emotional"
)

// Interaction hooks.
const (
	HookTap     = "tap"
	HookHold    = "hold"
	HookDrag    = "drag"
	HookDraw    = "draw"
	HookObserve = "observe"
	HookType    = "type"
)

// #endregion enums

// #region context

// Context is everything the engine knows about one specimen render request.
// It is a value; nothing in the engine mutates it. Empty tag fields are
// simply not active.
type Context struct {
	Signature string `json:"signature,omitempty"`
	Form      string `json:"form,omitempty"`
	Chrono    string `json:"chrono,omitempty"`
	KBE       string `json:"kbe,omitempty"`
	Hook      string `json:"hook,omitempty"`
	Seed      uint64 `json:"seed"`
	IsSeal    bool   `json:"is_seal,omitempty"`
}

// Tags returns the active tags in fixed axis order: signature, form,
// chrono, kbe, hook, seal.
func (c Context) Tags() []registry.Tag {
	tags := c.GateTags()
	if c.Hook != "" {
		tags = append(tags, registry.Tag{Axis: registry.AxisHook, Value: c.Hook})
	}
	if c.IsSeal {
		tags = append(tags, registry.Tag{Axis: registry.AxisSeal, Value: registry.SealValue})
	}
	return tags
}

// GateTags returns the tags the mechanic gate samples with: signature, form,
// chrono and kbe.
func (c Context) GateTags() []registry.Tag {
	tags := make([]registry.Tag, 0, 6)
	for _, t := range []registry.Tag{
		{Axis: registry.AxisSignature, Value: c.Signature},
		{Axis: registry.AxisForm, Value: c.Form},
		{Axis: registry.AxisChrono, Value: c.Chrono},
		{Axis: registry.AxisKBE, Value: c.KBE},
	} {
		if t.Value != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// UnknownTags returns the active tags reg does not declare. They carry no
// affinity and so act as neutral.
func (c Context) UnknownTags(reg *registry.Registry) []registry.Tag {
	var out []registry.Tag
	for _, t := range c.Tags() {
		if !reg.KnownTag(t) {
			out = append(out, t)
		}
	}
	return out
}

// WithSeed returns a copy of c with a different seed.
func (c Context) WithSeed(seed uint64) Context {
	c.Seed = seed
	return c
}

func (c Context) String() string {
	return fmt.Sprintf("seed=%d signature=%q form=%q chrono=%q kbe=%q hook=%q seal=%t",
		c.Seed, c.Signature, c.Form, c.Chrono, c.KBE, c.Hook, c.IsSeal)
}

// #endregion context
