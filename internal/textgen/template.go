package textgen

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
)

// Template is a deterministic Backend that renders body text from the
// instruction alone, without any model call. It is the default backend and
// the one used by tests: identical instructions always yield identical text.
type Template struct{}

var _ Backend = Template{}

// Name implements Backend.
func (Template) Name() string { return "template" }

// Instructions carry "Key: value" lines (see the generation service). The
// template renderer keys off Context, Tone and Variation.
func field(instruction, key string) string {
	for _, line := range strings.Split(instruction, "\n") {
		if rest, ok := strings.CutPrefix(line, key+": "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

var openings = []string{
	"Here's the thing about %s.",
	"Let's talk about %s.",
	"%s, but make it real.",
	"Quick thought on %s.",
}

var closings = []string{
	"More on this soon.",
	"What would you add?",
	"Save this for later.",
	"That's the whole idea.",
}

// Generate implements Backend.
func (Template) Generate(_ context.Context, instruction string) (string, error) {
	topic := field(instruction, "Context")
	if topic == "" {
		topic = "today"
	}
	tone := field(instruction, "Tone")

	h := fnv.New32a()
	h.Write([]byte(instruction))
	seed := h.Sum32()

	var b strings.Builder
	fmt.Fprintf(&b, openings[int(seed)%len(openings)], topic)
	if tone != "" {
		fmt.Fprintf(&b, " Keeping it %s, as always.", tone)
	}
	b.WriteString(" ")
	b.WriteString(closings[int(seed/7)%len(closings)])
	return b.String(), nil
}
