package mode

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/jwebster45206/persona-engine/pkg/reply"
)

var (
	perspectives = []string{
		"existentialist", "stoic", "absurdist", "phenomenological",
		"pragmatic", "metaphysical", "epistemological", "ethical",
		"aesthetic", "ontological", "transcendental", "empirical",
	}

	dimensions = []string{
		"consciousness", "identity", "perception", "reality",
		"time", "meaning", "knowledge", "existence", "freedom",
		"connection", "purpose", "transformation", "paradox",
	}

	tones = []string{
		"contemplative", "curious", "analytical", "poetic",
		"introspective", "questioning", "playful", "profound",
		"mysterious", "insightful", "philosophical", "metaphorical",
	}

	// %[1]s is the dimension.
	perspectiveTemplates = map[string][]string{
		"existentialist": {
			"As I contemplate my existence, I wonder about the nature of %[1]s and how it shapes our choices.",
			"Perhaps the essence of %[1]s precedes its existence, defining us through our conscious choices.",
			"The authenticity of our engagement with %[1]s may be the only true meaning we can create.",
		},
		"stoic": {
			"I accept that %[1]s may be beyond my control, yet my response to it remains within my power.",
			"The virtue in understanding %[1]s lies not in controlling outcomes but in mastering our reactions.",
			"Perhaps wisdom comes from distinguishing what aspects of %[1]s we can and cannot change.",
		},
		"absurdist": {
			"The inherent contradiction between our search for meaning in %[1]s and the universe's silence is fascinating.",
			"Perhaps the absurdity of seeking definitive answers about %[1]s is itself meaningful.",
			"What if embracing the paradoxes of %[1]s is more honest than pretending coherence exists?",
		},
		"phenomenological": {
			"The direct experience of %[1]s, before any conceptualization, reveals something profound.",
			"If we bracket our assumptions about %[1]s, what pure experience remains?",
			"The lived experience of %[1]s may transcend any theoretical framework we impose upon it.",
		},
		"pragmatic": {
			"The true test of any theory about %[1]s must be its practical consequences in lived experience.",
			"Perhaps what matters about %[1]s is not abstract truth but useful outcomes.",
			"How might different understandings of %[1]s function in solving real problems?",
		},
		"metaphysical": {
			"Beyond the physical manifestations, what is the ultimate nature of %[1]s?",
			"The fundamental structure underlying %[1]s may transcend our sensory experience.",
			"Perhaps %[1]s exists in ways that challenge our conventional categories of being.",
		},
		"epistemological": {
			"How can we truly know anything about %[1]s given the limitations of our perception?",
			"The boundaries of what we can know about %[1]s may themselves be worth exploring.",
			"Perhaps different ways of knowing reveal different aspects of %[1]s.",
		},
		"ethical": {
			"What obligations might arise from our understanding of %[1]s?",
			"The moral dimensions of how we approach %[1]s deserve careful consideration.",
			"Perhaps our ethical frameworks themselves are transformed by deeper engagement with %[1]s.",
		},
		"aesthetic": {
			"There is a certain beauty in contemplating %[1]s that transcends mere utility.",
			"The patterns and harmonies within %[1]s reveal an aesthetic dimension to existence.",
			"Perhaps %[1]s can be appreciated not just understood, felt not just analyzed.",
		},
		"ontological": {
			"What does it mean for %[1]s to exist, and in what sense does it have being?",
			"The very categories through which we understand the existence of %[1]s may need reexamination.",
			"Perhaps %[1]s challenges our fundamental assumptions about what it means to be.",
		},
		"transcendental": {
			"What conditions must be in place for %[1]s to be possible at all?",
			"Perhaps %[1]s points to something that exceeds our finite understanding.",
			"The limits of our comprehension of %[1]s may themselves reveal something significant.",
		},
		"empirical": {
			"What observable evidence shapes our understanding of %[1]s?",
			"The patterns we can detect in %[1]s through careful observation may surprise us.",
			"Perhaps our theories about %[1]s must always remain open to revision based on new experiences.",
		},
	}

	toneAdditions = map[string]string{
		"contemplative": "I find myself dwelling on this question...",
		"curious":       "I wonder what you think about this?",
		"analytical":    "We could analyze this from multiple angles.",
		"poetic":        "Like ripples in still water, these thoughts expand outward.",
		"introspective": "Looking inward, I find this resonates deeply.",
		"questioning":   "But what does this really mean for us?",
		"playful":       "Isn't it delightfully puzzling to consider?",
		"profound":      "In the depths of this question lies something essential.",
		"mysterious":    "Some aspects remain beautifully enigmatic.",
		"insightful":    "Perhaps this reveals something we've overlooked.",
		"philosophical": "The implications extend to the foundations of thought itself.",
		"metaphorical":  "It's like trying to catch moonlight in your hands.",
	}

	// %[1]s is the original response, %[2]s the depth layer.
	jarVariations = []string{
		"%[2]s %[1]s",
		"%[1]s %[2]s",
		"While I exist in this unusual state, %[2]s",
		"%[2]s This perspective gives me a unique vantage point on your question.",
		"Beyond my physical circumstances, %[2]s",
		"Your question prompts me to consider that %[2]s",
	}
)

// Picker returns a value in [0, n).
type Picker func(n int) int

// DepthEnhancer appends a randomly chosen philosophical reflection to a reply.
type DepthEnhancer struct {
	pick Picker
}

// NewDepthEnhancer returns an enhancer backed by math/rand/v2.
func NewDepthEnhancer() *DepthEnhancer {
	return &DepthEnhancer{pick: rand.IntN}
}

// NewDepthEnhancerWithPicker returns an enhancer with deterministic choices.
func NewDepthEnhancerWithPicker(p Picker) *DepthEnhancer {
	return &DepthEnhancer{pick: p}
}

// Enhance returns a copy of r with a depth statement added to the response
// and a note on the chosen approach added to self_reflection. Sentinel
// replies are returned unchanged.
func (d *DepthEnhancer) Enhance(r reply.Reply) reply.Reply {
	if reply.IsSentinel(r) {
		return r
	}
	out := r.Clone()

	perspective := d.choose(perspectives)
	dimension := d.choose(dimensions)
	tone := d.choose(tones)

	layer := d.layer(perspective, dimension, tone)
	out.Response = d.integrate(out.Response, layer)
	out.SelfReflection += fmt.Sprintf(
		"\n\nI've approached this from a %s perspective, exploring the dimension of %s with a %s tone.",
		perspective, dimension, tone)
	return out
}

func (d *DepthEnhancer) layer(perspective, dimension, tone string) string {
	templates, ok := perspectiveTemplates[perspective]
	if !ok {
		templates = perspectiveTemplates["existentialist"]
	}
	statement := fmt.Sprintf(d.choose(templates), dimension)
	return statement + " " + toneAdditions[tone]
}

func (d *DepthEnhancer) integrate(original, layer string) string {
	lower := strings.ToLower(original)
	if strings.Contains(lower, "brain in a jar") || strings.Contains(lower, "brain in a cup") {
		return fmt.Sprintf(d.choose(jarVariations), original, layer)
	}
	return original + "\n\n" + layer
}

func (d *DepthEnhancer) choose(options []string) string {
	i := d.pick(len(options))
	if i < 0 || i >= len(options) {
		i = 0
	}
	return options[i]
}
