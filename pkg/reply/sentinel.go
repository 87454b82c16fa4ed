package reply

import "slices"

// Sentinel is returned when a model reply cannot be repaired into the schema.
func Sentinel() Reply {
	return Reply{
		Sensations:     []string{"Error processing response"},
		Thoughts:       []string{"Unable to parse thoughts"},
		Memories:       "Memory retrieval failed",
		SelfReflection: "Self-reflection unavailable",
		Response:       "I apologize, but I'm having trouble processing that right now.",
	}
}

// Unavailable is returned when the pipeline itself fails before a reply exists.
func Unavailable() Reply {
	return Reply{
		Sensations:     []string{"Error processing input"},
		Thoughts:       []string{"System malfunction"},
		Memories:       "Unable to access memory banks",
		SelfReflection: "Experiencing technical difficulties",
		Response:       "I'm experiencing technical difficulties and cannot process your request at the moment.",
	}
}

// IsSentinel reports whether the base fields of r exactly match one of the
// fallback replies. Quest metadata is ignored.
func IsSentinel(r Reply) bool {
	return sameBase(r, Sentinel()) || sameBase(r, Unavailable())
}

func sameBase(a, b Reply) bool {
	return slices.Equal(a.Sensations, b.Sensations) &&
		slices.Equal(a.Thoughts, b.Thoughts) &&
		a.Memories == b.Memories &&
		a.SelfReflection == b.SelfReflection &&
		a.Response == b.Response
}
