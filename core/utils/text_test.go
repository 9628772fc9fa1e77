package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComparable(t *testing.T) {
	assert.Equal(t, "half marathon", Comparable("  Half   MARATHON "))
	// Fullwidth forms collapse under NFKC
	assert.Equal(t, "10k", Comparable("１０Ｋ"))
	assert.Equal(t, "strasse", Comparable("STRASSE"))
}

func TestAlnumKey(t *testing.T) {
	tests := map[string]string{
		"Event_No":        "eventno",
		"event-no":        "eventno",
		"ParticipantList": "participantlist",
		"ID No.":          "idno",
		"":                "",
	}
	for in, want := range tests {
		assert.Equal(t, want, AlnumKey(in), in)
	}
}
