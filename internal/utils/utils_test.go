package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashBytes(t *testing.T) {
	hash := HashBytes([]byte("living room overview"))

	assert.Len(t, hash, 64)
	assert.True(t, ValidateHash(hash))
	assert.Equal(t, hash, HashBytes([]byte("living room overview")))
	assert.NotEqual(t, hash, HashBytes([]byte("kitchen overview")))
}

func TestHashFields_Deterministic(t *testing.T) {
	reading := 12
	a := HashFields(map[string]any{"room": "Kitchen", "reading": &reading, "absent": false})
	b := HashFields(map[string]any{"absent": false, "reading": 12, "room": "Kitchen"})

	assert.Equal(t, a, b)
}

func TestValidateHash(t *testing.T) {
	tests := []struct {
		name     string
		hash     string
		expected bool
	}{
		{name: "valid", hash: "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08", expected: true},
		{name: "uppercase", hash: "9F86D081884C7D659A2FEAA0C55AD015A3BF4F1B2B0B822CD15D6C15B0F00A08", expected: false},
		{name: "too short", hash: "9f86d0", expected: false},
		{name: "non hex", hash: "zz86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateHash(tt.hash))
		})
	}
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "small scratch", CleanText("  small scratch\x00 "))
	assert.Nil(t, CleanTextPtr(nil))

	blank := "   "
	assert.Nil(t, CleanTextPtr(&blank))

	note := " will schedule repair "
	cleaned := CleanTextPtr(&note)
	if assert.NotNil(t, cleaned) {
		assert.Equal(t, "will schedule repair", *cleaned)
	}
}
