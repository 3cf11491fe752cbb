package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"gauze", "sterile"}, SplitTags("Gauze, sterile"))
	assert.Equal(t, []string{"ppe"}, SplitTags("ppe, PPE , ppe"))
	assert.Equal(t, []string{"a", "b"}, SplitTags(",a,,b,"))
	assert.Empty(t, SplitTags(""))
	assert.Empty(t, SplitTags(" , ,"))
}

func TestGenerateRandomDigitString(t *testing.T) {
	s := GenerateRandomDigitString(6)
	assert.Len(t, s, 6)
	for _, r := range s {
		assert.True(t, r >= '0' && r <= '9')
	}
}
