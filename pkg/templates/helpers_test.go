package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToJSON(t *testing.T) {
	assert.Equal(t, `{"state":"CA"}`, ToJSON(map[string]string{"state": "CA"}))
	assert.Equal(t, "{}", ToJSON(make(chan int)))
}

func TestJoinWith(t *testing.T) {
	assert.Equal(t, "a, b", JoinWith(", ", []string{"a", "", "b"}))
	assert.Equal(t, "", JoinWith(", ", nil))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", TruncateRunes(10, "abc"))
	assert.Equal(t, "ab...", TruncateRunes(2, "abcdef"))
	assert.Equal(t, "", TruncateRunes(0, "abc"))
	assert.Equal(t, "héll...", TruncateRunes(4, "héllo wörld"))
}
