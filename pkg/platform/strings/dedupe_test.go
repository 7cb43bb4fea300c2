package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	assert.Equal(t, []string{"foo", "bar"}, DedupeAndTrim([]string{"  foo ", "bar", "foo", "", "  "}))
	assert.Empty(t, DedupeAndTrim(nil))
}

func TestDedupeAndTrimLower(t *testing.T) {
	assert.Equal(t, []string{"foo", "bar"}, DedupeAndTrimLower([]string{"  FOO ", "bar", "Foo"}))
}

func TestSplitList(t *testing.T) {
	got := SplitList([]string{"validated, archived", "VALIDATED", ""})
	assert.Equal(t, []string{"validated", "archived"}, got)
	assert.Empty(t, SplitList(nil))
}
