package random_test

import (
	"testing"

	"github.com/nasermirzaei89/threadline/random"
	"github.com/stretchr/testify/assert"
)

func TestBytes(t *testing.T) {
	t.Parallel()

	assert.Len(t, random.Bytes(32), 32)
	assert.NotEqual(t, random.Bytes(16), random.Bytes(16))
}

func TestString(t *testing.T) {
	t.Parallel()

	s := random.String(16)
	assert.Len(t, s, 32)
	assert.Regexp(t, "^[0-9a-f]+$", s)
}
