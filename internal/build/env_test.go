package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvFromVariables(t *testing.T) {
	t.Setenv("CALC_GIT_COMMIT", "0123abcd")
	t.Setenv("CALC_GIT_DATE", "20261018")

	env := Env()
	assert.Equal(t, "0123abcd", env.Commit)
	assert.Equal(t, "20261018", env.Date)
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Empty(t, firstNonEmpty("", ""))
}
