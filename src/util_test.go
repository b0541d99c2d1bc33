package imogen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIfThenElse_SelectsByCondition(t *testing.T) {
	assert.Equal(t, 1, IfThenElse(true, 1, 2))
	assert.Equal(t, 2, IfThenElse(false, 1, 2))
	assert.Equal(t, "a", IfThenElse(true, "a", "b"))
}
