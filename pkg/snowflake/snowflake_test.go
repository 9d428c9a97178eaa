package snowflake

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode_GenerateID(t *testing.T) {
	node, err := NewNode(3)
	require.NoError(t, err)

	a, b := node.GenerateID(), node.GenerateID()
	assert.NotEqual(t, a, b)

	parsed, err := ParseID(strconv.FormatInt(a, 10))
	require.NoError(t, err)
	assert.Equal(t, a, parsed)
}

func TestNewNode_RejectsOutOfRange(t *testing.T) {
	_, err := NewNode(5000)
	assert.Error(t, err)
}
