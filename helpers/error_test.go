package helpers

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldErrors(t *testing.T) {
	t.Parallel()
	e1 := fmt.Errorf("listen tcp://:1")
	assert.NoError(t, FoldErrors(nil))
	assert.NoError(t, FoldErrors([]error{nil, nil}))
	assert.Equal(t, e1, FoldErrors([]error{nil, e1}))
	err := FoldErrors([]error{e1, fmt.Errorf("include loop")})
	assert.EqualError(t, err, "listen tcp://:1\ninclude loop")
}
