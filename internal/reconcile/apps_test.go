package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPossibleApplicationNames(t *testing.T) {
	t.Run("environment suffix", func(t *testing.T) {
		assert.ElementsMatch(t,
			[]string{"foo-production", "app-foo-production", "foo", "app-foo"},
			PossibleApplicationNames("foo-production"))
	})

	t.Run("historical prefix", func(t *testing.T) {
		assert.ElementsMatch(t,
			[]string{"app-foo", "foo"},
			PossibleApplicationNames("app-foo"))
	})

	t.Run("no variants", func(t *testing.T) {
		assert.ElementsMatch(t,
			[]string{"foo", "app-foo"},
			PossibleApplicationNames("foo"))
	})
}
