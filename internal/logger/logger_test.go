package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for _, env := range []string{"production", "development", "local"} {
		t.Run(env, func(t *testing.T) {
			log, err := New(env, "api")
			require.NoError(t, err)
			assert.NotNil(t, log)
			assert.Equal(t, env == "production", !log.Core().Enabled(-1))
		})
	}
}
