package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coursedeck/authgate/internal/config"
)

func TestEnvVars_GetPort(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv("PORT", "")
		require.Equal(t, ":8080", config.EnvVars{}.GetPort())
	})

	t.Run("bare port gains the colon", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		require.Equal(t, ":9090", config.EnvVars{}.GetPort())
	})

	t.Run("pre-prefixed port left alone", func(t *testing.T) {
		t.Setenv("PORT", ":9090")
		require.Equal(t, ":9090", config.EnvVars{}.GetPort())
	})
}
