package commands

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunMigrations_InvalidConnectionString(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_CONNECTION_STRING", "invalid-connection-string")

	err := RunMigrations()
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to create migrate instance")
}

func TestRunOutboxStats_InvalidFormat(t *testing.T) {
	t.Setenv("DB_DRIVER", "unsupported")

	err := RunOutboxStats(t.Context(), "yaml")
	require.Error(t, err)
}
