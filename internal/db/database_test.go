package db

import (
	"testing"

	"zenbridge-backend/internal/config"

	"github.com/stretchr/testify/require"
)

func TestInitDBRequiresDSN(t *testing.T) {
	saved := config.AppConfig
	defer func() { config.AppConfig = saved }()

	config.AppConfig = nil
	require.Error(t, InitDB())

	config.AppConfig = &config.Config{}
	require.Error(t, InitDB())
}
