package testutil

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestLogger(t *testing.T) *zerolog.Logger {
	logger := zerolog.New(zerolog.NewTestWriter(t)).With().Timestamp().Logger()
	return &logger
}
