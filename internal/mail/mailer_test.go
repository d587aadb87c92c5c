package mail

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLogMailer_Send(t *testing.T) {
	m := &LogMailer{Log: zerolog.Nop()}

	t.Run("reports success", func(t *testing.T) {
		err := m.Send(context.Background(), "lead@example.com", "subject", "<p>hi</p>")
		assert.NoError(t, err)
	})

	t.Run("honors a cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := m.Send(ctx, "lead@example.com", "subject", "<p>hi</p>")
		assert.ErrorIs(t, err, context.Canceled)
	})
}
