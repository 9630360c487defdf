package classifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutput(t *testing.T) {
	t.Run("valid prediction line", func(t *testing.T) {
		p, err := ParseOutput("Prediction: screaming (52.30%)\n")
		require.NoError(t, err)
		assert.Equal(t, "screaming", p.Label)
		assert.InDelta(t, 0.523, p.Confidence, 0.0001)
	})

	t.Run("multi-word label", func(t *testing.T) {
		p, err := ParseOutput("Prediction: glass breaking (87%)")
		require.NoError(t, err)
		assert.Equal(t, "glass breaking", p.Label)
		assert.InDelta(t, 0.87, p.Confidence, 0.0001)
	})

	t.Run("uses last non-empty line", func(t *testing.T) {
		out := "loading model...\nwarming up\nPrediction: crying (12.5%)\n\n"
		p, err := ParseOutput(out)
		require.NoError(t, err)
		assert.Equal(t, "crying", p.Label)
		assert.InDelta(t, 0.125, p.Confidence, 0.0001)
	})

	t.Run("empty output", func(t *testing.T) {
		_, err := ParseOutput("")
		assert.Error(t, err)
	})

	t.Run("malformed line", func(t *testing.T) {
		_, err := ParseOutput("Prediction screaming 52%")
		assert.Error(t, err)
	})

	t.Run("confidence over 100 rejected", func(t *testing.T) {
		_, err := ParseOutput("Prediction: screaming (152.30%)")
		assert.Error(t, err)
	})

	t.Run("trailing text after match rejected", func(t *testing.T) {
		_, err := ParseOutput("Prediction: screaming (52.30%) extra")
		assert.Error(t, err)
	})
}

func TestClassifyBusyWhenAllSlotsTaken(t *testing.T) {
	c := New(Config{
		Python:        "python3",
		Script:        "classify_audio.py",
		Timeout:       time.Second,
		MaxConcurrent: 2,
	})

	// Occupy every slot so the caller can only wait
	c.sem <- struct{}{}
	c.sem <- struct{}{}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Classify(ctx, "sample.wav")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBusy))
}

func TestClassifyAcquiresFreedSlot(t *testing.T) {
	c := New(Config{
		Python:        "no-such-interpreter",
		Script:        "classify_audio.py",
		Timeout:       time.Second,
		MaxConcurrent: 1,
	})

	c.sem <- struct{}{}

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, err := c.Classify(ctx, "sample.wav")
		done <- err
	}()

	// Freeing the slot lets the waiter proceed past the semaphore; it then
	// fails on the unresolvable interpreter rather than on ErrBusy
	<-c.sem
	err := <-done
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrBusy))
}
