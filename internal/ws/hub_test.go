package ws

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rakshaapp/raksha-api/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendToLocalUserDelivers(t *testing.T) {
	h := NewHub(nil)
	client := NewClient(h, nil, uuid.New(), "Asha")
	h.addClient(client)

	h.sendToLocalUser(client.UserID, &model.WSEvent{Type: model.WSEventAlertRaised})

	select {
	case data := <-client.send:
		assert.Contains(t, string(data), model.WSEventAlertRaised)
	default:
		t.Fatal("expected an event on the client's send channel")
	}
}

func TestStalledClientEvictedThenUnregistered(t *testing.T) {
	h := NewHub(nil)
	client := NewClient(h, nil, uuid.New(), "Asha")
	h.addClient(client)

	// Saturate the send buffer so the next event cannot be delivered
	for i := 0; i < cap(client.send); i++ {
		client.send <- []byte("backlog")
	}

	// The stalled client gets dropped and its channel closed
	h.sendToLocalUser(client.UserID, &model.WSEvent{Type: model.WSEventAlertRaised})
	assert.False(t, h.IsUserOnline(client.UserID))

	// The read pump's unregister arrives afterwards; it must be a no-op,
	// not a second close of the same channel
	require.NotPanics(t, func() {
		h.removeClient(client)
	})

	// Channel was closed exactly once: drain the backlog, then observe the close
	for i := 0; i < cap(client.send); i++ {
		<-client.send
	}
	_, open := <-client.send
	assert.False(t, open)
}

func TestUnregisterUnknownClient(t *testing.T) {
	h := NewHub(nil)
	client := NewClient(h, nil, uuid.New(), "Asha")

	// Never registered; removing must not panic or close anything
	require.NotPanics(t, func() {
		h.removeClient(client)
	})

	select {
	case client.send <- []byte("still open"):
	default:
		t.Fatal("send channel should still be open and buffered")
	}
}

func TestSecondConnectionSurvivesStalledFirst(t *testing.T) {
	h := NewHub(nil)
	userID := uuid.New()
	stalled := NewClient(h, nil, userID, "Asha")
	healthy := NewClient(h, nil, userID, "Asha")
	h.addClient(stalled)
	h.addClient(healthy)

	for i := 0; i < cap(stalled.send); i++ {
		stalled.send <- []byte("backlog")
	}

	h.sendToLocalUser(userID, &model.WSEvent{Type: model.WSEventGuardianToggled})

	// The user stays online through the healthy connection
	assert.True(t, h.IsUserOnline(userID))
	select {
	case data := <-healthy.send:
		assert.Contains(t, string(data), model.WSEventGuardianToggled)
	default:
		t.Fatal("healthy connection should have received the event")
	}
}
