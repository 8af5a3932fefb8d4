package engine

import (
	"sync"
	"time"

	"github.com/vsariola/rumpu"
)

type (
	// Broker is the centralized message broker between the different parts
	// of the drum machine: the player, the user interface and the MIDI
	// collaborator. It is supposed to be a singleton: all the
	// communication should happen through the one broker, so that tests
	// can observe every message.
	//
	// If a channel is full, we generally drop the message instead of
	// blocking, as the player must never wait on the UI. Use TrySend for
	// that. Close<Foo> channels are used to signal a goroutine to exit and
	// Finished<Foo> channels are closed by the exiting goroutine, so the
	// main goroutine can wait for it to clean up.
	Broker struct {
		ToPlayer chan any     // messages to the player (see message.go)
		ToUI     chan MsgToUI // transport status and alerts to the UI

		CloseUI    chan struct{}
		FinishedUI chan struct{}

		bufferPool sync.Pool
	}

	// MsgToUI is a message sent to the user interface. The transport
	// status is sent on every processed render block, so its fields are
	// unboxed to avoid allocations; rarer messages go boxed in Data.
	MsgToUI struct {
		HasTransport bool
		Playing      bool
		Step         int
		Level        Volume
		Voices       int
		CPULoad      float64

		Data any // one of: Alert, ClipStateMsg, ClipAudioMsg, or nil
	}
)

func NewBroker() *Broker {
	return &Broker{
		ToPlayer:   make(chan any, 1024),
		ToUI:       make(chan MsgToUI, 1024),
		CloseUI:    make(chan struct{}, 1),
		FinishedUI: make(chan struct{}),
		bufferPool: sync.Pool{New: func() any { return &rumpu.AudioBuffer{} }},
	}
}

// GetAudioBuffer returns an audio buffer from the buffer pool. The buffer
// is guaranteed to be empty. After using the buffer, it should be returned
// to the pool with PutAudioBuffer.
func (b *Broker) GetAudioBuffer() *rumpu.AudioBuffer {
	return b.bufferPool.Get().(*rumpu.AudioBuffer)
}

// PutAudioBuffer returns an audio buffer to the buffer pool. If the buffer
// is not empty, its length is reset to 0 before returning it to the pool.
func (b *Broker) PutAudioBuffer(buf *rumpu.AudioBuffer) {
	if len(*buf) > 0 {
		*buf = (*buf)[:0]
	}
	b.bufferPool.Put(buf)
}

// TrySend sends a value to a channel if it is not full, to avoid ever
// blocking the sender.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive receives a value from a channel, giving up after the
// timeout. Only used during clean up, when we cannot wait forever for a
// goroutine that might have crashed.
func TimeoutReceive[T any](c <-chan T, timeout time.Duration) (v T, ok bool) {
	select {
	case v = <-c:
		return v, true
	case <-time.After(timeout):
		return v, false
	}
}
