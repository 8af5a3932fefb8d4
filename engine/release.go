package engine

import (
	"github.com/vsariola/rumpu/dsp"
)

type (
	// playerVoice is one sounding voice and the track that triggered it,
	// which decides the bus it renders into.
	playerVoice struct {
		voice *dsp.Voice
		track int
	}

	// voiceQueue holds the sounding voices as a min-heap on their release
	// deadline, so retiring every voice whose teardown frame has passed
	// is a matter of popping the top. There are no teardown timers
	// anywhere; the queue is polled against the sample clock once per
	// render window, which keeps the voice lifetime fully deterministic
	// for the tests.
	voiceQueue []playerVoice
)

func (q voiceQueue) Len() int { return len(q) }

func (q voiceQueue) Less(i, j int) bool {
	return q[i].voice.ReleaseAt() < q[j].voice.ReleaseAt()
}

func (q voiceQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *voiceQueue) Push(x any) { *q = append(*q, x.(playerVoice)) }

func (q *voiceQueue) Pop() any {
	old := *q
	n := len(old)
	v := old[n-1]
	old[n-1] = playerVoice{}
	*q = old[:n-1]
	return v
}
