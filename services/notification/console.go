package notifsvc

import (
	"sync"

	"github.com/trezcool/shule/core"
)

// LogSink writes every intent to the app logger. Real delivery channels
// (email digests, push) plug in behind the same interface.
type LogSink struct {
	logger core.Logger
}

var _ core.IntentSink = (*LogSink)(nil)

func NewLogSink(logger core.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(intents ...core.Intent) {
	for _, in := range intents {
		s.logger.Info("notification intent: "+in.Type, in.Data)
	}
}

// CaptureSink records intents in memory.
type CaptureSink struct {
	mu      sync.Mutex
	intents []core.Intent
}

var _ core.IntentSink = (*CaptureSink)(nil)

func NewCaptureSink() *CaptureSink { return &CaptureSink{} }

func (s *CaptureSink) Emit(intents ...core.Intent) {
	s.mu.Lock()
	s.intents = append(s.intents, intents...)
	s.mu.Unlock()
}

func (s *CaptureSink) Intents() []core.Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Intent, len(s.intents))
	copy(out, s.intents)
	return out
}

func (s *CaptureSink) Clear() {
	s.mu.Lock()
	s.intents = s.intents[:0]
	s.mu.Unlock()
}
