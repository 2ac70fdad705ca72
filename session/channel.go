package session

import (
	"go.uber.org/zap"

	"github.com/audiopilot/audiopilot/codec"
	"github.com/audiopilot/audiopilot/osc"
)

// ChannelState is what the session knows about the selected channel.
type ChannelState struct {
	Number int

	FaderDB   float64
	HaveFader bool
	TrimDB    float64
	HaveTrim  bool
	Muted     bool
}

// Channel returns the state of the selected channel. Number is zero until
// SelectChannel succeeds.
func (s *Session) Channel() ChannelState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// handleParameter receives every message without a dedicated handler. In
// remote mode the mixer pushes all parameter changes; only those of the
// selected channel are kept.
func (s *Session) handleParameter(msg *osc.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := s.state.Number
	if ch == 0 || len(msg.Arguments) != 1 {
		return
	}

	switch msg.Address {
	case codec.FaderAddress(ch):
		f, ok := msg.Arguments[0].(float32)
		if !ok {
			return
		}
		db, err := codec.FaderToDB(f)
		if err != nil {
			s.logger.Debug("ignoring fader value", zap.Error(err))
			return
		}
		s.state.FaderDB, s.state.HaveFader = db, true
	case codec.TrimAddress(ch):
		f, ok := msg.Arguments[0].(float32)
		if !ok {
			return
		}
		db, err := codec.TrimToDB(f)
		if err != nil {
			s.logger.Debug("ignoring trim value", zap.Error(err))
			return
		}
		s.state.TrimDB, s.state.HaveTrim = db, true
	case codec.MuteAddress(ch):
		if on, ok := msg.Arguments[0].(int32); ok {
			s.state.Muted = on == 0
		}
	}
}
