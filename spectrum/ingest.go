package spectrum

import (
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/audiopilot/audiopilot/codec"
	"github.com/audiopilot/audiopilot/osc"
)

var (
	// ErrSchema is returned for meter messages that do not carry exactly one
	// blob argument.
	ErrSchema = errors.New("spectrum: meter message must carry exactly one blob")
	// ErrShortFrame is returned when a blob decodes to no frequency values.
	ErrShortFrame = errors.New("spectrum: meter blob holds no frequency values")
)

// Ingest turns meter messages into store updates. It is an osc.Method and is
// registered for the RTA subscription alias.
type Ingest struct {
	store      *Store
	feed       *Feed
	gainOffset float64
	logger     *zap.Logger

	frames   atomic.Uint64
	rejected atomic.Uint64
}

var _ osc.Method = (*Ingest)(nil)

// NewIngest writes into store and, when feed is non-nil, publishes a snapshot
// after every accepted frame.
func NewIngest(store *Store, feed *Feed, gainOffset float64, logger *zap.Logger) *Ingest {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingest{
		store:      store,
		feed:       feed,
		gainOffset: gainOffset,
		logger:     logger.With(zap.String("component", "ingest")),
	}
}

// HandleMessage checks the message shape and feeds its blob to OnMeterBlob.
// Rejected messages are logged and leave the store untouched.
func (in *Ingest) HandleMessage(msg *osc.Message) {
	var err error
	if len(msg.Arguments) != 1 {
		err = ErrSchema
	} else if blob, ok := msg.Arguments[0].([]byte); !ok {
		err = ErrSchema
	} else {
		err = in.OnMeterBlob(blob)
	}
	if err != nil {
		in.rejected.Add(1)
		in.logger.Debug("meter message rejected", zap.String("address", msg.Address), zap.Error(err))
	}
}

// OnMeterBlob decodes one RTA blob and appends it to the store as a single
// frame.
func (in *Ingest) OnMeterBlob(blob []byte) error {
	values, err := codec.DecodeMeterBlob(blob, in.gainOffset)
	if err != nil {
		return err
	}
	if len(values) <= LeadingValues {
		return fmt.Errorf("%w: %d values", ErrShortFrame, len(values))
	}

	in.store.AppendFrame(values[LeadingValues:])
	in.frames.Add(1)
	if in.feed != nil {
		in.feed.Publish(in.store.Snapshot())
	}
	return nil
}

// Stats returns the number of accepted and rejected meter messages.
func (in *Ingest) Stats() (frames, rejected uint64) {
	return in.frames.Load(), in.rejected.Load()
}
