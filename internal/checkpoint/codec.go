package checkpoint

import (
	"errors"
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/mitchelldurbincs/selfplay-rl/internal/valuefn"
)

// ErrCorrupt is returned when stored bytes cannot be decoded
var ErrCorrupt = errors.New("corrupt checkpoint")

// Wire field numbers. The layout is a plain protobuf message:
//
//	message Checkpoint {
//	  string kind = 1;
//	  repeated int64 shape = 2;      // packed
//	  repeated double params = 3;    // packed
//	  google.protobuf.Timestamp saved_at = 4;
//	}
const (
	fieldKind    protowire.Number = 1
	fieldShape   protowire.Number = 2
	fieldParams  protowire.Number = 3
	fieldSavedAt protowire.Number = 4
)

// Checkpoint is a decoded snapshot plus the time it was written
type Checkpoint struct {
	Snapshot valuefn.Snapshot
	SavedAt  time.Time
}

// Encode serializes a checkpoint in protobuf wire format
func Encode(c Checkpoint) ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, fieldKind, protowire.BytesType)
	b = protowire.AppendString(b, string(c.Snapshot.Kind))

	var shape []byte
	for _, d := range c.Snapshot.Shape {
		shape = protowire.AppendVarint(shape, uint64(int64(d)))
	}
	b = protowire.AppendTag(b, fieldShape, protowire.BytesType)
	b = protowire.AppendBytes(b, shape)

	params := make([]byte, 0, 8*len(c.Snapshot.Params))
	for _, p := range c.Snapshot.Params {
		params = protowire.AppendFixed64(params, math.Float64bits(p))
	}
	b = protowire.AppendTag(b, fieldParams, protowire.BytesType)
	b = protowire.AppendBytes(b, params)

	ts, err := proto.Marshal(timestamppb.New(c.SavedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal timestamp: %w", err)
	}
	b = protowire.AppendTag(b, fieldSavedAt, protowire.BytesType)
	b = protowire.AppendBytes(b, ts)

	return b, nil
}

// Decode parses bytes produced by Encode. Unknown fields are skipped.
func Decode(b []byte) (Checkpoint, error) {
	var c Checkpoint
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Checkpoint{}, corrupt(protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldKind && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return Checkpoint{}, corrupt(protowire.ParseError(n))
			}
			c.Snapshot.Kind = valuefn.Kind(v)
			b = b[n:]

		case num == fieldShape && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Checkpoint{}, corrupt(protowire.ParseError(n))
			}
			for len(packed) > 0 {
				v, m := protowire.ConsumeVarint(packed)
				if m < 0 {
					return Checkpoint{}, corrupt(protowire.ParseError(m))
				}
				c.Snapshot.Shape = append(c.Snapshot.Shape, int(int64(v)))
				packed = packed[m:]
			}
			b = b[n:]

		case num == fieldParams && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Checkpoint{}, corrupt(protowire.ParseError(n))
			}
			if len(packed)%8 != 0 {
				return Checkpoint{}, corrupt(fmt.Errorf("params length %d is not a multiple of 8", len(packed)))
			}
			c.Snapshot.Params = make([]float64, 0, len(packed)/8)
			for len(packed) > 0 {
				v, m := protowire.ConsumeFixed64(packed)
				if m < 0 {
					return Checkpoint{}, corrupt(protowire.ParseError(m))
				}
				c.Snapshot.Params = append(c.Snapshot.Params, math.Float64frombits(v))
				packed = packed[m:]
			}
			b = b[n:]

		case num == fieldSavedAt && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Checkpoint{}, corrupt(protowire.ParseError(n))
			}
			var ts timestamppb.Timestamp
			if err := proto.Unmarshal(raw, &ts); err != nil {
				return Checkpoint{}, corrupt(err)
			}
			c.SavedAt = ts.AsTime()
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Checkpoint{}, corrupt(protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if c.Snapshot.Kind == "" {
		return Checkpoint{}, corrupt(errors.New("missing kind"))
	}
	return c, nil
}

func corrupt(err error) error {
	return fmt.Errorf("%w: %v", ErrCorrupt, err)
}
