// Package codec serializes emission records to the protobuf wire format used
// between the map, combine and reduce stages.
package codec

import (
	"Go2Sawzall/internal/model"

	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// ErrCorruptStream is returned for any malformed record or frame. It is never
// recoverable: the task reading the stream must abort.
var ErrCorruptStream = errors.New("corrupt emission stream")

const (
	fieldTarget   protowire.Number = 1
	fieldGroup    protowire.Number = 2
	fieldData     protowire.Number = 3
	fieldMetadata protowire.Number = 4
)

// AppendRecord appends the wire encoding of r to b.
func AppendRecord(b []byte, r model.Record) []byte {
	b = protowire.AppendTag(b, fieldTarget, protowire.BytesType)
	b = protowire.AppendString(b, r.Key.Target)
	if len(r.Key.Group) > 0 {
		b = protowire.AppendTag(b, fieldGroup, protowire.BytesType)
		b = protowire.AppendBytes(b, r.Key.Group)
	}
	if len(r.Value.Data) > 0 {
		b = protowire.AppendTag(b, fieldData, protowire.BytesType)
		b = protowire.AppendBytes(b, r.Value.Data)
	}
	if len(r.Value.Metadata) > 0 {
		b = protowire.AppendTag(b, fieldMetadata, protowire.BytesType)
		b = protowire.AppendBytes(b, r.Value.Metadata)
	}
	return b
}

// MarshalRecord returns the wire encoding of r.
func MarshalRecord(r model.Record) []byte {
	return AppendRecord(nil, r)
}

// UnmarshalRecord decodes a record. The returned slices do not alias b.
func UnmarshalRecord(b []byte) (model.Record, error) {
	var r model.Record
	sawTarget := false
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return model.Record{}, errors.Mark(errors.Wrap(protowire.ParseError(n), "bad tag"), ErrCorruptStream)
		}
		b = b[n:]

		if typ != protowire.BytesType || num < fieldTarget || num > fieldMetadata {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return model.Record{}, errors.Mark(errors.Wrapf(protowire.ParseError(n), "bad field %d", num), ErrCorruptStream)
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return model.Record{}, errors.Mark(errors.Wrapf(protowire.ParseError(n), "bad field %d", num), ErrCorruptStream)
		}
		b = b[n:]

		switch num {
		case fieldTarget:
			r.Key.Target = string(v)
			sawTarget = true
		case fieldGroup:
			r.Key.Group = clone(v)
		case fieldData:
			r.Value.Data = clone(v)
		case fieldMetadata:
			r.Value.Metadata = clone(v)
		}
	}
	if !sawTarget || r.Key.Target == "" {
		return model.Record{}, errors.Mark(errors.New("record has no target"), ErrCorruptStream)
	}
	return r, nil
}

// PartitionKey returns the bytes a partitioner hashes for key. A zero byte
// separates the target from the group so that ("ab", "c") and ("a", "bc") differ.
func PartitionKey(key model.EmissionKey) []byte {
	b := make([]byte, 0, len(key.Target)+1+len(key.Group))
	b = append(b, key.Target...)
	b = append(b, 0)
	return append(b, key.Group...)
}

func clone(v []byte) []byte {
	if len(v) == 0 {
		return nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out
}
