// Package wire implements the kademlia RPC payload encoding: a
// compact tagged-union binary format built on protobuf's low-level
// wire primitives (google.golang.org/protobuf/encoding/protowire).
// Each message is a variant discriminant (field 1) followed by
// varint or length-delimited fields, matching spec.md §4.2/§6
// without requiring a .proto-generated struct.
package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// IDLen is the width of a node id carried on the wire, in bytes.
const IDLen = 20

// Type discriminates the four RPC message variants.
type Type uint64

const (
	TypePing       Type = 1
	TypePong       Type = 2
	TypeFindNode   Type = 3
	TypeFoundNodes Type = 4
)

func (t Type) String() string {
	switch t {
	case TypePing:
		return "Ping"
	case TypePong:
		return "Pong"
	case TypeFindNode:
		return "FindNode"
	case TypeFoundNodes:
		return "FoundNodes"
	default:
		return fmt.Sprintf("Type(%d)", uint64(t))
	}
}

// NodeAddr is a (id, address) pair as carried inside a FoundNodes
// message.
type NodeAddr struct {
	ID   [IDLen]byte
	Addr string
}

// Message is the tagged union of every RPC payload defined in
// spec.md §6. Only the fields relevant to Type are meaningful:
//
//	Ping, Pong:  SenderID, Port
//	FindNode:    TargetID
//	FoundNodes:  Nodes
type Message struct {
	Type     Type
	SenderID [IDLen]byte
	Port     uint16
	TargetID [IDLen]byte
	Nodes    []NodeAddr
}

const (
	fieldType     = 1
	fieldID       = 2 // SenderID for Ping/Pong, TargetID for FindNode
	fieldPort     = 3
	fieldNode     = 4 // repeated, FoundNodes
	nodeFieldID   = 1
	nodeFieldAddr = 2
)

// Marshal encodes m into its wire payload.
func Marshal(m Message) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Type))

	switch m.Type {
	case TypePing, TypePong:
		b = protowire.AppendTag(b, fieldID, protowire.BytesType)
		b = protowire.AppendBytes(b, m.SenderID[:])
		b = protowire.AppendTag(b, fieldPort, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.Port))
	case TypeFindNode:
		b = protowire.AppendTag(b, fieldID, protowire.BytesType)
		b = protowire.AppendBytes(b, m.TargetID[:])
	case TypeFoundNodes:
		for _, n := range m.Nodes {
			b = protowire.AppendTag(b, fieldNode, protowire.BytesType)
			b = protowire.AppendBytes(b, marshalNodeAddr(n))
		}
	}
	return b
}

func marshalNodeAddr(n NodeAddr) []byte {
	var b []byte
	b = protowire.AppendTag(b, nodeFieldID, protowire.BytesType)
	b = protowire.AppendBytes(b, n.ID[:])
	b = protowire.AppendTag(b, nodeFieldAddr, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte(n.Addr))
	return b
}

// Unmarshal decodes a wire payload into a Message. Unknown fields are
// skipped rather than rejected, which is the usual protobuf-wire
// forward-compatibility convention.
func Unmarshal(b []byte) (Message, error) {
	var m Message
	haveType := false

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Message{}, fmt.Errorf("consume tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldType && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Message{}, fmt.Errorf("consume type: %w", protowire.ParseError(n))
			}
			m.Type = Type(v)
			haveType = true
			b = b[n:]

		case num == fieldID && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Message{}, fmt.Errorf("consume id: %w", protowire.ParseError(n))
			}
			if len(v) != IDLen {
				return Message{}, fmt.Errorf("id field has length %d, want %d", len(v), IDLen)
			}
			var id [IDLen]byte
			copy(id[:], v)
			m.SenderID = id
			m.TargetID = id
			b = b[n:]

		case num == fieldPort && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Message{}, fmt.Errorf("consume port: %w", protowire.ParseError(n))
			}
			m.Port = uint16(v)
			b = b[n:]

		case num == fieldNode && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Message{}, fmt.Errorf("consume node entry: %w", protowire.ParseError(n))
			}
			na, err := unmarshalNodeAddr(v)
			if err != nil {
				return Message{}, err
			}
			m.Nodes = append(m.Nodes, na)
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Message{}, fmt.Errorf("consume unknown field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if !haveType {
		return Message{}, fmt.Errorf("message missing type field")
	}
	return m, nil
}

func unmarshalNodeAddr(b []byte) (NodeAddr, error) {
	var n NodeAddr
	for len(b) > 0 {
		num, typ, k := protowire.ConsumeTag(b)
		if k < 0 {
			return NodeAddr{}, fmt.Errorf("consume node tag: %w", protowire.ParseError(k))
		}
		b = b[k:]

		switch {
		case num == nodeFieldID && typ == protowire.BytesType:
			v, k := protowire.ConsumeBytes(b)
			if k < 0 {
				return NodeAddr{}, fmt.Errorf("consume node id: %w", protowire.ParseError(k))
			}
			if len(v) != IDLen {
				return NodeAddr{}, fmt.Errorf("node id field has length %d, want %d", len(v), IDLen)
			}
			copy(n.ID[:], v)
			b = b[k:]

		case num == nodeFieldAddr && typ == protowire.BytesType:
			v, k := protowire.ConsumeBytes(b)
			if k < 0 {
				return NodeAddr{}, fmt.Errorf("consume node addr: %w", protowire.ParseError(k))
			}
			n.Addr = string(v)
			b = b[k:]

		default:
			k := protowire.ConsumeFieldValue(num, typ, b)
			if k < 0 {
				return NodeAddr{}, fmt.Errorf("consume unknown node field %d: %w", num, protowire.ParseError(k))
			}
			b = b[k:]
		}
	}
	return n, nil
}
