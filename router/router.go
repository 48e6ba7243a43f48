// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package router carries settlement messages between chains. The Router
// interface is the surface the sender programs against; LocalRouter is an
// in-process implementation that journals messages durably and delivers them
// synchronously, standing in for an external messaging lane during tests and
// local simulation.
package router

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/liquidstake/token"
)

var (
	ErrUnknownDestination = errors.New("unknown destination chain")
	ErrInvalidReceiver    = errors.New("invalid receiver")
	ErrNoHandler          = errors.New("no handler registered")
	ErrUnknownMessage     = errors.New("unknown message")
	ErrAmountTooLarge     = errors.New("amount exceeds 256 bits")
)

// Message is an outbound settlement message. A zero FeeToken pays the
// routing fee in native; a zero Token attaches no funds.
type Message struct {
	Receiver []byte // destination account, 20 bytes
	Data     []byte // opaque payload for the receiver
	Token    common.Address
	Amount   *big.Int
	FeeToken common.Address
	GasLimit uint64
}

// Delivery is a journaled message annotated with its routing envelope.
type Delivery struct {
	ID             common.Hash
	SourceSelector uint64
	DestSelector   uint64
	Sender         common.Address
	Message        Message
}

// Router sends messages toward other chains.
type Router interface {
	// GetFee quotes the routing fee for a message, denominated in the
	// message's fee token.
	GetFee(destSelector uint64, msg Message) (*big.Int, error)
	// Send escrows the attached funds and fee and enqueues the message.
	Send(state token.StateDB, caller common.Address, destSelector uint64, msg Message) (common.Hash, error)
}

// MessageHandler consumes a delivered message. Attached funds are credited
// to the receiver account before the call.
type MessageHandler interface {
	HandleMessage(state token.StateDB, d Delivery) error
}

const deliveryVersion = uint8(1)

// marshalDelivery encodes a delivery for the journal. Fixed-width fields are
// big-endian; variable fields carry a uint32 length prefix.
func marshalDelivery(d Delivery) ([]byte, error) {
	if d.Message.Amount != nil && d.Message.Amount.BitLen() > 256 {
		return nil, fmt.Errorf("%w: %s", ErrAmountTooLarge, d.Message.Amount)
	}

	var buf bytes.Buffer
	buf.WriteByte(deliveryVersion)
	buf.Write(d.ID[:])
	binary.Write(&buf, binary.BigEndian, d.SourceSelector)
	binary.Write(&buf, binary.BigEndian, d.DestSelector)
	buf.Write(d.Sender[:])

	binary.Write(&buf, binary.BigEndian, uint32(len(d.Message.Receiver)))
	buf.Write(d.Message.Receiver)
	binary.Write(&buf, binary.BigEndian, uint32(len(d.Message.Data)))
	buf.Write(d.Message.Data)

	buf.Write(d.Message.Token[:])
	amount := make([]byte, 32)
	if d.Message.Amount != nil {
		d.Message.Amount.FillBytes(amount)
	}
	buf.Write(amount)
	buf.Write(d.Message.FeeToken[:])
	binary.Write(&buf, binary.BigEndian, d.Message.GasLimit)

	return buf.Bytes(), nil
}

func unmarshalDelivery(data []byte) (Delivery, error) {
	var d Delivery
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil {
		return d, fmt.Errorf("truncated delivery: %w", err)
	}
	if version != deliveryVersion {
		return d, fmt.Errorf("unsupported delivery version %d", version)
	}

	if _, err := readFull(r, d.ID[:]); err != nil {
		return d, err
	}
	if err := binary.Read(r, binary.BigEndian, &d.SourceSelector); err != nil {
		return d, fmt.Errorf("truncated delivery: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &d.DestSelector); err != nil {
		return d, fmt.Errorf("truncated delivery: %w", err)
	}
	if _, err := readFull(r, d.Sender[:]); err != nil {
		return d, err
	}

	if d.Message.Receiver, err = readBytes(r); err != nil {
		return d, err
	}
	if d.Message.Data, err = readBytes(r); err != nil {
		return d, err
	}

	if _, err := readFull(r, d.Message.Token[:]); err != nil {
		return d, err
	}
	amount := make([]byte, 32)
	if _, err := readFull(r, amount); err != nil {
		return d, err
	}
	d.Message.Amount = new(big.Int).SetBytes(amount)
	if _, err := readFull(r, d.Message.FeeToken[:]); err != nil {
		return d, err
	}
	if err := binary.Read(r, binary.BigEndian, &d.Message.GasLimit); err != nil {
		return d, fmt.Errorf("truncated delivery: %w", err)
	}

	return d, nil
}

func readFull(r *bytes.Reader, dst []byte) (int, error) {
	n, err := r.Read(dst)
	if err != nil || n != len(dst) {
		return n, fmt.Errorf("truncated delivery: want %d bytes, got %d", len(dst), n)
	}
	return n, nil
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, fmt.Errorf("truncated delivery: %w", err)
	}
	if int(length) > r.Len() {
		return nil, fmt.Errorf("truncated delivery: want %d bytes, got %d", length, r.Len())
	}
	out := make([]byte, length)
	if length > 0 {
		if _, err := readFull(r, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}
