package program

import (
	"Go2Sawzall/internal/engine"
	"Go2Sawzall/internal/model"
	"context"
	"log"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ErrUndecodable is returned for packets that carry no IPv4 layer.
var ErrUndecodable = errors.New("undecodable packet")

// PacketBytes decodes a raw Ethernet frame and emits (target, srcIP) -> frame
// length. Undecodable packets are logged and skipped in robust mode.
func PacketBytes(target string) engine.Program {
	return engine.ProgramFunc(func(ctx context.Context, input []byte, robust bool, emit model.Emitter) error {
		src, err := sourceIP(input)
		if err != nil {
			if robust {
				log.Printf("Skipping packet: %v", err)
				return nil
			}
			return err
		}
		return emit.Emit(ctx, model.Record{
			Key:   model.NewEmissionKey(target, src),
			Value: model.EmissionValue{Data: []byte(strconv.Itoa(len(input)))},
		})
	})
}

func sourceIP(data []byte) (string, error) {
	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)
	l := packet.Layer(layers.LayerTypeIPv4)
	if l == nil {
		return "", errors.Mark(errors.Newf("not an IPv4 packet (%d bytes)", len(data)), ErrUndecodable)
	}
	return l.(*layers.IPv4).SrcIP.String(), nil
}
