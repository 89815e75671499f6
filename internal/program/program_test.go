package program

import (
	"Go2Sawzall/internal/model"
	"context"
	"net"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	records []model.Record
}

func (r *recorder) Emit(_ context.Context, rec model.Record) error {
	r.records = append(r.records, rec)
	return nil
}

func (r *recorder) strings() []string {
	var out []string
	for _, rec := range r.records {
		out = append(out, rec.Key.String()+"="+string(rec.Value.Data))
	}
	return out
}

func udpFrame(t *testing.T, src string, payload []byte) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       net.HardwareAddr{0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.ParseIP(src).To4(),
		DstIP:    net.IPv4(10, 0, 0, 2).To4(),
	}
	udp := &layers.UDP{SrcPort: 5353, DstPort: 53}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)))
	return buf.Bytes()
}

func TestWordCountEmits(t *testing.T) {
	rec := &recorder{}
	prog := WordCount("wc", "len", "first")
	require.NoError(t, prog.Run(context.Background(), []byte("a bb"), false, rec))

	assert.Equal(t, []string{
		`wc["a"]=1`, `len[""]=1`, `first[""]=a`,
		`wc["bb"]=1`, `len[""]=2`, `first[""]=bb`,
	}, rec.strings())
}

func TestWordCountOptionalTargets(t *testing.T) {
	rec := &recorder{}
	require.NoError(t, WordCount("wc", "", "").Run(context.Background(), []byte("  x  y "), false, rec))
	assert.Equal(t, []string{`wc["x"]=1`, `wc["y"]=1`}, rec.strings())
}

func TestPacketBytes(t *testing.T) {
	frame := udpFrame(t, "192.168.1.7", []byte("hello"))
	rec := &recorder{}
	require.NoError(t, PacketBytes("bytes").Run(context.Background(), frame, false, rec))

	require.Len(t, rec.records, 1)
	assert.Equal(t, "bytes", rec.records[0].Key.Target)
	assert.Equal(t, "192.168.1.7", string(rec.records[0].Key.Group))
	assert.Equal(t, len(frame), mustAtoi(t, rec.records[0].Value.Data))
}

func TestPacketBytesUndecodable(t *testing.T) {
	garbage := []byte{0x01, 0x02, 0x03}

	rec := &recorder{}
	require.NoError(t, PacketBytes("bytes").Run(context.Background(), garbage, true, rec))
	assert.Empty(t, rec.records)

	err := PacketBytes("bytes").Run(context.Background(), garbage, false, rec)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUndecodable))
}

func mustAtoi(t *testing.T, b []byte) int {
	t.Helper()
	n := 0
	for _, c := range b {
		require.True(t, c >= '0' && c <= '9', "not a number: %q", b)
		n = n*10 + int(c-'0')
	}
	return n
}
