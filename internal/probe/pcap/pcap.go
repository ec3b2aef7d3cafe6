// Package pcap implements the packet-capture header detector of
// spec.md §4.6: decode the classic libpcap file header and classify
// its link-layer type. Grounded on
// original_source/classified/probe/pcap/__init__.py.
package pcap

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/tehmaze/classified/internal/meta"
	"github.com/tehmaze/classified/internal/probe"
)

func init() {
	probe.Register("pcap", New)
}

const defaultFormat = "{filename_relative}[{line:d}]: pcap v{version} ({linktype})"
const magic = 0xa1b2c3d4

// header mirrors the source's struct format "IHHiIII": magic(u32),
// version_major(u16), version_minor(u16), thiszone(i32), sigfigs(u32),
// snaplen(u32), network(u32) — 24 bytes, little-endian on-disk for a
// capture written on this host.
type header struct {
	Magic        uint32
	VersionMajor uint16
	VersionMinor uint16
	ThisZone     int32
	SigFigs      uint32
	SnapLen      uint32
	Network      uint32
}

const headerSize = 24

var linkType = map[uint32]string{
	0: "NULL", 1: "Ethernet", 3: "AX25", 6: "IEEE802.5", 7: "ARCNet BSD",
	8: "SLIP", 9: "PPP", 10: "FDDI", 50: "PPP HDLC", 51: "PPP ETHER",
	100: "ATM RFC1483", 101: "RAW", 104: "C_HDLC", 105: "IEEE802.11",
	107: "FRELAY", 108: "LOOP", 113: "LINUX SLL", 114: "LTALK",
	117: "PFLOG", 119: "IEEE802.11 PRISM", 122: "IP over FC",
	123: "SUNATM", 127: "IEEE802.11 RADIOTAP", 129: "ARCNET Linux",
	138: "Apple IP over IEEE1394", 139: "MTP2 with PHDR", 140: "MTP2",
	141: "MTP3", 142: "SCCP", 143: "DOCSIS", 144: "Linux IRDA",
	163: "IEEE802.11 AVS", 165: "BACNET MS TP", 166: "PPP PPPD",
	169: "GPRS LLC", 177: "Linux LAPD", 187: "Bluetooth HCI H4",
	189: "USB Linux", 192: "PPI", 195: "IEEE802.15-4", 196: "SITA",
	197: "ERF", 201: "Bluetooth HCI H4 with PHDR", 202: "AX25 KISS",
	203: "LAPD", 204: "PPP with DIR", 205: "C_HDLC with DIR",
	206: "FRELAY with DIR", 209: "IPMB Linux",
	215: "IEEE802.15-4 NONASK PHY", 220: "USB Linux mmapped", 224: "FC 2",
	225: "FC 2 with frame delims", 226: "IPNET", 227: "CAN SOCKETCAN",
	228: "IPv4", 229: "IPv6", 230: "IEEE802.15-4 NOFCS", 231: "DBUS",
	235: "DVB CI", 236: "MUX27010", 237: "STANAG 5066-D PDU",
	239: "NFLOG", 240: "Netanalyzer", 241: "Netanalyzer Transparent",
	242: "IPOIB", 243: "MPEG-2 TS", 244: "NG40", 245: "NFC LLCP",
	247: "Infiniband", 248: "SCTP",
}

// PCAP decodes the pcap file header and reports a match.
type PCAP struct {
	base probe.Base
}

func New(opts probe.Options) probe.Probe {
	return &PCAP{base: probe.NewBase("pcap", defaultFormat, opts)}
}

func (p *PCAP) Name() string            { return p.base.Name() }
func (p *PCAP) Targets() []string       { return nil }
func (p *PCAP) CanProbe(i *meta.Item) bool { return p.base.CanProbe(i) }

func (p *PCAP) Run(item *meta.Item) error {
	rc, err := item.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(rc, buf); err != nil {
		return nil // shorter than a header: not a pcap file
	}

	var order binary.ByteOrder = binary.LittleEndian
	m := order.Uint32(buf[0:4])
	if m != magic {
		order = binary.BigEndian
		m = order.Uint32(buf[0:4])
		if m != magic {
			return nil
		}
	}

	var h header
	h.Magic = m
	h.VersionMajor = order.Uint16(buf[4:6])
	h.VersionMinor = order.Uint16(buf[6:8])
	h.ThisZone = int32(order.Uint32(buf[8:12]))
	h.SigFigs = order.Uint32(buf[12:16])
	h.SnapLen = order.Uint32(buf[16:20])
	h.Network = order.Uint32(buf[20:24])

	link, ok := linkType[h.Network]
	if !ok {
		link = "Unknown"
	}

	return p.base.Record(item, map[string]string{
		"line":          "1",
		"version":       fmt.Sprintf("%d.%d", h.VersionMajor, h.VersionMinor),
		"version_major": fmt.Sprintf("%d", h.VersionMajor),
		"version_minor": fmt.Sprintf("%d", h.VersionMinor),
		"linktype":      link,
	})
}
