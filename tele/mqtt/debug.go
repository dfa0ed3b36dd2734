package mqtt

import (
	"fmt"

	"github.com/256dpi/gomqtt/packet"
)

// PacketString prints PUBLISH payload as text when printable, hex otherwise.
func PacketString(p packet.Generic) string {
	if p == nil {
		return "(nil)"
	}
	if pub, ok := p.(*packet.Publish); ok {
		return fmt.Sprintf("<Publish ID=%d Dup=%t %s>", pub.ID, pub.Dup, MessageString(&pub.Message))
	}
	return p.String()
}

func MessageString(m *packet.Message) string {
	if m == nil {
		return "message=nil"
	}
	if isPrintable(m.Payload) {
		return fmt.Sprintf("Topic=%q QOS=%d Retain=%t Payload=%s", m.Topic, m.QOS, m.Retain, m.Payload)
	}
	return fmt.Sprintf("Topic=%q QOS=%d Retain=%t Payload=%x", m.Topic, m.QOS, m.Retain, m.Payload)
}

// JSON payloads are common, binary ones are shown in hex.
func isPrintable(b []byte) bool {
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return len(b) != 0
}
