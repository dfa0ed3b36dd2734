package devicenet

import (
	"fmt"

	"github.com/juju/errors"
)

type AckPolicy uint8

const (
	AckInvalid AckPolicy = iota
	// Acknowledge every frame, protocol liveness comes first.
	AckAlways
	// No ack for sentinel heartbeat and frames that failed to decode.
	AckSuppressOnSentinelOrMalformed
)

func ParseAckPolicy(s string) (AckPolicy, error) {
	switch s {
	case "", "always":
		return AckAlways, nil
	case "suppress":
		return AckSuppressOnSentinelOrMalformed, nil
	}
	return AckInvalid, errors.NotValidf("ack_policy=%q", s)
}

func (p AckPolicy) String() string {
	switch p {
	case AckAlways:
		return "always"
	case AckSuppressOnSentinelOrMalformed:
		return "suppress"
	}
	return fmt.Sprintf("AckPolicy(%d)", uint8(p))
}

func (p AckPolicy) shouldAck(sentinel bool, decodeErr error) bool {
	if p == AckSuppressOnSentinelOrMalformed {
		return !sentinel && decodeErr == nil
	}
	return true
}
