package redisbus

import (
	"fmt"
	"strings"

	"github.com/sentryd/sentryd/internal/transport"
)

// channelName maps a direct pipe name (keepalives, results) to its Redis
// Pub/Sub channel.
func channelName(pipe string) string {
	return "sentryd." + pipe
}

// streamKey maps a direct/roundrobin subscription's funnel to the Redis
// Stream key consumer groups read from.
func streamKey(name string) string {
	return "sentryd.stream." + name
}

// fanoutChannel maps a fanout subscription to its Redis Pub/Sub channel.
func fanoutChannel(name string) string {
	return "sentryd.fanout." + name
}

// resolve decides, for a given pipe and delivery pattern, whether the
// pipe is backed by a Redis Stream (direct/roundrobin — single delivery
// via a consumer group) or a Pub/Sub channel (fanout, and the two
// always-direct agent pipes keepalives/results).
func resolve(pipe string, pattern transport.DeliveryPattern) (useStream bool, key string) {
	switch pattern {
	case transport.Fanout:
		return false, fanoutChannel(pipe)
	case transport.Direct, transport.RoundRobin:
		if pipe == "keepalives" || pipe == "results" {
			return false, channelName(pipe)
		}
		return true, streamKey(pipe)
	default:
		return false, fanoutChannel(pipe)
	}
}

func groupName(funnel string) string {
	if funnel == "" {
		return "sentryd"
	}
	return fmt.Sprintf("sentryd.%s", strings.ReplaceAll(funnel, " ", "_"))
}
