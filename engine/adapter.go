package engine

import (
	"fmt"
	"strings"

	"github.com/go-stomp/stomp/v3/frame"

	"github.com/c360/stompflow/errors"
)

// Broker naming conventions: subscriptions go to /queue/<route>; replies go
// to the broker's temporary-queue namespace with the token taken verbatim
// from the response.
const (
	queuePrefix     = "/queue/"
	tempQueuePrefix = "/remote-temp-queue/"

	replyToHeader = "reply-to"
)

// toRequest maps an inbound MESSAGE frame to an application request. The
// destination header must have the queue-path shape; the body is carried
// verbatim.
func toRequest(f *frame.Frame) (Request, error) {
	dest := f.Header.Get(frame.Destination)

	route, ok := strings.CutPrefix(dest, queuePrefix)
	if !ok || route == "" {
		return Request{}, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrMalformedDestination, dest),
			"engine", "toRequest", "parse destination")
	}

	return Request{
		Route:   route,
		Body:    f.Body,
		ReplyTo: f.Header.Get(replyToHeader),
	}, nil
}

// replyDestination derives the outbound destination for a response. Empty
// means no reply is expected, silently.
func replyDestination(resp Response) string {
	if resp.ReplyTo == "" {
		return ""
	}
	return tempQueuePrefix + resp.ReplyTo
}

// destinations derives the subscription set from registered routes:
// duplicates collapse, empties are dropped, order follows the input.
func destinations(routes []string) []string {
	seen := make(map[string]struct{}, len(routes))
	dests := make([]string, 0, len(routes))
	for _, route := range routes {
		if route == "" {
			continue
		}
		if _, dup := seen[route]; dup {
			continue
		}
		seen[route] = struct{}{}
		dests = append(dests, queuePrefix+route)
	}
	return dests
}
