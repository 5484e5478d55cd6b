package pygrack

import "strings"

// sideBandCaps are the two capability names a Git client may advertise
// that mean "please multiplex progress/error text onto the pack stream
// instead of sending it out-of-band" — see
// Documentation/technical/pack-protocol.txt ("Packfile Data").
var sideBandCaps = map[string]bool{"side-band": true, "side-band-64k": true}

func intersectsSideBand(capabilities map[string]bool) bool {
	for c := range sideBandCaps {
		if capabilities[c] {
			return true
		}
	}
	return false
}

// chunkSizeFor returns the maximum payload size per sideband pkt-line for
// the negotiated capability set, matching the pack-protocol limits: 65515
// bytes for side-band-64k (65520 minus the 4-byte length prefix and
// 1-byte channel marker), 995 for the plain side-band (1000 minus the
// same 5 bytes).
func chunkSizeFor(capabilities map[string]bool) (int, bool) {
	switch {
	case capabilities["side-band-64k"]:
		return 65515, true
	case capabilities["side-band"]:
		return 995, true
	default:
		return 0, false
	}
}

// writeSideband frames data onto sideband channel ch (1=pack data,
// 2=progress/error text, 3=fatal error) as a sequence of pkt-lines sized
// to the negotiated capability, and appends them to out. It is the Go
// analogue of dulwich's Protocol.write_sideband, reimplemented here (not
// imported) because it must support the plain 995-byte side-band in
// addition to side-band-64k, which dulwich itself does not expose.
func writeSideband(out *[]string, ch byte, data string, capabilities map[string]bool) {
	if data == "" {
		return
	}
	size, ok := chunkSizeFor(capabilities)
	if !ok {
		return
	}
	for i := 0; i < len(data); i += size {
		end := i + size
		if end > len(data) {
			end = len(data)
		}
		*out = append(*out, pktLine(string(ch)+data[i:end]))
	}
}

// buildMessages renders data as a sequence of sideband-2 pkt-lines, or
// nil if the client did not negotiate sideband support. Equivalent to
// pygrack.py's _get_messages.
func buildMessages(data string, capabilities map[string]bool) []string {
	if data == "" {
		return nil
	}
	var out []string
	writeSideband(&out, 2, data, capabilities)
	return out
}

// injectMessages splices pre/post-pull hook output into the sideband-2
// channel of an upload-pack response, reimplementing
// _inject_messages_to_response. The response is only rewritten when:
//   - the client negotiated sideband support,
//   - the response has the expected "0008NAK\n ... 0000" shape produced by
//     git-upload-pack in stateless-rpc mode, and
//   - there is actually something to inject.
func injectMessages(response []string, capabilities map[string]bool, startMessages, endMessages string) []string {
	if !intersectsSideBand(capabilities) {
		return response
	}
	if len(response) == 0 {
		return response
	}
	if !strings.HasPrefix(response[0], "0008NAK\n") || !strings.HasSuffix(response[len(response)-1], pktFlush) {
		return response
	}
	if startMessages == "" && endMessages == "" {
		return response
	}

	out := []string{"0008NAK\n"}
	out = append(out, buildMessages(startMessages, capabilities)...)

	if len(response) == 1 {
		body := response[0]
		out = append(out, body[8:len(body)-4])
	} else {
		first := response[0]
		out = append(out, first[8:])
		out = append(out, response[1:len(response)-1]...)
		last := response[len(response)-1]
		out = append(out, last[:len(last)-4])
	}

	out = append(out, buildMessages(endMessages, capabilities)...)
	out = append(out, pktFlush)
	return out
}
