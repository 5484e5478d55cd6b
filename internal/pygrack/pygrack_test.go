package pygrack

import (
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/alecthomas/assert/v2"
)

// parsePackets splits a pkt-line stream into its payloads (without the
// 4-byte length header), matching the literal scenarios in the spec,
// which describe expectations in terms of "parsed sideband packets".
func parsePackets(raw string) []string {
	var out []string
	for len(raw) > 0 {
		if len(raw) < 4 {
			break
		}
		if raw[:4] == pktFlush {
			raw = raw[4:]
			continue
		}
		n, err := strconv.ParseInt(raw[:4], 16, 32)
		if err != nil || int(n) > len(raw) || n < 4 {
			break
		}
		out = append(out, raw[4:n])
		raw = raw[n:]
	}
	return out
}

func TestEmptyPackIsCanonical32Bytes(t *testing.T) {
	assert.Equal(t, 32, len(emptyPack))
	assert.Equal(t, byte('P'), emptyPack[0])
}

func TestInfoRefsRejectsUnknownService(t *testing.T) {
	e := &Engine{RepoName: "repo", ContentPath: "/tmp/repo", GitPath: "git"}
	req := httptest.NewRequest("GET", "/repo/info/refs?service=git-upload-packs", nil)
	w := httptest.NewRecorder()

	e.serveInfoRefs(w, req)

	assert.Equal(t, 403, w.Code)
	assert.Equal(t, "", w.Body.String())
}

func TestFailedPrePullWithSideBand64k(t *testing.T) {
	e := &Engine{}
	caps := map[string]bool{"multi_ack": true, "side-band-64k": true, "ofs-delta": true}

	response := e.buildFailedPrePullResponse(caps, "foo")
	var raw string
	for _, p := range response {
		raw += p
	}

	packets := parsePackets(raw)
	assert.Equal(t, []string{
		"NAK\n",
		"\x02foo",
		"\x02Pre pull hook failed: aborting\n",
		"\x01" + emptyPack,
	}, packets)
}

func TestFailedPrePullWithoutSideBand(t *testing.T) {
	e := &Engine{}
	caps := map[string]bool{"multi_ack": true, "ofs-delta": true}

	response := e.buildFailedPrePullResponse(caps, "foo")
	assert.Equal(t, []string{emptyPack}, response)
}

func TestSidebandInjection(t *testing.T) {
	caps := map[string]bool{"side-band-64k": true}
	response := []string{"0008NAK\n0009subp\n0000"}

	injected := injectMessages(response, caps, "foo", "bar")

	var raw string
	for _, p := range injected {
		raw += p
	}
	packets := parsePackets(raw)
	assert.Equal(t, []string{
		"NAK\n",
		"\x02foo",
		"subp\n",
		"\x02bar",
	}, packets)
}

func TestParseWantCapabilities(t *testing.T) {
	line := "0054want 74730d410fcb6603ace96f1dc55ea6196122532d multi_ack side-band-64k ofs-delta\n"
	caps := parseWantCapabilities(line)
	assert.True(t, caps["side-band-64k"])
	assert.True(t, caps["multi_ack"])
	assert.True(t, caps["ofs-delta"])
	assert.False(t, caps["side-band"])
}
