package pygrack

import "fmt"

// pktLine frames s as a Git pkt-line: a 4-byte hex length prefix (including
// itself) followed by the payload, exactly as git-http-backend expects on
// both info/refs advertisement and smart-HTTP responses. This is the same
// framing gitlab-workhorse's githandler.go uses; resist the temptation to
// add a trailing newline here — the length prefix must count only what is
// actually written.
func pktLine(s string) string {
	return fmt.Sprintf("%04x%s", len(s)+4, s)
}

// pktFlush is the zero-length flush-pkt that terminates a pkt-line stream.
const pktFlush = "0000"
