package config

import (
	"fmt"
	"testing"
)

// FuzzParsePortAddress exercises the port-address round-trip through the
// config-file string representation.
func FuzzParsePortAddress(f *testing.F) {
	f.Add("0.0.0")
	f.Add("0.0.1")
	f.Add("127.15.15")
	f.Add("0")
	f.Add("32767")
	f.Add("")
	f.Add("invalid")
	f.Add("a.b.c")
	f.Add("-1")
	f.Add("128.0.0")
	f.Add("0.16.0")
	f.Add("0.0.16")

	f.Fuzz(func(t *testing.T, input string) {
		n, sn, u, err := ParsePortAddress(input)
		if err != nil {
			return
		}
		if n > 127 || sn > 15 || u > 15 {
			t.Fatalf("out-of-range components from %q: %d.%d.%d", input, n, sn, u)
		}
		s := fmt.Sprintf("%d.%d.%d", n, sn, u)
		n2, sn2, u2, err := ParsePortAddress(s)
		if err != nil {
			t.Fatalf("roundtrip failed: parsed %q -> %d.%d.%d -> %q, re-parse: %v", input, n, sn, u, s, err)
		}
		if n != n2 || sn != sn2 || u != u2 {
			t.Fatalf("roundtrip mismatch: %d.%d.%d != %d.%d.%d", n, sn, u, n2, sn2, u2)
		}
	})
}

// FuzzParseDoesNotPanic guards Parse against malformed TOML input panicking
// instead of returning an error.
func FuzzParseDoesNotPanic(f *testing.F) {
	f.Add(`[node]
short-name = "x"`)
	f.Add("")
	f.Add("not valid toml {{{")
	f.Add(`[sync]
mode = "art-sync"`)
	f.Add(`[discovery]
reply-on-change-policy = "bogus"`)

	f.Fuzz(func(t *testing.T, input string) {
		_, _ = Parse(input)
	})
}
