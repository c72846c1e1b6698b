package detect_test

import (
	"strings"
	"testing"

	"muleguard/intel-api/internal/detect"
	"muleguard/intel-api/internal/domain"
)

func ringPaths(rings []domain.Ring) []string {
	out := make([]string, len(rings))
	for i, r := range rings {
		out[i] = strings.Join(r.MemberAccounts, ">")
	}
	return out
}

func containsPath(rings []domain.Ring, path string) bool {
	for _, p := range ringPaths(rings) {
		if p == path {
			return true
		}
	}
	return false
}

func TestDetectShellChains_FourNodeChain(t *testing.T) {
	g := edges([2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"C", "D"})

	f := detect.DetectShellChains(g)
	if len(f.Rings) != 1 {
		t.Fatalf("rings = %v, want exactly A>B>C>D", ringPaths(f.Rings))
	}
	ring := f.Rings[0]
	if ring.RingID != "SHELL_001" {
		t.Errorf("ring id = %s, want SHELL_001", ring.RingID)
	}
	if ring.PatternType != domain.PatternShellChain {
		t.Errorf("pattern = %s, want shell_chain", ring.PatternType)
	}
	if got := strings.Join(ring.MemberAccounts, ">"); got != "A>B>C>D" {
		t.Errorf("members = %s, want A>B>C>D", got)
	}
	if len(f.Accounts) != 4 {
		t.Errorf("got %d accounts, want all 4 path members", len(f.Accounts))
	}
}

func TestDetectShellChains_BusyIntermediaryPruned(t *testing.T) {
	// C gains out-degree 3: no longer a low-traffic pass-through, so the
	// chain through it must not be flagged.
	g := edges(
		[2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"C", "D"},
		[2]string{"C", "X"}, [2]string{"C", "Y"},
	)

	f := detect.DetectShellChains(g)
	if containsPath(f.Rings, "A>B>C>D") {
		t.Fatalf("A>B>C>D flagged despite C having out-degree 3: %v", ringPaths(f.Rings))
	}
}

func TestDetectShellChains_EndpointDegreeExempt(t *testing.T) {
	// The source fans out to three chains; its high out-degree must not
	// block paths where it is an endpoint.
	g := edges(
		[2]string{"S", "B"}, [2]string{"B", "C"}, [2]string{"C", "D"},
		[2]string{"S", "X"}, [2]string{"S", "Y"},
	)

	f := detect.DetectShellChains(g)
	if !containsPath(f.Rings, "S>B>C>D") {
		t.Fatalf("S>B>C>D missing; endpoints are exempt from the degree cap: %v", ringPaths(f.Rings))
	}
}

func TestDetectShellChains_ShortPathIgnored(t *testing.T) {
	g := edges([2]string{"A", "B"}, [2]string{"B", "C"})
	f := detect.DetectShellChains(g)
	if len(f.Rings) != 0 {
		t.Fatalf("3-node path flagged: %v", ringPaths(f.Rings))
	}
}

func TestDetectShellChains_LengthCap(t *testing.T) {
	// A 10-node straight chain: sub-paths up to 8 nodes qualify, anything
	// longer must be cut off by the 7-edge bound.
	pairs := make([][2]string, 9)
	names := []string{"N0", "N1", "N2", "N3", "N4", "N5", "N6", "N7", "N8", "N9"}
	for i := 0; i < 9; i++ {
		pairs[i] = [2]string{names[i], names[i+1]}
	}
	g := edges(pairs...)

	f := detect.DetectShellChains(g)
	for _, r := range f.Rings {
		if len(r.MemberAccounts) > 8 {
			t.Fatalf("path with %d nodes exceeds the 7-edge bound: %v", len(r.MemberAccounts), r.MemberAccounts)
		}
	}
	if !containsPath(f.Rings, "N0>N1>N2>N3>N4>N5>N6>N7") {
		t.Errorf("8-node sub-path missing")
	}
	if containsPath(f.Rings, "N0>N1>N2>N3>N4>N5>N6>N7>N8") {
		t.Errorf("9-node path should have been cut off")
	}
}

func TestDetectShellChains_SubPathsEmittedPerPair(t *testing.T) {
	// Every qualifying (source, target) pair yields its own ring: a 5-node
	// chain carries 4-node sub-chains too.
	g := edges(
		[2]string{"A", "B"}, [2]string{"B", "C"},
		[2]string{"C", "D"}, [2]string{"D", "E"},
	)

	f := detect.DetectShellChains(g)
	for _, want := range []string{"A>B>C>D", "A>B>C>D>E", "B>C>D>E"} {
		if !containsPath(f.Rings, want) {
			t.Errorf("missing path %s in %v", want, ringPaths(f.Rings))
		}
	}
	if len(f.Rings) != 3 {
		t.Errorf("rings = %v, want exactly 3", ringPaths(f.Rings))
	}
}
