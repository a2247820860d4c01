package minhash

import "testing"

func TestNgramSet_SlidingWindow(t *testing.T) {
	set := NgramSet("the quick brown fox jumps", 3)
	want := []string{"the quick brown", "quick brown fox", "brown fox jumps"}
	if len(set) != len(want) {
		t.Fatalf("got %d n-grams, want %d", len(set), len(want))
	}
	for _, w := range want {
		if _, ok := set[w]; !ok {
			t.Errorf("missing expected n-gram %q", w)
		}
	}
}

func TestNgramSet_FewerWordsThanN_Empty(t *testing.T) {
	set := NgramSet("too short", 5)
	if len(set) != 0 {
		t.Errorf("expected empty set, got %d entries", len(set))
	}
}

func TestSignature_EmptySetIsAllNoSignature(t *testing.T) {
	sig := Signature(map[string]struct{}{}, 10)
	for i, v := range sig {
		if v != NoSignature {
			t.Errorf("slot %d: got %x, want NoSignature", i, v)
		}
	}
}

func TestSignature_Deterministic(t *testing.T) {
	set := NgramSet("a small set of words here to hash", 3)
	a := Signature(set, 20)
	b := Signature(set, 20)
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("slot %d differs across calls: %x != %x", i, a[i], b[i])
		}
	}
}

func TestSignature_PermutationVarianceAcrossSlots(t *testing.T) {
	set := NgramSet("a reasonably long piece of text with several distinct words in it", 3)
	sig := Signature(set, 10)
	allSame := true
	for i := 1; i < len(sig); i++ {
		if sig[i] != sig[0] {
			allSame = false
			break
		}
	}
	if allSame {
		t.Error("expected signature slots to vary across hash permutations for non-trivial input")
	}
}

func TestSignature_IdenticalSetsProduceIdenticalSignatures(t *testing.T) {
	setA := NgramSet("identical content across two documents for testing", 4)
	setB := NgramSet("identical content across two documents for testing", 4)
	sigA := Signature(setA, 16)
	sigB := Signature(setB, 16)
	for i := range sigA {
		if sigA[i] != sigB[i] {
			t.Errorf("slot %d: signatures of identical n-gram sets differ", i)
		}
	}
}

func TestJaccard_IdenticalSets(t *testing.T) {
	set := NgramSet("some shared content here for testing purposes", 3)
	if got := Jaccard(set, set); got != 1.0 {
		t.Errorf("got %f, want 1.0", got)
	}
}

func TestJaccard_DisjointSets(t *testing.T) {
	a := NgramSet("alpha beta gamma delta epsilon", 3)
	b := NgramSet("zeta eta theta iota kappa", 3)
	if got := Jaccard(a, b); got != 0 {
		t.Errorf("got %f, want 0", got)
	}
}

func TestJaccard_EmptySetsAreDissimilar(t *testing.T) {
	if got := Jaccard(map[string]struct{}{}, map[string]struct{}{}); got != 0 {
		t.Errorf("got %f, want 0 for two empty sets", got)
	}
}

func TestJaccard_PartialOverlap(t *testing.T) {
	a := map[string]struct{}{"x": {}, "y": {}, "z": {}}
	b := map[string]struct{}{"y": {}, "z": {}, "w": {}}
	got := Jaccard(a, b)
	want := 2.0 / 4.0
	if got != want {
		t.Errorf("got %f, want %f", got, want)
	}
}
