package heuristic

import (
	"strings"
	"testing"

	"webcorpus-curator/internal/config"
)

func repeatSentence(sentence string, n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = sentence
	}
	return strings.Join(lines, "\n")
}

func TestFilter_KeepsGoodDocument(t *testing.T) {
	cfg := config.Defaults()
	doc := repeatSentence("This is a perfectly reasonable sentence with enough words in it.", 10)

	res := Filter(cfg, doc)
	if !res.Kept {
		t.Fatalf("expected document to be kept, reason=%q", res.Reason)
	}
	if res.Filtered == "" {
		t.Error("expected non-empty filtered text")
	}
}

func TestFilter_RejectsPageBlacklist(t *testing.T) {
	cfg := config.Defaults()
	doc := "lorem ipsum dolor sit amet, consectetur adipiscing elit."

	res := Filter(cfg, doc)
	if res.Kept {
		t.Error("expected document to be rejected for page blacklist")
	}
	if res.Reason != "blacklisted" {
		t.Errorf("got reason %q, want blacklisted", res.Reason)
	}
}

func TestFilter_RejectsShortLines(t *testing.T) {
	cfg := config.Defaults()
	doc := "too short.\nalso short.\nstill short."

	res := Filter(cfg, doc)
	if res.Kept {
		t.Error("expected rejection: all lines below min word count")
	}
}

func TestFilter_RejectsInvalidTerminator(t *testing.T) {
	cfg := config.Defaults()
	doc := "this line has five words but no terminator\nanother line also with five words"

	res := Filter(cfg, doc)
	if res.Kept {
		t.Error("expected rejection: no line ends in a valid terminator")
	}
}

func TestFilter_RejectsLineBlacklist(t *testing.T) {
	cfg := config.Defaults()
	doc := repeatSentence("This page uses cookies to improve your browsing experience today.", 1)

	res := Filter(cfg, doc)
	if res.Kept {
		t.Error("expected rejection: line-level blacklist phrase present")
	}
}

func TestFilter_RejectsShortLineBlacklistUnderWordCap(t *testing.T) {
	cfg := config.Defaults()
	doc := "Site design powered by a nice company."

	res := Filter(cfg, doc)
	if res.Kept {
		t.Error("expected rejection: short-line blacklist phrase under word cap")
	}
}

func TestFilter_GopherRejectsTooFewTokens(t *testing.T) {
	cfg := config.Defaults()
	doc := "Short doc here."

	res := Filter(cfg, doc)
	if res.Kept {
		t.Error("expected gopher rejection for too few tokens")
	}
}

func TestFilter_GopherRejectsExcessiveEllipsis(t *testing.T) {
	cfg := config.Defaults()
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, "this line has enough words to pass the c4 line filter and ends here...")
	}
	doc := strings.Join(lines, "\n")

	res := Filter(cfg, doc)
	if res.Kept {
		t.Error("expected gopher rejection: too many ellipsis-terminated lines")
	}
}

func TestFilter_EmptyDocument(t *testing.T) {
	cfg := config.Defaults()
	res := Filter(cfg, "")
	if res.Kept {
		t.Error("expected empty document to be rejected")
	}
}
