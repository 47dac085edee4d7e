package textsplitters

import (
	"strings"
	"testing"
)

func TestChunkNeverEmitsEmptyChunks(t *testing.T) {
	text := "one two three four five six seven eight nine ten"
	for _, size := range []int{1, 3, 5, 100} {
		for _, c := range Chunk(text, size) {
			if strings.TrimSpace(c) == "" {
				t.Fatalf("size=%d: got empty chunk among %v", size, Chunk(text, size))
			}
		}
	}
}

func TestChunkCoversWholeInputInOrder(t *testing.T) {
	text := "alpha bravo charlie delta echo foxtrot golf hotel"
	chunks := Chunk(text, 15)
	joined := strings.Join(chunks, " ")
	for _, word := range strings.Fields(text) {
		if !strings.Contains(joined, word) {
			t.Fatalf("expected %q to survive chunking, got %v", word, chunks)
		}
	}
}

func TestChunkPrefersParagraphBoundary(t *testing.T) {
	text := "first paragraph here.\n\nsecond paragraph follows with more words to fill the window"
	chunks := Chunk(text, 25)
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %v", chunks)
	}
	if !strings.Contains(chunks[0], "first paragraph here.") {
		t.Fatalf("expected first chunk to end at the paragraph boundary, got %q", chunks[0])
	}
}

func TestChunkPrefersSentenceBoundaryOverMidWord(t *testing.T) {
	text := "Short sentence one. Short sentence two continues on for a while longer than the window."
	chunks := Chunk(text, 22)
	if len(chunks) == 0 {
		t.Fatalf("expected chunks")
	}
	if strings.HasSuffix(strings.TrimSpace(chunks[0]), ".") == false {
		t.Fatalf("expected first chunk to end on a sentence boundary, got %q", chunks[0])
	}
}

func TestChunkEmptyInput(t *testing.T) {
	if got := Chunk("", 10); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestChunkSizeLessThanOneUsesWholeText(t *testing.T) {
	text := "whole text stays together"
	chunks := Chunk(text, 0)
	if len(chunks) != 1 || chunks[0] != text {
		t.Fatalf("expected single chunk with full text, got %v", chunks)
	}
}
