package lyrics

import "testing"

func TestEmptyInputYieldsEmptyBody(t *testing.T) {
	b := Parse("")
	if b.Synchronized {
		t.Fatal("empty input should not be synchronized")
	}
	if len(b.Lines) != 0 {
		t.Fatalf("expected no lines, got %v", b.Lines)
	}
}

func TestBOMIsStripped(t *testing.T) {
	b := Parse("\ufeff[ar:Artist]\nhello")
	if b.DisplayArtist != "Artist" {
		t.Fatalf("expected BOM-prefixed header tag to parse, got %q", b.DisplayArtist)
	}
}

func TestHeaderTags(t *testing.T) {
	b := Parse("[ar:The Artist]\n[ti:The Title]\n[la:eng]\n[offset:500]\nline one")
	if b.DisplayArtist != "The Artist" || b.DisplayTitle != "The Title" || b.Language != "eng" {
		t.Fatalf("header tags not applied: %+v", b)
	}
	if b.Offset != 500 {
		t.Fatalf("expected offset 500, got %d", b.Offset)
	}
	if b.Synchronized {
		t.Fatal("plain text body should not be synchronized")
	}
	if len(b.Lines) != 1 || b.Lines[0].Text != "line one" {
		t.Fatalf("unexpected lines: %v", b.Lines)
	}
}

func TestCommentAndLeadingBlankLinesSkipped(t *testing.T) {
	b := Parse("\n\n# a comment\n\nhello\nworld")
	if len(b.Lines) != 2 || b.Lines[0].Text != "hello" || b.Lines[1].Text != "world" {
		t.Fatalf("unexpected lines: %v", b.Lines)
	}
}

func TestSynchronizedLinesDiscardPriorUnsynchronized(t *testing.T) {
	b := Parse("unsynced one\nunsynced two\n[00:01.00]synced line")
	if !b.Synchronized {
		t.Fatal("expected synchronized once a timestamp is seen")
	}
	if len(b.Lines) != 1 {
		t.Fatalf("prior unsynchronized lines should be discarded, got %v", b.Lines)
	}
	if b.Lines[0].TimestampMs != 1000 || b.Lines[0].Text != "synced line" {
		t.Fatalf("unexpected synced line: %+v", b.Lines[0])
	}
}

func TestLongFormTimestamp(t *testing.T) {
	b := Parse("[01:02:03.50]line")
	if len(b.Lines) != 1 {
		t.Fatalf("expected one line, got %v", b.Lines)
	}
	want := int64(1*3_600_000 + 2*60_000 + 3*1000 + 500)
	if b.Lines[0].TimestampMs != want {
		t.Fatalf("got %d want %d", b.Lines[0].TimestampMs, want)
	}
}

func TestUntimestampedLineAfterTimestampedIsAppended(t *testing.T) {
	b := Parse("[00:01.00]first\ncontinuation")
	if len(b.Lines) != 1 {
		t.Fatalf("expected exactly one synced line entry, got %v", b.Lines)
	}
	if b.Lines[0].Text != "first\ncontinuation" {
		t.Fatalf("expected appended continuation, got %q", b.Lines[0].Text)
	}
}

func TestTrailingBlankLinesTrimmedInSyncedSection(t *testing.T) {
	b := Parse("[00:01.00]first\n\n\n")
	if len(b.Lines) != 1 || b.Lines[0].Text != "first" {
		t.Fatalf("expected trailing blank lines trimmed, got %v", b.Lines)
	}
}

func TestTrailingBlankLinesTrimmedInUnsyncedSection(t *testing.T) {
	b := Parse("hello\n\n\n")
	if len(b.Lines) != 1 || b.Lines[0].Text != "hello" {
		t.Fatalf("expected trailing blanks trimmed, got %v", b.Lines)
	}
}
