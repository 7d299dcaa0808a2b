package language

import (
	"strings"
	"testing"
)

func TestWordCount(t *testing.T) {
	if got := WordCount("  hey   how are\tyou "); got != 4 {
		t.Fatalf("expected 4 words, got %d", got)
	}
	if got := WordCount(""); got != 0 {
		t.Fatalf("expected 0 words, got %d", got)
	}
}

func TestForeignLetterRatio(t *testing.T) {
	if got := ForeignLetterRatio("hey what are you up to tonight"); got != 0 {
		t.Fatalf("expected 0 for plain english, got %f", got)
	}
	if got := ForeignLetterRatio("你好你好"); got != 1 {
		t.Fatalf("expected 1 for chinese, got %f", got)
	}
	if got := ForeignLetterRatio("lol 😂 123!!"); got != 0 {
		t.Fatalf("emoji, digits and punctuation must be neutral, got %f", got)
	}
	if got := ForeignLetterRatio("   "); got != 0 {
		t.Fatalf("expected 0 for blank text, got %f", got)
	}
}

func TestBigramDensity(t *testing.T) {
	english := "i think the weather is nice there and we should go out tonight"
	if got := BigramDensity(english); got <= 0.05 {
		t.Fatalf("expected english to be dense in bigrams, got %f", got)
	}
	noise := "xqzv kjwq pfft zzzz qqqq"
	if got := BigramDensity(noise); got > 0.05 {
		t.Fatalf("expected gibberish to be sparse, got %f", got)
	}
	if got := BigramDensity("THE THE"); got != BigramDensity("the the") {
		t.Fatal("bigram density should be case-insensitive")
	}
}

func TestCheck(t *testing.T) {
	ok, failed := Check("hey i was thinking we could get boba later", 0.05, 0.05)
	if !ok || failed != "" {
		t.Fatalf("expected plausible english, failed=%q", failed)
	}

	ok, failed = Check("chào anh, em là người việt nam đó", 0.05, 0.05)
	if ok || failed != "alphabet" {
		t.Fatalf("expected alphabet failure, got ok=%v failed=%q", ok, failed)
	}

	ok, failed = Check("xkcd zzz qwp vvv bbb kkk", 0.05, 0.05)
	if ok || failed != "bigram" {
		t.Fatalf("expected bigram failure, got ok=%v failed=%q", ok, failed)
	}
}

func TestCountEmoji(t *testing.T) {
	if got := CountEmoji("hi 😂😂 ❤️ 👨‍👩‍👧"); got != 4 {
		t.Fatalf("expected 4 emoji, got %d", got)
	}
	if got := CountEmoji("no emoji here: 123 #"); got != 0 {
		t.Fatalf("expected 0 emoji, got %d", got)
	}
	if got := CountEmoji(strings.Repeat("🥺", 25)); got != 25 {
		t.Fatalf("expected 25 emoji, got %d", got)
	}
}

func TestCapEmoji(t *testing.T) {
	got := CapEmoji("omg 😂😂😂 stop 🥺", 2)
	if got != "omg 😂😂 stop " {
		t.Fatalf("unexpected capped text %q", got)
	}
	if got := CapEmoji("plain text", 2); got != "plain text" {
		t.Fatalf("text without emoji must be unchanged, got %q", got)
	}
}
