package wake_word

import "strings"

// normalize keeps only lower case letters, digits and spaces so punctuation
// in a transcript does not break the match.
func normalize(text string) string {
	text = strings.ToLower(strings.ReplaceAll(text, "_", " "))

	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == ' ' {
			return r
		}

		return -1
	}, text)
}

// Score rates how well a transcript matches the phrase. It is 1 when every
// phrase word appears in order in the transcript. A partial match scores half
// the share of the phrase's letters it covers, so it always stays below 0.5
// and "jarvis" alone cannot trigger "hey jarvis" at the default threshold.
func Score(transcript, phrase string) float32 {
	want := strings.Fields(normalize(phrase))
	got := strings.Fields(normalize(transcript))

	total := 0
	for _, w := range want {
		total += len(w)
	}

	if total == 0 {
		return 0
	}

	matched := matchedLetters(want, got)
	if matched == total {
		return 1
	}

	return float32(matched) / float32(total) / 2
}

// matchedLetters is the largest letter count of phrase words that appear in
// the same order in the transcript.
func matchedLetters(want, got []string) int {
	prev := make([]int, len(got)+1)
	cur := make([]int, len(got)+1)

	for _, w := range want {
		for j, g := range got {
			best := max(prev[j+1], cur[j])
			if w == g {
				best = max(best, prev[j]+len(w))
			}

			cur[j+1] = best
		}

		prev, cur = cur, prev
	}

	return prev[len(got)]
}
