package utils

// SplitText splits a long string into chunks of approximately 'chunkSize'
// characters with 'overlap' characters preserved across boundaries.
// Deterministic for a fixed input and policy: the same text always yields
// the same chunk sequence. Rune-based so multi-byte Hangul never splits
// mid-character.
func SplitText(text string, chunkSize int, overlap int) []string {
	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize // fallback if overlap >= chunkSize
	}

	var chunks []string
	totalLen := len(runes)
	for i := 0; i < totalLen; i += step {
		end := i + chunkSize
		if end > totalLen {
			end = totalLen
		}

		chunks = append(chunks, string(runes[i:end]))

		if end == totalLen {
			break
		}
	}

	return chunks
}
