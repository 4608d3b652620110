// Package chunk splits outbound messages into gateway-safe pieces.
package chunk

import "strings"

// MaxSize is the largest chunk the gateway accepts without risking
// truncation on the recipient side.
const MaxSize = 200

// Split breaks a message into chunks of at most MaxSize characters,
// splitting at the last space before the limit so words stay whole. A single
// word longer than MaxSize is hard-cut. Empty chunks are dropped.
func Split(message string) []string {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}

	runes := []rune(message)
	var chunks []string

	for len(runes) > MaxSize {
		cut := MaxSize
		for i := MaxSize; i > 0; i-- {
			if runes[i-1] == ' ' {
				cut = i - 1
				break
			}
		}

		piece := strings.TrimSpace(string(runes[:cut]))
		if piece != "" {
			chunks = append(chunks, piece)
		}

		rest := strings.TrimSpace(string(runes[cut:]))
		runes = []rune(rest)
	}

	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}

	return chunks
}
