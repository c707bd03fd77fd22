package ser

import "strings"

// SplitWords parses at most n words separated by single spaces from command
// and returns them with the unparsed remainder.
//
// Parsing stops early at an empty word, so a leading space or two consecutive
// spaces end the word list. Callers detect missing words by checking
// len(words) < n.
//
//	SplitWords("REQUEST 1 Chat hello world", 3) // [REQUEST 1 Chat], "hello world"
//	SplitWords("REQUEST  1 Chat", 3)            // [REQUEST], " 1 Chat"
func SplitWords(command string, n int) ([]string, string) {
	words := make([]string, 0, n)
	rest := command

	for len(words) < n {
		end := strings.IndexByte(rest, ' ')
		if end == -1 {
			end = len(rest)
		}
		if end == 0 {
			break
		}

		words = append(words, rest[:end])
		if end == len(rest) {
			rest = ""
			break
		}
		rest = rest[end+1:]
	}

	return words, rest
}
