package strcore

// Tokenizer scans tokens delimited by any byte in separators; a byte in
// quotes opens a quoted section until the matching closing quote, inside
// which escapeChar escapes the next byte.
type Tokenizer struct {
	data       string
	index      int
	separators string
	quotes     string
	skipEmpty  bool
	escapeChar byte

	token      string
	tokenStart int
}

// NewTokenizer initializes a tokenizer over data starting at index.
func NewTokenizer(data string, index int, separators, quotes string, skipEmpty bool) *Tokenizer {
	if index == StringEnd {
		index = len(data)
	}
	return &Tokenizer{
		data:       data,
		index:      index,
		separators: separators,
		quotes:     quotes,
		skipEmpty:  skipEmpty,
		escapeChar: defaultEscapeChar,
	}
}

// GetNextToken returns the next token and its start index, or ok=false
// when the input is exhausted. An input of only separators yields zero
// tokens when skipEmpty is true, and len(separators-run)+1 empty tokens
// when false — the trailing empty field after the last separator is
// still emitted, matching standard split semantics.
func (t *Tokenizer) GetNextToken() (token string, start int, ok bool) {
	for {
		if t.index > len(t.data) {
			return "", 0, false
		}

		start = t.index
		var buf []byte
		for t.index < len(t.data) && !containsByte(t.separators, t.data[t.index]) {
			b := t.data[t.index]
			if containsByte(t.quotes, b) {
				quote := b
				t.index++
				for t.index < len(t.data) && t.data[t.index] != quote {
					if t.data[t.index] == t.escapeChar && t.index+1 < len(t.data) {
						buf = append(buf, t.data[t.index+1])
						t.index += 2
						continue
					}
					buf = append(buf, t.data[t.index])
					t.index++
				}
				if t.index < len(t.data) {
					t.index++ // consume closing quote
				}
				continue
			}
			buf = append(buf, b)
			t.index++
		}

		var moreComing bool
		if t.index < len(t.data) {
			t.index++ // consume separator
			moreComing = true
		} else {
			t.index = len(t.data) + 1 // mark exhausted after this token
			moreComing = false
		}

		token = string(buf)
		t.token = token
		t.tokenStart = start
		if token == "" && t.skipEmpty {
			if !moreComing {
				return "", 0, false
			}
			continue
		}
		return token, start, true
	}
}

// Done releases tokenizer state (a no-op in Go; kept for parity with the
// legacy initTokenizer/doneTokenizer pairing).
func (t *Tokenizer) Done() {}
