package byteforth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func allTokens(line string) []string {
	t := NewTokenizer(line)
	var toks []string
	for {
		tok, ok := t.Next()
		if !ok {
			return toks
		}
		toks = append(toks, tok)
	}
}

func TestTokenizerSplitsAndUpcases(t *testing.T) {
	assert.Equal(t, []string{"5", "3", "+", "."}, allTokens("5 3 + ."))
	assert.Equal(t, []string{"DUP", "SWAP"}, allTokens("  dup\tswap  "))
}

func TestTokenizerEmptyLine(t *testing.T) {
	assert.Nil(t, allTokens(""))
	assert.Nil(t, allTokens("   \t  "))
}

func TestTokenizerNameTruncation(t *testing.T) {
	long := "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	toks := allTokens(long)
	assert.Len(t, toks, 1)
	assert.Len(t, toks[0], NameMax)
	assert.Equal(t, long[:NameMax], toks[0])
}

func TestTokenizerBackslashComment(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "+"}, allTokens("1 2 + \\ rest is a comment 3 4 +"))
	// a backslash not preceded by whitespace (or at line start) is just part
	// of a token, not a comment marker.
	assert.Equal(t, []string{"A\\B"}, allTokens("A\\B"))
	assert.Nil(t, allTokens("\\ whole line is a comment"))
}

func TestTokenizerRestAndAdvance(t *testing.T) {
	tok := NewTokenizer(`SAVE myfile.fs`)
	first, ok := tok.Next()
	assert.True(t, ok)
	assert.Equal(t, "SAVE", first)

	tok.SkipSpace()
	assert.Equal(t, "myfile.fs", tok.Rest())
	tok.Advance(len("myfile.fs"))
	assert.True(t, tok.AtEnd())
}

func TestTokenizerParenTokenIsSeparate(t *testing.T) {
	assert.Equal(t, []string{"(", "A", "COMMENT", ")", "DUP"}, allTokens("( a comment ) dup"))
}
