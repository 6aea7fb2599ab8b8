package lexicon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWordSetMatching(t *testing.T) {
	custom := New("test", WordSet, "ass", "bullshit")

	testCases := []struct {
		name     string
		text     string
		expected []string
	}{
		{"NoSubstringFalsePositive", "this is classic", nil},
		{"WholeWord", "that is bullshit", []string{"bullshit"}},
		{"Punctuation", "Bullshit!", []string{"bullshit"}},
		{"Repeated", "bullshit, total bullshit", []string{"bullshit"}},
		{"Empty", "", nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, custom.Match(tc.text))
		})
	}
}

func TestWordSetReturnsTextOrder(t *testing.T) {
	assert.Equal(t, []string{"stupid", "damn"}, Profanity.Match("This stupid damn system"))
}

func TestSubstringMatching(t *testing.T) {
	assert.Equal(t, []string{"date of birth"}, Verification.Match("Please confirm your Date of Birth."))
	assert.Equal(t, []string{"balance", "outstanding"}, Sensitive.Match("Your outstanding balance is $50"))
	assert.Nil(t, Sensitive.Match("How can I help you today?"))

	// substring mode deliberately matches inside words
	assert.Equal(t, []string{"owe"}, Sensitive.Match("I see you are the owner"))
}

func TestShutUpNeverMatchesAsWordSet(t *testing.T) {
	assert.True(t, Profanity.Contains("shut up"))
	assert.Empty(t, Profanity.Match("please shut up"))
}

func TestNewNormalizesTerms(t *testing.T) {
	l := New("custom", Substring, " Balance ", "balance", "", "ACCOUNT number")
	assert.Equal(t, []string{"account number", "balance"}, l.Terms())
	assert.Equal(t, "custom", l.Name())
	assert.Equal(t, Substring, l.Mode())
}

func TestTermsIsACopy(t *testing.T) {
	terms := Profanity.Terms()
	terms[0] = "changed"
	assert.NotEqual(t, "changed", Profanity.Terms()[0])
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"it", "s", "fine"}, Tokenize("It's fine"))
	assert.Equal(t, []string{"you", "re", "a_b", "42"}, Tokenize("You're a_b, 42!"))
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "word_set", WordSet.String())
	assert.Equal(t, "substring", Substring.String())
}
