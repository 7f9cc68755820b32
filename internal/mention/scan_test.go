package mention

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanUserAndChannel(t *testing.T) {
	m := Scan("hello @Max Mustermann and #general")
	assert.Equal(t, []string{"Max Mustermann"}, m.Users)
	assert.Equal(t, []string{"general"}, m.Channels)
	assert.Empty(t, m.Emails)
}

func TestScanRecipientsLine(t *testing.T) {
	m := Scan("@Anna-Lena Meyer, #dev-team max@example.com @Erika Musterfrau #dev-team")
	assert.Equal(t, []string{"Anna-Lena Meyer", "Erika Musterfrau"}, m.Users)
	assert.Equal(t, []string{"dev-team"}, m.Channels)
	assert.Equal(t, []string{"max@example.com"}, m.Emails)
}

func TestScanEmailIsNotUserMention(t *testing.T) {
	m := Scan("write to max@example.com please")
	assert.Empty(t, m.Users)
	assert.Equal(t, []string{"max@example.com"}, m.Emails)
}

func TestScanStopsAtNextMention(t *testing.T) {
	m := Scan("@Max @Erika Musterfrau")
	assert.Equal(t, []string{"Max", "Erika Musterfrau"}, m.Users)
}

func TestScanKnownNamesWin(t *testing.T) {
	m := Scan("ping @anna von der Heide, thanks", "Anna", "Anna von der Heide")
	assert.Equal(t, []string{"Anna von der Heide"}, m.Users)
}

func TestScanTrailingPunctuation(t *testing.T) {
	m := Scan("Danke @Jörg Müller! Und #allgemein.")
	assert.Equal(t, []string{"Jörg Müller"}, m.Users)
	assert.Equal(t, []string{"allgemein"}, m.Channels)
}

func TestScanInsideBracketsAndQuotes(t *testing.T) {
	m := Scan(`(@Max) and "@Erika Musterfrau" or [#dev], „@Jörg“ (max@example.com)`)
	assert.Equal(t, []string{"Max", "Erika Musterfrau", "Jörg"}, m.Users)
	assert.Equal(t, []string{"dev"}, m.Channels)
	assert.Equal(t, []string{"max@example.com"}, m.Emails)
}

func TestScanNothing(t *testing.T) {
	m := Scan("no mentions here, just #  and @ ")
	assert.True(t, m.Empty())
}
