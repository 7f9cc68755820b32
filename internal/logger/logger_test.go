package logger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelDebug, ParseLevel(" TRACE "))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel(""))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestSetLevelGatesDebug(t *testing.T) {
	t.Cleanup(func() { SetLevel("info") })

	SetLevel("info")
	assert.False(t, enabled(LevelDebug))
	assert.True(t, enabled(LevelInfo))

	SetLevel("debug")
	assert.True(t, enabled(LevelDebug))

	SetLevel("error")
	assert.False(t, enabled(LevelInfo))
	assert.True(t, enabled(LevelError))
}

func TestPrefixTag(t *testing.T) {
	t.Cleanup(func() { SetPrefix("") })
	SetPrefix("")
	assert.Equal(t, "", tag())
	SetPrefix("api")
	assert.Equal(t, "[api] ", tag())
}

func TestDeferLogDurationDoesNotBlock(t *testing.T) {
	SetLevel("debug")
	t.Cleanup(func() { SetLevel("info") })
	done := make(chan struct{})
	go func() {
		for i := 0; i < asyncBufferSize*2; i++ {
			DeferLogDuration("bench", time.Now())()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("logging blocked the caller")
	}
}
