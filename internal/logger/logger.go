// Package logger пишет логи с префиксом сервиса через буферизованный канал,
// чтобы запись в stderr не тормозила обработку запросов и рассылку событий.
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	asyncBufferSize = 8192
	// slowThreshold — порог для DeferLogDuration на уровне info.
	slowThreshold = 100 * time.Millisecond
)

type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

var (
	prefix  atomic.Value // string
	level   atomic.Int32
	ch      chan string
	once    sync.Once
	dropped atomic.Int64
)

func init() {
	level.Store(int32(ParseLevel(os.Getenv("LOG_LEVEL"))))
}

// ParseLevel понимает debug/trace, info, error; всё остальное — info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return LevelDebug
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetLevel переключает уровень (обычно из config.LogLevel после загрузки конфига).
func SetLevel(s string) {
	level.Store(int32(ParseLevel(s)))
}

func enabled(l Level) bool {
	return Level(level.Load()) <= l
}

func startWorker() {
	ch = make(chan string, asyncBufferSize)
	go func() {
		for msg := range ch {
			log.Print(msg)
		}
	}()
}

func enqueue(msg string) {
	once.Do(startWorker)
	select {
	case ch <- msg:
	default:
		// канал забит: сообщение теряем, считаем потери
		dropped.Add(1)
	}
}

// Dropped — сколько сообщений потеряно из-за переполнения буфера.
func Dropped() int64 {
	return dropped.Load()
}

// Flush ждёт, пока очередь опустеет (не дольше секунды). Вызывать перед выходом из main.
func Flush() {
	once.Do(startWorker)
	deadline := time.Now().Add(time.Second)
	for len(ch) > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
}

// SetPrefix задаёт префикс сервиса ("api", "push").
func SetPrefix(p string) {
	prefix.Store(p)
}

func tag() string {
	p, _ := prefix.Load().(string)
	if p == "" {
		return ""
	}
	return "[" + p + "] "
}

func Debugf(format string, v ...any) {
	if !enabled(LevelDebug) {
		return
	}
	enqueue(tag() + "DEBUG: " + fmt.Sprintf(format, v...))
}

func Info(v ...any) {
	if !enabled(LevelInfo) {
		return
	}
	enqueue(tag() + fmt.Sprint(v...))
}

func Infof(format string, v ...any) {
	if !enabled(LevelInfo) {
		return
	}
	enqueue(tag() + fmt.Sprintf(format, v...))
}

// Error и Errorf пишутся на любом уровне.
func Error(v ...any) {
	enqueue(tag() + "ERROR: " + fmt.Sprint(v...))
}

func Errorf(format string, v ...any) {
	enqueue(tag() + "ERROR: " + fmt.Sprintf(format, v...))
}

// LogDuration пишет fn и длительность в мс. На debug — каждый вызов, иначе только медленные.
func LogDuration(fn string, start time.Time) {
	elapsed := time.Since(start)
	if enabled(LevelDebug) || (enabled(LevelInfo) && elapsed >= slowThreshold) {
		enqueue(fmt.Sprintf("%sfn=%s duration_ms=%d", tag(), fn, elapsed.Milliseconds()))
	}
}

// DeferLogDuration: defer logger.DeferLogDuration("messageRepo.Create", time.Now())()
func DeferLogDuration(fn string, start time.Time) func() {
	return func() { LogDuration(fn, start) }
}
