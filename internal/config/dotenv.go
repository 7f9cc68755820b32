package config

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// loadEnv ищет .env в cwd и до четырёх родительских каталогах. В production не читается.
func loadEnv() {
	if os.Getenv("APP_ENV") == "production" {
		return
	}
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for i := 0; i < 5; i++ {
		f, err := os.Open(filepath.Join(dir, ".env"))
		if err == nil {
			applyEnv(f)
			f.Close()
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

// applyEnv выставляет KEY=VALUE из r, не перетирая уже заданные переменные.
func applyEnv(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, val, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		val = unquote(strings.TrimSpace(val))
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}
