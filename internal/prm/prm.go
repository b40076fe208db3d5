package prm

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrKeyNotFound はキーが存在しない場合のエラー
var ErrKeyNotFound = errors.New("key not found")

// KV は書き換えるキーと値の組
type KV struct {
	Key   string
	Value string
}

// Get はパラメータファイルからキーの値を読み取る。複数ある場合は最後の値を返す
func Get(path, key string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read parameter file: %w", err)
	}

	value, ok := lookup(splitLines(string(data)), key)
	if !ok {
		return "", fmt.Errorf("%s in %s: %w", key, path, ErrKeyNotFound)
	}
	return value, nil
}

// Set はパラメータファイルのキーを書き換える
func Set(path string, kvs ...KV) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat parameter file: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read parameter file: %w", err)
	}

	lines := splitLines(string(data))
	for _, kv := range kvs {
		if strings.TrimSpace(kv.Key) == "" {
			return fmt.Errorf("empty parameter key")
		}
		lines = replace(lines, kv.Key, kv.Value)
	}

	out := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(out), info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write parameter file: %w", err)
	}
	return nil
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// parseLine は代入行をキー・値・コメントに分解する
func parseLine(line string) (key, value, comment string, ok bool) {
	body := line
	if i := strings.Index(body, "!"); i >= 0 {
		comment = body[i:]
		body = body[:i]
	}
	eq := strings.Index(body, "=")
	if eq < 0 {
		return "", "", "", false
	}
	key = strings.TrimSpace(body[:eq])
	if key == "" {
		return "", "", "", false
	}
	return key, strings.TrimSpace(body[eq+1:]), comment, true
}

func lookup(lines []string, key string) (string, bool) {
	var (
		value string
		found bool
	)
	for _, line := range lines {
		k, v, _, ok := parseLine(line)
		if ok && strings.EqualFold(k, key) {
			value, found = v, true
		}
	}
	return value, found
}

func replace(lines []string, key, value string) []string {
	found := false
	for i, line := range lines {
		k, _, comment, ok := parseLine(line)
		if !ok || !strings.EqualFold(k, key) {
			continue
		}
		found = true
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		newLine := indent + k + " = " + value
		if comment != "" {
			newLine += " " + comment
		}
		lines[i] = newLine
	}
	if !found {
		lines = append(lines, key+" = "+value)
	}
	return lines
}
