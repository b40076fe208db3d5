package solver

import (
	"bytes"
	"sync"
)

// Tail は最後のn行だけを保持するio.Writer
type Tail struct {
	mu      sync.Mutex
	n       int
	lines   []string
	start   int
	partial []byte
}

// NewTail は最大n行を保持するTailを作成する
func NewTail(n int) *Tail {
	if n < 0 {
		n = 0
	}
	return &Tail{n: n, lines: make([]string, 0, n)}
}

// Write はio.Writerを実装する
func (t *Tail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	data := p
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			t.partial = append(t.partial, data...)
			break
		}
		t.partial = append(t.partial, data[:i]...)
		t.push(string(t.partial))
		t.partial = t.partial[:0]
		data = data[i+1:]
	}
	return len(p), nil
}

func (t *Tail) push(line string) {
	if t.n == 0 {
		return
	}
	if len(t.lines) < t.n {
		t.lines = append(t.lines, line)
		return
	}
	t.lines[t.start] = line
	t.start = (t.start + 1) % t.n
}

// Lines は保持している行を古い順に返す。改行で終わっていない行も含む
func (t *Tail) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]string, 0, len(t.lines)+1)
	out = append(out, t.lines[t.start:]...)
	out = append(out, t.lines[:t.start]...)
	if len(t.partial) > 0 && t.n > 0 {
		out = append(out, string(t.partial))
		if len(out) > t.n {
			out = out[len(out)-t.n:]
		}
	}
	return out
}
