package blockcraft

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newBufferedLogger(prefix string, debug bool) (*DefaultLogger, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	l := NewDefaultLogger(prefix, debug)
	l.out = log.New(&out, "", 0)
	l.err = log.New(&errOut, "", 0)
	return l, &out, &errOut
}

func TestDefaultLogger_Levels(t *testing.T) {
	l, out, errOut := newBufferedLogger("stream", false)

	l.Debugf("hidden %d", 1)
	assert.Empty(t, out.String())

	l.SetDebug(true)
	l.Debugf("shown %d", 2)
	l.Infof("info")
	l.Warnf("warn")
	l.Errorf("boom: %v", "x")

	assert.Contains(t, out.String(), "[stream] DEBUG: shown 2")
	assert.Contains(t, out.String(), "[stream] INFO: info")
	assert.Contains(t, errOut.String(), "[stream] WARN: warn")
	assert.Contains(t, errOut.String(), "[stream] ERROR: boom: x")
}

func TestDefaultLogger_WithPrefix(t *testing.T) {
	l, out, _ := newBufferedLogger("", true)
	l.Infof("root")
	l.WithPrefix("gpu").Infof("child")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{"INFO: root", "[gpu] INFO: child"}, lines)
}

func TestOrNop(t *testing.T) {
	l := OrNop(nil)
	assert.NotNil(t, l)
	assert.False(t, l.DebugEnabled())
	l.Errorf("no panic")
}
