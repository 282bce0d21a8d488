package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false, false)
	log.Info("hidden")
	log.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	log = New(&buf, true, false)
	log.Debug("dbg")
	assert.Contains(t, buf.String(), `"msg":"dbg"`)

	buf.Reset()
	log = New(&buf, true, true)
	log.Error("nothing")
	assert.Empty(t, buf.String())
}
