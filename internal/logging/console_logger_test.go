package logging

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsoleLogger_Levels(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		log     func(l *ConsoleLogger)
		want    string
	}{
		{"verbose enabled", true, func(l *ConsoleLogger) { l.Verbose("batch %d", 1) }, "[VERBOSE] batch 1\n"},
		{"verbose disabled", false, func(l *ConsoleLogger) { l.Verbose("batch %d", 1) }, ""},
		{"info", false, func(l *ConsoleLogger) { l.Info("loaded %d rows", 3) }, "loaded 3 rows\n"},
		{"error", false, func(l *ConsoleLogger) { l.Error("load failed: %s", "boom") }, "[ERROR] load failed: boom\n"},
		{"no args keeps percent", false, func(l *ConsoleLogger) { l.Info("100% done") }, "100% done\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(NewConsoleLoggerTo(&buf, tt.verbose))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestConsoleLogger_ConcurrentLinesStayWhole(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLoggerTo(&buf, true)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			logger.Verbose("line %d", n)
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 50)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "[VERBOSE] line "), "mangled line %q", line)
	}
}

func TestNullLogger_Discards(t *testing.T) {
	l := NewNullLogger()
	l.Verbose("x %s", "y")
	l.Info("x")
	l.Error(fmt.Sprintf("%d", 1))
}
