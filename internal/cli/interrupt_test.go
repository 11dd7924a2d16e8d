package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// syncBuffer provides thread-safe access to a bytes.Buffer.
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (s *syncBuffer) Write(p []byte) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestNewInterruptHandler(t *testing.T) {
	handler := NewInterruptHandler(nil)
	assert.NotNil(t, handler.writer)
	assert.False(t, handler.WasInterrupted())
}

func TestInterruptHandler_MessageShownOnce(t *testing.T) {
	output := &syncBuffer{}
	handler := NewInterruptHandler(output)

	handler.interrupt()
	handler.interrupt()

	assert.True(t, handler.WasInterrupted())
	assert.Equal(t, 1, strings.Count(output.String(), "Run interrupted!"))
	assert.Contains(t, output.String(), "next run skips those files")
}

func TestInterruptHandler_StopCancelsContext(t *testing.T) {
	handler := NewInterruptHandler(&syncBuffer{})

	ctx, stop := handler.HandleInterrupts(context.Background())
	select {
	case <-ctx.Done():
		t.Fatal("context should not be canceled before stop")
	default:
	}

	stop()
	stop()

	<-ctx.Done()
	assert.False(t, handler.WasInterrupted())
}
