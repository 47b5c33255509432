package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got []string
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	})
	Logf("matched %d/%d", 3, 4)
	assert.Equal(t, []string{"matched 3/4"}, got)

	// nil installs a no-op; the previous logger must not be called.
	SetLogger(nil)
	Logf("dropped")
	assert.Len(t, got, 1)
}

func TestDebugf_GatedByVerbose(t *testing.T) {
	original := Logf
	defer func() {
		Logf = original
		SetVerbose(false)
	}()

	calls := 0
	SetLogger(func(string, ...interface{}) { calls++ })

	SetVerbose(false)
	Debugf("quiet")
	assert.Equal(t, 0, calls)
	assert.False(t, Verbose())

	SetVerbose(true)
	Debugf("loud")
	assert.Equal(t, 1, calls)
	assert.True(t, Verbose())
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf should not be nil by default")
	}
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Logf panicked: %v", r)
		}
	}()
	Logf("test message: %s", "value")
}
