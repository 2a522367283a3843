package logsvc_test

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/user"
	logsvc "github.com/trezcool/mpiangona/services/logger"
)

func newLogger(debug bool) (*logsvc.RollbarLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	conf := core.NewTestConfig()
	conf.Debug = debug
	return logsvc.NewRollbarLogger(log.New(&buf, "API : ", 0), conf), &buf
}

func TestRollbarLogger_Levels(t *testing.T) {
	tests := []struct {
		name      string
		debug     bool
		wantDebug bool
	}{
		{name: "debug mode logs debug messages", debug: true, wantDebug: true},
		{name: "production mode skips debug messages", debug: false, wantDebug: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			logger, buf := newLogger(tc.debug)
			logger.Debug("card batch started")
			logger.Warn("member skipped")

			assert.Equal(t, tc.wantDebug, bytes.Contains(buf.Bytes(), []byte("API : [DEBUG] card batch started")))
			assert.Contains(t, buf.String(), "API : [WARN] member skipped")
		})
	}
}

func TestRollbarLogger_Args(t *testing.T) {
	logger, buf := newLogger(true)
	usr := user.User{ID: "u1", Username: "rakoto", Email: null.StringFrom("rakoto@example.mg")}

	logger.Error("saving member", errors.New("connection refused"), usr, map[string]interface{}{"id": "m1"})

	out := buf.String()
	assert.Contains(t, out, "[ERROR] saving member")
	assert.Contains(t, out, "connection refused")
	assert.Contains(t, out, "user: rakoto (u1)")
	assert.Contains(t, out, "map[id:m1]")
}
