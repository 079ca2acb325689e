package errreport

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rollbar/rollbar-go"
)

// Reporter forwards failures to Rollbar when a token is configured and
// otherwise only logs them.
type Reporter struct {
	enabled bool
}

func New(token, environment, codeVersion string) *Reporter {
	if token == "" {
		rollbar.SetEnabled(false)
		return &Reporter{}
	}
	rollbar.SetToken(token)
	rollbar.SetEnvironment(environment)
	rollbar.SetCodeVersion(codeVersion)
	rollbar.SetServerRoot("hrms")
	rollbar.SetEnabled(true)
	return &Reporter{enabled: true}
}

func (r *Reporter) Enabled() bool {
	return r != nil && r.enabled
}

// Panic reports a recovered panic raised while serving req.
func (r *Reporter) Panic(req *http.Request, recovered any, extras map[string]any) {
	err, ok := recovered.(error)
	if !ok {
		err = fmt.Errorf("panic: %v", recovered)
	}
	slog.Error("panic recovered", "err", err, "path", req.URL.Path)
	if !r.Enabled() {
		return
	}
	rollbar.RequestErrorWithExtras(rollbar.CRIT, req, err, extras)
}

// Error reports a background failure such as a job run.
func (r *Reporter) Error(err error, extras map[string]any) {
	if err == nil {
		return
	}
	slog.Error("background failure", "err", err, "extras", extras)
	if !r.Enabled() {
		return
	}
	rollbar.ErrorWithExtras(rollbar.ERR, err, extras)
}

// Flush waits for queued reports before shutdown.
func (r *Reporter) Flush(timeout time.Duration) {
	if !r.Enabled() {
		return
	}
	done := make(chan struct{})
	go func() {
		rollbar.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
