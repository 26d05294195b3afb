package email

import (
	"context"
)

// Service dispatches email to an external provider. Calls are best-effort:
// the workflow logs and swallows failures, so implementations must bound
// their own time.
type Service interface {
	Send(ctx context.Context, to, subject, body string) error
}
