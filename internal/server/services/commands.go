package services

import (
	"context"

	"github.com/dmitrijs2005/playerhub/internal/clock"
	"github.com/dmitrijs2005/playerhub/internal/common"
	"github.com/dmitrijs2005/playerhub/internal/logging"
	"github.com/dmitrijs2005/playerhub/internal/server/dispatch"
	"github.com/dmitrijs2005/playerhub/internal/server/ratelimit"
)

// Dispatcher delivers one command.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (*dispatch.Result, error)
}

// CommandService gates commands through validation and the rate limiter
// before handing them to the dispatcher.
type CommandService struct {
	limiter    *ratelimit.Limiter
	dispatcher Dispatcher
	clock      clock.Clock
	log        logging.Logger
}

func NewCommandService(limiter *ratelimit.Limiter, d Dispatcher, clk clock.Clock, log logging.Logger) *CommandService {
	return &CommandService{
		limiter:    limiter,
		dispatcher: d,
		clock:      clk,
		log:        log.With("module", "commands"),
	}
}

// Send expects a master authorization. Rejections from validation or the
// limiter happen before any network call.
func (s *CommandService) Send(ctx context.Context, a *Access, command string, payload map[string]any) (*dispatch.Result, error) {
	if err := dispatch.ValidateCommand(command); err != nil {
		return nil, err
	}

	res := s.limiter.Admit(ratelimit.Key{Email: a.Email, DeviceID: a.Device.ID}, s.clock.Now())
	if !res.Allowed {
		s.log.Warn(ctx, "command rate limited", "device_id", a.Device.ID, "email", a.Email, "retry_after", res.RetryAfterSeconds)
		return nil, &common.RateLimitError{RetryAfterSeconds: res.RetryAfterSeconds}
	}

	return s.dispatcher.Dispatch(ctx, dispatch.Request{
		DeviceID: a.Device.ID,
		Endpoint: a.Device.DispatchEndpoint,
		Command:  command,
		Payload:  payload,
	})
}
