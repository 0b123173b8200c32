package heartbeat

import (
	"context"

	"github.com/sirupsen/logrus"
)

type LogHeartbeat struct {
	logger logrus.FieldLogger
}

func NewLogHeartbeat(logger logrus.FieldLogger) LogHeartbeat {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return LogHeartbeat{
		logger: logger,
	}
}

func (b LogHeartbeat) Beat(_ context.Context, s Summary) error {
	b.logger.Infof("run finished: %s", s)
	return nil
}
