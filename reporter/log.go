package reporter

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mysteriumnetwork/hostwall/record"
)

// LogReporter logs the names found for every address.
type LogReporter struct {
	logger  logrus.FieldLogger
	verbose bool
}

func NewLogReporter(logger logrus.FieldLogger) *LogReporter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogReporter{
		logger: logger,
	}
}

// SetVerbose additionally logs every record with its source.
func (r *LogReporter) SetVerbose(verbose bool) *LogReporter {
	r.verbose = verbose
	return r
}

func (r *LogReporter) Report(_ context.Context, records []record.Record) error {
	grouped := record.Group(records)
	for _, ip := range grouped.IPs() {
		r.logger.WithField("ip", ip).Infof("names: %s", strings.Join(grouped[ip], ", "))
	}
	if r.verbose {
		for _, rec := range records {
			r.logger.WithFields(logrus.Fields{
				"ip":     rec.IP,
				"name":   rec.Name,
				"source": rec.Source,
			}).Info("record")
		}
	}
	r.logger.Infof("%d records for %d addresses", len(records), len(grouped))
	return nil
}
