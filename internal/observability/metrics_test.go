package observability

import (
	"testing"
	"time"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordCommand("C0", "AS", "ok", 12*time.Millisecond)
	RecordCommand("C0", "AS", "timeout", 30*time.Second)
	RecordChannelError(2, "75")
	RecordHTTPRequest("GET", "/health", 200, 3*time.Millisecond)
}
