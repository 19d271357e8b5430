package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordEventProcessed(t *testing.T) {
	before := testutil.ToFloat64(eventsProcessedTotal.WithLabelValues("add"))
	RecordEventProcessed("add")
	after := testutil.ToFloat64(eventsProcessedTotal.WithLabelValues("add"))

	if after != before+1 {
		t.Fatalf("counter did not increment: before=%v after=%v", before, after)
	}
}

func TestSetModuleDeferredQueueDepth(t *testing.T) {
	SetModuleDeferredQueueDepth(3)
	if got := testutil.ToFloat64(moduleDeferredQueueDepth); got != 3 {
		t.Fatalf("gauge = %v, want 3", got)
	}
	SetModuleDeferredQueueDepth(0)
	if got := testutil.ToFloat64(moduleDeferredQueueDepth); got != 0 {
		t.Fatalf("gauge = %v, want 0", got)
	}
}

func TestRecordFirmwareTransfer(t *testing.T) {
	before := testutil.ToFloat64(firmwareTransfersTotal.WithLabelValues("success"))
	RecordFirmwareTransfer("success")
	after := testutil.ToFloat64(firmwareTransfersTotal.WithLabelValues("success"))

	if after != before+1 {
		t.Fatalf("counter did not increment: before=%v after=%v", before, after)
	}
}
