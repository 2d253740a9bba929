// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDelivery(t *testing.T) {
	before := testutil.ToFloat64(Deliveries.WithLabelValues("sms", "sent"))
	RecordDelivery("sms", "sent", 120*time.Millisecond)
	RecordDelivery("sms", "sent", 0)
	after := testutil.ToFloat64(Deliveries.WithLabelValues("sms", "sent"))
	if after-before != 2 {
		t.Errorf("sms/sent delta = %v, want 2", after-before)
	}
}

func TestRecordTick(t *testing.T) {
	processedBefore := testutil.ToFloat64(TickUsers.WithLabelValues("processed"))
	failedBefore := testutil.ToFloat64(TickUsers.WithLabelValues("failed"))

	RecordTick(2*time.Second, 7, 1)

	if got := testutil.ToFloat64(TickUsers.WithLabelValues("processed")) - processedBefore; got != 7 {
		t.Errorf("processed delta = %v, want 7", got)
	}
	if got := testutil.ToFloat64(TickUsers.WithLabelValues("failed")) - failedBefore; got != 1 {
		t.Errorf("failed delta = %v, want 1", got)
	}
	if testutil.ToFloat64(TickLastSuccess) == 0 {
		t.Error("TickLastSuccess should be set")
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/me/preferences", "200"))
	RecordAPIRequest("GET", "/api/v1/me/preferences", "200", 5*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/me/preferences", "200"))
	if after-before != 1 {
		t.Errorf("delta = %v, want 1", after-before)
	}
}

func TestTrackActiveRequest_Concurrent(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			TrackActiveRequest(true)
			TrackActiveRequest(false)
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("active requests = %v, want %v", got, before)
	}
}
