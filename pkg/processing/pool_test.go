package processing

import (
	"sync"
	"testing"
	"time"

	customlog "github.com/sharminesan/tb-backend/pkg/log"
)

type testLogger struct{}

func (testLogger) Debugf(string, ...interface{}) {}
func (testLogger) Infof(string, ...interface{})  {}
func (testLogger) Warnf(string, ...interface{})  {}
func (testLogger) Errorf(string, ...interface{}) {}
func (testLogger) Fatalf(string, ...interface{}) {}
func (l testLogger) WithField(string, interface{}) customlog.Logger {
	return l
}

var testLog customlog.Logger = testLogger{}

func TestPoolProcessesSubmittedJobs(t *testing.T) {
	var mu sync.Mutex
	var seen []string

	pool := NewPool("test", 2, 8, func(job Job) {
		mu.Lock()
		seen = append(seen, job.Frame.Topic)
		mu.Unlock()
	}, testLog)
	pool.Start()

	for i := 0; i < 5; i++ {
		if !pool.Submit(Job{Frame: Frame{Topic: "odom"}, Kind: KindOdometry}) {
			t.Fatalf("Submit %d unexpectedly discarded", i)
		}
	}
	pool.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 5 {
		t.Errorf("Expected 5 processed jobs, got %d", len(seen))
	}

	metrics := pool.Metrics()
	if metrics.Submitted != 5 || metrics.Processed != 5 || metrics.Discarded != 0 {
		t.Errorf("Unexpected metrics: %+v", metrics)
	}
}

func TestPoolDiscardsWhenQueueFull(t *testing.T) {
	block := make(chan struct{})
	pool := NewPool("test", 1, 1, func(Job) {
		<-block
	}, testLog)
	pool.Start()

	// First job occupies the worker, second fills the queue; everything
	// after that must be discarded, not block.
	accepted := 0
	for i := 0; i < 10; i++ {
		if pool.Submit(Job{}) {
			accepted++
		}
	}
	if accepted > 2 {
		t.Errorf("Expected at most 2 accepted jobs with queue size 1, got %d", accepted)
	}

	metrics := pool.Metrics()
	if metrics.Discarded == 0 {
		t.Error("Expected discarded jobs to be counted")
	}

	close(block)
	pool.Stop()
}

func TestPoolStopDrainsQueue(t *testing.T) {
	done := make(chan struct{}, 4)
	pool := NewPool("test", 1, 4, func(Job) {
		time.Sleep(time.Millisecond)
		done <- struct{}{}
	}, testLog)
	pool.Start()

	for i := 0; i < 4; i++ {
		pool.Submit(Job{})
	}
	pool.Stop()

	if len(done) != 4 {
		t.Errorf("Expected all 4 queued jobs processed before Stop returned, got %d", len(done))
	}
}

func TestParsePriority(t *testing.T) {
	cases := []struct {
		in   string
		want Priority
	}{
		{"HIGH", PriorityHigh},
		{"STANDARD", PriorityStandard},
		{"LOW", PriorityLow},
		{"bogus", PriorityStandard},
		{"", PriorityStandard},
	}
	for _, tc := range cases {
		if got := ParsePriority(tc.in); got != tc.want {
			t.Errorf("ParsePriority(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
