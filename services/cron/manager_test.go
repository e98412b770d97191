package cron

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/SirCraft007/grade-api/services"
)

type stubReconciler struct{}

func (stubReconciler) RecomputeAll(context.Context) (*services.ReconcileResult, error) {
	return &services.ReconcileResult{}, nil
}

func TestRegisterJobs(t *testing.T) {
	m := NewCronManager(nil, stubReconciler{}, "0 0 3 * * *", nil)
	if err := m.registerJobs(); err != nil {
		t.Fatalf("registerJobs() error = %v", err)
	}
	if got := len(m.cron.Entries()); got != 2 {
		t.Errorf("entries = %d, want 2", got)
	}
}

func TestRegisterJobsInvalidSchedule(t *testing.T) {
	m := NewCronManager(nil, stubReconciler{}, "every night", nil)
	if err := m.Start(); err == nil {
		m.Stop()
		t.Fatal("Start() = nil, want schedule error")
	}
}

func TestEncodeMetadata(t *testing.T) {
	if got := string(encodeMetadata(nil)); got != "{}" {
		t.Errorf("encodeMetadata(nil) = %s", got)
	}

	data := encodeMetadata(&services.ReconcileResult{Users: 3, Succeeded: 2, Failed: map[uint]string{7: "boom"}})
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["users"] != float64(3) || decoded["succeeded"] != float64(2) {
		t.Errorf("metadata = %s", data)
	}

	// unencodable values fall back to an empty object
	if got := string(encodeMetadata(map[string]interface{}{"ch": make(chan int)})); got != "{}" {
		t.Errorf("encodeMetadata(chan) = %s", got)
	}
}
