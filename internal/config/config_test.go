package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Port)
	}
	if cfg.PongWait != 60*time.Second {
		t.Errorf("default pong_wait = %v, want 60s", cfg.PongWait)
	}
	if cfg.PingPeriod >= cfg.PongWait {
		t.Error("ping_period must be shorter than pong_wait")
	}
	if cfg.SendQueueSize <= 0 {
		t.Errorf("default send_queue_size = %d, want > 0", cfg.SendQueueSize)
	}
	if cfg.PositionMinInterval != 50*time.Millisecond {
		t.Errorf("default position_min_interval = %v, want 50ms", cfg.PositionMinInterval)
	}
	if !cfg.AllowUnlistedSpaces {
		t.Error("unlisted spaces should be allowed by default")
	}
}
