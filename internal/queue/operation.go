package queue

import (
	"time"
)

// State is the lifecycle position of a download operation
type State string

const (
	StateQueued      State = "QUEUED"
	StateDownloading State = "DOWNLOADING"
	StatePaused      State = "PAUSED"
	StateExtracting  State = "EXTRACTING"
	StateInstalling  State = "INSTALLING"
	StateCompleted   State = "COMPLETED"
	StateFailed      State = "FAILED"
	StateCancelled   State = "CANCELLED"
)

// Terminal reports whether no further transition happens without a resume
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// Active reports whether the worker is currently driving the operation
func (s State) Active() bool {
	switch s {
	case StateDownloading, StateExtracting, StateInstalling:
		return true
	}
	return false
}

// Operation is an immutable snapshot of one download request
type Operation struct {
	ID              string    `json:"operation_id"`
	PackageName     string    `json:"package_name"`
	ReleaseName     string    `json:"release_name"`
	GameName        string    `json:"game_name"`
	State           State     `json:"state"`
	ProgressPercent float64   `json:"progress_percent"`
	BytesDone       int64     `json:"bytes_done"`
	BytesTotal      int64     `json:"bytes_total"`
	SpeedBps        int64     `json:"speed_bps"`
	EtaSeconds      int64     `json:"eta_seconds"`
	Message         string    `json:"message"`
	StateVersion    uint64    `json:"state_version"`
	IsTerminal      bool      `json:"terminal"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Terminal mirrors State.Terminal
func (o Operation) Terminal() bool {
	return o.State.Terminal()
}

func percentOf(done, total int64) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(done) / float64(total) * 100
	if p > 100 {
		return 100
	}
	return p
}
