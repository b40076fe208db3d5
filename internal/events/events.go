// Package events provides sweep progress notifications and an in-process bus.
package events

import "time"

// EventType represents the type of event
type EventType string

const (
	// EventSweepStarted is emitted once meshes are discovered and the first run is about to start
	EventSweepStarted EventType = "sweep_started"
	// EventRunStarted is emitted before the solver is invoked for a sweep point
	EventRunStarted EventType = "run_started"
	// EventRunSucceeded is emitted after a row has been appended to the summary
	EventRunSucceeded EventType = "run_succeeded"
	// EventRunFailed is emitted when invocation or extraction fails
	EventRunFailed EventType = "run_failed"
	// EventSweepCompleted is emitted after the last row has been written
	EventSweepCompleted EventType = "sweep_completed"
	// EventSweepAborted is emitted when the sweep stops early
	EventSweepAborted EventType = "sweep_aborted"
)

// Event represents a sweep progress event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	SweepID   string    `json:"sweep_id"`
	Project   string    `json:"project,omitempty"`
	Data      EventData `json:"data,omitempty"`
}

// EventData contains event-specific data
type EventData struct {
	Degree     string    `json:"degree,omitempty"`
	Mesh       string    `json:"mesh,omitempty"`
	Index      int       `json:"index,omitempty"`
	Total      int       `json:"total,omitempty"`
	L2         []float64 `json:"l2,omitempty"`
	Linf       []float64 `json:"linf,omitempty"`
	CostPerDOF float64   `json:"cost_per_dof,omitempty"`
	Wall       string    `json:"wall,omitempty"`
	ExitCode   int       `json:"exit_code,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Point identifies a sweep point in run events
type Point struct {
	Project  string `json:"project"`
	Degree   string `json:"degree"`
	Mesh     string `json:"mesh"`
	MeshFile string `json:"mesh_file"`
	Index    int    `json:"index"` // 1-based
	Total    int    `json:"total"`
}

// NewSweepStartedEvent creates a sweep started event
func NewSweepStartedEvent(sweepID, project string, total int) Event {
	return Event{
		Type:      EventSweepStarted,
		Timestamp: time.Now(),
		SweepID:   sweepID,
		Project:   project,
		Data:      EventData{Total: total},
	}
}

// NewRunStartedEvent creates a run started event
func NewRunStartedEvent(sweepID string, p Point) Event {
	return Event{
		Type:      EventRunStarted,
		Timestamp: time.Now(),
		SweepID:   sweepID,
		Project:   p.Project,
		Data:      pointData(p),
	}
}

// NewRunSucceededEvent creates a run succeeded event carrying the extracted metrics
func NewRunSucceededEvent(sweepID string, p Point, l2, linf []float64, cost float64, wall time.Duration) Event {
	data := pointData(p)
	data.L2 = l2
	data.Linf = linf
	data.CostPerDOF = cost
	data.Wall = wall.String()
	return Event{
		Type:      EventRunSucceeded,
		Timestamp: time.Now(),
		SweepID:   sweepID,
		Project:   p.Project,
		Data:      data,
	}
}

// NewRunFailedEvent creates a run failed event
func NewRunFailedEvent(sweepID string, p Point, exitCode int, err error) Event {
	data := pointData(p)
	data.ExitCode = exitCode
	if err != nil {
		data.Error = err.Error()
	}
	return Event{
		Type:      EventRunFailed,
		Timestamp: time.Now(),
		SweepID:   sweepID,
		Project:   p.Project,
		Data:      data,
	}
}

// NewSweepCompletedEvent creates a sweep completed event
func NewSweepCompletedEvent(sweepID, project string, total int) Event {
	return Event{
		Type:      EventSweepCompleted,
		Timestamp: time.Now(),
		SweepID:   sweepID,
		Project:   project,
		Data:      EventData{Index: total, Total: total},
	}
}

// NewSweepAbortedEvent creates a sweep aborted event
func NewSweepAbortedEvent(sweepID, project string, completed, total int, err error) Event {
	data := EventData{Index: completed, Total: total}
	if err != nil {
		data.Error = err.Error()
	}
	return Event{
		Type:      EventSweepAborted,
		Timestamp: time.Now(),
		SweepID:   sweepID,
		Project:   project,
		Data:      data,
	}
}

func pointData(p Point) EventData {
	return EventData{
		Degree: p.Degree,
		Mesh:   p.Mesh,
		Index:  p.Index,
		Total:  p.Total,
	}
}
