package gmp

import (
	"context"
	"fmt"

	"github.com/danmuck/gmpctl/internal/protocol"
	"github.com/danmuck/gmpctl/internal/protocol/schema"
	"github.com/rs/zerolog/log"
)

type TaskSpec struct {
	Name       string
	ConfigID   string
	TargetID   string
	ScannerID  string
	Comment    string
	Alterable  *bool
	ScheduleID string
	AlertIDs   []string
}

// TaskUpdate changes only the fields that are set.
type TaskUpdate struct {
	TaskID     string
	Name       string
	Comment    string
	Alterable  *bool
	ConfigID   string
	TargetID   string
	ScannerID  string
	ScheduleID string
}

type TaskStatus struct {
	TaskID   string `yaml:"task_id"`
	Name     string `yaml:"name"`
	Status   string `yaml:"status,omitempty"`
	Progress *int   `yaml:"progress,omitempty"`
	ReportID string `yaml:"report_id,omitempty"`
}

// ReportRequest selects a report by id, or the latest report of TaskID.
type ReportRequest struct {
	TaskID   string
	ReportID string
	FormatID string
	// Details defaults to true.
	Details *bool
}

func (s *Session) CreateTask(ctx context.Context, spec TaskSpec) (OperationResult, error) {
	if spec.Name == "" || spec.ConfigID == "" || spec.TargetID == "" {
		return OperationResult{}, fmt.Errorf("%w: task needs name, config id and target id", protocol.ErrInvalidCommand)
	}
	cmd := protocol.NewCommand("create_task").Leaf("name", spec.Name)
	cmd.Element("config").Attr("id", spec.ConfigID)
	cmd.Element("target").Attr("id", spec.TargetID)
	if spec.Comment != "" {
		cmd.Leaf("comment", spec.Comment)
	}
	if spec.ScannerID != "" {
		cmd.Element("scanner").Attr("id", spec.ScannerID)
	}
	if spec.Alterable != nil {
		cmd.Leaf("alterable", boolFlag(*spec.Alterable))
	}
	if spec.ScheduleID != "" {
		cmd.Element("schedule").Attr("id", spec.ScheduleID)
	}
	for _, alertID := range spec.AlertIDs {
		cmd.Element("alert").Attr("id", alertID)
	}
	return s.operation(ctx, cmd)
}

func (s *Session) ModifyTask(ctx context.Context, u TaskUpdate) (OperationResult, error) {
	if err := requireID("task", u.TaskID); err != nil {
		return OperationResult{}, err
	}
	cmd := protocol.NewCommand("modify_task").Attr("task_id", u.TaskID)
	if u.Name != "" {
		cmd.Leaf("name", u.Name)
	}
	if u.Comment != "" {
		cmd.Leaf("comment", u.Comment)
	}
	if u.Alterable != nil {
		cmd.Leaf("alterable", boolFlag(*u.Alterable))
	}
	for _, ref := range []struct{ tag, id string }{
		{"config", u.ConfigID},
		{"target", u.TargetID},
		{"scanner", u.ScannerID},
		{"schedule", u.ScheduleID},
	} {
		if ref.id != "" {
			cmd.Element(ref.tag).Attr("id", ref.id)
		}
	}
	return s.operation(ctx, cmd)
}

// DeleteTask moves the task to the trashcan, or removes it for good when
// ultimate is set.
func (s *Session) DeleteTask(ctx context.Context, taskID string, ultimate bool) (OperationResult, error) {
	if err := requireID("task", taskID); err != nil {
		return OperationResult{}, err
	}
	cmd := protocol.NewCommand("delete_task").
		Attr("task_id", taskID).
		Attr("ultimate", boolFlag(ultimate))
	return s.operation(ctx, cmd)
}

func (s *Session) StartTask(ctx context.Context, taskID string) (OperationResult, error) {
	return s.taskAction(ctx, "start_task", taskID)
}

func (s *Session) StopTask(ctx context.Context, taskID string) (OperationResult, error) {
	return s.taskAction(ctx, "stop_task", taskID)
}

func (s *Session) PauseTask(ctx context.Context, taskID string) (OperationResult, error) {
	return s.taskAction(ctx, "pause_task", taskID)
}

func (s *Session) ResumeTask(ctx context.Context, taskID string) (OperationResult, error) {
	return s.taskAction(ctx, "resume_task", taskID)
}

func (s *Session) taskAction(ctx context.Context, command, taskID string) (OperationResult, error) {
	if err := requireID("task", taskID); err != nil {
		return OperationResult{}, err
	}
	return s.operation(ctx, protocol.NewCommand(command).Attr("task_id", taskID))
}

// GetTaskStatus returns nil when the manager knows no such task.
func (s *Session) GetTaskStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	if err := requireID("task", taskID); err != nil {
		return nil, err
	}
	kind := schema.MustLookup(schema.KindTasks)
	cmd := protocol.NewCommand(kind.Command).
		Attr("task_id", taskID).
		Attr("details", "1")
	res, err := s.execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	// An unknown task is answered with a 404 and no rows; either way no
	// task means nil.
	nodes := res.Root.Entities(kind.Entity)
	if len(nodes) == 0 {
		log.Debug().Str("task", taskID).Str("status", res.Status.RawCode).Msg("gmp.Session task not found")
		return nil, nil
	}
	n := nodes[0]
	status := &TaskStatus{
		TaskID:   id(n),
		Name:     text(n, "name"),
		Status:   n.StringOr("", protocol.P("status"), protocol.P("scan_run_status")),
		Progress: optInt(n, protocol.P("progress")),
		ReportID: n.StringOr("",
			protocol.P("last_report", "report", "@id"),
			protocol.P("last_report", "@id"),
			protocol.P("current_report", "report", "@id"),
			protocol.P("current_report", "@id"),
		),
	}
	if status.TaskID == "" {
		status.TaskID = taskID
	}
	return status, nil
}

// GetTaskReport fetches a report. Without a ReportID it uses the task's
// latest report and returns nil when there is none.
func (s *Session) GetTaskReport(ctx context.Context, req ReportRequest) (*CommandResult, error) {
	reportID := req.ReportID
	if reportID == "" {
		status, err := s.GetTaskStatus(ctx, req.TaskID)
		if err != nil {
			return nil, err
		}
		if status == nil || status.ReportID == "" {
			return nil, nil
		}
		reportID = status.ReportID
	}
	details := true
	if req.Details != nil {
		details = *req.Details
	}
	cmd := protocol.NewCommand("get_reports").
		Attr("report_id", reportID).
		Attr("details", boolFlag(details))
	if req.FormatID != "" {
		cmd.Attr("format_id", req.FormatID)
	}
	return s.execute(ctx, cmd)
}

func (s *Session) operation(ctx context.Context, cmd *protocol.Command) (OperationResult, error) {
	res, err := s.execute(ctx, cmd)
	if err != nil {
		return OperationResult{}, err
	}
	return newOperationResult(res), nil
}
