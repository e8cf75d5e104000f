package gmp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/gmpctl/internal/protocol"
	"github.com/danmuck/gmpctl/internal/testutil/testlog"
	"github.com/google/go-cmp/cmp"
)

func intp(v int) *int    { return &v }
func boolp(v bool) *bool { return &v }

func mustRoot(t *testing.T, raw string) *CommandResult {
	t.Helper()
	doc, err := protocol.ParseDocument(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return newCommandResult(doc)
}

func TestResourceMappers(t *testing.T) {
	testlog.Start(t)

	targets := Targets.rows(mustRoot(t, `<get_targets_response status="200">
		<target id="tg1"><name>dmz</name><comment>edge</comment><hosts>10.0.0.1, 10.0.0.2,,</hosts><port_list id="pl1"><name>All TCP</name></port_list></target>
		<target id="tg2"><name>solo</name><hosts>192.0.2.7</hosts></target>
		<target id="tg3"><name>empty</name><hosts></hosts></target>
	</get_targets_response>`))
	wantTargets := []Target{
		{ID: "tg1", Name: "dmz", Comment: "edge", Hosts: []string{"10.0.0.1", "10.0.0.2"}, PortListID: "pl1"},
		{ID: "tg2", Name: "solo", Hosts: []string{"192.0.2.7"}},
		{ID: "tg3", Name: "empty", Hosts: []string{}},
	}
	if diff := cmp.Diff(wantTargets, targets); diff != "" {
		t.Fatalf("targets mismatch (-want +got):\n%s", diff)
	}

	tasks := Tasks.rows(mustRoot(t, `<get_tasks_response status="200"><task id="t1"><name>weekly</name><status>Running</status><progress>42</progress><report_count>3<finished>2</finished></report_count></task><task id="t2"><name>legacy</name><scan_run_status>Done</scan_run_status><progress>-1</progress></task></get_tasks_response>`))
	wantTasks := []Task{
		{ID: "t1", Name: "weekly", Status: "Running", Progress: intp(42), ReportCount: intp(3)},
		{ID: "t2", Name: "legacy", Status: "Done", Progress: intp(-1)},
	}
	if diff := cmp.Diff(wantTasks, tasks); diff != "" {
		t.Fatalf("tasks mismatch (-want +got):\n%s", diff)
	}

	alerts := Alerts.rows(mustRoot(t, `<get_alerts_response status="200"><alert id="a1"><name>mail</name><event>Task run status changed<data><name>status</name><value>Done</value></data></event><condition>Always</condition><method><name>Email</name></method></alert></get_alerts_response>`))
	wantAlerts := []Alert{{ID: "a1", Name: "mail", Event: "Task run status changed", Condition: "Always", Method: "Email"}}
	if diff := cmp.Diff(wantAlerts, alerts); diff != "" {
		t.Fatalf("alerts mismatch (-want +got):\n%s", diff)
	}

	formats := ReportFormats.rows(mustRoot(t, `<get_report_formats_response status="200"><report_format id="rf1"><name>PDF</name><extension>pdf</extension><content_type>application/pdf</content_type><active>1</active></report_format><report_format id="rf2"><name>Odd</name><active>maybe</active></report_format></get_report_formats_response>`))
	wantFormats := []ReportFormat{
		{ID: "rf1", Name: "PDF", Extension: "pdf", ContentType: "application/pdf", Active: boolp(true)},
		{ID: "rf2", Name: "Odd"},
	}
	if diff := cmp.Diff(wantFormats, formats); diff != "" {
		t.Fatalf("report formats mismatch (-want +got):\n%s", diff)
	}

	scanners := Scanners.rows(mustRoot(t, `<get_scanners_response status="200"><scanner id="s1"><name>OpenVAS Default</name><host>/run/ospd/ospd.sock</host><port>0</port><type>2</type></scanner></get_scanners_response>`))
	wantScanners := []Scanner{{ID: "s1", Name: "OpenVAS Default", Host: "/run/ospd/ospd.sock", Port: intp(0), Type: "2"}}
	if diff := cmp.Diff(wantScanners, scanners); diff != "" {
		t.Fatalf("scanners mismatch (-want +got):\n%s", diff)
	}

	configs := ScanConfigs.rows(mustRoot(t, `<get_configs_response status="200"><config id="c1"><name>Full and fast</name><usage_type>scan</usage_type><family_count>62<growing>1</growing></family_count><nvt_count>90000<growing>1</growing></nvt_count></config></get_configs_response>`))
	wantConfigs := []ScanConfig{{ID: "c1", Name: "Full and fast", UsageType: "scan", FamilyCount: intp(62), NVTCount: intp(90000)}}
	if diff := cmp.Diff(wantConfigs, configs); diff != "" {
		t.Fatalf("configs mismatch (-want +got):\n%s", diff)
	}

	creds := Credentials.rows(mustRoot(t, `<get_credentials_response status="200"><credential id="cr1"><name>ssh</name><login>scanner</login></credential></get_credentials_response>`))
	if diff := cmp.Diff([]Credential{{ID: "cr1", Name: "ssh", Login: "scanner"}}, creds); diff != "" {
		t.Fatalf("credentials mismatch (-want +got):\n%s", diff)
	}

	schedules := Schedules.rows(mustRoot(t, `<get_schedules_response status="200"><schedule id="sc1"><name>nightly</name><timezone>UTC</timezone><next_run>2026-10-19T02:00:00Z</next_run></schedule></get_schedules_response>`))
	if diff := cmp.Diff([]Schedule{{ID: "sc1", Name: "nightly", Timezone: "UTC", NextTime: "2026-10-19T02:00:00Z"}}, schedules); diff != "" {
		t.Fatalf("schedules mismatch (-want +got):\n%s", diff)
	}
}

func TestEntitiesNestedOneLevel(t *testing.T) {
	testlog.Start(t)
	users := Users.rows(mustRoot(t, `<get_users_response status="200"><users><user id="u1"><name>a</name><role>Observer</role></user><user id="u2"><name>b</name></user></users></get_users_response>`))
	want := []User{{ID: "u1", Name: "a", Role: "Observer"}, {ID: "u2", Name: "b"}}
	if diff := cmp.Diff(want, users); diff != "" {
		t.Fatalf("users mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateTaskCommand(t *testing.T) {
	testlog.Start(t)
	s, ft := connectedSession(t, map[string]func(string) string{
		"create_task": fixed(`<create_task_response status="201" status_text="OK, resource created" id="task-9"/>`),
	})

	op, err := s.CreateTask(context.Background(), TaskSpec{
		Name:      "web <prod>",
		ConfigID:  "cfg-1",
		TargetID:  "tgt-1",
		Comment:   "nightly",
		Alterable: boolp(false),
		AlertIDs:  []string{"al-1", "al-2"},
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	want := OperationResult{Success: true, StatusCode: 201, StatusText: "OK, resource created", ResourceID: "task-9"}
	if diff := cmp.Diff(want, op, cmpIgnoreRaw); diff != "" {
		t.Fatalf("operation mismatch (-want +got):\n%s", diff)
	}

	sent := ft.commands()
	doc, err := protocol.ParseDocument(sent[len(sent)-1].XML)
	if err != nil {
		t.Fatalf("parse sent: %v", err)
	}
	root := doc.Root
	if root.Tag() != "create_task" || sent[len(sent)-1].Expected != "create_task_response" {
		t.Fatalf("unexpected command %s", sent[len(sent)-1].XML)
	}
	checks := map[string]protocol.Path{
		"web <prod>": protocol.P("name"),
		"cfg-1":      protocol.P("config", "@id"),
		"tgt-1":      protocol.P("target", "@id"),
		"nightly":    protocol.P("comment"),
		"0":          protocol.P("alterable"),
	}
	for want, path := range checks {
		if got, _ := root.Lookup(path); got != want {
			t.Fatalf("%v=%q want %q", path, got, want)
		}
	}
	if got := len(root.Children("alert")); got != 2 {
		t.Fatalf("alerts=%d", got)
	}
	if root.Child("scanner") != nil || root.Child("schedule") != nil {
		t.Fatalf("unset references were sent")
	}
}

var cmpIgnoreRaw = cmp.FilterPath(func(p cmp.Path) bool {
	return p.Last().String() == ".Raw"
}, cmp.Ignore())

func TestTaskOperationsValidateIDs(t *testing.T) {
	testlog.Start(t)
	s, ft := connectedSession(t, nil)
	before := len(ft.commands())

	calls := []func() (OperationResult, error){
		func() (OperationResult, error) { return s.StartTask(context.Background(), "") },
		func() (OperationResult, error) { return s.DeleteTask(context.Background(), "", true) },
		func() (OperationResult, error) { return s.ModifyTask(context.Background(), TaskUpdate{Name: "x"}) },
		func() (OperationResult, error) { return s.CreateTask(context.Background(), TaskSpec{Name: "x"}) },
		func() (OperationResult, error) { return s.DeletePortList(context.Background(), "", false) },
		func() (OperationResult, error) {
			return s.CreateCredential(context.Background(), CredentialSpec{Name: "x"})
		},
	}
	for i, call := range calls {
		if _, err := call(); !errors.Is(err, protocol.ErrInvalidCommand) {
			t.Fatalf("call %d: expected ErrInvalidCommand, got %v", i, err)
		}
	}
	if got := len(ft.commands()); got != before {
		t.Fatalf("invalid operations reached the transport: %d", got-before)
	}
}

func TestTaskActions(t *testing.T) {
	testlog.Start(t)
	s, ft := connectedSession(t, map[string]func(string) string{
		"start_task":  fixed(`<start_task_response status="202" status_text="OK, request submitted"><report_id>rep-1</report_id></start_task_response>`),
		"stop_task":   fixed(`<stop_task_response status="202" status_text="OK, request submitted"/>`),
		"pause_task":  fixed(`<pause_task_response status="400" status_text="Task is not running"/>`),
		"resume_task": fixed(`<resume_task_response status="202" status_text="OK" task_id="t1"/>`),
		"delete_task": fixed(`<delete_task_response status="200" status_text="OK"/>`),
	})
	ctx := context.Background()

	op, err := s.StartTask(ctx, "t1")
	if err != nil || !op.Success || op.StatusCode != 202 {
		t.Fatalf("start: %+v %v", op, err)
	}
	if op, err = s.StopTask(ctx, "t1"); err != nil || !op.Success {
		t.Fatalf("stop: %+v %v", op, err)
	}
	op, err = s.PauseTask(ctx, "t1")
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if op.Success || op.StatusText != "Task is not running" {
		t.Fatalf("pause should be a rejected operation: %+v", op)
	}
	if op, err = s.ResumeTask(ctx, "t1"); err != nil || op.ResourceID != "t1" {
		t.Fatalf("resume: %+v %v", op, err)
	}
	if _, err = s.DeleteTask(ctx, "t1", true); err != nil {
		t.Fatalf("delete: %v", err)
	}

	sent := ft.commands()
	last := sent[len(sent)-1]
	doc, _ := protocol.ParseDocument(last.XML)
	if v, _ := doc.Root.Attr("ultimate"); v != "1" {
		t.Fatalf("ultimate=%q in %s", v, last.XML)
	}
	if v, _ := doc.Root.Attr("task_id"); v != "t1" {
		t.Fatalf("task_id=%q", v)
	}
}

func TestGetTaskStatusAndReport(t *testing.T) {
	testlog.Start(t)
	s, ft := connectedSession(t, map[string]func(string) string{
		"get_tasks": func(cmd string) string {
			if strings.Contains(cmd, `task_id="missing"`) {
				return `<get_tasks_response status="200"/>`
			}
			return `<get_tasks_response status="200"><task id="t1"><name>weekly</name><status>Done</status><progress>100</progress><last_report><report id="rep-7"><timestamp>x</timestamp></report></last_report></task></get_tasks_response>`
		},
		"get_reports": fixed(`<get_reports_response status="200"><report id="rep-7" format_id="fmt"/></get_reports_response>`),
	})
	ctx := context.Background()

	status, err := s.GetTaskStatus(ctx, "t1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	want := &TaskStatus{TaskID: "t1", Name: "weekly", Status: "Done", Progress: intp(100), ReportID: "rep-7"}
	if diff := cmp.Diff(want, status); diff != "" {
		t.Fatalf("status mismatch (-want +got):\n%s", diff)
	}

	missing, err := s.GetTaskStatus(ctx, "missing")
	if err != nil || missing != nil {
		t.Fatalf("missing task: %+v %v", missing, err)
	}

	res, err := s.GetTaskReport(ctx, ReportRequest{TaskID: "t1", FormatID: "fmt"})
	if err != nil || res == nil || !res.OK {
		t.Fatalf("report: %+v %v", res, err)
	}
	sent := ft.commands()
	doc, _ := protocol.ParseDocument(sent[len(sent)-1].XML)
	for key, want := range map[string]string{"report_id": "rep-7", "details": "1", "format_id": "fmt"} {
		if got, _ := doc.Root.Attr(key); got != want {
			t.Fatalf("%s=%q want %q", key, got, want)
		}
	}

	none, err := s.GetTaskReport(ctx, ReportRequest{TaskID: "missing"})
	if err != nil || none != nil {
		t.Fatalf("report of missing task: %+v %v", none, err)
	}
}

func TestGetTaskStatusUnknownTaskRejected(t *testing.T) {
	testlog.Start(t)
	s, ft := connectedSession(t, map[string]func(string) string{
		"get_tasks": fixed(`<get_tasks_response status="404" status_text="Failed to find task"/>`),
	})
	ctx := context.Background()

	status, err := s.GetTaskStatus(ctx, "gone")
	if err != nil || status != nil {
		t.Fatalf("unknown task status: %+v %v", status, err)
	}
	before := len(ft.commands())
	report, err := s.GetTaskReport(ctx, ReportRequest{TaskID: "gone"})
	if err != nil || report != nil {
		t.Fatalf("unknown task report: %+v %v", report, err)
	}
	sent := ft.commands()[before:]
	if len(sent) != 1 || !strings.HasPrefix(sent[0].XML, "<get_tasks") {
		t.Fatalf("report lookup sent %+v", sent)
	}
}

func TestPortListAndCredentialOperations(t *testing.T) {
	testlog.Start(t)
	s, ft := connectedSession(t, map[string]func(string) string{
		"create_port_list":  fixed(`<create_port_list_response status="201" status_text="OK, resource created" id="pl-1"/>`),
		"modify_port_list":  fixed(`<modify_port_list_response status="200" status_text="OK"/>`),
		"create_credential": fixed(`<create_credential_response status="201" status_text="OK, resource created" id="cr-1"/>`),
		"delete_credential": fixed(`<delete_credential_response status="200" status_text="OK"/>`),
	})
	ctx := context.Background()

	op, err := s.CreatePortList(ctx, PortListSpec{Name: "web", PortRange: "T:80,T:443"})
	if err != nil || op.ResourceID != "pl-1" {
		t.Fatalf("create port list: %+v %v", op, err)
	}
	if op, err = s.ModifyPortList(ctx, PortListUpdate{PortListID: "pl-1", Comment: "tls only"}); err != nil || !op.Success {
		t.Fatalf("modify port list: %+v %v", op, err)
	}
	op, err = s.CreateCredential(ctx, CredentialSpec{Name: "ssh", Login: "scan", Password: "p'w", AllowInsecure: boolp(true)})
	if err != nil || op.ResourceID != "cr-1" {
		t.Fatalf("create credential: %+v %v", op, err)
	}
	sent := ft.commands()
	doc, err := protocol.ParseDocument(sent[len(sent)-1].XML)
	if err != nil {
		t.Fatalf("parse sent: %v", err)
	}
	if got, _ := doc.Root.Lookup(protocol.P("password")); got != "p'w" {
		t.Fatalf("password=%q", got)
	}
	if got, _ := doc.Root.Lookup(protocol.P("allow_insecure")); got != "1" {
		t.Fatalf("allow_insecure=%q", got)
	}
	if op, err = s.DeleteCredential(ctx, "cr-1", false); err != nil || !op.Success {
		t.Fatalf("delete credential: %+v %v", op, err)
	}
}

func TestVersionAndDiagnostics(t *testing.T) {
	testlog.Start(t)
	rows := func(tag, entity string, n int) func(string) string {
		return func(string) string {
			body := strings.Repeat("<"+entity+` id="x"><name>n</name></`+entity+">", n)
			return "<" + tag + `_response status="200">` + body + "</" + tag + "_response>"
		}
	}
	s, _ := connectedSession(t, map[string]func(string) string{
		"get_version":        fixed(`<get_version_response status="200" status_text="OK"><version>22.7</version></get_version_response>`),
		"get_scanners":       rows("get_scanners", "scanner", 2),
		"get_configs":        rows("get_configs", "config", 5),
		"get_targets":        rows("get_targets", "target", 1),
		"get_schedules":      rows("get_schedules", "schedule", 0),
		"get_report_formats": rows("get_report_formats", "report_format", 4),
		"get_alerts":         rows("get_alerts", "alert", 3),
	})

	v, err := s.GetVersion(context.Background())
	if err != nil || v.Version != "22.7" {
		t.Fatalf("version: %+v %v", v, err)
	}

	d, err := s.GetDiagnostics(context.Background())
	if err != nil {
		t.Fatalf("diagnostics: %v", err)
	}
	want := Diagnostics{Version: "22.7", ScannerCount: 2, ConfigCount: 5, TargetCount: 1, ScheduleCount: 0, ReportFormatCount: 4, AlertCount: 3}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Fatalf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}
