package task

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/gosimple/slug"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/jony/cascade/pkg/cascade/cerr"
)

// rawDoc mirrors the on-disk task document shape before type
// discrimination: each task is decoded as a yaml.Node so we can peek
// at its fields before deciding Step vs Goal.
type rawDoc struct {
	Config rawConfig             `yaml:"config"`
	Tasks  []yaml.Node            `yaml:"tasks"`
	Bg     map[string]yaml.Node   `yaml:"background"`
}

type rawConfig struct {
	DefaultTZ     string `yaml:"default_tz"`
	Log           bool   `yaml:"log"`
	SolverTimeout int    `yaml:"solver_timeout"`
}

type rawCommon struct {
	Name     string   `yaml:"name"`
	ID       string   `yaml:"id"`
	Desc     string   `yaml:"desc"`
	Tags     []string `yaml:"tags"`
	Deadline string   `yaml:"deadline"`
	Timezone string   `yaml:"timezone"`
	Priority int      `yaml:"priority"`
	Deps     struct {
		Before []string `yaml:"before"`
		After  []string `yaml:"after"`
	} `yaml:"deps"`
}

type rawStep struct {
	rawCommon `yaml:",inline"`
	Status    string `yaml:"status"`
	Duration  string `yaml:"duration"`
	Confidence int   `yaml:"confidence"`
}

type rawGoal struct {
	rawCommon           `yaml:",inline"`
	Subtasks            []string `yaml:"subtasks"`
	ImplicitDepsByOrder bool     `yaml:"implicit_deps_by_order"`
}

type rawBackgroundTask struct {
	Schedule string `yaml:"schedule"`
	Duration string `yaml:"duration"`
}

type rawBackgroundCalendar struct {
	URL       string   `yaml:"url"`
	Filter    []string `yaml:"filter"`
	Whitelist bool     `yaml:"whitelist"`
}

// LoadFile reads and parses a task document from disk.
func LoadFile(path string) (*TaskAST, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cerr.Wrap(cerr.IOFailure, err, "opening task document %q", path)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a task document and validates it into a TaskAST.
func Load(r io.Reader) (*TaskAST, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, cerr.Wrap(cerr.IOFailure, err, "reading task document")
	}

	var doc rawDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, cerr.Wrap(cerr.InvalidInput, err, "parsing task document")
	}

	cfg, err := decodeConfig(doc.Config)
	if err != nil {
		return nil, err
	}

	tasks := make([]Task, 0, len(doc.Tasks))
	for i := range doc.Tasks {
		t, err := decodeTask(&doc.Tasks[i])
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	bg := make(map[string]BackgroundSource, len(doc.Bg))
	for name, node := range doc.Bg {
		node := node
		src, err := decodeBackground(name, &node)
		if err != nil {
			return nil, err
		}
		bg[name] = src
	}

	return New(cfg, bg, tasks)
}

func decodeConfig(raw rawConfig) (CascadeConfig, error) {
	tz := raw.DefaultTZ
	if tz == "" {
		tz = "Local"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return CascadeConfig{}, cerr.Wrap(cerr.InvalidInput, err, "invalid config.default_tz %q", tz)
	}
	timeout := raw.SolverTimeout
	if timeout == 0 {
		timeout = 120
	}
	return CascadeConfig{DefaultTZ: loc, Log: raw.Log, SolverTimeout: timeout}, nil
}

// hasKey reports whether a mapping-kind yaml.Node has a given key,
// used to discriminate Step from Goal before full decoding.
func hasKey(node *yaml.Node, key string) bool {
	if node.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}

func decodeTask(node *yaml.Node) (Task, error) {
	if hasKey(node, "subtasks") {
		var rg rawGoal
		if err := node.Decode(&rg); err != nil {
			return nil, cerr.Wrap(cerr.InvalidInput, err, "decoding goal task")
		}
		return goalFromRaw(rg)
	}
	var rs rawStep
	if err := node.Decode(&rs); err != nil {
		return nil, cerr.Wrap(cerr.InvalidInput, err, "decoding step task")
	}
	return stepFromRaw(rs)
}

func commonFromRaw(rc rawCommon) (Common, error) {
	id := rc.ID
	if id == "" {
		id = slug.Make(rc.Name)
	}
	if id == "" {
		return Common{}, cerr.New(cerr.InvalidInput, "task has no name or id")
	}

	c := Common{
		ID:       id,
		Name:     rc.Name,
		Desc:     rc.Desc,
		Tags:     rc.Tags,
		Priority: rc.Priority,
		Deps: Dependencies{
			Before: NewStringSet(rc.Deps.Before...),
			After:  NewStringSet(rc.Deps.After...),
		},
	}
	if c.Priority == 0 {
		c.Priority = 1
	}
	if rc.Timezone != "" {
		loc, err := time.LoadLocation(rc.Timezone)
		if err != nil {
			return Common{}, cerr.Wrap(cerr.InvalidInput, err, "task %q: invalid timezone %q", id, rc.Timezone)
		}
		c.Timezone = loc
	}
	if rc.Deadline != "" {
		ddl, err := time.Parse("2006-01-02T15:04:05", rc.Deadline)
		if err != nil {
			ddl, err = time.Parse(time.RFC3339, rc.Deadline)
		}
		if err != nil {
			return Common{}, cerr.Wrap(cerr.InvalidInput, err, "task %q: invalid deadline %q", id, rc.Deadline)
		}
		c.Deadline = &ddl
	}
	return c, nil
}

func stepFromRaw(rs rawStep) (Task, error) {
	c, err := commonFromRaw(rs.rawCommon)
	if err != nil {
		return nil, err
	}
	dur, err := parseDuration(rs.Duration)
	if err != nil {
		return nil, cerr.Wrap(cerr.InvalidInput, err, "task %q: invalid duration %q", c.ID, rs.Duration)
	}
	status := StatusTodo
	if rs.Status == string(StatusDone) {
		status = StatusDone
	}
	confidence := rs.Confidence
	if confidence == 0 {
		confidence = 1
	}
	return &Step{Common: c, Status: status, Duration: dur, Confidence: confidence}, nil
}

func goalFromRaw(rg rawGoal) (Task, error) {
	c, err := commonFromRaw(rg.rawCommon)
	if err != nil {
		return nil, err
	}
	if len(rg.Subtasks) == 0 {
		return nil, cerr.New(cerr.InvalidInput, "goal %q has no subtasks", c.ID)
	}
	return &Goal{Common: c, Subtasks: rg.Subtasks, ImplicitDepsByOrder: rg.ImplicitDepsByOrder}, nil
}

func decodeBackground(name string, node *yaml.Node) (BackgroundSource, error) {
	if hasKey(node, "url") {
		var rc rawBackgroundCalendar
		if err := node.Decode(&rc); err != nil {
			return nil, cerr.Wrap(cerr.InvalidInput, err, "decoding background calendar %q", name)
		}
		u, err := url.Parse(rc.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "file") {
			return nil, cerr.New(cerr.InvalidInput, "background calendar %q: invalid url %q (must be http(s):// or file://)", name, rc.URL)
		}
		return BackgroundCalendar{URL: rc.URL, Filter: rc.Filter, Whitelist: rc.Whitelist}, nil
	}

	var rt rawBackgroundTask
	if err := node.Decode(&rt); err != nil {
		return nil, cerr.Wrap(cerr.InvalidInput, err, "decoding background task %q", name)
	}
	if _, err := cron.ParseStandard(rt.Schedule); err != nil {
		return nil, cerr.Wrap(cerr.InvalidInput, err, "background task %q: invalid cron expression %q", name, rt.Schedule)
	}
	dur, err := parseDuration(rt.Duration)
	if err != nil {
		return nil, cerr.Wrap(cerr.InvalidInput, err, "background task %q: invalid duration %q", name, rt.Duration)
	}
	return BackgroundTask{Schedule: rt.Schedule, Duration: dur}, nil
}

// parseDuration accepts either a human string ("2h30m", "45m") via the
// standard library or a bare integer number of minutes.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	var minutes int
	if _, err := fmt.Sscanf(s, "%d", &minutes); err == nil {
		return time.Duration(minutes) * time.Minute, nil
	}
	return 0, fmt.Errorf("invalid duration %q", s)
}
