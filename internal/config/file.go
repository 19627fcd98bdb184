package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wagiedev/agentpipe/internal/permission"
)

// File is the on-disk session description used by the agentpipe command.
//
//	command: /usr/local/bin/agent
//	args: ["--input-format", "stream-json", "--output-format", "stream-json"]
//	env:
//	  AGENT_LOG: debug
//	cwd: ~/work
//	control_timeout: 45s
//	permission_mode: acceptEdits
//	deny_tools: [Bash]
type File struct {
	Command           string            `yaml:"command"`
	Args              []string          `yaml:"args"`
	Env               map[string]string `yaml:"env"`
	Cwd               string            `yaml:"cwd"`
	MaxLineBytes      int               `yaml:"max_line_bytes"`
	ControlTimeout    time.Duration     `yaml:"control_timeout"`
	InitializeTimeout time.Duration     `yaml:"initialize_timeout"`
	PermissionMode    string            `yaml:"permission_mode"`
	DenyTools         []string          `yaml:"deny_tools"`
	FailClosed        bool              `yaml:"fail_closed"`
}

// LoadFile reads and parses a session file. Environment references in
// command and cwd are expanded.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session config: %w", err)
	}

	return ParseFile(data)
}

// ParseFile parses session file contents.
func ParseFile(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse session config: %w", err)
	}

	f.Command = os.ExpandEnv(f.Command)
	f.Cwd = os.ExpandEnv(f.Cwd)

	if f.Command == "" {
		return nil, fmt.Errorf("session config: command is required")
	}

	if f.PermissionMode != "" && !IsPermissionMode(f.PermissionMode) {
		return nil, fmt.Errorf("session config: unknown permission mode %q", f.PermissionMode)
	}

	return &f, nil
}

// Options converts the file into engine options. A non-empty deny list
// becomes the permission callback.
func (f *File) Options() *Options {
	opts := &Options{
		Command: &Command{
			Path:         f.Command,
			Args:         f.Args,
			Env:          f.Env,
			Cwd:          f.Cwd,
			MaxLineBytes: f.MaxLineBytes,
		},
		ControlTimeout:    f.ControlTimeout,
		InitializeTimeout: f.InitializeTimeout,
		PermissionMode:    NormalizePermissionMode(f.PermissionMode),
		FailClosed:        f.FailClosed,
	}

	if len(f.DenyTools) > 0 {
		opts.CanUseTool = permission.DenyTools(f.DenyTools...)
	}

	return opts
}
