package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"

	"github.com/kraken-build/kraken/pkg/system"
)

// commandTask runs a shell command in its project's directory. Captured
// stdout is published as an output property so downstream tasks can consume
// it.
type commandTask struct {
	system.TaskSpec
	Command *system.Property[string]
	Stdout  *system.Property[string]
}

func newCommandTask(decl manifestTask) *commandTask {
	t := &commandTask{}
	t.Command = system.NewProperty[string](t, "command")
	t.Stdout = system.NewOutput[string](t, "stdout")
	t.Command.Set(decl.Command)
	t.Description = decl.Description
	t.Default = decl.Default
	return t
}

func (t *commandTask) Prepare() system.TaskStatus {
	if command, _ := t.Command.Get(); command == "" {
		return system.Skipped("no command configured")
	}
	return system.Pending("")
}

func (t *commandTask) Execute(ctx context.Context) system.TaskStatus {
	command, err := t.Command.Get()
	if err != nil {
		return system.Failed(err.Error())
	}

	var captured bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = t.Project().Directory()
	cmd.Stdout = io.MultiWriter(os.Stdout, &captured)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		var exit *exec.ExitError
		if errors.As(err, &exit) {
			return system.FromExitCode([]string{"sh", "-c", command}, exit.ExitCode())
		}
		return system.Failed(err.Error())
	}

	t.Stdout.Set(captured.String())
	return system.Succeeded("")
}
