package relocation

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strings"

	"github.com/matzehuels/depfetch/pkg/errors"
)

// Provider applies relocation rules to the artifact at from, writing the
// result to to.
type Provider interface {
	Run(ctx context.Context, from, to string, rules []Rule) error
}

// Func adapts a function to [Provider].
type Func func(ctx context.Context, from, to string, rules []Rule) error

// Run calls f.
func (f Func) Run(ctx context.Context, from, to string, rules []Rule) error {
	return f(ctx, from, to, rules)
}

// Exec runs an external relocation tool.
//
// Each argument is expanded with "{from}", "{to}" and "{rules}" replaced by
// the input path, output path and the path of a temporary JSON file holding
// the rules. For example:
//
//	relocation.Exec{Command: "java", Args: []string{"-jar", "relocator.jar", "{from}", "{to}", "{rules}"}}
type Exec struct {
	Command string
	Args    []string
	Env     []string // appended to the current environment
}

// Run executes the command and fails with a collaborator error when it
// exits non-zero or does not produce the output file.
func (e Exec) Run(ctx context.Context, from, to string, rules []Rule) error {
	if e.Command == "" {
		return errors.New(errors.ErrCodeConfiguration, "relocation command not configured")
	}

	rulesFile, err := writeRules(rules)
	if err != nil {
		return errors.Wrap(errors.ErrCodeCollaborator, err, "write relocation rules")
	}
	defer os.Remove(rulesFile)

	r := strings.NewReplacer("{from}", from, "{to}", to, "{rules}", rulesFile)
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = r.Replace(a)
	}

	cmd := exec.CommandContext(ctx, e.Command, args...)
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		return errors.Wrap(errors.ErrCodeCollaborator, err, "relocate %s: %s", from, msg)
	}
	if _, err := os.Stat(to); err != nil {
		return errors.Wrap(errors.ErrCodeCollaborator, err, "relocate %s: no output written", from)
	}
	return nil
}

func writeRules(rules []Rule) (string, error) {
	f, err := os.CreateTemp("", "depfetch-rules-*.json")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(rules); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

var (
	_ Provider = Func(nil)
	_ Provider = Exec{}
)
