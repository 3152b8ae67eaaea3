package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonkalabs/codeblur/internal/store"
)

const source = `// fetch the acme account
function loadAcmeAccount(accountId) {
  return http.get("https://acme.example.com/accounts/" + accountId, 15000);
}
`

type harness struct {
	t     *testing.T
	dir   string
	state string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	for _, k := range []string{
		"CODEBLUR_STYLE", "CODEBLUR_NUMBER_THRESHOLD", "CODEBLUR_FULL_STRINGS",
		"CODEBLUR_DICTIONARY", "CODEBLUR_STATE", "CODEBLUR_LOG_LEVEL",
		"CODEBLUR_LOG_FORMAT", "CODEBLUR_LOG_FILE",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	dir := t.TempDir()
	return &harness{t: t, dir: dir, state: filepath.Join(dir, "state.json")}
}

// run executes one codeblur invocation against the harness state file.
func (h *harness) run(stdin string, args ...string) (string, string, error) {
	h.t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--state", h.state, "--config", h.config()}, args...))
	err := root.Execute()
	return out.String(), errOut.String(), err
}

// config writes an empty config file so the working directory is never
// consulted.
func (h *harness) config() string {
	path := filepath.Join(h.dir, "codeblur.yaml")
	if _, err := os.Stat(path); err != nil {
		require.NoError(h.t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o644))
	}
	return path
}

func (h *harness) mustRun(stdin string, args ...string) (string, string) {
	h.t.Helper()
	out, errOut, err := h.run(stdin, args...)
	require.NoError(h.t, err, errOut)
	return out, errOut
}

func (h *harness) file(name, content string) string {
	path := filepath.Join(h.dir, name)
	require.NoError(h.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestApplyRevealCycle(t *testing.T) {
	h := newHarness(t)
	input := h.file("account.js", source)

	blurred, status := h.mustRun("", "apply", input)
	assert.Contains(t, status, "BLUR")
	assert.Contains(t, status, "next ANON")
	assert.NotContains(t, blurred, "acme.example.com")

	anon, status := h.mustRun(blurred, "apply")
	assert.Contains(t, status, "ANON")
	assert.NotContains(t, anon, "15000")

	out, _ := h.mustRun("", "status")
	assert.Regexp(t, `next level:\s+NUKE`, out)

	revealed, status := h.mustRun(anon, "reveal", "--all")
	assert.Equal(t, source, revealed)
	assert.Contains(t, status, "revealed in")

	out, _ = h.mustRun("", "status")
	assert.Regexp(t, `next level:\s+BLUR`, out)
}

func TestApplyByLevel(t *testing.T) {
	h := newHarness(t)
	out, _ := h.mustRun("customer", "apply", "--level", "nuke")
	assert.Equal(t, "A001", out)

	out, _ = h.mustRun("the customer id", "apply", "--paste")
	assert.Equal(t, "the A001 id", out)

	_, _, err := h.run("x", "apply", "--level", "shred")
	assert.Error(t, err)

	_, _, err = h.run("x", "apply", "--paste", "--strings-only")
	assert.Error(t, err)
}

func TestStringsOnly(t *testing.T) {
	h := newHarness(t)
	out, _ := h.mustRun(`say("{greeting}")`, "apply", "--strings-only")
	assert.Equal(t, `say("STR001")`, out)
}

func TestUndoAcrossInvocations(t *testing.T) {
	h := newHarness(t)
	blurred, _ := h.mustRun(source, "apply")
	h.mustRun(blurred, "apply", "--level", "nuke")

	out, _ := h.mustRun("", "undo")
	assert.Equal(t, blurred, out)
	status, _ := h.mustRun("", "status")
	assert.Regexp(t, `next level:\s+ANON`, status)

	out, _ = h.mustRun("", "undo")
	assert.Equal(t, source, out)
	mappings, _ := h.mustRun("", "mappings")
	assert.Empty(t, mappings)

	out, errOut := h.mustRun("", "undo")
	assert.Empty(t, out)
	assert.Contains(t, errOut, "nothing to undo")
}

func TestClear(t *testing.T) {
	h := newHarness(t)
	h.mustRun("customer order", "apply", "--level", "nuke")

	_, errOut := h.mustRun("", "clear")
	assert.Contains(t, errOut, "cleared 2 mappings")
	out, _ := h.mustRun("", "mappings")
	assert.Empty(t, out)

	out, _ = h.mustRun("", "undo")
	assert.Empty(t, out)
	out, _ = h.mustRun("", "mappings", "--grep", "customer")
	assert.Regexp(t, `A001\s+customer`, out)
}

func TestPinAndMappings(t *testing.T) {
	h := newHarness(t)
	input := h.file("run.js", "acme.run(acme)")

	out, errOut := h.mustRun("", "pin", "acme", input)
	assert.Equal(t, "A001.run(A001)", out)
	assert.Contains(t, errOut, "acme -> A001")

	out, _ = h.mustRun("", "mappings", "--json")
	assert.JSONEq(t, `[{"original":"acme","placeholder":"A001"}]`, out)

	_, _, err := h.run("x", "pin", "two words")
	assert.Error(t, err)
}

func TestPercent(t *testing.T) {
	h := newHarness(t)
	out, _ := h.mustRun("A001 plain", "percent")
	assert.Equal(t, "50\n", out)
}

func TestScan(t *testing.T) {
	h := newHarness(t)
	out, errOut := h.mustRun("mail ops@acme.io", "scan")
	assert.Regexp(t, `5-16\s+email\s+path\s+"ops@acme.io"`, out)
	assert.NotContains(t, out, "identifier")
	assert.Contains(t, errOut, "1 findings")
}

func TestSanitize(t *testing.T) {
	h := newHarness(t)
	in := "const\u202Fx\u202F=\u202F5;"

	out, errOut := h.mustRun(in, "sanitize", "--report")
	assert.Equal(t, "const x = 5;", out)
	assert.Contains(t, errOut, "U+202F")
	assert.Contains(t, errOut, "spaces 3")

	out, _ = h.mustRun(in, "sanitize", "--spaces=false")
	assert.Equal(t, in, out)
}

func TestStyleFlagPersists(t *testing.T) {
	h := newHarness(t)
	h.mustRun("customer", "--style", "hacker", "apply", "--level", "nuke")

	out, _ := h.mustRun("", "status")
	assert.Regexp(t, `style:\s+hacker`, out)

	_, _, err := h.run("", "--style", "baroque", "status")
	assert.Error(t, err)
}

func TestLockedState(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(h.state+".lck", []byte(fmt.Sprintf("%d\n", os.Getppid())), 0o644))

	_, _, err := h.run("x", "apply")
	assert.ErrorIs(t, err, store.ErrLocked)
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	SetVersion("1.2.3", "abc", "today")
	out, _ := h.mustRun("", "version")
	assert.Contains(t, out, "codeblur 1.2.3")
	assert.Contains(t, out, "commit: abc")
}

func TestServeStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", h.config(), "serve", "--listen", "127.0.0.1:0", "--ttl", "0"})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)
	assert.NoError(t, root.ExecuteContext(ctx))
}
