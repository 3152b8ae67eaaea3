package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gonkalabs/codeblur/internal/session"
	"github.com/gonkalabs/codeblur/internal/store"
)

// step is one undoable CLI operation: the text it received and the state
// before it ran.
type step struct {
	Text  string          `json:"text"`
	State json.RawMessage `json:"state"`
}

// open locks the state file and loads the session from it.
func (a *app) open() (*store.Store, *session.Session, error) {
	st, err := store.Open(a.cfg.StatePath)
	if err != nil {
		return nil, nil, err
	}
	data, err := st.Read()
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	s := session.New(a.sessionConfig())
	if data != nil {
		s.Load(data)
	}
	if a.style != "" {
		if err := s.SetStyle(a.style); err != nil {
			st.Close()
			return nil, nil, err
		}
	}
	return st, s, nil
}

// view runs fn against the stored session without saving it.
func (a *app) view(fn func(s *session.Session) error) error {
	st, s, err := a.open()
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(s)
}

// mutate runs fn against the stored session and saves the result. The
// state before fn and its input are appended to the undo history.
func (a *app) mutate(input string, fn func(s *session.Session) error) error {
	st, s, err := a.open()
	if err != nil {
		return err
	}
	defer st.Close()

	before, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("cli: encode state: %w", err)
	}
	if err := fn(s); err != nil {
		return err
	}

	hist, err := readHistory(st)
	if err != nil {
		return err
	}
	hist = append(hist, step{Text: input, State: before})
	if len(hist) > session.UndoLimit {
		hist = hist[len(hist)-session.UndoLimit:]
	}
	if err := writeHistory(st, hist); err != nil {
		return err
	}
	return save(st, s)
}

// undo restores the most recent history step and returns its text.
func (a *app) undo() (string, error) {
	st, s, err := a.open()
	if err != nil {
		return "", err
	}
	defer st.Close()

	hist, err := readHistory(st)
	if err != nil {
		return "", err
	}
	if len(hist) == 0 {
		return "", session.ErrNothingToUndo
	}
	last := hist[len(hist)-1]
	if err := writeHistory(st, hist[:len(hist)-1]); err != nil {
		return "", err
	}
	s.Load(last.State)
	return last.Text, save(st, s)
}

func save(st *store.Store, s *session.Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("cli: encode state: %w", err)
	}
	if err := st.Write(data); err != nil {
		return err
	}
	slog.Debug("cli: state saved", "path", st.Path(), "mappings", s.Registry().Len())
	return nil
}

// readHistory returns the stored steps. A corrupt history is discarded.
func readHistory(st *store.Store) ([]step, error) {
	data, err := st.ReadHistory()
	if err != nil || data == nil {
		return nil, err
	}
	var hist []step
	if err := json.Unmarshal(data, &hist); err != nil {
		slog.Warn("cli: corrupt undo history, discarding", "path", st.HistoryPath(), "err", err)
		return nil, nil
	}
	return hist, nil
}

func writeHistory(st *store.Store, hist []step) error {
	data, err := json.Marshal(hist)
	if err != nil {
		return fmt.Errorf("cli: encode history: %w", err)
	}
	return st.WriteHistory(data)
}

// readInput reads the named file, or stdin when no file or "-" is given.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func isNothingToUndo(err error) bool {
	return errors.Is(err, session.ErrNothingToUndo)
}
