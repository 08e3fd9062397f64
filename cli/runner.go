// Command execution for CLI commands.
//
// Information Hiding:
// - Application wiring (vault, engine, agent) hidden
// - Output formatting hidden

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/sagevault/sage/agent"
	"github.com/sagevault/sage/config"
	"github.com/sagevault/sage/llm"
	"github.com/sagevault/sage/memory"
	"github.com/sagevault/sage/retrieval"
	"github.com/sagevault/sage/storage"
	"github.com/sagevault/sage/tools"
	"github.com/sagevault/sage/vault"
)

// Options holds CLI execution options.
type Options struct {
	Provider string
	Model    string
	Strategy string
	Verbose  bool
}

// app bundles the wired application components.
type app struct {
	settings config.Settings
	vault    *vault.SqliteVault
	semantic *vault.SemanticIndex
	engine   *retrieval.Engine
	logger   *zap.Logger
}

func newApp(opts Options) (*app, error) {
	settings, err := config.New()
	if err != nil {
		return nil, err
	}
	if opts.Provider != "" {
		settings.LLM.Provider = opts.Provider
	}
	if opts.Model != "" {
		settings.LLM.Model = opts.Model
	}
	if opts.Strategy != "" {
		strategy, err := retrieval.ParseStrategy(opts.Strategy)
		if err != nil {
			return nil, err
		}
		settings.Retrieval.Strategy = strategy
		settings.Retrieval.Weights = retrieval.DefaultWeights(strategy)
		if settings.Retrieval.Fallback.Strategy == strategy {
			settings.Retrieval.Fallback.Enabled = false
		}
	}

	logger := zap.NewNop()
	if opts.Verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, fmt.Errorf("failed to build logger: %w", err)
		}
	}

	v, err := vault.OpenSqlite(settings.Paths.VaultDB)
	if err != nil {
		return nil, err
	}

	semantic, err := vault.OpenSemanticIndex(settings.Paths.SemanticDB, vault.NewLocalEmbedding())
	if err != nil {
		v.Close()
		return nil, err
	}

	engine, err := retrieval.NewEngine(buildSources(v, semantic), settings.Retrieval, logger)
	if err != nil {
		v.Close()
		return nil, err
	}

	return &app{
		settings: settings,
		vault:    v,
		semantic: semantic,
		engine:   engine,
		logger:   logger,
	}, nil
}

func (a *app) close() {
	a.vault.Close()
	_ = a.logger.Sync()
}

// buildSources adapts the vault's query functions to retrieval sources.
func buildSources(v *vault.SqliteVault, semantic *vault.SemanticIndex) retrieval.Sources {
	toResults := func(hits []vault.Hit) []retrieval.Result {
		results := make([]retrieval.Result, len(hits))
		for i, h := range hits {
			results[i] = retrieval.Result{ID: h.NoteID, Title: h.Title, Score: h.Score}
		}
		return results
	}

	return retrieval.Sources{
		Keyword: func(ctx context.Context, query string, limit int) ([]retrieval.Result, error) {
			hits, err := v.SearchKeyword(ctx, query, limit)
			if err != nil {
				return nil, err
			}
			return toResults(hits), nil
		},
		Semantic: func(ctx context.Context, query string, limit int) ([]retrieval.Result, error) {
			hits, err := semantic.Search(ctx, query, limit)
			if err != nil {
				return nil, err
			}
			return toResults(hits), nil
		},
		Graph: func(ctx context.Context, query string, limit int) ([]retrieval.Result, error) {
			hits, err := v.SearchGraph(ctx, query, limit)
			if err != nil {
				return nil, err
			}
			return toResults(hits), nil
		},
	}
}

func (a *app) buildAgent(conv *memory.Conversation) (*agent.Agent, error) {
	provider, err := llm.NewProvider(a.settings.LLM.Provider, a.settings.LLM.Model,
		uint32(a.settings.LLM.MaxTokens), float32(a.settings.LLM.Temperature))
	if err != nil {
		return nil, err
	}

	registry := tools.NewRegistry()
	for _, tool := range []tools.Tool{
		tools.NewSearchNotesTool(a.engine),
		tools.NewReadNoteTool(a.vault),
		tools.NewWriteNoteTool(a.vault, a.semantic),
		tools.NewRememberTool(conv),
	} {
		if err := registry.Register(tool); err != nil {
			return nil, err
		}
	}

	return agent.New(llm.NewClient(provider), registry, conv, a.settings.Agent, a.logger), nil
}

// Ask answers a single question with a fresh conversation.
func Ask(ctx context.Context, question string, opts Options) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.close()

	conv := memory.NewConversation()
	ag, err := a.buildAgent(conv)
	if err != nil {
		return err
	}

	answer, err := ag.Run(ctx, question)
	if err != nil {
		return err
	}

	printAnswer(answer, opts.Verbose)
	return nil
}

// Chat runs an interactive session, persisting conversation state
// under the given session ID. An empty ID starts a new session.
func Chat(ctx context.Context, sessionID string, opts Options) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.close()

	store, err := storage.OpenSqlite(a.settings.Paths.SessionDB)
	if err != nil {
		return err
	}
	defer store.Close()

	conv := memory.NewConversation()
	if sessionID == "" {
		sessionID = storage.NewSessionID()
		fmt.Printf("Started session %s\n", sessionID)
	} else {
		snapshot, err := store.LoadSession(ctx, sessionID)
		switch {
		case errors.Is(err, storage.ErrSessionNotFound):
			fmt.Printf("Started session %s\n", sessionID)
		case err != nil:
			return err
		default:
			if err := conv.Import(snapshot); err != nil {
				return fmt.Errorf("session %s is corrupt: %w", sessionID, err)
			}
			fmt.Printf("Resumed session %s (%d messages)\n", sessionID, conv.Len())
		}
	}

	ag, err := a.buildAgent(conv)
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Type a question, or 'exit' to quit.")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		answer, err := ag.Run(ctx, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		printAnswer(answer, opts.Verbose)

		snapshot, err := conv.Export()
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to snapshot session: %v\n", err)
			continue
		}
		if err := store.SaveSession(ctx, sessionID, snapshot); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to save session: %v\n", err)
		}
	}
	return scanner.Err()
}

// Index rebuilds the semantic index from every note in the vault.
func Index(ctx context.Context, opts Options) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.close()

	notes, err := a.vault.ListNotes(ctx, 0)
	if err != nil {
		return err
	}

	for _, note := range notes {
		if err := a.semantic.IndexNote(ctx, note); err != nil {
			return fmt.Errorf("failed to index %q: %w", note.Title, err)
		}
	}

	fmt.Printf("Indexed %d notes (%d embeddings).\n", len(notes), a.semantic.Count())
	return nil
}

// NoteAdd creates or updates a note directly.
func NoteAdd(ctx context.Context, title, content string, opts Options) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.close()

	tool := tools.NewWriteNoteTool(a.vault, a.semantic)
	result := tool.Execute(ctx, fmt.Sprintf(`{"title": %q, "content": %q}`, title, content))
	fmt.Println(result.Observation())
	if !result.IsOK() {
		return fmt.Errorf("note add failed")
	}
	return nil
}

// NoteShow prints a note by title.
func NoteShow(ctx context.Context, title string, opts Options) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.close()

	note, err := a.vault.GetNoteByTitle(ctx, title)
	if err != nil {
		return err
	}

	fmt.Printf("# %s\n\n%s\n", note.Title, note.Content)
	if len(note.Links) > 0 {
		fmt.Printf("\nLinks: %s\n", strings.Join(note.Links, ", "))
	}
	return nil
}

// NoteList prints stored notes, most recent first.
func NoteList(ctx context.Context, limit int, opts Options) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.close()

	notes, err := a.vault.ListNotes(ctx, limit)
	if err != nil {
		return err
	}
	if len(notes) == 0 {
		fmt.Println("The vault is empty.")
		return nil
	}

	for _, note := range notes {
		fmt.Printf("%-40s %s\n", note.Title, note.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func printAnswer(answer *agent.Answer, verbose bool) {
	fmt.Println(answer.Text)

	if verbose {
		fmt.Printf("\n[%s] confidence %.2f (%s), %d tool calls, %d steps\n",
			answer.Terminal, answer.Confidence.Overall, answer.Confidence.Level,
			len(answer.ToolCalls), len(answer.Steps))
		for _, call := range answer.ToolCalls {
			status := "ok"
			if !call.Success {
				status = "failed"
			}
			fmt.Printf("  %s (%s, %dms)\n", call.Name, status, call.DurationMs)
		}
	}
}
