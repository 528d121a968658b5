package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CoReason-AI/coreason-archive/internal/demoembed"
	"github.com/CoReason-AI/coreason-archive/pkg/archive"
	"github.com/CoReason-AI/coreason-archive/pkg/ingest"
	"github.com/CoReason-AI/coreason-archive/pkg/thought"
)

var (
	snapshotPath  string
	persistSQLite bool
	userID        string
	roles         []string
	projectIDs    []string
	deptIDs       []string
	clientIDs     []string
	activeProj    string
)

var rootCmd = &cobra.Command{
	Use:   "coreason-archive",
	Short: "Operate a hybrid neuro-symbolic memory cache",
	Long:  `A command-line harness for driving the archive's ingest, lookup and relocation operations from a terminal, mirroring how an integration test or operator would.`,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&snapshotPath, "snapshot", "archive.snapshot.json", "path to the thought store snapshot file")
	rootCmd.PersistentFlags().BoolVar(&persistSQLite, "sqlite", false, "persist the snapshot as a SQLite database instead of JSON")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "caller user id")
	rootCmd.PersistentFlags().StringSliceVar(&roles, "roles", nil, "caller roles")
	rootCmd.PersistentFlags().StringSliceVar(&projectIDs, "projects", nil, "caller project memberships")
	rootCmd.PersistentFlags().StringSliceVar(&deptIDs, "depts", nil, "caller department memberships")
	rootCmd.PersistentFlags().StringSliceVar(&clientIDs, "clients", nil, "caller client memberships")
	rootCmd.PersistentFlags().StringVar(&activeProj, "active-project", "", "caller's active project id, for graph boost")

	rootCmd.AddCommand(ingestCmd, lookupCmd, relocateCmd)
	relocateCmd.AddCommand(relocateRoleCmd, relocateSourceCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func callerContext() thought.UserContext {
	return thought.UserContext{
		UserID:          userID,
		Roles:           roles,
		ProjectIDs:      projectIDs,
		DeptIDs:         deptIDs,
		ClientIDs:       clientIDs,
		ActiveProjectID: activeProj,
	}
}

// openEngine constructs an Engine wired to the built-in demo Embedder
// and Extractor, loading snapshotPath if it exists.
func openEngine() (*archive.Engine, error) {
	cfg := archive.DefaultConfig(demoembed.New(64), demoembed.Extractor{})
	cfg.PersistSQLite = persistSQLite
	cfg.OnCacheHit = func(hit thought.CacheHit) {
		slog.Info("cache hit", "thought_id", hit.ThoughtID, "strategy", hit.Strategy, "estimated_saved_units", hit.EstimatedSavedUnits)
	}
	cfg.OnRelocationSummary = func(summary thought.RelocationSummary) {
		slog.Info("relocation summary", "user_id", summary.UserID, "retained", summary.Retained, "deleted", summary.Deleted, "re_tagged", summary.ReTagged)
	}

	e := archive.New(cfg)
	if _, err := os.Stat(snapshotPath); err == nil {
		if err := e.Load(snapshotPath); err != nil {
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
	}
	return e, nil
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run add_thought: cache a prompt/response pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt, _ := cmd.Flags().GetString("prompt")
		response, _ := cmd.Flags().GetString("response")
		trace, _ := cmd.Flags().GetString("reasoning-trace")
		scope, _ := cmd.Flags().GetString("scope")
		scopeID, _ := cmd.Flags().GetString("scope-id")
		ttl, _ := cmd.Flags().GetInt64("ttl-seconds")
		sourceURNs, _ := cmd.Flags().GetStringSlice("source-urns")

		normalizedScope := thought.Scope(strings.ToUpper(scope))
		if scopeID == "" {
			switch normalizedScope {
			case thought.ScopeUser:
				scopeID = userID
			case thought.ScopeGlobal:
				scopeID = thought.GlobalScopeID
			}
		}

		e, err := openEngine()
		if err != nil {
			return err
		}

		id, err := e.AddThought(context.Background(), ingest.Request{
			PromptText:     prompt,
			ReasoningTrace: trace,
			Response:       response,
			Scope:          normalizedScope,
			ScopeID:        scopeID,
			TTLSeconds:     ttl,
			SourceURNs:     sourceURNs,
		}, callerContext())
		if err != nil {
			return fmt.Errorf("ingest: %w", err)
		}

		if err := e.Snapshot(snapshotPath); err != nil {
			return fmt.Errorf("snapshot after ingest: %w", err)
		}
		fmt.Println(id)
		return nil
	},
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <query text>",
	Short: "Run smart_lookup against the cached thoughts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}

		result, err := e.SmartLookup(context.Background(), args[0], callerContext())
		if err != nil {
			return fmt.Errorf("lookup: %w", err)
		}

		encoded, err := json.MarshalIndent(map[string]any{
			"strategy": result.Strategy(),
			"result":   result,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		fmt.Println(string(encoded))
		return nil
	},
}

var relocateCmd = &cobra.Command{
	Use:   "relocate",
	Short: "Dispatch a relocation event to the Relocation Manager",
}

var relocateRoleCmd = &cobra.Command{
	Use:   "role-update",
	Short: "Process a role-change event for --user",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}

		handle := e.HandleRoleUpdate(thought.RoleUpdate{UserID: userID})
		<-handle.Done()
		if err := handle.Err(); err != nil {
			return fmt.Errorf("role-update: %w", err)
		}
		return e.Snapshot(snapshotPath)
	},
}

var relocateSourceCmd = &cobra.Command{
	Use:   "source-update <source-urn>",
	Short: "Flag every thought citing source-urn as stale",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}

		handle := e.HandleSourceUpdated(thought.SourceUpdated{SourceURN: args[0]})
		<-handle.Done()
		if err := handle.Err(); err != nil {
			return fmt.Errorf("source-update: %w", err)
		}
		return e.Snapshot(snapshotPath)
	},
}

func init() {
	ingestCmd.Flags().String("prompt", "", "prompt text")
	ingestCmd.Flags().String("response", "", "final response text")
	ingestCmd.Flags().String("reasoning-trace", "", "reasoning trace text")
	ingestCmd.Flags().String("scope", "USER", "scope: USER, PROJECT, DEPARTMENT, CLIENT, or GLOBAL")
	ingestCmd.Flags().String("scope-id", "", "scope instance id")
	ingestCmd.Flags().Int64("ttl-seconds", 0, "ttl_seconds override; 0 uses the scope default")
	ingestCmd.Flags().StringSlice("source-urns", nil, "source document urns")
	_ = ingestCmd.MarkFlagRequired("prompt")
	_ = ingestCmd.MarkFlagRequired("response")
}
