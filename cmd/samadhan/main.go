package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"samadhan/internal/app"
	"samadhan/internal/config"
	"samadhan/internal/db"
	"samadhan/internal/domain"
	"samadhan/internal/engine"
	"samadhan/internal/migrate"
	"samadhan/internal/repo"
	"samadhan/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "samadhan",
	Short: "Samadhan CLI",
	Long: `Samadhan triages citizen grievances with keyword classification.
Core concepts:
- Workspace: the .samadhan directory holding the grievance database.
- Grievance: one citizen complaint with category, sentiment, and priority
  filled in by the classifier at intake; they flow open -> processing ->
  resolved -> closed, and any step may be revisited.
- Department: the routing target derived from the category (water_supply,
  roads, sanitation, ...); labels come from samadhan.yml.
- Suggestions: ordered handling advisories derived from priority,
  category, and sentiment ('samadhan grievance suggest <id>').
- Event log: diary of every change, view with 'samadhan log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("SAMADHAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(grievanceCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(departmentsCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(serveCmd())
}

func grievanceCmd() *cobra.Command {
	g := &cobra.Command{
		Use:   "grievance",
		Short: "Manage grievances",
		Long:  "Grievances are citizen complaints. Intake classifies each one (category, sentiment, priority, summary) and routes it to a department; officers then move it through open -> processing -> resolved -> closed.",
	}
	g.AddCommand(grievanceSubmitCmd())
	g.AddCommand(grievanceListCmd())
	g.AddCommand(grievanceShowCmd())
	g.AddCommand(grievanceStatusCmd())
	g.AddCommand(grievanceAssignCmd())
	g.AddCommand(grievanceActionCmd())
	g.AddCommand(grievanceReclassifyCmd())
	g.AddCommand(grievanceSuggestCmd())
	g.AddCommand(grievanceSimilarCmd())
	return g
}

func grievanceSubmitCmd() *cobra.Command {
	var opts engine.SubmitOptions
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a grievance",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				g, err := e.Submit(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(g)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "grievance id (optional, UUID if omitted)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.SubmittedBy, "submitted-by", "", "citizen name")
	cmd.Flags().StringVar(&opts.ContactNumber, "contact", "", "contact number")
	cmd.Flags().StringVar(&opts.Location, "location", "", "location")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func grievanceListCmd() *cobra.Command {
	var f repo.GrievanceFilters
	var cursor string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List grievances",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if cursor != "" {
					parts := strings.SplitN(cursor, "|", 2)
					if len(parts) != 2 {
						return fmt.Errorf("invalid cursor %q", cursor)
					}
					f.CursorCreatedAt, f.CursorID = parts[0], parts[1]
				}
				items, err := r.ListGrievances(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Category", "Priority", "Status", "Assigned To"})
				for _, g := range items {
					assignee := ""
					if g.AssignedTo != nil {
						assignee = *g.AssignedTo
					}
					tw.AppendRow(table.Row{g.ID, g.Title, g.Category, g.Priority, g.Status, assignee})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.Category, "category", "", "category filter")
	cmd.Flags().StringVar(&f.Priority, "priority", "", "priority filter")
	cmd.Flags().StringVar(&f.SubmittedBy, "submitted-by", "", "citizen filter")
	cmd.Flags().StringVar(&f.AssignedTo, "assigned-to", "", "assignee filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 50, "max results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "pagination cursor (created_at|id)")
	return cmd
}

func grievanceShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show grievance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				g, err := r.GetGrievance(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(g)
			})
		},
	}
	return cmd
}

func grievanceStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-status <id> <status>",
		Short: "Update grievance status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				g, err := e.SetStatus(ctx, args[0], domain.Status(args[1]), viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(g)
			})
		},
	}
	return cmd
}

func grievanceAssignCmd() *cobra.Command {
	var assignee string
	cmd := &cobra.Command{
		Use:   "assign <id>",
		Short: "Assign grievance to an officer (empty --to clears)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				g, err := e.Assign(ctx, args[0], assignee, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(g)
			})
		},
	}
	cmd.Flags().StringVar(&assignee, "to", "", "officer or department handle")
	return cmd
}

func grievanceActionCmd() *cobra.Command {
	var action string
	cmd := &cobra.Command{
		Use:   "action <id>",
		Short: "Record action taken",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				g, err := e.RecordAction(ctx, args[0], action, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(g)
			})
		},
	}
	cmd.Flags().StringVar(&action, "note", "", "action description")
	_ = cmd.MarkFlagRequired("note")
	return cmd
}

func grievanceReclassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reclassify <id>",
		Short: "Re-run classification over the stored description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				g, err := e.Reclassify(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(g)
			})
		},
	}
	return cmd
}

func grievanceSuggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest <id>",
		Short: "Show handling suggestions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				suggestions, err := e.Suggestions(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(suggestions)
				}
				for i, s := range suggestions {
					fmt.Printf("%d. %s\n", i+1, s)
				}
				return nil
			})
		},
	}
	return cmd
}

func grievanceSimilarCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "similar <id>",
		Short: "List grievances routed to the same department",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Similar(ctx, args[0], limit)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "max results")
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show workspace status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				counts, err := e.Repo.CountGrievancesByStatus(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{
						"instance":         e.Config.Instance.ID,
						"grievance_counts": counts,
					})
				}
				fmt.Printf("Instance: %s\n", e.Config.Instance.ID)
				fmt.Println("Grievances:")
				for _, s := range domain.Statuses {
					fmt.Printf("  %s: %d\n", s, counts[s])
				}
				return nil
			})
		},
	}
	return cmd
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard statistics",
		Long:  "See the scoreboard: per-department resolution rates, priority and status breakdowns, and overall counts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				stats, err := e.Stats(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(stats)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Department", "Total", "Open", "Processing", "Resolved", "% Resolved"})
				for _, d := range stats.Departments {
					tw.AppendRow(table.Row{d.Label, d.Total, d.Open, d.Processing, d.Resolved, d.PercentResolved})
				}
				tw.Render()
				fmt.Printf("Overall: %d total, %d open, %d resolved, %d critical\n",
					stats.Overall.Total, stats.Overall.Open, stats.Overall.Resolved, stats.Overall.Critical)
				return nil
			})
		},
	}
	return cmd
}

func departmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "departments",
		Short: "List routing departments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if viper.GetBool("json") {
					out := make([]map[string]string, 0, len(domain.Departments))
					for _, d := range domain.Departments {
						out = append(out, map[string]string{"id": string(d), "label": e.Config.Label(d)})
					}
					return printJSON(out)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Label", "Default Assignee"})
				for _, d := range domain.Departments {
					tw.AppendRow(table.Row{string(d), e.Config.Label(d), e.Config.DefaultAssignee(d)})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage workspace config"}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var instanceID string
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default samadhan.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(instanceID)), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&instanceID, "id", app.DefaultInstanceID, "instance id")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ResolveConfig(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{Use: "log", Short: "Inspect the event log"}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.LatestEvents(ctx, n, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

// seedFixture mirrors one sample complaint used for demos.
type seedFixture struct {
	title       string
	description string
	submittedBy string
	contact     string
	location    string
	status      domain.Status
	assignedTo  string
	actionTaken string
}

var seedFixtures = []seedFixture{
	{
		title:       "Water supply disruption in Gomti Nagar",
		description: "We have not received water supply in our area for the last 3 days. This is causing severe problems for all residents. Multiple complaints to the local office have gone unheeded.",
		submittedBy: "Rajesh Kumar",
		contact:     "9876543210",
		location:    "Gomti Nagar, Lucknow",
		status:      domain.StatusOpen,
	},
	{
		title:       "Damaged road causing accidents",
		description: "The main road in Indira Nagar has large potholes that have caused multiple accidents in the past week. Two-wheeler riders are especially at risk. This needs immediate attention.",
		submittedBy: "Sunita Sharma",
		contact:     "8765432109",
		location:    "Indira Nagar, Lucknow",
		status:      domain.StatusProcessing,
		assignedTo:  "Public Works Department, Lucknow Division",
	},
	{
		title:       "Power outages in Aliganj area",
		description: "We are facing frequent power cuts in Aliganj for the past week. The electricity goes out for 4-5 hours daily without any prior notice. This is particularly difficult as many people are working from home.",
		submittedBy: "Amit Singh",
		contact:     "7654321098",
		location:    "Aliganj, Lucknow",
		status:      domain.StatusOpen,
	},
	{
		title:       "Appreciation for new healthcare center",
		description: "I would like to express my gratitude for the new healthcare center opened in Indiranagar. The facilities are excellent and the staff is very helpful. This has made access to healthcare much easier for residents.",
		submittedBy: "Priya Verma",
		contact:     "6543210987",
		location:    "Indiranagar, Lucknow",
		status:      domain.StatusClosed,
		actionTaken: "Feedback forwarded to Health Department for acknowledgment.",
	},
	{
		title:       "Irregular garbage collection",
		description: "The garbage collection in Vikas Nagar has been very irregular. Sometimes they don't come for days, leading to garbage piling up and causing health hazards. Please look into this matter.",
		submittedBy: "Mohammad Faiz",
		contact:     "5432109876",
		location:    "Vikas Nagar, Lucknow",
		status:      domain.StatusProcessing,
		assignedTo:  "Municipal Corporation, Sanitation Division",
	},
	{
		title:       "Stray dog menace in residential area",
		description: "There are packs of stray dogs in our residential area that have become aggressive. Children are afraid to play outside. We need animal control to address this safely.",
		submittedBy: "Vikram Khanna",
		contact:     "4321098765",
		location:    "Jankipuram, Lucknow",
		status:      domain.StatusOpen,
	},
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load sample grievances for demos",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor := viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				for _, fx := range seedFixtures {
					g, err := e.Submit(ctx, engine.SubmitOptions{
						Title:         fx.title,
						Description:   fx.description,
						SubmittedBy:   fx.submittedBy,
						ContactNumber: fx.contact,
						Location:      fx.location,
						ActorID:       actor,
					})
					if err != nil {
						return err
					}
					if fx.assignedTo != "" {
						if _, err := e.Assign(ctx, g.ID, fx.assignedTo, actor); err != nil {
							return err
						}
					}
					if fx.actionTaken != "" {
						if _, err := e.RecordAction(ctx, g.ID, fx.actionTaken, actor); err != nil {
							return err
						}
					}
					if fx.status != domain.StatusOpen {
						if _, err := e.SetStatus(ctx, g.ID, fx.status, actor); err != nil {
							return err
						}
					}
					fmt.Printf("seeded %s (%s, %s)\n", g.ID, g.Category, g.Priority)
				}
				return nil
			})
		},
	}
	return cmd
}

func apikeyCmd() *cobra.Command {
	key := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	key.AddCommand(apikeyCreateCmd())
	key.AddCommand(apikeyListCmd())
	key.AddCommand(apikeyRevokeCmd())
	return key
}

func apikeyCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key for the current actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				raw := uuid.New().String()
				key := domain.APIKey{
					ID:      uuid.New().String(),
					ActorID: viper.GetString("actor-id"),
					Name:    name,
					KeyHash: repo.HashAPIKey(raw),
				}
				if err := r.InsertAPIKey(ctx, key); err != nil {
					return err
				}
				// The raw key is printed once and never stored.
				fmt.Printf("id: %s\nkey: %s\n", key.ID, raw)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "key label")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	var actor string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				keys, err := r.ListAPIKeys(ctx, actor)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(keys)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Actor", "Name", "Created"})
				for _, k := range keys {
					tw.AppendRow(table.Row{k.ID, k.ActorID, k.Name, k.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "filter by actor id")
	return cmd
}

func apikeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteAPIKey(ctx, args[0])
			})
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var devLogin bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := app.ResolveConfig(workspace)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			authCfg := server.AuthConfig{
				JWTSecret:              os.Getenv("SAMADHAN_JWT_SECRET"),
				AllowLegacyActorHeader: cfg.Auth.AllowLegacyActorHeader,
				EnableDevLogin:         devLogin || cfg.Auth.DevTokens,
			}
			if authCfg.JWTSecret == "" {
				authCfg.JWTSecret = cfg.Auth.JWTSecret
			}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("SAMADHAN_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Samadhan API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	cmd.Flags().BoolVar(&devLogin, "dev-login", false, "enable POST /auth/dev/login (local testing only)")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := app.ResolveConfig(workspace)
	if err != nil {
		return err
	}
	return fn(ctx, engine.New(conn, cfg))
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
