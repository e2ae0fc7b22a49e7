package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ctlmanager/ctlmanager/internal/audit"
	"github.com/ctlmanager/ctlmanager/internal/auth"
	"github.com/ctlmanager/ctlmanager/internal/config"
	"github.com/ctlmanager/ctlmanager/internal/database"
	"github.com/ctlmanager/ctlmanager/internal/logger"
	"github.com/ctlmanager/ctlmanager/internal/model"
	"github.com/ctlmanager/ctlmanager/internal/repository"
	"github.com/ctlmanager/ctlmanager/internal/service"
	"github.com/spf13/cobra"
)

// app bundles the wired services for command handlers
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	db        *database.Postgres
	authSvc   *service.AuthService
	userSvc   *service.UserService
	jobSvc    *service.JobService
	groupSvc  *service.GroupService
	auditRepo *repository.AuditRepository
}

// setup loads configuration and wires repositories and services
func setup() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Audit.SourceHost != "" {
		audit.SetSourceHost(cfg.Audit.SourceHost)
	}

	auditRepo := repository.NewAuditRepository(db)
	tags := model.AlgorithmTags{
		Preferred: cfg.Security.Password.PreferredAlgo,
		Legacy:    cfg.Security.Password.LegacyAlgo,
	}
	userRepo := repository.NewUserRepository(db, auditRepo, cfg.Schema, tags)
	jobRepo := repository.NewJobRepository(db, auditRepo)
	groupRepo := repository.NewGroupRepository(db, auditRepo)

	verifier := auth.NewVerifier(auth.NewParams(
		cfg.Security.Password.Argon2Memory,
		cfg.Security.Password.Argon2Iterations,
		cfg.Security.Password.Argon2Parallelism,
	))

	return &app{
		cfg:       cfg,
		log:       log,
		db:        db,
		authSvc:   service.NewAuthService(userRepo, verifier, log),
		userSvc:   service.NewUserService(userRepo, verifier, cfg.Security.Password.MinLength, log),
		jobSvc:    service.NewJobService(jobRepo, groupRepo, log),
		groupSvc:  service.NewGroupService(groupRepo, log),
		auditRepo: auditRepo,
	}, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}

// actorPtr converts the --actor flag into the nullable actor identity
// recorded on audit entries.
func actorPtr() *string {
	if actorFlag == "" {
		return nil
	}
	return &actorFlag
}

var actorFlag string

var rootCmd = &cobra.Command{
	Use:   "ctlmanager",
	Short: "Administrative tool for managing jobs, groups and users",
}

// --- login / passwd ---

var (
	loginUsername string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Verify a username/password pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.close()

		result, err := a.authSvc.Login(context.Background(), loginUsername, loginPassword)
		if err != nil {
			return err
		}

		fmt.Printf("Authenticated as %s (role: %s)\n", result.Username, result.RoleCode)
		if result.MustChangePassword {
			fmt.Println("Password rotation required: change your password with 'ctlmanager passwd' before continuing.")
		}
		return nil
	},
}

var (
	passwdUsername string
	passwdCurrent  string
	passwdNew      string
)

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change your own password",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.close()

		err = a.userSvc.ChangeOwnPassword(context.Background(), service.ChangeOwnPasswordRequest{
			Username:        passwdUsername,
			CurrentPassword: passwdCurrent,
			NewPassword:     passwdNew,
		})
		if err != nil {
			return err
		}

		fmt.Println("Password changed.")
		return nil
	},
}

// --- user ---

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var (
	userUsername    string
	userDisplayName string
	userEmail       string
	userRole        string
	userPassword    string
	userActive      bool
	userMustChange  bool
	userLimit       int
)

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new user (active, with forced password change at first login)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.close()

		err = a.userSvc.CreateUser(context.Background(), service.CreateUserRequest{
			Actor:           actorPtr(),
			Username:        userUsername,
			DisplayName:     userDisplayName,
			Email:           userEmail,
			RoleCode:        userRole,
			InitialPassword: userPassword,
		})
		if err != nil {
			return err
		}

		fmt.Printf("User %s created.\n", userUsername)
		return nil
	},
}

var userUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update a user's profile (password untouched)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.close()

		err = a.userSvc.UpdateUser(context.Background(), actorPtr(),
			userUsername, userDisplayName, userEmail, userRole, userActive)
		if err != nil {
			return err
		}

		fmt.Printf("User %s updated.\n", userUsername)
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.close()

		users, err := a.userSvc.ListUsers(context.Background(), userLimit)
		if err != nil {
			return err
		}

		fmt.Printf("%-20s %-30s %-10s %-7s %-11s\n", "USERNAME", "DISPLAY NAME", "ROLE", "ACTIVE", "MUST-CHANGE")
		for _, u := range users {
			fmt.Printf("%-20s %-30s %-10s %-7v %-11v\n",
				u.Username, u.DisplayName, u.Role, u.IsActive, u.MustChangePassword)
		}
		return nil
	},
}

var userSetPasswordCmd = &cobra.Command{
	Use:   "set-password",
	Short: "Set a user's password (administrative, no current-password proof)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.close()

		err = a.userSvc.AdminChangePassword(context.Background(), service.AdminChangePasswordRequest{
			TargetUsername:     userUsername,
			NewPassword:        userPassword,
			MustChangePassword: userMustChange,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Password set for %s.\n", userUsername)
		return nil
	},
}

var userResetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Issue a temporary password (forces a change at next login)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.userSvc.ResetPassword(context.Background(), userUsername, userPassword); err != nil {
			return err
		}

		fmt.Printf("Temporary password set for %s; a change is required at next login.\n", userUsername)
		return nil
	},
}

// --- job ---

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Manage jobs",
}

var (
	jobID       int64
	jobType     string
	jobName     string
	jobGroup    string
	jobSeverity int
	jobSearch   string
	jobLimit    int
)

var jobAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a new job",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.close()

		id, err := a.jobSvc.AddJob(context.Background(), actorPtr(), jobType, jobName, jobGroup, jobSeverity)
		if err != nil {
			return err
		}

		fmt.Printf("Job %d created.\n", id)
		return nil
	},
}

var jobUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update an existing job",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.close()

		err = a.jobSvc.UpdateJob(context.Background(), actorPtr(), jobID, jobType, jobName, jobGroup, jobSeverity)
		if err != nil {
			return err
		}

		fmt.Printf("Job %d updated.\n", jobID)
		return nil
	},
}

var jobListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.close()

		jobs, err := a.jobSvc.ListJobs(context.Background(), jobSearch, jobLimit)
		if err != nil {
			return err
		}

		fmt.Printf("%-6s %-12s %-30s %-12s %-25s %-9s\n", "ID", "TYPE", "JOB NAME", "GROUP", "SERVICE", "SEVERITY")
		for _, j := range jobs {
			fmt.Printf("%-6d %-12s %-30s %-12s %-25s %-9d\n",
				j.ID, j.Type, j.JobName, j.GroupCode, j.ServiceName, j.Severity)
		}
		return nil
	},
}

// --- group ---

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage groups",
}

var (
	groupCode    string
	groupName    string
	groupService string
	groupLimit   int
)

var groupAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a new group",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.groupSvc.AddGroup(context.Background(), actorPtr(), groupCode, groupName, groupService); err != nil {
			return err
		}

		fmt.Printf("Group %s created.\n", groupCode)
		return nil
	},
}

var groupUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update an existing group",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.groupSvc.UpdateGroup(context.Background(), actorPtr(), groupCode, groupName, groupService); err != nil {
			return err
		}

		fmt.Printf("Group %s updated.\n", groupCode)
		return nil
	},
}

var groupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.close()

		groups, err := a.groupSvc.ListGroups(context.Background(), groupLimit)
		if err != nil {
			return err
		}

		fmt.Printf("%-12s %-30s %-25s\n", "CODE", "NAME", "SERVICE")
		for _, g := range groups {
			fmt.Printf("%-12s %-30s %-25s\n", g.GroupCode, g.GroupName, g.ServiceName)
		}
		return nil
	},
}

// --- audit ---

var auditLimit int

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit log",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent audit entries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.close()

		entries, err := a.auditRepo.List(context.Background(), auditLimit)
		if err != nil {
			return err
		}

		for _, e := range entries {
			actor := "-"
			if e.ActorUsername != nil {
				actor = *e.ActorUsername
			}
			fmt.Printf("%s  %-6s %-8s %-20s %s\n",
				e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action, e.EntityName, actor, e.Summary)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&actorFlag, "actor", "", "acting username recorded on audit entries")

	loginCmd.Flags().StringVar(&loginUsername, "username", "", "username")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "password")
	loginCmd.MarkFlagRequired("username")
	loginCmd.MarkFlagRequired("password")

	passwdCmd.Flags().StringVar(&passwdUsername, "username", "", "username")
	passwdCmd.Flags().StringVar(&passwdCurrent, "current", "", "current password")
	passwdCmd.Flags().StringVar(&passwdNew, "new", "", "new password")
	passwdCmd.MarkFlagRequired("username")
	passwdCmd.MarkFlagRequired("current")
	passwdCmd.MarkFlagRequired("new")

	for _, c := range []*cobra.Command{userCreateCmd, userUpdateCmd, userSetPasswordCmd, userResetPasswordCmd} {
		c.Flags().StringVar(&userUsername, "username", "", "username")
		c.MarkFlagRequired("username")
	}
	userCreateCmd.Flags().StringVar(&userDisplayName, "display-name", "", "display name")
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "email address")
	userCreateCmd.Flags().StringVar(&userRole, "role", "", "role: admin, operator or viewer")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "initial password")
	userUpdateCmd.Flags().StringVar(&userDisplayName, "display-name", "", "display name")
	userUpdateCmd.Flags().StringVar(&userEmail, "email", "", "email address")
	userUpdateCmd.Flags().StringVar(&userRole, "role", "", "role: admin, operator or viewer")
	userUpdateCmd.Flags().BoolVar(&userActive, "active", true, "account active flag")
	userSetPasswordCmd.Flags().StringVar(&userPassword, "password", "", "new password")
	userSetPasswordCmd.Flags().BoolVar(&userMustChange, "must-change", false, "force a password change at next login")
	userResetPasswordCmd.Flags().StringVar(&userPassword, "temp-password", "", "temporary password")
	userListCmd.Flags().IntVar(&userLimit, "limit", 2000, "maximum rows")

	userCmd.AddCommand(userCreateCmd, userUpdateCmd, userListCmd, userSetPasswordCmd, userResetPasswordCmd)

	for _, c := range []*cobra.Command{jobAddCmd, jobUpdateCmd} {
		c.Flags().StringVar(&jobType, "type", "", "job type")
		c.Flags().StringVar(&jobName, "name", "", "job name")
		c.Flags().StringVar(&jobGroup, "group", "", "group code")
		c.Flags().IntVar(&jobSeverity, "severity", 4, "severity: 3 (high), 4 (medium), 5 (low)")
	}
	jobUpdateCmd.Flags().Int64Var(&jobID, "id", 0, "job id")
	jobUpdateCmd.MarkFlagRequired("id")
	jobListCmd.Flags().StringVar(&jobSearch, "search", "", "filter by job name, group code, group name or service name")
	jobListCmd.Flags().IntVar(&jobLimit, "limit", 2000, "maximum rows")

	jobCmd.AddCommand(jobAddCmd, jobUpdateCmd, jobListCmd)

	for _, c := range []*cobra.Command{groupAddCmd, groupUpdateCmd} {
		c.Flags().StringVar(&groupCode, "code", "", "group code")
		c.Flags().StringVar(&groupName, "name", "", "group name")
		c.Flags().StringVar(&groupService, "service", "", "service name")
		c.MarkFlagRequired("code")
	}
	groupListCmd.Flags().IntVar(&groupLimit, "limit", 2000, "maximum rows")

	groupCmd.AddCommand(groupAddCmd, groupUpdateCmd, groupListCmd)

	auditListCmd.Flags().IntVar(&auditLimit, "limit", 100, "maximum rows")
	auditCmd.AddCommand(auditListCmd)

	rootCmd.AddCommand(loginCmd, passwdCmd, userCmd, jobCmd, groupCmd, auditCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
