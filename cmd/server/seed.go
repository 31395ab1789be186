package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fastygo/leadboard/domain"
	"github.com/fastygo/leadboard/internal/listing"
	"github.com/fastygo/leadboard/repository"
	"github.com/fastygo/leadboard/usecase"
	authUC "github.com/fastygo/leadboard/usecase/auth"
	leadUC "github.com/fastygo/leadboard/usecase/lead"
	taskUC "github.com/fastygo/leadboard/usecase/task"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the admin user and demo leads on an empty database",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if cfg.Admin.Password == "" {
			return errors.New("ADMIN_PASSWORD must be set to seed the admin user")
		}

		st, err := openStores(ctx, cfg, zapLogger)
		if err != nil {
			return err
		}
		defer st.close()

		auth := authUC.New(st.users, nil, authUC.Config{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, TTL: cfg.JWT.TTL}, zapLogger)
		if _, created, err := auth.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		} else if created {
			zapLogger.Info("admin user created", zap.String("username", cfg.Admin.Username))
		}

		journal := usecase.NewJournal(nil, zapLogger)
		leads := leadUC.New(st.leads, nil, journal, zapLogger)
		tasks := taskUC.New(st.tasks, st.leads, journal, zapLogger)

		ctx = usecase.ContextWithActor(ctx, cfg.Admin.Username)
		n, err := seedDemo(ctx, st.leads, leads, tasks, time.Now().UTC())
		if err != nil {
			return err
		}
		zapLogger.Info("seed complete", zap.Int("leads", n))
		return nil
	},
}

type demoTask struct {
	title       string
	description string
	due         time.Duration
	priority    domain.TaskPriority
}

type demoLead struct {
	input leadUC.CreateInput
	tasks []demoTask
}

func ptr[T any](v T) *T { return &v }

func demoLeads() []demoLead {
	return []demoLead{
		{
			input: leadUC.CreateInput{
				FirstName: "John", LastName: "Doe", Email: "john.doe@example.com",
				Phone: ptr("+1234567890"), Company: ptr("Acme Corp"), JobTitle: ptr("CTO"),
				Source: ptr(domain.LeadSourceWebsite), Status: ptr(domain.LeadStatusQualified),
				Notes: ptr("Interested in enterprise plan"),
			},
			tasks: []demoTask{{"Schedule demo call", "Show enterprise features", 48 * time.Hour, domain.TaskPriorityHigh}},
		},
		{
			input: leadUC.CreateInput{
				FirstName: "Jane", LastName: "Smith", Email: "jane.smith@example.com",
				Phone: ptr("+1987654321"), Company: ptr("Globex"), JobTitle: ptr("Marketing Director"),
				Source: ptr(domain.LeadSourceEmail), Status: ptr(domain.LeadStatusContacted),
				Notes: ptr("Follow up next week"),
			},
			tasks: []demoTask{{"Send marketing materials", "Include case studies", 24 * time.Hour, domain.TaskPriorityMedium}},
		},
		{
			input: leadUC.CreateInput{
				FirstName: "Bob", LastName: "Johnson", Email: "bob.johnson@example.com",
				Company: ptr("Initech"),
				Source:  ptr(domain.LeadSourceSocialMedia), Status: ptr(domain.LeadStatusNew),
			},
			tasks: []demoTask{{"Initial contact", "Introduce our services", 0, domain.TaskPriorityLow}},
		},
		{
			input: leadUC.CreateInput{
				FirstName: "Alice", LastName: "Williams", Email: "alice.w@example.com",
				Phone: ptr("+1555123456"), Company: ptr("Umbrella Corp"), JobTitle: ptr("Head of IT"),
				Source: ptr(domain.LeadSourceReferral), Status: ptr(domain.LeadStatusQualified),
				Notes: ptr("Referred by John Doe"),
			},
		},
		{
			input: leadUC.CreateInput{
				FirstName: "Charlie", LastName: "Brown", Email: "charlie.b@example.com",
				Company: ptr("Stark Industries"),
				Source:  ptr(domain.LeadSourceOther), Status: ptr(domain.LeadStatusUnqualified),
				Notes: ptr("Not a good fit currently"),
			},
			tasks: []demoTask{{"Follow up in 3 months", "Check if needs have changed", 90 * 24 * time.Hour, domain.TaskPriorityLow}},
		},
	}
}

// seedDemo inserts the demo leads and their tasks unless any lead exists.
func seedDemo(ctx context.Context, repo repository.LeadRepository, leads *leadUC.UseCase, tasks *taskUC.UseCase, now time.Time) (int, error) {
	existing, err := repo.Count(ctx, listing.NewLeadQuery("", "", ""))
	if err != nil {
		return 0, fmt.Errorf("count leads: %w", err)
	}
	if existing > 0 {
		return 0, nil
	}

	created := 0
	for _, demo := range demoLeads() {
		lead, err := leads.CreateLead(ctx, demo.input)
		if err != nil {
			return created, fmt.Errorf("seed lead %s: %w", demo.input.Email, err)
		}
		created++
		for _, t := range demo.tasks {
			_, err := tasks.CreateTask(ctx, taskUC.CreateInput{
				Title:       t.title,
				Description: ptr(t.description),
				DueDate:     ptr(now.Add(t.due)),
				Priority:    ptr(t.priority),
				Status:      ptr(domain.TaskStatusPending),
				LeadID:      ptr(lead.ID),
			})
			if err != nil {
				return created, fmt.Errorf("seed task %q: %w", t.title, err)
			}
		}
	}
	return created, nil
}
