package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sngm3741/dispatch-contact/api/internal/config"
	"github.com/sngm3741/dispatch-contact/api/internal/infrastructure/mongo"
	"github.com/sngm3741/dispatch-contact/api/internal/logger"
	publicapp "github.com/sngm3741/dispatch-contact/api/internal/public/application"
	"github.com/sngm3741/dispatch-contact/api/internal/public/domain"
)

const defaultSeed int64 = 20240601

type seedOptions struct {
	messageCount    int
	failureCount    int
	sourceCount     int
	dropCollections bool
	randomSeed      int64
}

var (
	firstNames = []string{"John", "Maria", "Wei", "Aisha", "Carlos", "Emma", "Raj", "Olga", "Kenji", "Fatima"}
	lastNames  = []string{"Doe", "Garcia", "Chen", "Okafor", "Silva", "Brown", "Patel", "Ivanova", "Sato", "Haddad"}
	companies  = []string{"Northline Logistics", "Blue Ridge Carriers", "Harbor Freight Co", "Summit Hauling", "Prairie Transport"}
	messages   = []string{
		"Looking for a quote on weekly dry van loads from Dallas to Atlanta.",
		"Do you dispatch for owner-operators with a single reefer?",
		"Need help with load boards and rate confirmations.",
		"Interested in your flatbed dispatch service. What are your fees?",
		"Please call me back about onboarding two trucks next month.",
	}
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/126.0 Safari/537.36",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 Version/17.5 Safari/605.1.15",
	}
	failureErrors = []string{
		"smtp dial mail.example:587: connection refused",
		"smtp send: 421 4.7.0 try again later",
		"smtp auth: 535 5.7.8 authentication failed",
	}
)

func main() {
	opts := parseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, cfg.Mongo)
	if err != nil {
		log.Fatal("failed to connect to mongo", zap.Error(err))
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	db := client.Database(cfg.Mongo.Database)
	if opts.dropCollections {
		for _, name := range []string{cfg.Mongo.MessageCollection, cfg.Mongo.FailedNotificationCollection} {
			if err := db.Collection(name).Drop(ctx); err != nil {
				log.Fatal("failed to drop collection", zap.String("collection", name), zap.Error(err))
			}
		}
		log.Info("dropped existing collections")
	}

	messageRepo := mongo.NewSubmissionRepository(db, cfg.Mongo.MessageCollection, cfg.Mongo.PingTimeout)
	failureRepo := mongo.NewFailedNotificationRepository(db, cfg.Mongo.FailedNotificationCollection)
	if err := messageRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal("failed to create message indexes", zap.Error(err))
	}
	if err := failureRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal("failed to create failed notification indexes", zap.Error(err))
	}

	rng := rand.New(rand.NewSource(opts.randomSeed))
	now := time.Now().UTC()

	submissions := generateSubmissions(rng, opts.messageCount, opts.sourceCount, now)
	stored := make([]domain.Submission, 0, len(submissions))
	for _, s := range submissions {
		id, err := messageRepo.Insert(ctx, s)
		if err != nil {
			log.Fatal("failed to insert message", zap.Error(err))
		}
		s.ID = id
		stored = append(stored, *s)
	}

	failures := generateFailures(rng, stored, opts.failureCount)
	for _, f := range failures {
		if err := failureRepo.RecordFailure(ctx, f); err != nil {
			log.Fatal("failed to insert failed notification", zap.Error(err))
		}
	}

	log.Info("seed complete",
		zap.Int("messages", len(stored)),
		zap.Int("failedNotifications", len(failures)),
		zap.String("database", cfg.Mongo.Database),
		zap.Int64("seed", opts.randomSeed),
	)
}

func parseFlags() seedOptions {
	var opts seedOptions
	flag.IntVar(&opts.messageCount, "messages", 50, "number of contact messages to insert")
	flag.IntVar(&opts.failureCount, "failures", 5, "number of failed notifications to insert")
	flag.IntVar(&opts.sourceCount, "sources", 8, "number of distinct client IPs")
	flag.BoolVar(&opts.dropCollections, "drop", false, "drop existing collections before seeding")
	flag.Int64Var(&opts.randomSeed, "seed", defaultSeed, "random seed for reproducible data")
	flag.Parse()

	if opts.sourceCount <= 0 {
		opts.sourceCount = 1
	}
	return opts
}

// generateSubmissions spreads messages over the last 30 days, oldest first.
func generateSubmissions(rng *rand.Rand, count, sources int, now time.Time) []*domain.Submission {
	ips := make([]string, sources)
	for i := range ips {
		ips[i] = fmt.Sprintf("198.51.100.%d", 10+i)
	}

	out := make([]*domain.Submission, 0, count)
	for i := 0; i < count; i++ {
		first := firstNames[rng.Intn(len(firstNames))]
		last := lastNames[rng.Intn(len(lastNames))]
		valid := domain.ValidSubmission{
			FirstName: first,
			LastName:  last,
			Email:     fmt.Sprintf("%s.%s%d@example.com", strings.ToLower(first), strings.ToLower(last), rng.Intn(100)),
		}
		if rng.Intn(2) == 0 {
			phone := fmt.Sprintf("555%07d", rng.Intn(10_000_000))
			valid.Phone = &phone
		}
		if rng.Intn(3) > 0 {
			company := companies[rng.Intn(len(companies))]
			valid.Company = &company
		}
		if rng.Intn(5) > 0 {
			message := messages[rng.Intn(len(messages))]
			valid.Message = &message
		}

		age := time.Duration(count-i) * (30 * 24 * time.Hour / time.Duration(count+1))
		origin := domain.Origin{
			SourceIP:  ips[rng.Intn(len(ips))],
			UserAgent: userAgents[rng.Intn(len(userAgents))],
		}
		out = append(out, domain.NewSubmission(valid, origin, now.Add(-age)))
	}
	return out
}

func generateFailures(rng *rand.Rand, stored []domain.Submission, count int) []publicapp.NotificationFailure {
	if len(stored) == 0 {
		return nil
	}
	out := make([]publicapp.NotificationFailure, 0, count)
	for i := 0; i < count; i++ {
		s := stored[rng.Intn(len(stored))]
		out = append(out, publicapp.NotificationFailure{
			SubmissionID: s.ID,
			Recipient:    s.Email,
			Kind:         publicapp.KindConfirmation,
			Err:          errors.New(failureErrors[rng.Intn(len(failureErrors))]),
			Attempts:     1,
			OccurredAt:   s.CreatedAt.Add(time.Duration(rng.Intn(30)) * time.Second),
		})
	}
	return out
}
