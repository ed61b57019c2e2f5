// Package main provides a tool to seed the event store with demo habits and competitions.
//
// It creates a handful of users with one habit of each type, logs randomized
// activity over the past few weeks, opens one competition per goal type
// covering the current month, runs a sweep and prints a bearer token per user.
//
// Usage:
//
//	go run ./cmd/seed --data-path ~/HabitLeague/data
//	go run ./cmd/seed --seed-users 8 --seed-days 30
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"github.com/samber/do/v2"

	"github.com/habitleague/habitleague-server/internal/auth"
	"github.com/habitleague/habitleague-server/internal/calendar"
	"github.com/habitleague/habitleague-server/internal/di"
	"github.com/habitleague/habitleague-server/internal/domain"
	"github.com/habitleague/habitleague-server/internal/service"
)

var (
	numUsers = flag.Int("seed-users", 5, "Number of demo users to create")
	numDays  = flag.Int("seed-days", 21, "Days of history to generate per habit")
)

type demoHabit struct {
	name      string
	habitType domain.HabitType
	target    *float64
}

var demoHabits = []demoHabit{
	{"Morning run", domain.HabitTypeYesNo, nil},
	{"Pages read", domain.HabitTypeMeasurable, domain.Float(20)},
	{"Doomscrolling", domain.HabitTypeBad, nil},
}

func main() {
	// The container parses flags while loading config.
	injector := di.NewContainer()
	defer func() { _ = injector.Shutdown() }()

	catalog := do.MustInvoke[*service.CatalogService](injector)
	lifecycle := do.MustInvoke[*service.LifecycleService](injector)
	tokens := do.MustInvoke[*auth.TokenService](injector)
	clock := do.MustInvoke[*service.Clock](injector)

	ctx := context.Background()
	today := clock.Today()
	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))

	users := make([]string, *numUsers)
	for i := range users {
		users[i] = fmt.Sprintf("demo-user-%d", i+1)
	}

	for _, userID := range users {
		// Each user gets a personal success probability for variety.
		diligence := 0.4 + rng.Float64()*0.55
		created := 0

		for _, dh := range demoHabits {
			habit := &domain.Habit{
				OwnerID:     userID,
				Name:        dh.name,
				Type:        dh.habitType,
				TargetValue: dh.target,
			}
			if err := catalog.CreateHabit(ctx, habit); err != nil {
				log.Fatalf("Failed to create habit for %s: %v", userID, err)
			}

			for day := *numDays - 1; day >= 0; day-- {
				if rng.Float64() > 0.9 {
					continue // no entry that day
				}
				success := rng.Float64() < diligence

				event := &domain.HabitEvent{
					HabitID: habit.ID,
					Date:    today.AddDays(-day),
				}
				switch dh.habitType {
				case domain.HabitTypeYesNo:
					event.BooleanValue = domain.Bool(success)
				case domain.HabitTypeBad:
					event.BooleanValue = domain.Bool(!success)
				case domain.HabitTypeMeasurable:
					value := 0.0
					if success {
						value = float64(5 + rng.IntN(30))
					}
					event.NumericValue = domain.Float(value)
				}

				if err := catalog.RecordEvent(ctx, userID, event); err != nil {
					log.Printf("Failed to record event: %v", err)
					continue
				}
				created++
			}
		}

		fmt.Printf("Seeded %s: %d habits, %d events\n", userID, len(demoHabits), created)
	}

	monthStart := calendar.New(today.Year, today.Month, 1)
	monthEnd := calendar.New(today.Year, today.Month+1, 0)

	for _, goal := range []domain.GoalType{domain.GoalMaxPerDay, domain.GoalMaxStreak, domain.GoalTotalCompleted} {
		comp := &domain.Competition{
			CreatorID: users[0],
			Name:      fmt.Sprintf("%s %s", today.Month, goal),
			GoalType:  goal,
			StartDate: monthStart,
			EndDate:   monthEnd,
		}
		if err := catalog.CreateCompetition(ctx, comp); err != nil {
			log.Fatalf("Failed to create competition: %v", err)
		}

		for _, userID := range users {
			if _, err := catalog.JoinCompetition(ctx, comp.ID, userID); err != nil {
				log.Fatalf("Failed to join %s to %s: %v", userID, comp.ID, err)
			}
		}
		fmt.Printf("Created competition %s (%s, %s..%s)\n", comp.ID, goal, comp.StartDate, comp.EndDate)
	}

	report, err := lifecycle.RunScheduledSweep(ctx, clock.Now())
	if err != nil {
		log.Fatalf("Sweep failed: %v", err)
	}
	fmt.Printf("\nSweep %s: recomputed %d competitions, updated %d participants, %d failures\n",
		report.RunID, report.CompetitionsRecomputed, report.ParticipantsUpdated, report.Failed())

	fmt.Println("\nBearer tokens:")
	for _, userID := range users {
		token, err := tokens.GenerateAccessToken(userID)
		if err != nil {
			log.Fatalf("Failed to mint token: %v", err)
		}
		fmt.Printf("  %s: %s\n", userID, token)
	}
}
