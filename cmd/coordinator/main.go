package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/aalda/mrcoord/internal/coordinator/client"
	"github.com/aalda/mrcoord/internal/coordinator/core"
	"github.com/aalda/mrcoord/internal/coordinator/service"
	"github.com/aalda/mrcoord/internal/shared/config"
	"github.com/aalda/mrcoord/internal/shared/logging"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	jobName := flag.String("job", "demo", "name of the job to run")
	flag.Parse()

	cfg, err := config.LoadCoordinator(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.NewSlogLogger(parseLevel(cfg.Logging.Level))

	events := client.NewMemoryEventStore(logger)
	oob := client.NewMemoryOobStore()
	gc := client.NewMemoryGcClient()
	worker := client.NewMemoryWorkerClient(cfg.Phases.DefaultMapConcurrency, demoSimulator)
	defer worker.Close()

	runner := core.NewPhaseRunner(worker, events, oob, cfg.FailurePolicy.MaxFailureRate, logger)
	coordinator := service.NewCoordinator(runner, events, gc, worker, logger)

	job := core.JobDescriptor{
		ID:   uuid.New(),
		Name: *jobName,
		Inputs: []core.InputSpec{
			core.SingleInput("http://node-a/part-0"),
			core.SingleInput("http://node-b/part-1"),
		},
		NMap:     cfg.Phases.DefaultMapConcurrency,
		NRed:     cfg.Phases.DefaultReduceConcurrency,
		DoReduce: true,
	}

	ack := func(selfID uuid.UUID) error {
		logger.Info("Coordinator acked", "job", job.Name, "self_id", selfID.String())
		return nil
	}

	results, err := coordinator.Run(context.Background(), job, ack)
	if err != nil {
		logger.Fatal("Job failed", "job", job.Name, "error", err)
	}

	logger.Info("Job finished", "job", job.Name, "results", results)
	for _, e := range events.Events(job.Name) {
		fmt.Printf("[%s] %s\n", e.Tag, e.Message)
	}
}

// demoSimulator is a trivial NodeSimulator: every task succeeds on the first
// URI's host, producing one synthetic output per partition.
func demoSimulator(jobName string, partitionID int, phase core.PhaseTag, blacklist []string, variants []core.Variant) core.TaskOutcome {
	if len(variants) == 0 {
		return core.DataError(partitionID, "", "")
	}
	v := variants[0]
	output := fmt.Sprintf("%s-%s-%d-out", jobName, phase, partitionID)
	return core.Ok(partitionID, v.PrefHost, output, nil)
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
