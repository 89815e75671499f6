package main

import (
	_ "Go2Sawzall/internal/aggregators" // Registers the aggregation variants
	"Go2Sawzall/internal/api"
	"Go2Sawzall/internal/config"
	"Go2Sawzall/internal/output"
	"Go2Sawzall/internal/runner"
	"Go2Sawzall/internal/shuffle"
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the job configuration.")
	partition := flag.Int("partition", 0, "Shuffle partition this worker reduces.")
	spillDir := flag.String("spill", "", "Read the partition from a spill directory instead of NATS.")
	flag.Parse()

	log.Printf("Starting saw-worker for partition %d...", *partition)

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *partition < 0 || *partition >= cfg.Job.Partitions {
		log.Fatalf("Partition %d out of range [0, %d)", *partition, cfg.Job.Partitions)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Status servers
	r := runner.New(cfg, nil)
	status := api.NewServer(cfg.API, r)
	if err := status.Start(); err != nil {
		log.Fatalf("Failed to start status server: %v", err)
	}
	status.SetServing(true)

	// 3. Collect and reduce this partition
	if err := reduce(ctx, cfg, r, *partition, *spillDir); err != nil {
		shutdown(status)
		log.Fatalf("Reduce of partition %d failed: %v", *partition, err)
	}
	log.Println("Reduce complete. Serving status until signalled.")

	<-ctx.Done()
	log.Println("Shutdown signal received, stopping worker...")
	shutdown(status)
	log.Println("Shutdown complete.")
}

func reduce(ctx context.Context, cfg *config.Config, r *runner.Runner, partition int, spillDir string) error {
	grouper, err := collect(ctx, cfg, partition, spillDir)
	if err != nil {
		return err
	}

	out, err := output.New(cfg.Output, partition)
	if err != nil {
		return err
	}
	err = r.ReducePartition(ctx, partition, grouper, out)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	return err
}

func collect(ctx context.Context, cfg *config.Config, partition int, spillDir string) (*shuffle.Grouper, error) {
	if spillDir != "" {
		return shuffle.ReadSpill(shuffle.SpillPath(spillDir, partition))
	}
	sub, err := shuffle.NewSubscriber(cfg.Shuffle, partition)
	if err != nil {
		return nil, err
	}
	defer sub.Close()
	return sub.Collect(ctx)
}

func shutdown(status *api.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := status.Shutdown(ctx); err != nil {
		log.Printf("Status server shutdown: %v", err)
	}
}
