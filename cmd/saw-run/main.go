package main

import (
	_ "Go2Sawzall/internal/aggregators" // Registers the aggregation variants
	"Go2Sawzall/internal/api"
	"Go2Sawzall/internal/config"
	"Go2Sawzall/internal/engine"
	"Go2Sawzall/internal/model"
	"Go2Sawzall/internal/output"
	"Go2Sawzall/internal/program"
	"Go2Sawzall/internal/runner"
	"Go2Sawzall/internal/shuffle"
	"Go2Sawzall/pkg/pcap"
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

func main() {
	// --- Command-Line Flag Parsing ---
	configPath := flag.String("config", "configs/config.yaml", "Path to the job configuration.")
	mode := flag.String("program", "wordcount", "Analysis program: 'wordcount' over text lines or 'packets' over pcap files.")
	target := flag.String("target", "wordcount", "Target receiving the primary emissions.")
	lengthTarget := flag.String("length-target", "", "Optional target receiving word lengths (wordcount only).")
	firstTarget := flag.String("first-target", "", "Optional target receiving the words themselves (wordcount only).")
	publish := flag.Bool("publish", false, "Publish combined output to NATS instead of reducing locally.")
	spillDir := flag.String("spill", "", "Write combined output to partition files in this directory instead of reducing locally.")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: saw-run [flags] <input files...>")
		flag.Usage()
		os.Exit(1)
	}

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Pick the analysis program and read its inputs
	var prog engine.Program
	var inputs [][]byte
	switch *mode {
	case "wordcount":
		prog = program.WordCount(*target, *lengthTarget, *firstTarget)
		inputs, err = readLines(flag.Args())
	case "packets":
		prog = program.PacketBytes(*target)
		inputs, err = readPackets(flag.Args())
	default:
		fmt.Fprintf(os.Stderr, "Invalid program: %s\n", *mode)
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("Failed to read inputs: %v", err)
	}
	log.Printf("Read %d input records from %d files.", len(inputs), flag.NArg())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Status servers
	r := runner.New(cfg, prog)
	status := api.NewServer(cfg.API, r)
	if err := status.Start(); err != nil {
		log.Fatalf("Failed to start status server: %v", err)
	}
	status.SetServing(true)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := status.Shutdown(shutdownCtx); err != nil {
			log.Printf("Status server shutdown: %v", err)
		}
	}()

	// 4. Run the job
	if *spillDir != "" {
		if err := runSpill(ctx, cfg, r, inputs, *spillDir); err != nil {
			log.Fatalf("Job failed: %v", err)
		}
		return
	}
	if *publish {
		if err := runPublish(ctx, cfg, r, inputs); err != nil {
			log.Fatalf("Job failed: %v", err)
		}
		return
	}
	if err := runLocal(ctx, cfg, r, inputs); err != nil {
		log.Fatalf("Job failed: %v", err)
	}
}

func runLocal(ctx context.Context, cfg *config.Config, r *runner.Runner, inputs [][]byte) error {
	out, err := output.New(cfg.Output, output.AllPartitions)
	if err != nil {
		return err
	}
	report, err := r.Run(ctx, inputs, out)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	for _, task := range report.Tasks {
		log.Printf("%-12s inputs=%d keys=%d folded=%d dropped=%d early=%d passed=%d emitted=%d",
			task.Name, task.Inputs, task.Keys, task.Folded, task.Dropped, task.EarlyCompleted, task.PassedThrough, task.Emitted)
	}
	return nil
}

func runPublish(ctx context.Context, cfg *config.Config, r *runner.Runner, inputs [][]byte) error {
	pub, err := shuffle.NewPublisher(cfg.Shuffle, cfg.Job.Partitions)
	if err != nil {
		return err
	}
	if err := r.MapCombine(ctx, inputs, pub); err != nil {
		// Workers must not reduce a partial stream.
		if abortErr := pub.Abort(err); abortErr != nil {
			log.Printf("Failed to signal abort to workers: %v", abortErr)
		}
		return err
	}
	return pub.Close()
}

func runSpill(ctx context.Context, cfg *config.Config, r *runner.Runner, inputs [][]byte, dir string) error {
	parts := shuffle.NewPartitioner(cfg.Job.Partitions)
	var mu sync.Mutex
	sink := model.EmitterFunc(func(ctx context.Context, rec model.Record) error {
		mu.Lock()
		defer mu.Unlock()
		return parts.Emit(ctx, rec)
	})
	if err := r.MapCombine(ctx, inputs, sink); err != nil {
		return err
	}
	if err := shuffle.WriteSpill(dir, parts.Partitions()); err != nil {
		return err
	}
	log.Printf("Spilled %d partitions to %s", cfg.Job.Partitions, dir)
	return nil
}

func readLines(paths []string) ([][]byte, error) {
	var lines [][]byte
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			lines = append(lines, append([]byte(nil), scanner.Bytes()...))
		}
		err = scanner.Err()
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	return lines, nil
}

func readPackets(paths []string) ([][]byte, error) {
	var packets [][]byte
	for _, path := range paths {
		p, err := pcap.ReadAll(path)
		if err != nil {
			return nil, err
		}
		packets = append(packets, p...)
	}
	return packets, nil
}
