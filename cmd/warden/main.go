package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/groupwarden/warden/pkg/cachestore"
	"github.com/groupwarden/warden/pkg/canonical"
	"github.com/groupwarden/warden/pkg/config"
	"github.com/groupwarden/warden/pkg/connector"
	"github.com/groupwarden/warden/pkg/detect"
	"github.com/groupwarden/warden/pkg/docstore"
	"github.com/groupwarden/warden/pkg/httpapi"
	"github.com/groupwarden/warden/pkg/keyword"
	"github.com/groupwarden/warden/pkg/moderation"
	"github.com/groupwarden/warden/pkg/schedule"
)

const Version = "0.1.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe()
	case "normalize":
		if len(os.Args) < 3 {
			fmt.Println("Usage: warden normalize <text>")
			os.Exit(1)
		}
		fmt.Println(canonical.Normalize(os.Args[2]))
	case "version":
		fmt.Printf("Warden v%s\n", Version)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Warden v%s - group chat moderation engine\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  warden serve              Start the HTTP API and timers")
	fmt.Println("  warden normalize <text>   Print the canonical form of text")
	fmt.Println("  warden version            Show version")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  WARDEN_HTTP_PORT       HTTP listen port (default: 3000)")
	fmt.Println("  WARDEN_STORE           Document store: mem, postgres (default: mem)")
	fmt.Println("  WARDEN_POSTGRES_DSN    DSN when WARDEN_STORE=postgres")
	fmt.Println("  WARDEN_CACHE           Cache store: mem, redis (default: mem)")
	fmt.Println("  WARDEN_REDIS_URL       URL when WARDEN_CACHE=redis")
	fmt.Println("  WARDEN_POLICY_PATH     YAML policy file with seed keywords")
	fmt.Println("  WARDEN_TOP_ACTOR       Identity allowed to lift permanent bans")
}

func runServe() {
	cfg := config.NewDefaultConfig()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	docs, err := buildDocStore(ctx, cfg)
	if err != nil {
		log.Fatalf("document store: %v", err)
	}
	cache, err := buildCacheStore(ctx, cfg)
	if err != nil {
		log.Fatalf("cache store: %v", err)
	}

	conn := connector.NewLogConnector(logger)
	keywords := keyword.NewStore(docs)
	detector := detect.NewDetector(keywords, cache, docs, logger)
	detector.BotNicknames = cfg.BotNicknames
	spam := detect.NewSpamDetector(cache)
	engine := moderation.NewEngine(docs, conn, logger)
	engine.TopActor = cfg.TopActor
	engine.EffectPause = cfg.EffectPause

	if err := applyPolicy(ctx, cfg, keywords, detector); err != nil {
		log.Fatalf("policy: %v", err)
	}

	runner := schedule.NewRunner(logger)
	runner.Every(ctx, "ban-sweep", cfg.BanSweepInterval, func(ctx context.Context) error {
		_, err := engine.LiftExpired(ctx)
		return err
	})
	runner.Every(ctx, "reconcile", cfg.ReconcileInterval, engine.Reconcile)
	runner.DailyAtMidnight(ctx, "attendance-rollover", time.FixedZone("UTC+8", 8*60*60),
		func(ctx context.Context) error {
			convs, err := docs.List(ctx, docstore.KindAttendance)
			if err != nil {
				return err
			}
			for _, conv := range convs {
				if err := engine.RunDailyCycle(ctx, conv); err != nil {
					logger.Error("daily cycle failed", "conversation", conv, "error", err)
				}
			}
			return nil
		})

	server := httpapi.NewServer(detector, spam, engine, keywords, conn)
	app := server.App()

	go func() {
		<-ctx.Done()
		log.Println("shutting down")
		if err := app.Shutdown(); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("Warden v%s listening on :%s (store=%s cache=%s)",
		Version, cfg.HTTPPort, cfg.StoreBackend, cfg.CacheBackend)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
	runner.Wait()
}

func buildDocStore(ctx context.Context, cfg *config.Config) (docstore.Store, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		return docstore.NewPostgresStore(ctx, cfg.PostgresDSN)
	case config.StoreMem, "":
		return docstore.NewMemStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func buildCacheStore(ctx context.Context, cfg *config.Config) (cachestore.Store, error) {
	switch cfg.CacheBackend {
	case config.CacheRedis:
		return cachestore.NewRedisStore(ctx, cfg.RedisURL)
	case config.CacheMem, "":
		return cachestore.NewMemStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

func applyPolicy(ctx context.Context, cfg *config.Config, keywords *keyword.Store, detector *detect.Detector) error {
	policy, err := config.LoadPolicy(cfg.PolicyPath)
	if err != nil {
		return err
	}
	if len(policy.Keywords) > 0 {
		added, skipped, err := keywords.Add(ctx, docstore.GlobalScope, policy.Keywords)
		if err != nil {
			return err
		}
		log.Printf("policy: %d keywords seeded, %d skipped", len(added), len(skipped))
	}
	if err := keywords.SeedSafeWords(ctx, policy.SafeWords); err != nil {
		return err
	}
	for _, pid := range policy.Protected {
		if err := detector.Protect(ctx, docstore.GlobalScope, pid); err != nil {
			return err
		}
	}
	if len(policy.BotNicknames) > 0 {
		detector.BotNicknames = policy.BotNicknames
	}
	return nil
}
