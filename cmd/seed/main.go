// File: cmd/seed/main.go
//
// Seeds the unused-code pool: either generates fresh random codes or imports
// codes from a newline-separated file. Codes already present in the pool or
// already redeemed in the ledger are skipped, so re-running is safe.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"code-verification-service/internal/config"
	"code-verification-service/internal/domain"
	"code-verification-service/internal/domain/ports/repository"
	fileStore "code-verification-service/internal/infra/db/file"
	pg "code-verification-service/internal/infra/db/postgres"
	"code-verification-service/internal/infra/logging"
	"code-verification-service/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	count := flag.Int("n", 0, "number of random codes to generate")
	fromFile := flag.String("from", "", "import codes from a newline-separated file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		poolRepo   repository.PoolRepository
		ledgerRepo repository.LedgerRepository
	)
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pool, err := pg.NewPgxPool(ctx, cfg.Storage.DatabaseURL, 4)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer pool.Close()
		if err := pg.EnsureSchema(ctx, pool); err != nil {
			log.Fatalf("postgres: %v", err)
		}
		poolRepo = pg.NewPoolRepo(pool)
		ledgerRepo = pg.NewLedgerRepo(pool)
	case config.BackendFile:
		st, err := fileStore.NewStore(cfg.Storage.Dir, cfg.Audit.MaxEntries, logger)
		if err != nil {
			log.Fatalf("file store: %v", err)
		}
		poolRepo = st.Pool()
		ledgerRepo = st.Ledger()
	default:
		log.Fatalf("unknown storage backend %q", cfg.Storage.Backend)
	}

	codes, err := collectCodes(*count, *fromFile)
	if err != nil {
		log.Fatalf("collect codes: %v", err)
	}
	if len(codes) == 0 {
		log.Fatal("nothing to seed: pass -n or -from")
	}

	added := 0
	for _, code := range codes {
		if _, err := ledgerRepo.Find(ctx, nil, code); err == nil {
			fmt.Printf("skipped (already redeemed): %s\n", code)
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			log.Fatalf("ledger check %q: %v", code, err)
		}
		if err := poolRepo.Add(ctx, nil, code); err != nil {
			log.Fatalf("add code %q: %v", code, err)
		}
		fmt.Printf("seeded: %s\n", code)
		added++
	}
	fmt.Printf("done: %d codes added\n", added)
}

func collectCodes(count int, fromFile string) ([]string, error) {
	var codes []string
	for i := 0; i < count; i++ {
		code, err := usecase.GenerateCode()
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	if fromFile != "" {
		f, err := os.Open(fromFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			codes = append(codes, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}
	return codes, nil
}
