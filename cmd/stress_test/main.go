package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/guild-bag/internal/adapter/handler"
	"github.com/rl1809/guild-bag/internal/adapter/storage"
	"github.com/rl1809/guild-bag/internal/bot"
	"github.com/rl1809/guild-bag/internal/core/domain"
	"github.com/rl1809/guild-bag/internal/core/service"
	"github.com/rl1809/guild-bag/internal/logging"
)

const (
	initialStock  = 20
	totalRequests = 50
	queueSize     = 100
)

// sendFunc delivers one chat message and returns the reply text.
type sendFunc func(ctx context.Context, id, text string) (string, error)

func inProcess(ctx context.Context) (sendFunc, func(), error) {
	svc, err := service.NewBagService(ctx, storage.NewMemoryAdapter(), 25)
	if err != nil {
		return nil, nil, err
	}
	router := bot.NewRouter("$")
	handler.RegisterCommands(router, svc)
	d := bot.NewDispatcher(router, bot.NewResponder("$", logging.NewLogger("responder")),
		storage.NewMemoryIdempotency(time.Hour), queueSize, logging.NewLogger("dispatcher"))

	send := func(ctx context.Context, id, text string) (string, error) {
		r, err := d.Submit(ctx, domain.Request{ID: id, Author: "stress", Channel: "stress", Text: text})
		return r.Content, err
	}
	return send, d.Close, nil
}

func remote(addr, token string) (sendFunc, func(), error) {
	client, err := handler.NewCommandClient(addr, token)
	if err != nil {
		return nil, nil, err
	}
	send := func(ctx context.Context, id, text string) (string, error) {
		resp, err := client.Execute(ctx, &handler.CommandRequest{RequestID: id, Author: "stress", Channel: "stress", Content: text})
		if err != nil {
			return "", err
		}
		return resp.Reply, nil
	}
	return send, func() { client.Close() }, nil
}

func main() {
	addr := flag.String("addr", "", "gRPC address of a running server; empty runs in process")
	token := flag.String("token", os.Getenv("GUILDBAG_TOKEN"), "shared token for the server")
	flag.Parse()

	log := logging.NewLogger("stress")
	ctx := context.Background()

	var (
		send  sendFunc
		stop func()
		err  error
	)
	if *addr == "" {
		send, stop, err = inProcess(ctx)
	} else {
		send, stop, err = remote(*addr, *token)
	}
	if err != nil {
		log.WithError(err).Fatal("failed to start")
	}
	defer stop()

	// A fresh item name keeps repeated runs against one server independent.
	item := "stress-" + uuid.NewString()[:8]
	if _, err := send(ctx, "", fmt.Sprintf("$add %d %s", initialStock, item)); err != nil {
		log.WithError(err).Fatal("failed to seed stock")
	}

	var successCount atomic.Int32
	var failCount atomic.Int32
	var dupCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			id := fmt.Sprintf("%s-%d", item, n)
			reply, err := send(ctx, id, "$remove 1 "+item)
			switch {
			case err != nil:
				log.WithError(err).Warn("request failed")
				failCount.Add(1)
			case strings.HasPrefix(reply, "Removed"):
				successCount.Add(1)
			default:
				failCount.Add(1)
			}

			// Replaying the same ID must not remove anything.
			if reply, err := send(ctx, id, "$remove 1 "+item); err == nil && reply == "" {
				dupCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Replays dropped:  %d\n", dupCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == initialStock && fail == totalRequests-initialStock {
		fmt.Printf("PASS: Exactly %d removes succeeded, %d failed\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d fail, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, fail)
	}

	if dupCount.Load() == totalRequests {
		fmt.Println("PASS: Every replayed request was dropped")
	} else {
		fmt.Printf("FAIL: Expected %d dropped replays, got %d\n", totalRequests, dupCount.Load())
	}

	last, err := send(ctx, "", "$remove 1 "+item)
	if err != nil {
		log.WithError(err).Fatal("failed to probe stock")
	}
	if last == fmt.Sprintf("Not enough %s in the bag.", item) {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: %s still in the bag\n", item)
	}
}
