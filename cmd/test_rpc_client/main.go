package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	grpc_adapter "github.com/JoeShih716/go-rewards-ledger/internal/app/core/adapter/in/grpc"
	grpcpool "github.com/JoeShih716/go-rewards-ledger/pkg/grpc"
	pb "github.com/JoeShih716/go-rewards-ledger/proto"
)

const (
	TotalCount  = 100000
	Concurrency = 500
)

func main() {
	target := flag.String("target", "localhost:50051", "ledger grpc address")
	total := flag.Int("n", TotalCount, "number of transfers")
	concurrency := flag.Int("c", Concurrency, "concurrent requests")
	timeout := flag.Duration("timeout", 120*time.Second, "overall timeout")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	pool := grpcpool.NewPool(
		grpcpool.WithDefaultCallOptions(grpc.CallContentSubtype(pb.CodecName)),
		grpcpool.WithInterceptor(correlationInterceptor),
	)
	defer pool.Close()

	conn, err := pool.GetConnection(*target)
	if err != nil {
		log.Error("did not connect", slog.Any("error", err))
		os.Exit(1)
	}
	c := pb.NewLedgerServiceClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// 1. 準備兩個帳戶，付款方先存入足夠的餘額
	tag := uuid.NewString()[:8]
	from, err := c.CreateUser(ctx, &pb.CreateUserRequest{
		FirstName: "Load", LastName: "Sender", Email: "sender-" + tag + "@load.test", PhoneNumber: "0",
	})
	if err != nil {
		log.Error("create sender failed", slog.Any("error", err))
		os.Exit(1)
	}
	to, err := c.CreateUser(ctx, &pb.CreateUserRequest{
		FirstName: "Load", LastName: "Receiver", Email: "receiver-" + tag + "@load.test", PhoneNumber: "0",
	})
	if err != nil {
		log.Error("create receiver failed", slog.Any("error", err))
		os.Exit(1)
	}
	if _, err := c.DepositFunds(ctx, &pb.DepositRequest{UserId: from.Account.Id, Amount: uint64(*total)}); err != nil {
		log.Error("deposit failed", slog.Any("error", err))
		os.Exit(1)
	}

	// 2. 併發轉帳，每筆 1 單位
	var wg sync.WaitGroup
	var failed atomic.Int64
	sem := make(chan struct{}, *concurrency)
	startTime := time.Now()

	for i := 0; i < *total; i++ {
		sem <- struct{}{}
		wg.Add(1)

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			_, err := c.SendTransaction(ctx, &pb.TransactionRequest{
				FromUserId: from.Account.Id,
				ToUserId:   to.Account.Id,
				Amount:     1,
			})
			if err != nil {
				failed.Add(1)
				if idx%10000 == 0 {
					log.Warn("transfer failed", slog.Int("idx", idx), slog.Any("error", err))
				}
			}
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(startTime)

	// 3. 驗證餘額守恆
	fromBal, err := c.GetBalance(ctx, &pb.UserRequest{UserId: from.Account.Id})
	if err != nil {
		log.Error("get balance failed", slog.Any("error", err))
		os.Exit(1)
	}
	toBal, err := c.GetBalance(ctx, &pb.UserRequest{UserId: to.Account.Id})
	if err != nil {
		log.Error("get balance failed", slog.Any("error", err))
		os.Exit(1)
	}

	fmt.Printf("Completed %d transfers in %v (%d failed)\n", *total, elapsed, failed.Load())
	fmt.Printf("TPS: %.2f\n", float64(*total)/elapsed.Seconds())
	fmt.Printf("Balances: sender=%d receiver=%d sum=%d\n", fromBal.Balance, toBal.Balance, fromBal.Balance+toBal.Balance)
}

// correlationInterceptor 每個請求帶上新的 correlation id，方便在伺服器日誌中追蹤
func correlationInterceptor(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	ctx = metadata.AppendToOutgoingContext(ctx, grpc_adapter.CorrelationIDHeader, uuid.NewString())
	return invoker(ctx, method, req, reply, cc, opts...)
}
