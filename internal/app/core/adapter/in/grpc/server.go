package grpc

import (
	"context"
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-rewards-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-rewards-ledger/internal/app/core/usecase"
	pb "github.com/JoeShih716/go-rewards-ledger/proto"
)

// ErrorDomain 放在 ErrorInfo.Domain，讓客戶端辨識錯誤來源
const ErrorDomain = "ledger"

type GrpcServer struct {
	pb.UnimplementedLedgerServiceServer
	core *usecase.TransactionEngine
}

func NewGrpcServer(core *usecase.TransactionEngine) *GrpcServer {
	return &GrpcServer{
		core: core,
	}
}

func (s *GrpcServer) CreateUser(ctx context.Context, req *pb.CreateUserRequest) (*pb.AccountResponse, error) {
	acc, err := s.core.CreateUser(ctx, domain.CreateUserPayload{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.AccountResponse{Account: toAccount(acc)}, nil
}

func (s *GrpcServer) DepositFunds(ctx context.Context, req *pb.DepositRequest) (*pb.AccountResponse, error) {
	acc, err := s.core.DepositFunds(ctx, domain.DepositPayload{
		UserID: req.UserId,
		Amount: req.Amount,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.AccountResponse{Account: toAccount(acc)}, nil
}

// SendTransaction 回傳付款方的最新帳戶
func (s *GrpcServer) SendTransaction(ctx context.Context, req *pb.TransactionRequest) (*pb.AccountResponse, error) {
	acc, err := s.core.SendTransaction(ctx, domain.TransactionPayload{
		FromUserID: req.FromUserId,
		ToUserID:   req.ToUserId,
		Amount:     req.Amount,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.AccountResponse{Account: toAccount(acc)}, nil
}

func (s *GrpcServer) RedeemPoints(ctx context.Context, req *pb.PointsRequest) (*pb.AccountResponse, error) {
	acc, err := s.core.RedeemPoints(ctx, domain.PointsPayload{
		UserID: req.UserId,
		Points: req.Points,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.AccountResponse{Account: toAccount(acc)}, nil
}

func (s *GrpcServer) GetTransactionHistory(ctx context.Context, req *pb.UserRequest) (*pb.HistoryResponse, error) {
	history, err := s.core.GetTransactionHistory(ctx, req.UserId)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &pb.HistoryResponse{Transactions: make([]*pb.Transaction, 0, len(history))}
	for i := range history {
		resp.Transactions = append(resp.Transactions, toTransaction(&history[i]))
	}
	return resp, nil
}

func (s *GrpcServer) GetBalance(ctx context.Context, req *pb.UserRequest) (*pb.BalanceResponse, error) {
	balance, err := s.core.CheckBalance(ctx, req.UserId)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.BalanceResponse{
		UserId:  req.UserId,
		Balance: balance,
	}, nil
}

func (s *GrpcServer) GetPoints(ctx context.Context, req *pb.UserRequest) (*pb.PointsResponse, error) {
	points, err := s.core.CheckPoints(ctx, req.UserId)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.PointsResponse{
		UserId: req.UserId,
		Points: points,
	}, nil
}

// codeOf 把業務錯誤對應到 gRPC status code
func codeOf(err error) codes.Code {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidTransaction):
		return codes.InvalidArgument
	case errors.Is(err, domain.ErrUserNotFound):
		return codes.NotFound
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientPoints):
		return codes.FailedPrecondition
	case errors.Is(err, domain.ErrAmountOverflow):
		return codes.OutOfRange
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}

// toStatus 將錯誤轉為帶有 ErrorInfo 的 gRPC status
//
// 基礎設施錯誤不把內部訊息回給客戶端
func toStatus(err error) error {
	code := codeOf(err)
	msg := err.Error()
	if code == codes.Internal {
		msg = "internal ledger error"
	}

	info := &errdetails.ErrorInfo{
		Reason: domain.Reason(err),
		Domain: ErrorDomain,
	}
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		info.Metadata = map[string]string{"field": vErr.Field}
	}

	st, dErr := status.New(code, msg).WithDetails(info)
	if dErr != nil {
		return status.Error(code, msg)
	}
	return st.Err()
}

func toAccount(acc *domain.Account) *pb.Account {
	return &pb.Account{
		Id:          acc.ID,
		FirstName:   acc.FirstName,
		LastName:    acc.LastName,
		Username:    acc.Username,
		Email:       acc.Email,
		PhoneNumber: acc.PhoneNumber,
		Balance:     acc.Balance,
		Points:      acc.Points,
		CreatedAt:   acc.CreatedAt,
	}
}

func toTransaction(tran *domain.Transaction) *pb.Transaction {
	out := &pb.Transaction{
		Id:        tran.ID,
		ToUserId:  tran.ToUserID,
		Amount:    tran.Amount,
		Timestamp: tran.Timestamp,
		Kind:      tran.Kind.String(),
	}
	if tran.FromUserID != nil {
		from := *tran.FromUserID
		out.FromUserId = &from
	}
	return out
}
