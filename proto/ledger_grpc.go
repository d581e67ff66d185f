package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ServiceName = "ledger.LedgerService"

	LedgerService_CreateUser_FullMethodName            = "/ledger.LedgerService/CreateUser"
	LedgerService_DepositFunds_FullMethodName          = "/ledger.LedgerService/DepositFunds"
	LedgerService_SendTransaction_FullMethodName       = "/ledger.LedgerService/SendTransaction"
	LedgerService_RedeemPoints_FullMethodName          = "/ledger.LedgerService/RedeemPoints"
	LedgerService_GetTransactionHistory_FullMethodName = "/ledger.LedgerService/GetTransactionHistory"
	LedgerService_GetBalance_FullMethodName            = "/ledger.LedgerService/GetBalance"
	LedgerService_GetPoints_FullMethodName             = "/ledger.LedgerService/GetPoints"
)

// LedgerServiceClient 帳本服務客戶端
type LedgerServiceClient interface {
	CreateUser(ctx context.Context, in *CreateUserRequest, opts ...grpc.CallOption) (*AccountResponse, error)
	DepositFunds(ctx context.Context, in *DepositRequest, opts ...grpc.CallOption) (*AccountResponse, error)
	SendTransaction(ctx context.Context, in *TransactionRequest, opts ...grpc.CallOption) (*AccountResponse, error)
	RedeemPoints(ctx context.Context, in *PointsRequest, opts ...grpc.CallOption) (*AccountResponse, error)
	GetTransactionHistory(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*HistoryResponse, error)
	GetBalance(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*BalanceResponse, error)
	GetPoints(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*PointsResponse, error)
}

type ledgerServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewLedgerServiceClient 建立客戶端，所有呼叫預設使用 JSON codec
func NewLedgerServiceClient(cc grpc.ClientConnInterface) LedgerServiceClient {
	return &ledgerServiceClient{cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerServiceClient) CreateUser(ctx context.Context, in *CreateUserRequest, opts ...grpc.CallOption) (*AccountResponse, error) {
	return invoke[AccountResponse](ctx, c.cc, LedgerService_CreateUser_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) DepositFunds(ctx context.Context, in *DepositRequest, opts ...grpc.CallOption) (*AccountResponse, error) {
	return invoke[AccountResponse](ctx, c.cc, LedgerService_DepositFunds_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) SendTransaction(ctx context.Context, in *TransactionRequest, opts ...grpc.CallOption) (*AccountResponse, error) {
	return invoke[AccountResponse](ctx, c.cc, LedgerService_SendTransaction_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) RedeemPoints(ctx context.Context, in *PointsRequest, opts ...grpc.CallOption) (*AccountResponse, error) {
	return invoke[AccountResponse](ctx, c.cc, LedgerService_RedeemPoints_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) GetTransactionHistory(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*HistoryResponse, error) {
	return invoke[HistoryResponse](ctx, c.cc, LedgerService_GetTransactionHistory_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) GetBalance(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*BalanceResponse, error) {
	return invoke[BalanceResponse](ctx, c.cc, LedgerService_GetBalance_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) GetPoints(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*PointsResponse, error) {
	return invoke[PointsResponse](ctx, c.cc, LedgerService_GetPoints_FullMethodName, in, opts)
}

// LedgerServiceServer 帳本服務伺服端，實作需嵌入 UnimplementedLedgerServiceServer
type LedgerServiceServer interface {
	CreateUser(context.Context, *CreateUserRequest) (*AccountResponse, error)
	DepositFunds(context.Context, *DepositRequest) (*AccountResponse, error)
	SendTransaction(context.Context, *TransactionRequest) (*AccountResponse, error)
	RedeemPoints(context.Context, *PointsRequest) (*AccountResponse, error)
	GetTransactionHistory(context.Context, *UserRequest) (*HistoryResponse, error)
	GetBalance(context.Context, *UserRequest) (*BalanceResponse, error)
	GetPoints(context.Context, *UserRequest) (*PointsResponse, error)
	mustEmbedUnimplementedLedgerServiceServer()
}

// UnimplementedLedgerServiceServer 所有方法都回傳 codes.Unimplemented
type UnimplementedLedgerServiceServer struct{}

func (UnimplementedLedgerServiceServer) CreateUser(context.Context, *CreateUserRequest) (*AccountResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateUser not implemented")
}
func (UnimplementedLedgerServiceServer) DepositFunds(context.Context, *DepositRequest) (*AccountResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DepositFunds not implemented")
}
func (UnimplementedLedgerServiceServer) SendTransaction(context.Context, *TransactionRequest) (*AccountResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SendTransaction not implemented")
}
func (UnimplementedLedgerServiceServer) RedeemPoints(context.Context, *PointsRequest) (*AccountResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RedeemPoints not implemented")
}
func (UnimplementedLedgerServiceServer) GetTransactionHistory(context.Context, *UserRequest) (*HistoryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetTransactionHistory not implemented")
}
func (UnimplementedLedgerServiceServer) GetBalance(context.Context, *UserRequest) (*BalanceResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetBalance not implemented")
}
func (UnimplementedLedgerServiceServer) GetPoints(context.Context, *UserRequest) (*PointsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetPoints not implemented")
}
func (UnimplementedLedgerServiceServer) mustEmbedUnimplementedLedgerServiceServer() {}

// RegisterLedgerServiceServer 將實作註冊到 gRPC server
func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&LedgerService_ServiceDesc, srv)
}

// unaryHandler 把型別化的方法包成 grpc.MethodDesc 需要的 handler
func unaryHandler[Req any, Resp any](fullMethod string, call func(LedgerServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LedgerServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(LedgerServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// LedgerService_ServiceDesc 帳本服務描述
var LedgerService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateUser",
			Handler:    unaryHandler(LedgerService_CreateUser_FullMethodName, LedgerServiceServer.CreateUser),
		},
		{
			MethodName: "DepositFunds",
			Handler:    unaryHandler(LedgerService_DepositFunds_FullMethodName, LedgerServiceServer.DepositFunds),
		},
		{
			MethodName: "SendTransaction",
			Handler:    unaryHandler(LedgerService_SendTransaction_FullMethodName, LedgerServiceServer.SendTransaction),
		},
		{
			MethodName: "RedeemPoints",
			Handler:    unaryHandler(LedgerService_RedeemPoints_FullMethodName, LedgerServiceServer.RedeemPoints),
		},
		{
			MethodName: "GetTransactionHistory",
			Handler:    unaryHandler(LedgerService_GetTransactionHistory_FullMethodName, LedgerServiceServer.GetTransactionHistory),
		},
		{
			MethodName: "GetBalance",
			Handler:    unaryHandler(LedgerService_GetBalance_FullMethodName, LedgerServiceServer.GetBalance),
		},
		{
			MethodName: "GetPoints",
			Handler:    unaryHandler(LedgerService_GetPoints_FullMethodName, LedgerServiceServer.GetPoints),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ledger.proto",
}
