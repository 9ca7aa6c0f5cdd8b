package worklogv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName は WorkEntryService の完全修飾名です。
const ServiceName = "worklog.v1.WorkEntryService"

const (
	FullMethodCreateWorkEntry    = "/" + ServiceName + "/CreateWorkEntry"
	FullMethodEditWorkEntry      = "/" + ServiceName + "/EditWorkEntry"
	FullMethodResubmitWorkEntry  = "/" + ServiceName + "/ResubmitWorkEntry"
	FullMethodReviewWorkEntry    = "/" + ServiceName + "/ReviewWorkEntry"
	FullMethodGetWorkEntry       = "/" + ServiceName + "/GetWorkEntry"
	FullMethodListPendingReviews = "/" + ServiceName + "/ListPendingReviews"
	FullMethodListReviews        = "/" + ServiceName + "/ListReviews"
	FullMethodListReviewHistory  = "/" + ServiceName + "/ListReviewHistory"
)

// WorkEntryServiceServer はサーバー側の実装が満たすインターフェースです。
type WorkEntryServiceServer interface {
	CreateWorkEntry(context.Context, *CreateWorkEntryRequest) (*WorkEntryResponse, error)
	EditWorkEntry(context.Context, *EditWorkEntryRequest) (*WorkEntryResponse, error)
	ResubmitWorkEntry(context.Context, *ResubmitWorkEntryRequest) (*WorkEntryResponse, error)
	ReviewWorkEntry(context.Context, *ReviewWorkEntryRequest) (*WorkEntryResponse, error)
	GetWorkEntry(context.Context, *GetWorkEntryRequest) (*WorkEntryResponse, error)
	ListPendingReviews(context.Context, *ListPendingReviewsRequest) (*ListWorkEntriesResponse, error)
	ListReviews(context.Context, *ListReviewsRequest) (*ListWorkEntriesResponse, error)
	ListReviewHistory(context.Context, *ListReviewHistoryRequest) (*ListReviewHistoryResponse, error)
	mustEmbedUnimplementedWorkEntryServiceServer()
}

// UnimplementedWorkEntryServiceServer は未実装のメソッドに Unimplemented を返します。
type UnimplementedWorkEntryServiceServer struct{}

func (UnimplementedWorkEntryServiceServer) CreateWorkEntry(context.Context, *CreateWorkEntryRequest) (*WorkEntryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateWorkEntry not implemented")
}
func (UnimplementedWorkEntryServiceServer) EditWorkEntry(context.Context, *EditWorkEntryRequest) (*WorkEntryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method EditWorkEntry not implemented")
}
func (UnimplementedWorkEntryServiceServer) ResubmitWorkEntry(context.Context, *ResubmitWorkEntryRequest) (*WorkEntryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ResubmitWorkEntry not implemented")
}
func (UnimplementedWorkEntryServiceServer) ReviewWorkEntry(context.Context, *ReviewWorkEntryRequest) (*WorkEntryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ReviewWorkEntry not implemented")
}
func (UnimplementedWorkEntryServiceServer) GetWorkEntry(context.Context, *GetWorkEntryRequest) (*WorkEntryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetWorkEntry not implemented")
}
func (UnimplementedWorkEntryServiceServer) ListPendingReviews(context.Context, *ListPendingReviewsRequest) (*ListWorkEntriesResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListPendingReviews not implemented")
}
func (UnimplementedWorkEntryServiceServer) ListReviews(context.Context, *ListReviewsRequest) (*ListWorkEntriesResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListReviews not implemented")
}
func (UnimplementedWorkEntryServiceServer) ListReviewHistory(context.Context, *ListReviewHistoryRequest) (*ListReviewHistoryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListReviewHistory not implemented")
}
func (UnimplementedWorkEntryServiceServer) mustEmbedUnimplementedWorkEntryServiceServer() {}

// RegisterWorkEntryServiceServer は srv を gRPC サーバーに登録します。
func RegisterWorkEntryServiceServer(s grpc.ServiceRegistrar, srv WorkEntryServiceServer) {
	s.RegisterService(&WorkEntryService_ServiceDesc, srv)
}

func unaryHandler[Req, Resp any](fullMethod string, call func(WorkEntryServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(WorkEntryServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(WorkEntryServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// WorkEntryService_ServiceDesc は WorkEntryService のサービス定義です。
var WorkEntryService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*WorkEntryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateWorkEntry", Handler: unaryHandler(FullMethodCreateWorkEntry, WorkEntryServiceServer.CreateWorkEntry)},
		{MethodName: "EditWorkEntry", Handler: unaryHandler(FullMethodEditWorkEntry, WorkEntryServiceServer.EditWorkEntry)},
		{MethodName: "ResubmitWorkEntry", Handler: unaryHandler(FullMethodResubmitWorkEntry, WorkEntryServiceServer.ResubmitWorkEntry)},
		{MethodName: "ReviewWorkEntry", Handler: unaryHandler(FullMethodReviewWorkEntry, WorkEntryServiceServer.ReviewWorkEntry)},
		{MethodName: "GetWorkEntry", Handler: unaryHandler(FullMethodGetWorkEntry, WorkEntryServiceServer.GetWorkEntry)},
		{MethodName: "ListPendingReviews", Handler: unaryHandler(FullMethodListPendingReviews, WorkEntryServiceServer.ListPendingReviews)},
		{MethodName: "ListReviews", Handler: unaryHandler(FullMethodListReviews, WorkEntryServiceServer.ListReviews)},
		{MethodName: "ListReviewHistory", Handler: unaryHandler(FullMethodListReviewHistory, WorkEntryServiceServer.ListReviewHistory)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "worklog/v1/workentry.proto",
}

// WorkEntryServiceClient は WorkEntryService のクライアントです。
type WorkEntryServiceClient interface {
	CreateWorkEntry(ctx context.Context, in *CreateWorkEntryRequest, opts ...grpc.CallOption) (*WorkEntryResponse, error)
	EditWorkEntry(ctx context.Context, in *EditWorkEntryRequest, opts ...grpc.CallOption) (*WorkEntryResponse, error)
	ResubmitWorkEntry(ctx context.Context, in *ResubmitWorkEntryRequest, opts ...grpc.CallOption) (*WorkEntryResponse, error)
	ReviewWorkEntry(ctx context.Context, in *ReviewWorkEntryRequest, opts ...grpc.CallOption) (*WorkEntryResponse, error)
	GetWorkEntry(ctx context.Context, in *GetWorkEntryRequest, opts ...grpc.CallOption) (*WorkEntryResponse, error)
	ListPendingReviews(ctx context.Context, in *ListPendingReviewsRequest, opts ...grpc.CallOption) (*ListWorkEntriesResponse, error)
	ListReviews(ctx context.Context, in *ListReviewsRequest, opts ...grpc.CallOption) (*ListWorkEntriesResponse, error)
	ListReviewHistory(ctx context.Context, in *ListReviewHistoryRequest, opts ...grpc.CallOption) (*ListReviewHistoryResponse, error)
}

type workEntryServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewWorkEntryServiceClient はクライアントを生成します。呼び出しには JSON コーデックが自動で指定されます。
func NewWorkEntryServiceClient(cc grpc.ClientConnInterface) WorkEntryServiceClient {
	return &workEntryServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	callOpts := append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, callOpts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *workEntryServiceClient) CreateWorkEntry(ctx context.Context, in *CreateWorkEntryRequest, opts ...grpc.CallOption) (*WorkEntryResponse, error) {
	return invoke[WorkEntryResponse](ctx, c.cc, FullMethodCreateWorkEntry, in, opts)
}

func (c *workEntryServiceClient) EditWorkEntry(ctx context.Context, in *EditWorkEntryRequest, opts ...grpc.CallOption) (*WorkEntryResponse, error) {
	return invoke[WorkEntryResponse](ctx, c.cc, FullMethodEditWorkEntry, in, opts)
}

func (c *workEntryServiceClient) ResubmitWorkEntry(ctx context.Context, in *ResubmitWorkEntryRequest, opts ...grpc.CallOption) (*WorkEntryResponse, error) {
	return invoke[WorkEntryResponse](ctx, c.cc, FullMethodResubmitWorkEntry, in, opts)
}

func (c *workEntryServiceClient) ReviewWorkEntry(ctx context.Context, in *ReviewWorkEntryRequest, opts ...grpc.CallOption) (*WorkEntryResponse, error) {
	return invoke[WorkEntryResponse](ctx, c.cc, FullMethodReviewWorkEntry, in, opts)
}

func (c *workEntryServiceClient) GetWorkEntry(ctx context.Context, in *GetWorkEntryRequest, opts ...grpc.CallOption) (*WorkEntryResponse, error) {
	return invoke[WorkEntryResponse](ctx, c.cc, FullMethodGetWorkEntry, in, opts)
}

func (c *workEntryServiceClient) ListPendingReviews(ctx context.Context, in *ListPendingReviewsRequest, opts ...grpc.CallOption) (*ListWorkEntriesResponse, error) {
	return invoke[ListWorkEntriesResponse](ctx, c.cc, FullMethodListPendingReviews, in, opts)
}

func (c *workEntryServiceClient) ListReviews(ctx context.Context, in *ListReviewsRequest, opts ...grpc.CallOption) (*ListWorkEntriesResponse, error) {
	return invoke[ListWorkEntriesResponse](ctx, c.cc, FullMethodListReviews, in, opts)
}

func (c *workEntryServiceClient) ListReviewHistory(ctx context.Context, in *ListReviewHistoryRequest, opts ...grpc.CallOption) (*ListReviewHistoryResponse, error) {
	return invoke[ListReviewHistoryResponse](ctx, c.cc, FullMethodListReviewHistory, in, opts)
}
